// Package edc talks to the dataspace connector's management API. The
// negotiation and transfer protocol details stay behind the
// application.TransportClient port; the coordination layer never sees them.
package edc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/catenax-ng/exchange-gateway/internal/application"
	"github.com/catenax-ng/exchange-gateway/internal/config"
	"github.com/catenax-ng/exchange-gateway/internal/domain"
)

type HTTPTransportClient struct {
	managementURL string
	apiKey        string
	pollInterval  time.Duration
	httpClient    *http.Client
}

func NewTransportClient(cfg config.ConnectorConfig) application.TransportClient {
	return &HTTPTransportClient{
		managementURL: cfg.ManagementURL,
		apiKey:        cfg.APIKey,
		pollInterval:  cfg.PollInterval,
		httpClient: &http.Client{
			Timeout: cfg.ConnTimeout,
		},
	}
}

type negotiationRequest struct {
	CounterPartyID      string `json:"counterPartyId"`
	CounterPartyAddress string `json:"counterPartyAddress"`
	AssetType           string `json:"assetType"`
	SemanticID          string `json:"semanticId"`
}

type negotiationState struct {
	ID                  string `json:"@id"`
	State               string `json:"state"`
	ContractAgreementID string `json:"contractAgreementId"`
	AssetID             string `json:"assetId"`
	CounterPartyAddress string `json:"counterPartyAddress"`
}

type transferRequest struct {
	ContractID          string `json:"contractId"`
	CounterPartyAddress string `json:"counterPartyAddress"`
	TransferType        string `json:"transferType"`
}

type transferState struct {
	ID    string `json:"@id"`
	State string `json:"state"`
}

type dataAddress struct {
	Endpoint      string `json:"endpoint"`
	AuthKey       string `json:"authKey"`
	AuthCode      string `json:"authCode"`
	ExpiresAfterS int64  `json:"expiresAfterSeconds"`
}

// Negotiate runs a full contract negotiation against the partner addressed
// by its BPNL and DSP endpoint and blocks until the connector reports the
// negotiation FINALIZED or ctx runs out.
func (c *HTTPTransportClient) Negotiate(ctx context.Context, partnerBpnl, partnerDspURL string, assetType domain.AssetType) (*domain.NegotiationEntry, error) {
	req := negotiationRequest{
		CounterPartyID:      partnerBpnl,
		CounterPartyAddress: partnerDspURL,
		AssetType:           string(assetType),
		SemanticID:          assetType.SemanticID(),
	}

	started, err := sendRequest[negotiationRequest, negotiationState](c, ctx, http.MethodPost, c.url("v3", "contractnegotiations"), &req)
	if err != nil {
		return nil, err
	}

	final, err := c.awaitNegotiation(ctx, started.ID)
	if err != nil {
		return nil, err
	}

	// Older connector versions leave counterPartyAddress out of the
	// negotiation state, so fall back to the address we dialed.
	dspURL := final.CounterPartyAddress
	if dspURL == "" {
		dspURL = partnerDspURL
	}

	return &domain.NegotiationEntry{
		PartnerBpnl:   partnerBpnl,
		AssetType:     assetType,
		ContractID:    final.ContractAgreementID,
		RemoteAssetID: final.AssetID,
		PartnerDspURL: dspURL,
		NegotiatedAt:  time.Now(),
	}, nil
}

// FetchCredentials initiates a proxy-pull transfer for the contract and
// returns the endpoint data reference handed out by the counterpart.
func (c *HTTPTransportClient) FetchCredentials(ctx context.Context, contract *domain.NegotiationEntry) (*domain.CredentialEntry, error) {
	req := transferRequest{
		ContractID:          contract.ContractID,
		CounterPartyAddress: contract.PartnerDspURL,
		TransferType:        "HttpData-PULL",
	}

	started, err := sendRequest[transferRequest, transferState](c, ctx, http.MethodPost, c.url("v3", "transferprocesses"), &req)
	if err != nil {
		return nil, err
	}

	if err := c.awaitTransfer(ctx, started.ID); err != nil {
		return nil, err
	}

	edr, err := sendRequest[any, dataAddress](c, ctx, http.MethodGet, c.url("v3", "edrs", started.ID, "dataaddress"), nil)
	if err != nil {
		return nil, err
	}

	return &domain.CredentialEntry{
		ContractID:     contract.ContractID,
		AuthHeaderName: edr.AuthKey,
		AuthSecret:     edr.AuthCode,
		DataPlaneURL:   edr.Endpoint,
		ExpiresAt:      time.Now().Add(time.Duration(edr.ExpiresAfterS) * time.Second),
	}, nil
}

// Send delivers a payload through the partner's data plane using the given
// credentials. A 2xx from the counterpart acknowledges receipt.
func (c *HTTPTransportClient) Send(ctx context.Context, endpoint string, credentials *domain.CredentialEntry, payload []byte) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(credentials.AuthHeaderName, credentials.AuthSecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readTransportError(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *HTTPTransportClient) awaitNegotiation(ctx context.Context, negotiationID string) (*negotiationState, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		state, err := sendRequest[any, negotiationState](c, ctx, http.MethodGet, c.url("v3", "contractnegotiations", negotiationID), nil)
		if err != nil {
			return nil, err
		}

		switch state.State {
		case "FINALIZED":
			return state, nil
		case "TERMINATED":
			return nil, &TransportError{
				Code:       "negotiation_terminated",
				Message:    fmt.Sprintf("negotiation %s was terminated by the counterpart", negotiationID),
				StatusCode: http.StatusConflict,
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *HTTPTransportClient) awaitTransfer(ctx context.Context, transferID string) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		state, err := sendRequest[any, transferState](c, ctx, http.MethodGet, c.url("v3", "transferprocesses", transferID), nil)
		if err != nil {
			return err
		}

		switch state.State {
		case "STARTED":
			return nil
		case "TERMINATED":
			return &TransportError{
				Code:       "transfer_terminated",
				Message:    fmt.Sprintf("transfer %s was terminated by the counterpart", transferID),
				StatusCode: http.StatusConflict,
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *HTTPTransportClient) url(segments ...string) string {
	url := c.managementURL
	for _, s := range segments {
		url += "/" + s
	}
	return url
}

func sendRequest[Req any, Resp any](c *HTTPTransportClient, ctx context.Context, method, url string, reqBody *Req) (*Resp, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("error marshalling json: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readTransportError(resp)
	}

	var parsed Resp
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}

	return &parsed, nil
}

func readTransportError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var errResp transportErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return fmt.Errorf("connector returned status %d: %s", resp.StatusCode, string(body))
	}
	return &TransportError{
		Code:       errResp.Err,
		Message:    errResp.Message,
		StatusCode: resp.StatusCode,
	}
}
