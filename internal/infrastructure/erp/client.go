// Package erp talks to the backend-of-record adapter. A refresh request is
// fire-and-forget: the adapter answers later through the coordinator's
// backend-answer callback, correlated by the acknowledgement id minted here.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/catenax-ng/exchange-gateway/internal/application"
	"github.com/catenax-ng/exchange-gateway/internal/config"
	"github.com/google/uuid"
)

type HTTPBackendClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewBackendClient(cfg config.ErpAdapterConfig) application.BackendClient {
	return &HTTPBackendClient{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.ConnTimeout,
		},
	}
}

type refreshRequestBody struct {
	RequestID         string `json:"requestId"`
	PartnerBpnl       string `json:"partnerBpnl"`
	OwnMaterialNumber string `json:"ownMaterialNumber"`
	RequestType       string `json:"requestType"`
	Direction         string `json:"direction,omitempty"`
	SchemaVersion     string `json:"sammVersion"`
}

func (c *HTTPBackendClient) RequestRefresh(ctx context.Context, req application.RefreshRequest) (string, error) {
	ackID := uuid.New().String()

	body := refreshRequestBody{
		RequestID:         ackID,
		PartnerBpnl:       req.PartnerBpnl,
		OwnMaterialNumber: req.OwnMaterialNumber,
		RequestType:       string(req.AssetType),
		Direction:         string(req.Direction),
		SchemaVersion:     req.SchemaVersion,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("error marshalling json: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/refresh", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("erp adapter returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return ackID, nil
}
