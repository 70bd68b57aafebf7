package cache_test

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/catenax-ng/exchange-gateway/internal/domain"
)

// mockTransport is a function-field fake for the dataspace transport port.
type mockTransport struct {
	negotiateCalls atomic.Int32
	fetchCalls     atomic.Int32
	sendCalls      atomic.Int32

	NegotiateFn        func(ctx context.Context, partnerBpnl, partnerDspURL string, assetType domain.AssetType) (*domain.NegotiationEntry, error)
	FetchCredentialsFn func(ctx context.Context, contract *domain.NegotiationEntry) (*domain.CredentialEntry, error)
	SendFn             func(ctx context.Context, endpoint string, credentials *domain.CredentialEntry, payload []byte) error
}

func (m *mockTransport) Negotiate(ctx context.Context, partnerBpnl, partnerDspURL string, assetType domain.AssetType) (*domain.NegotiationEntry, error) {
	m.negotiateCalls.Add(1)
	if m.NegotiateFn != nil {
		return m.NegotiateFn(ctx, partnerBpnl, partnerDspURL, assetType)
	}
	return &domain.NegotiationEntry{
		PartnerBpnl:   partnerBpnl,
		AssetType:     assetType,
		ContractID:    "contract-" + partnerBpnl + "-" + string(assetType),
		RemoteAssetID: "asset-" + string(assetType),
		PartnerDspURL: partnerDspURL,
		NegotiatedAt:  time.Now(),
	}, nil
}

func (m *mockTransport) FetchCredentials(ctx context.Context, contract *domain.NegotiationEntry) (*domain.CredentialEntry, error) {
	m.fetchCalls.Add(1)
	if m.FetchCredentialsFn != nil {
		return m.FetchCredentialsFn(ctx, contract)
	}
	return &domain.CredentialEntry{
		ContractID:     contract.ContractID,
		AuthHeaderName: "Authorization",
		AuthSecret:     "secret-" + contract.ContractID,
		DataPlaneURL:   "https://partner.example/api/public",
		ExpiresAt:      time.Now().Add(5 * time.Minute),
	}, nil
}

func (m *mockTransport) Send(ctx context.Context, endpoint string, credentials *domain.CredentialEntry, payload []byte) error {
	m.sendCalls.Add(1)
	if m.SendFn != nil {
		return m.SendFn(ctx, endpoint, credentials, payload)
	}
	return nil
}
