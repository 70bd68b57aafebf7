package services_test

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/catenax-ng/exchange-gateway/internal/application"
	"github.com/catenax-ng/exchange-gateway/internal/domain"
)

// memoryRequestRepository is an in-memory substitute for the postgres
// repository, enforcing the same duplicate and not-found semantics.
type memoryRequestRepository struct {
	mu   sync.Mutex
	reqs map[string]domain.ExchangeRequest
}

func newMemoryRequestRepository() *memoryRequestRepository {
	return &memoryRequestRepository{reqs: make(map[string]domain.ExchangeRequest)}
}

func (r *memoryRequestRepository) Create(ctx context.Context, req *domain.ExchangeRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.reqs[req.RequestID]; exists {
		return domain.ErrDuplicateRequest
	}
	r.reqs[req.RequestID] = *req
	return nil
}

func (r *memoryRequestRepository) Update(ctx context.Context, req *domain.ExchangeRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.reqs[req.RequestID]; !exists {
		return domain.ErrRequestNotFound
	}
	r.reqs[req.RequestID] = *req
	return nil
}

func (r *memoryRequestRepository) FindByID(ctx context.Context, requestID string) (*domain.ExchangeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, exists := r.reqs[requestID]
	if !exists {
		return nil, domain.ErrRequestNotFound
	}
	return &req, nil
}

func (r *memoryRequestRepository) FindByAckID(ctx context.Context, ackID string) (*domain.ExchangeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.reqs {
		if req.AckID != nil && *req.AckID == ackID {
			return &req, nil
		}
	}
	return nil, domain.ErrRequestNotFound
}

func (r *memoryRequestRepository) FindByPartner(ctx context.Context, partnerBpnl string) ([]domain.ExchangeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var reqs []domain.ExchangeRequest
	for _, req := range r.reqs {
		if req.PartnerBpnl == partnerBpnl {
			reqs = append(reqs, req)
		}
	}
	sort.Slice(reqs, func(i, j int) bool {
		return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
	})
	return reqs, nil
}

type mockPartnerRegistry struct {
	KnowsPartnerFn  func(ctx context.Context, partnerBpnl string) (bool, error)
	KnowsMaterialFn func(ctx context.Context, partnerBpnl, ownMaterialNumber string) (bool, error)
	DspURLFn        func(ctx context.Context, partnerBpnl string) (string, error)
}

func (m *mockPartnerRegistry) KnowsPartner(ctx context.Context, partnerBpnl string) (bool, error) {
	if m.KnowsPartnerFn != nil {
		return m.KnowsPartnerFn(ctx, partnerBpnl)
	}
	return true, nil
}

func (m *mockPartnerRegistry) KnowsMaterial(ctx context.Context, partnerBpnl, ownMaterialNumber string) (bool, error) {
	if m.KnowsMaterialFn != nil {
		return m.KnowsMaterialFn(ctx, partnerBpnl, ownMaterialNumber)
	}
	return true, nil
}

func (m *mockPartnerRegistry) DspURL(ctx context.Context, partnerBpnl string) (string, error) {
	if m.DspURLFn != nil {
		return m.DspURLFn(ctx, partnerBpnl)
	}
	return "https://partner.example.com/api/dsp", nil
}

type mockBackend struct {
	refreshCalls     atomic.Int32
	RequestRefreshFn func(ctx context.Context, req application.RefreshRequest) (string, error)
}

func (m *mockBackend) RequestRefresh(ctx context.Context, req application.RefreshRequest) (string, error) {
	m.refreshCalls.Add(1)
	if m.RequestRefreshFn != nil {
		return m.RequestRefreshFn(ctx, req)
	}
	return "ack-" + uuid.New().String(), nil
}

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
		AuthSecret:     "token-" + contract.ContractID,
		DataPlaneURL:   "https://partner.example.com/api/public",
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

type mockMapper struct {
	ToWireFn   func(assetType domain.AssetType, schemaVersion string, record any) ([]byte, error)
	FromWireFn func(assetType domain.AssetType, schemaVersion string, data []byte) (any, error)
}

func (m *mockMapper) ToWire(assetType domain.AssetType, schemaVersion string, record any) ([]byte, error) {
	if m.ToWireFn != nil {
		return m.ToWireFn(assetType, schemaVersion, record)
	}
	return json.Marshal(record)
}

func (m *mockMapper) FromWire(assetType domain.AssetType, schemaVersion string, data []byte) (any, error) {
	if m.FromWireFn != nil {
		return m.FromWireFn(assetType, schemaVersion, data)
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return record, nil
}

type mockRecordStore struct {
	storeCalls  atomic.Int32
	latestCalls atomic.Int32

	StoreFn  func(ctx context.Context, partnerBpnl, ownMaterialNumber string, assetType domain.AssetType, direction domain.Direction, record any) error
	LatestFn func(ctx context.Context, partnerBpnl, ownMaterialNumber string, assetType domain.AssetType, direction domain.Direction) (any, error)
}

func (m *mockRecordStore) Store(ctx context.Context, partnerBpnl, ownMaterialNumber string, assetType domain.AssetType, direction domain.Direction, record any) error {
	m.storeCalls.Add(1)
	if m.StoreFn != nil {
		return m.StoreFn(ctx, partnerBpnl, ownMaterialNumber, assetType, direction, record)
	}
	return nil
}

func (m *mockRecordStore) Latest(ctx context.Context, partnerBpnl, ownMaterialNumber string, assetType domain.AssetType, direction domain.Direction) (any, error) {
	m.latestCalls.Add(1)
	if m.LatestFn != nil {
		return m.LatestFn(ctx, partnerBpnl, ownMaterialNumber, assetType, direction)
	}
	return map[string]any{"materialNumber": ownMaterialNumber, "quantity": 42.0}, nil
}

type terminalEvent struct {
	requestID string
	causeCode string
}

// recordingListener funnels terminal notifications into channels so tests
// can wait for asynchronous processing to finish.
type recordingListener struct {
	completed chan terminalEvent
	errored   chan terminalEvent
}

func newRecordingListener() *recordingListener {
	return &recordingListener{
		completed: make(chan terminalEvent, 16),
		errored:   make(chan terminalEvent, 16),
	}
}

func (l *recordingListener) OnCompleted(req *domain.ExchangeRequest) {
	l.completed <- terminalEvent{requestID: req.RequestID}
}

func (l *recordingListener) OnError(req *domain.ExchangeRequest, causeCode string) {
	l.errored <- terminalEvent{requestID: req.RequestID, causeCode: causeCode}
}
