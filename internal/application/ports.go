package application

import (
	"context"

	"github.com/catenax-ng/exchange-gateway/internal/domain"
)

// TransportClient is the port for the dataspace connector. It hides the
// protocol wire format: negotiation and transfer calls are black boxes.
type TransportClient interface {
	// Negotiate establishes a usage contract with the partner's gateway for
	// one asset type. partnerDspURL addresses the partner's connector; the
	// connector cannot reach a counterparty it is not told about.
	Negotiate(ctx context.Context, partnerBpnl, partnerDspURL string, assetType domain.AssetType) (*domain.NegotiationEntry, error)

	// FetchCredentials initiates a transfer for a negotiated contract and
	// returns the short-lived data-plane credentials.
	FetchCredentials(ctx context.Context, contract *domain.NegotiationEntry) (*domain.CredentialEntry, error)

	// Send delivers a payload through the partner's data plane.
	Send(ctx context.Context, endpoint string, credentials *domain.CredentialEntry, payload []byte) error
}

// BackendClient is the port for the backend-of-record (ERP) adapter.
// RequestRefresh is fire-and-forget: the data arrives later through
// Coordinator.OnBackendAnswer, correlated by the returned acknowledgement id.
type BackendClient interface {
	RequestRefresh(ctx context.Context, req RefreshRequest) (ackID string, err error)
}

// RefreshRequest identifies the slice of backend-of-record data to pull.
type RefreshRequest struct {
	PartnerBpnl       string
	OwnMaterialNumber string
	AssetType         domain.AssetType
	Direction         domain.Direction
	SchemaVersion     string
}

// PayloadMapper converts between internal business records and the
// versioned wire schemas. Implemented elsewhere; the coordinator only moves
// opaque records through it.
type PayloadMapper interface {
	ToWire(assetType domain.AssetType, schemaVersion string, record any) ([]byte, error)
	FromWire(assetType domain.AssetType, schemaVersion string, data []byte) (any, error)
}

// RecordStore persists the business records that result from a completed
// exchange and serves the last known answer when a backend pull is deferred.
type RecordStore interface {
	Store(ctx context.Context, partnerBpnl, ownMaterialNumber string, assetType domain.AssetType, direction domain.Direction, record any) error
	Latest(ctx context.Context, partnerBpnl, ownMaterialNumber string, assetType domain.AssetType, direction domain.Direction) (any, error)
}

// PartnerRegistry answers whether a BPNL belongs to a known partner and
// whether that partner sources or receives the given material.
type PartnerRegistry interface {
	KnowsPartner(ctx context.Context, partnerBpnl string) (bool, error)
	KnowsMaterial(ctx context.Context, partnerBpnl, ownMaterialNumber string) (bool, error)
	// DspURL resolves the partner's DSP endpoint used as the negotiation
	// counterparty address.
	DspURL(ctx context.Context, partnerBpnl string) (string, error)
}

// RequestRepository is the port for exchange request persistence. The table
// is an append-only audit trail: requests are created once and updated
// through state transitions, never deleted.
type RequestRepository interface {
	// Create records a fresh request; returns domain.ErrDuplicateRequest if
	// the id is already tracked, in any state.
	Create(ctx context.Context, req *domain.ExchangeRequest) error
	Update(ctx context.Context, req *domain.ExchangeRequest) error
	FindByID(ctx context.Context, requestID string) (*domain.ExchangeRequest, error)
	FindByAckID(ctx context.Context, ackID string) (*domain.ExchangeRequest, error)
	// FindByPartner lists every request addressed to one partner, newest
	// first.
	FindByPartner(ctx context.Context, partnerBpnl string) ([]domain.ExchangeRequest, error)
}

// CompletionListener is notified exactly once when a request reaches a
// terminal state. Metrics and business-record persistence hang off this.
type CompletionListener interface {
	OnCompleted(req *domain.ExchangeRequest)
	OnError(req *domain.ExchangeRequest, causeCode string)
}
