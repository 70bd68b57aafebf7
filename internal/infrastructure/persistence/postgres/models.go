package postgres

import (
	"time"
)

// ExchangeRequestModel mirrors the exchange_requests table. Rows are an
// append-only audit trail: updated through state transitions, never deleted.
type ExchangeRequestModel struct {
	RequestID         string
	PartnerBpnl       string
	OwnMaterialNumber string
	AssetType         string
	Direction         string
	State             string
	CauseCode         *string
	AckID             *string
	CreatedAt         time.Time
	LastTransitionAt  time.Time
}
