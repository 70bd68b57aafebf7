package domain

import "time"

// NegotiationEntry is the durable outcome of a usage contract negotiation
// with a partner's gateway for one asset type. Contracts in this domain are
// not time-boxed: an entry stays valid until the counterpart rejects it.
type NegotiationEntry struct {
	PartnerBpnl   string
	AssetType     AssetType
	ContractID    string
	RemoteAssetID string
	PartnerDspURL string
	NegotiatedAt  time.Time
}

// CredentialEntry holds the short-lived data-plane access credentials
// obtained for a negotiated contract. Never usable at or past ExpiresAt.
type CredentialEntry struct {
	ContractID     string
	AuthHeaderName string
	AuthSecret     string
	DataPlaneURL   string
	ExpiresAt      time.Time
}

// Expired reports whether the credentials must not be used at the given instant.
func (c *CredentialEntry) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
