package testhelpers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/catenax-ng/exchange-gateway/internal/domain"
)

// NewRequest returns a valid exchange request in state REQUESTED.
func NewRequest(t *testing.T) *domain.ExchangeRequest {
	req, err := domain.NewExchangeRequest(
		"req-"+uuid.New().String(),
		"BPNL1234567890ZZ",
		"MNR-7307-7776",
		domain.AssetItemStock,
		domain.DirectionInbound,
	)
	require.NoError(t, err)
	return req
}

// SeedPartner inserts a partner with one known material.
func (td *TestDatabase) SeedPartner(t *testing.T, bpnl, ownMaterialNumber string) {
	ctx := context.Background()

	_, err := td.DB.Pool.Exec(ctx,
		`INSERT INTO partners (bpnl, name, dsp_url) VALUES ($1, $2, $3)
		 ON CONFLICT (bpnl) DO NOTHING`,
		bpnl, "Test Partner", "https://partner.example.com/api/dsp")
	require.NoError(t, err)

	_, err = td.DB.Pool.Exec(ctx,
		`INSERT INTO partner_materials (partner_bpnl, own_material_number) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		bpnl, ownMaterialNumber)
	require.NoError(t, err)
}
