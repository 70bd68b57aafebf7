package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/catenax-ng/exchange-gateway/internal/domain"
	"github.com/jackc/pgx/v5"
)

// PartnerRepository answers partner and material lookups from the master
// data tables. Master data is maintained out of band; this repository only
// reads it.
type PartnerRepository struct {
	db *DB
}

func NewPartnerRepository(db *DB) *PartnerRepository {
	return &PartnerRepository{db: db}
}

func (r *PartnerRepository) KnowsPartner(ctx context.Context, partnerBpnl string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM partners WHERE bpnl = $1)`

	var known bool
	if err := r.db.Pool.QueryRow(ctx, query, partnerBpnl).Scan(&known); err != nil {
		return false, fmt.Errorf("query partner %s: %w", partnerBpnl, err)
	}
	return known, nil
}

func (r *PartnerRepository) KnowsMaterial(ctx context.Context, partnerBpnl, ownMaterialNumber string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM partner_materials
			WHERE partner_bpnl = $1 AND own_material_number = $2
		)
	`

	var known bool
	if err := r.db.Pool.QueryRow(ctx, query, partnerBpnl, ownMaterialNumber).Scan(&known); err != nil {
		return false, fmt.Errorf("query material %s for partner %s: %w", ownMaterialNumber, partnerBpnl, err)
	}
	return known, nil
}

// DspURL resolves the partner's DSP endpoint for contract negotiation.
func (r *PartnerRepository) DspURL(ctx context.Context, partnerBpnl string) (string, error) {
	query := `SELECT dsp_url FROM partners WHERE bpnl = $1`

	var dspURL string
	if err := r.db.Pool.QueryRow(ctx, query, partnerBpnl).Scan(&dspURL); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.NewUnknownPartnerError(partnerBpnl)
		}
		return "", fmt.Errorf("query dsp url for partner %s: %w", partnerBpnl, err)
	}
	return dspURL, nil
}
