package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/catenax-ng/exchange-gateway/internal/domain"
)

// RecordRepository keeps the business records that answered past exchanges.
// The newest record per partner, material, asset type and direction serves
// deferred requests between backend pulls.
type RecordRepository struct {
	db *DB
}

func NewRecordRepository(db *DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) Store(ctx context.Context, partnerBpnl, ownMaterialNumber string, assetType domain.AssetType, direction domain.Direction, record any) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	query := `
		INSERT INTO exchange_records (
			partner_bpnl, own_material_number, asset_type, direction, payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.Pool.Exec(ctx, query,
		partnerBpnl,
		ownMaterialNumber,
		string(assetType),
		string(direction),
		payload,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("store exchange record: %w", err)
	}
	return nil
}

func (r *RecordRepository) Latest(ctx context.Context, partnerBpnl, ownMaterialNumber string, assetType domain.AssetType, direction domain.Direction) (any, error) {
	query := `
		SELECT payload FROM exchange_records
		WHERE partner_bpnl = $1 AND own_material_number = $2
		  AND asset_type = $3 AND direction = $4
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var payload []byte
	err := r.db.Pool.QueryRow(ctx, query,
		partnerBpnl, ownMaterialNumber, string(assetType), string(direction),
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("query latest exchange record: %w", err)
	}

	var record any
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("unmarshal exchange record: %w", err)
	}
	return record, nil
}
