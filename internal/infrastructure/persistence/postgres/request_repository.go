package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/catenax-ng/exchange-gateway/internal/domain"
	"github.com/jackc/pgx/v5"
)

type RequestRepository struct {
	db *DB
}

func NewRequestRepository(db *DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create records a fresh exchange request. The primary key on request_id
// enforces the duplicate rule: an id already tracked in any state, terminal
// included, is rejected.
func (r *RequestRepository) Create(ctx context.Context, req *domain.ExchangeRequest) error {
	query := `
		INSERT INTO exchange_requests (
            request_id, partner_bpnl, own_material_number, asset_type, direction,
            state, cause_code, ack_id, created_at, last_transition_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	m := toDBModel(req)
	_, err := r.db.Pool.Exec(ctx, query,
		m.RequestID,
		m.PartnerBpnl,
		m.OwnMaterialNumber,
		m.AssetType,
		m.Direction,
		m.State,
		m.CauseCode,
		m.AckID,
		m.CreatedAt,
		m.LastTransitionAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.ErrDuplicateRequest
		}
		return fmt.Errorf("failed to create exchange request: %w", err)
	}

	return nil
}

// Update persists a state transition. Only the mutable columns change;
// identity columns are immutable after Create.
func (r *RequestRepository) Update(ctx context.Context, req *domain.ExchangeRequest) error {
	query := `
		UPDATE exchange_requests
		SET state = $1, cause_code = $2, ack_id = $3, last_transition_at = $4
		WHERE request_id = $5
	`

	m := toDBModel(req)
	tag, err := r.db.Pool.Exec(ctx, query,
		m.State,
		m.CauseCode,
		m.AckID,
		m.LastTransitionAt,
		m.RequestID,
	)
	if err != nil {
		return fmt.Errorf("failed to update exchange request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRequestNotFound
	}

	return nil
}

func (r *RequestRepository) FindByID(ctx context.Context, requestID string) (*domain.ExchangeRequest, error) {
	query := `
		SELECT request_id, partner_bpnl, own_material_number, asset_type, direction,
		       state, cause_code, ack_id, created_at, last_transition_at
		FROM exchange_requests WHERE request_id = $1
	`

	row := r.db.Pool.QueryRow(ctx, query, requestID)
	return scanRequest(row)
}

func (r *RequestRepository) FindByAckID(ctx context.Context, ackID string) (*domain.ExchangeRequest, error) {
	query := `
		SELECT request_id, partner_bpnl, own_material_number, asset_type, direction,
		       state, cause_code, ack_id, created_at, last_transition_at
		FROM exchange_requests WHERE ack_id = $1
	`

	row := r.db.Pool.QueryRow(ctx, query, ackID)
	return scanRequest(row)
}

// FindByPartner lists requests for a partner, newest first, for audit queries.
func (r *RequestRepository) FindByPartner(ctx context.Context, partnerBpnl string) ([]domain.ExchangeRequest, error) {
	query := `
		SELECT request_id, partner_bpnl, own_material_number, asset_type, direction,
		       state, cause_code, ack_id, created_at, last_transition_at
		FROM exchange_requests WHERE partner_bpnl = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, partnerBpnl)
	if err != nil {
		return nil, fmt.Errorf("query exchange requests by partner: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ExchangeRequest, error) {
		var m ExchangeRequestModel
		err := row.Scan(
			&m.RequestID, &m.PartnerBpnl, &m.OwnMaterialNumber, &m.AssetType, &m.Direction,
			&m.State, &m.CauseCode, &m.AckID, &m.CreatedAt, &m.LastTransitionAt,
		)
		return *toDomainModel(m), err
	})
}

func scanRequest(row pgx.Row) (*domain.ExchangeRequest, error) {
	var m ExchangeRequestModel
	err := row.Scan(
		&m.RequestID, &m.PartnerBpnl, &m.OwnMaterialNumber, &m.AssetType, &m.Direction,
		&m.State, &m.CauseCode, &m.AckID, &m.CreatedAt, &m.LastTransitionAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, fmt.Errorf("scan exchange request: %w", err)
	}
	return toDomainModel(m), nil
}
