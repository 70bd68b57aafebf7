package postgres

import (
	"github.com/catenax-ng/exchange-gateway/internal/domain"
)

// toDomainModel: maps db model to domain entity
func toDomainModel(m ExchangeRequestModel) *domain.ExchangeRequest {
	return domain.Reconstitute(
		m.RequestID,
		m.PartnerBpnl,
		m.OwnMaterialNumber,
		domain.AssetType(m.AssetType),
		domain.Direction(m.Direction),
		domain.RequestState(m.State),
		m.CauseCode,
		m.AckID,
		m.CreatedAt,
		m.LastTransitionAt,
	)
}

// toDBModel: maps domain entity to db model
func toDBModel(r *domain.ExchangeRequest) *ExchangeRequestModel {
	return &ExchangeRequestModel{
		RequestID:         r.RequestID,
		PartnerBpnl:       r.PartnerBpnl,
		OwnMaterialNumber: r.OwnMaterialNumber,
		AssetType:         string(r.AssetType),
		Direction:         string(r.Direction),
		State:             string(r.State),
		CauseCode:         r.CauseCode,
		AckID:             r.AckID,
		CreatedAt:         r.CreatedAt,
		LastTransitionAt:  r.LastTransitionAt,
	}
}
