package services

import (
	"log/slog"
	"time"

	"github.com/catenax-ng/exchange-gateway/internal/domain"
)

// LogListener records terminal request outcomes in the audit log.
type LogListener struct {
	logger *slog.Logger
}

func NewLogListener(logger *slog.Logger) *LogListener {
	return &LogListener{logger: logger}
}

func (l *LogListener) OnCompleted(req *domain.ExchangeRequest) {
	l.logger.Info("exchange request completed",
		"request_id", req.RequestID,
		"partner", req.PartnerBpnl,
		"asset_type", req.AssetType,
		"direction", req.Direction,
		"took", req.LastTransitionAt.Sub(req.CreatedAt).Round(time.Millisecond),
	)
}

func (l *LogListener) OnError(req *domain.ExchangeRequest, causeCode string) {
	l.logger.Warn("exchange request failed",
		"request_id", req.RequestID,
		"partner", req.PartnerBpnl,
		"asset_type", req.AssetType,
		"direction", req.Direction,
		"cause", causeCode,
	)
}
