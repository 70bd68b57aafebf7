package cache

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/catenax-ng/exchange-gateway/internal/domain"
)

// ScheduleKey identifies one refresh schedule. Direction is empty for asset
// types that carry none (notifications).
type ScheduleKey struct {
	PartnerBpnl       string
	OwnMaterialNumber string
	AssetType         domain.AssetType
	Direction         domain.Direction
}

// Decision is the scheduler's verdict for a pending request.
type Decision int

const (
	// DecisionRefresh: forward the request to the backend-of-record now.
	DecisionRefresh Decision = iota
	// DecisionDeferred: answer from the last known local data; a backend
	// pull is already scheduled for later.
	DecisionDeferred
)

func (d Decision) String() string {
	switch d {
	case DecisionRefresh:
		return "refresh"
	case DecisionDeferred:
		return "deferred"
	}
	return "unknown"
}

type schedule struct {
	lastPartnerRequest time.Time
	nextScheduled      time.Time
}

// RefreshScheduler throttles backend-of-record pulls per
// (partner, material, asset type, direction). Partners may poll far more
// often than the backend can usefully refresh; anything inside the refresh
// interval is answered from the last known data.
type RefreshScheduler struct {
	refreshInterval time.Duration
	stalenessLimit  time.Duration
	retention       time.Duration
	logger          *slog.Logger

	mu        sync.Mutex
	schedules map[ScheduleKey]*schedule
}

// NewRefreshScheduler builds a scheduler. stalenessLimit must be at least
// refreshInterval, otherwise every call would force a refresh and the
// throttle would be defeated.
func NewRefreshScheduler(refreshInterval, stalenessLimit, retention time.Duration, logger *slog.Logger) (*RefreshScheduler, error) {
	if refreshInterval <= 0 {
		return nil, errors.New("refresh interval must be positive")
	}
	if stalenessLimit < refreshInterval {
		return nil, errors.New("staleness limit must be >= refresh interval")
	}
	return &RefreshScheduler{
		refreshInterval: refreshInterval,
		stalenessLimit:  stalenessLimit,
		retention:       retention,
		logger:          logger,
		schedules:       make(map[ScheduleKey]*schedule),
	}, nil
}

// ShouldRefreshNow records the partner request at `now` and decides whether
// the caller must pull fresh data from the backend-of-record. The check and
// the advance of nextScheduled happen under one lock, so two concurrent
// requests for the same key cannot both win a refresh.
func (s *RefreshScheduler) ShouldRefreshNow(key ScheduleKey, now time.Time) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.schedules[key]
	if !ok {
		s.schedules[key] = &schedule{
			lastPartnerRequest: now,
			nextScheduled:      now.Add(s.refreshInterval),
		}
		s.logger.Info("new refresh schedule",
			"partner", key.PartnerBpnl,
			"material", key.OwnMaterialNumber,
			"asset_type", key.AssetType,
			"direction", key.Direction,
		)
		return DecisionRefresh
	}

	entry.lastPartnerRequest = now

	due := !now.Before(entry.nextScheduled)
	// a schedule that silently went stale overrides any "already scheduled" state
	stale := now.Sub(entry.nextScheduled) > s.stalenessLimit
	if due || stale {
		// nextScheduled only ever advances forward
		entry.nextScheduled = now.Add(s.refreshInterval)
		return DecisionRefresh
	}

	return DecisionDeferred
}

// Prune drops schedules whose partner has not asked for the key within the
// retention window; there is no point in keeping a pull cadence for data
// nobody requests anymore. Returns the number of dropped schedules.
func (s *RefreshScheduler) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for key, entry := range s.schedules {
		if now.Sub(entry.lastPartnerRequest) >= s.retention {
			delete(s.schedules, key)
			pruned++
			s.logger.Info("dropped idle refresh schedule",
				"partner", key.PartnerBpnl,
				"material", key.OwnMaterialNumber,
				"asset_type", key.AssetType,
			)
		}
	}
	return pruned
}

// Len returns the number of active schedules.
func (s *RefreshScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.schedules)
}
