// Package cache holds the shared mutable state of the exchange gateway: the
// negotiation and credential caches and the backend refresh scheduler. All
// synchronization is key-scoped; there is no global lock across unrelated keys.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/catenax-ng/exchange-gateway/internal/application"
	"github.com/catenax-ng/exchange-gateway/internal/domain"
	"golang.org/x/sync/singleflight"
)

type negotiationKey struct {
	partnerBpnl string
	assetType   domain.AssetType
}

func (k negotiationKey) String() string {
	return k.partnerBpnl + "|" + string(k.assetType)
}

// NegotiationCache remembers established usage contracts per
// (partner, asset type) so the latency-heavy negotiation runs at most once
// per key. Contracts are non-expiring: the only eviction trigger besides
// process restart is the counterpart rejecting a cached contract.
type NegotiationCache struct {
	transport application.TransportClient
	timeout   time.Duration
	logger    *slog.Logger

	mu      sync.RWMutex
	entries map[negotiationKey]*domain.NegotiationEntry
	group   singleflight.Group
}

func NewNegotiationCache(transport application.TransportClient, negotiationTimeout time.Duration, logger *slog.Logger) *NegotiationCache {
	return &NegotiationCache{
		transport: transport,
		timeout:   negotiationTimeout,
		logger:    logger,
		entries:   make(map[negotiationKey]*domain.NegotiationEntry),
	}
}

// GetOrNegotiate returns the cached contract for the key or negotiates one.
// Concurrent callers for the same key attach to a single in-flight
// negotiation and all receive its result. Failed negotiations are never
// cached; the next caller starts over.
//
// A caller whose ctx expires abandons only its own wait: the negotiation
// keeps running for the other waiters.
func (c *NegotiationCache) GetOrNegotiate(ctx context.Context, partnerBpnl, partnerDspURL string, assetType domain.AssetType) (*domain.NegotiationEntry, error) {
	key := negotiationKey{partnerBpnl: partnerBpnl, assetType: assetType}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return entry, nil
	}

	ch := c.group.DoChan(key.String(), func() (any, error) {
		// Detach from the first caller's lifetime so its timeout cannot
		// cancel the negotiation for later waiters.
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		c.logger.Info("negotiating contract",
			"partner", partnerBpnl,
			"asset_type", assetType,
		)

		negotiated, err := c.transport.Negotiate(nctx, partnerBpnl, partnerDspURL, assetType)
		if err != nil {
			c.logger.Error("contract negotiation failed",
				"partner", partnerBpnl,
				"asset_type", assetType,
				"error", err,
			)
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = negotiated
		c.mu.Unlock()

		c.logger.Info("contract negotiated",
			"partner", partnerBpnl,
			"asset_type", assetType,
			"contract_id", negotiated.ContractID,
		)
		return negotiated, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.NegotiationEntry), nil
	}
}

// Invalidate evicts the contract for the key. Called when the counterpart
// rejects a cached contract id as unknown or expired.
func (c *NegotiationCache) Invalidate(partnerBpnl string, assetType domain.AssetType) {
	key := negotiationKey{partnerBpnl: partnerBpnl, assetType: assetType}

	c.mu.Lock()
	_, existed := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()

	if existed {
		c.logger.Warn("evicted negotiated contract",
			"partner", partnerBpnl,
			"asset_type", assetType,
		)
	}
}

// Len returns the number of cached contracts.
func (c *NegotiationCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
