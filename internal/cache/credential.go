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

// CredentialCache holds the short-lived data-plane credentials obtained per
// negotiated contract. An expired entry is treated as a miss on access and
// evicted; the background sweep keeps the cache from growing unbounded when
// a contract goes quiet.
type CredentialCache struct {
	transport application.TransportClient
	timeout   time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.RWMutex
	entries map[string]*domain.CredentialEntry
	group   singleflight.Group
}

func NewCredentialCache(transport application.TransportClient, fetchTimeout time.Duration, logger *slog.Logger) *CredentialCache {
	return &CredentialCache{
		transport: transport,
		timeout:   fetchTimeout,
		logger:    logger,
		now:       time.Now,
		entries:   make(map[string]*domain.CredentialEntry),
	}
}

// GetOrFetch returns usable credentials for the contract, fetching fresh
// ones when none are cached or the cached ones have expired. Same
// single-flight discipline as the negotiation cache, keyed by contract id.
// An entry is never returned at or past its expiry instant.
func (c *CredentialCache) GetOrFetch(ctx context.Context, contract *domain.NegotiationEntry) (*domain.CredentialEntry, error) {
	contractID := contract.ContractID

	c.mu.RLock()
	entry, ok := c.entries[contractID]
	c.mu.RUnlock()
	if ok {
		if !entry.Expired(c.now()) {
			return entry, nil
		}
		// expired entries count as misses
		c.Evict(contractID)
	}

	ch := c.group.DoChan(contractID, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		fetched, err := c.transport.FetchCredentials(fctx, contract)
		if err != nil {
			c.logger.Error("credential fetch failed",
				"contract_id", contractID,
				"error", err,
			)
			return nil, err
		}

		c.mu.Lock()
		c.entries[contractID] = fetched
		c.mu.Unlock()

		c.logger.Debug("credentials fetched",
			"contract_id", contractID,
			"expires_at", fetched.ExpiresAt,
		)
		return fetched, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		fetched := res.Val.(*domain.CredentialEntry)
		if fetched.Expired(c.now()) {
			// the transfer handed out already-dead credentials
			c.Evict(contractID)
			return nil, &application.ServiceError{
				Code:    application.ErrCodeCredentialExpired,
				Message: "fetched credentials were already expired",
			}
		}
		return fetched, nil
	}
}

// Evict drops the credentials for a contract.
func (c *CredentialCache) Evict(contractID string) {
	c.mu.Lock()
	delete(c.entries, contractID)
	c.mu.Unlock()
}

// Sweep removes every expired entry and returns how many were evicted.
// Driven by a worker ticker.
func (c *CredentialCache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for contractID, entry := range c.entries {
		if entry.Expired(now) {
			delete(c.entries, contractID)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of cached credential entries, expired or not.
func (c *CredentialCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
