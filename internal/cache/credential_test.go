package cache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/catenax-ng/exchange-gateway/internal/application"
	"github.com/catenax-ng/exchange-gateway/internal/cache"
	"github.com/catenax-ng/exchange-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContract() *domain.NegotiationEntry {
	return &domain.NegotiationEntry{
		PartnerBpnl:   "BPNL-SUPPLIER",
		AssetType:     domain.AssetItemStock,
		ContractID:    "contract-1",
		PartnerDspURL: "https://partner.example/api/v1/dsp",
	}
}

func TestGetOrFetch(t *testing.T) {
	t.Run("fetches on miss and serves from cache afterwards", func(t *testing.T) {
		transport := &mockTransport{}
		c := cache.NewCredentialCache(transport, time.Minute, testLogger())

		first, err := c.GetOrFetch(context.Background(), testContract())
		require.NoError(t, err)
		assert.Equal(t, "contract-1", first.ContractID)

		second, err := c.GetOrFetch(context.Background(), testContract())
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, int32(1), transport.fetchCalls.Load())
	})

	t.Run("expired entry is a miss and triggers a fresh fetch", func(t *testing.T) {
		transport := &mockTransport{}
		transport.FetchCredentialsFn = func(ctx context.Context, contract *domain.NegotiationEntry) (*domain.CredentialEntry, error) {
			return &domain.CredentialEntry{
				ContractID: contract.ContractID,
				AuthSecret: "secret",
				ExpiresAt:  time.Now().Add(40 * time.Millisecond),
			}, nil
		}
		c := cache.NewCredentialCache(transport, time.Minute, testLogger())

		_, err := c.GetOrFetch(context.Background(), testContract())
		require.NoError(t, err)

		time.Sleep(60 * time.Millisecond)

		entry, err := c.GetOrFetch(context.Background(), testContract())
		require.NoError(t, err)
		assert.False(t, entry.Expired(time.Now()))
		assert.Equal(t, int32(2), transport.fetchCalls.Load())
	})

	t.Run("never returns credentials past expiry", func(t *testing.T) {
		transport := &mockTransport{}
		transport.FetchCredentialsFn = func(ctx context.Context, contract *domain.NegotiationEntry) (*domain.CredentialEntry, error) {
			// transfer handed out credentials that are already dead
			return &domain.CredentialEntry{
				ContractID: contract.ContractID,
				ExpiresAt:  time.Now().Add(-time.Second),
			}, nil
		}
		c := cache.NewCredentialCache(transport, time.Minute, testLogger())

		_, err := c.GetOrFetch(context.Background(), testContract())

		require.Error(t, err)
		svcErr, ok := application.IsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, application.ErrCodeCredentialExpired, svcErr.Code)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("concurrent callers share one fetch", func(t *testing.T) {
		const callers = 8

		release := make(chan struct{})
		transport := &mockTransport{}
		transport.FetchCredentialsFn = func(ctx context.Context, contract *domain.NegotiationEntry) (*domain.CredentialEntry, error) {
			<-release
			return &domain.CredentialEntry{
				ContractID: contract.ContractID,
				ExpiresAt:  time.Now().Add(5 * time.Minute),
			}, nil
		}
		c := cache.NewCredentialCache(transport, time.Minute, testLogger())

		var wg sync.WaitGroup
		errs := make([]error, callers)
		for i := range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = c.GetOrFetch(context.Background(), testContract())
			}()
		}

		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		for i := range callers {
			require.NoError(t, errs[i])
		}
		assert.Equal(t, int32(1), transport.fetchCalls.Load())
	})

	t.Run("fetch failures are not cached", func(t *testing.T) {
		transport := &mockTransport{}
		fail := true
		transport.FetchCredentialsFn = func(ctx context.Context, contract *domain.NegotiationEntry) (*domain.CredentialEntry, error) {
			if fail {
				return nil, errors.New("transfer process stuck")
			}
			return &domain.CredentialEntry{
				ContractID: contract.ContractID,
				ExpiresAt:  time.Now().Add(5 * time.Minute),
			}, nil
		}
		c := cache.NewCredentialCache(transport, time.Minute, testLogger())

		_, err := c.GetOrFetch(context.Background(), testContract())
		require.Error(t, err)
		assert.Equal(t, 0, c.Len())

		fail = false
		_, err = c.GetOrFetch(context.Background(), testContract())
		require.NoError(t, err)
	})
}

func TestSweep(t *testing.T) {
	transport := &mockTransport{}
	expiries := []time.Duration{-time.Minute, -time.Second, time.Hour}
	i := 0
	transport.FetchCredentialsFn = func(ctx context.Context, contract *domain.NegotiationEntry) (*domain.CredentialEntry, error) {
		entry := &domain.CredentialEntry{
			ContractID: contract.ContractID,
			ExpiresAt:  time.Now().Add(expiries[i]),
		}
		i++
		return entry, nil
	}
	c := cache.NewCredentialCache(transport, time.Minute, testLogger())

	for _, id := range []string{"contract-a", "contract-b", "contract-c"} {
		contract := testContract()
		contract.ContractID = id
		_, _ = c.GetOrFetch(context.Background(), contract)
	}

	// only the entry with the future expiry survived the return-path check
	require.Equal(t, 1, c.Len())

	evicted := c.Sweep(time.Now())
	assert.Equal(t, 0, evicted)
	assert.Equal(t, 1, c.Len())

	evicted = c.Sweep(time.Now().Add(2 * time.Hour))
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 0, c.Len())
}

func TestEvict(t *testing.T) {
	transport := &mockTransport{}
	c := cache.NewCredentialCache(transport, time.Minute, testLogger())

	_, err := c.GetOrFetch(context.Background(), testContract())
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	c.Evict("contract-1")
	assert.Equal(t, 0, c.Len())

	_, err = c.GetOrFetch(context.Background(), testContract())
	require.NoError(t, err)
	assert.Equal(t, int32(2), transport.fetchCalls.Load())
}
