package domain_test

import (
	"testing"
	"time"

	"github.com/catenax-ng/exchange-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExchangeRequest(t *testing.T) {
	t.Run("creates request successfully", func(t *testing.T) {
		req, err := domain.NewExchangeRequest("req-123", "BPNL-SUPPLIER", "M-1", domain.AssetItemStock, domain.DirectionInbound)

		require.NoError(t, err)
		assert.Equal(t, "req-123", req.RequestID)
		assert.Equal(t, "BPNL-SUPPLIER", req.PartnerBpnl)
		assert.Equal(t, "M-1", req.OwnMaterialNumber)
		assert.Equal(t, domain.AssetItemStock, req.AssetType)
		assert.Equal(t, domain.DirectionInbound, req.Direction)
		assert.Equal(t, domain.StateRequested, req.State)
		assert.NotZero(t, req.CreatedAt)
	})

	t.Run("rejects empty request ID", func(t *testing.T) {
		_, err := domain.NewExchangeRequest("", "BPNL-SUPPLIER", "M-1", domain.AssetItemStock, domain.DirectionInbound)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "request ID is required")
	})

	t.Run("rejects empty partner BPNL", func(t *testing.T) {
		_, err := domain.NewExchangeRequest("req-123", "", "M-1", domain.AssetItemStock, domain.DirectionInbound)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "partner BPNL is required")
	})

	t.Run("rejects unknown asset type", func(t *testing.T) {
		_, err := domain.NewExchangeRequest("req-123", "BPNL-SUPPLIER", "M-1", domain.AssetType("BOGUS"), domain.DirectionInbound)

		assert.Error(t, err)
		domErr, ok := domain.IsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, domain.CauseUnknownAssetType, domErr.Code)
	})

	t.Run("rejects invalid direction", func(t *testing.T) {
		_, err := domain.NewExchangeRequest("req-123", "BPNL-SUPPLIER", "M-1", domain.AssetItemStock, domain.Direction("SIDEWAYS"))

		assert.Error(t, err)
	})

	t.Run("rejects missing direction for directional asset types", func(t *testing.T) {
		_, err := domain.NewExchangeRequest("req-123", "BPNL-SUPPLIER", "M-1", domain.AssetItemStock, "")

		assert.Error(t, err)
	})

	t.Run("accepts missing direction for notifications", func(t *testing.T) {
		req, err := domain.NewExchangeRequest("req-123", "BPNL-SUPPLIER", "M-1", domain.AssetNotification, "")

		require.NoError(t, err)
		assert.Empty(t, req.Direction)
	})

	t.Run("drops direction for non-directional asset types", func(t *testing.T) {
		req, err := domain.NewExchangeRequest("req-123", "BPNL-SUPPLIER", "M-1", domain.AssetNotification, domain.DirectionOutbound)

		require.NoError(t, err)
		assert.Empty(t, req.Direction)
	})
}

func TestExchangeRequestTransitions(t *testing.T) {
	newRequest := func(t *testing.T) *domain.ExchangeRequest {
		req, err := domain.NewExchangeRequest("req-123", "BPNL-SUPPLIER", "M-1", domain.AssetItemStock, domain.DirectionInbound)
		require.NoError(t, err)
		return req
	}

	t.Run("full happy path", func(t *testing.T) {
		req := newRequest(t)

		require.NoError(t, req.MarkReceipt())
		assert.Equal(t, domain.StateReceipt, req.State)

		require.NoError(t, req.MarkWorking())
		assert.Equal(t, domain.StateWorking, req.State)

		require.NoError(t, req.Complete())
		assert.Equal(t, domain.StateCompleted, req.State)
		assert.True(t, req.IsTerminal())
	})

	t.Run("working never precedes receipt", func(t *testing.T) {
		req := newRequest(t)

		err := req.MarkWorking()

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Equal(t, domain.StateRequested, req.State)
	})

	t.Run("completed only from working", func(t *testing.T) {
		req := newRequest(t)
		require.NoError(t, req.MarkReceipt())

		err := req.Complete()

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("error is reachable from any non-terminal state", func(t *testing.T) {
		for _, advance := range []int{0, 1, 2} {
			req := newRequest(t)
			if advance > 0 {
				require.NoError(t, req.MarkReceipt())
			}
			if advance > 1 {
				require.NoError(t, req.MarkWorking())
			}

			require.NoError(t, req.Fail(domain.CauseBackendTimeout))
			assert.Equal(t, domain.StateError, req.State)
			require.NotNil(t, req.CauseCode)
			assert.Equal(t, domain.CauseBackendTimeout, *req.CauseCode)
		}
	})

	t.Run("terminal states accept no further transition", func(t *testing.T) {
		completed := newRequest(t)
		require.NoError(t, completed.MarkReceipt())
		require.NoError(t, completed.MarkWorking())
		require.NoError(t, completed.Complete())

		assert.ErrorIs(t, completed.MarkReceipt(), domain.ErrInvalidTransition)
		assert.ErrorIs(t, completed.Fail(domain.CauseInternal), domain.ErrInvalidTransition)

		failed := newRequest(t)
		require.NoError(t, failed.Fail(domain.CauseUnknownMaterial))

		assert.ErrorIs(t, failed.MarkReceipt(), domain.ErrInvalidTransition)
		assert.ErrorIs(t, failed.Complete(), domain.ErrInvalidTransition)
	})

	t.Run("transition updates timestamp", func(t *testing.T) {
		req := newRequest(t)
		before := req.LastTransitionAt

		time.Sleep(5 * time.Millisecond)
		require.NoError(t, req.MarkReceipt())

		assert.True(t, req.LastTransitionAt.After(before))
	})
}

func TestCredentialEntryExpired(t *testing.T) {
	now := time.Now()
	entry := &domain.CredentialEntry{
		ContractID: "contract-1",
		ExpiresAt:  now.Add(5 * time.Minute),
	}

	assert.False(t, entry.Expired(now))
	assert.True(t, entry.Expired(now.Add(5*time.Minute)), "expiry instant itself is already unusable")
	assert.True(t, entry.Expired(now.Add(6*time.Minute)))
}
