package edc

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/catenax-ng/exchange-gateway/internal/application"
	"github.com/catenax-ng/exchange-gateway/internal/config"
	"github.com/catenax-ng/exchange-gateway/internal/domain"
)

// RetryTransportClient decorates a TransportClient with bounded exponential
// backoff on transient failures. Permanent counterpart rejections pass
// through on the first attempt.
type RetryTransportClient struct {
	inner       application.TransportClient
	baseDelay   time.Duration
	maxAttempts int
}

func NewRetryTransportClient(inner application.TransportClient, cfg config.RetryConfig) application.TransportClient {
	return &RetryTransportClient{
		inner:       inner,
		baseDelay:   cfg.BaseDelay,
		maxAttempts: cfg.MaxAttempts,
	}
}

// Negotiate with retry logic
func (r *RetryTransportClient) Negotiate(ctx context.Context, partnerBpnl, partnerDspURL string, assetType domain.AssetType) (*domain.NegotiationEntry, error) {
	return retry(
		r,
		ctx,
		func(ctx context.Context) (*domain.NegotiationEntry, error) {
			return r.inner.Negotiate(ctx, partnerBpnl, partnerDspURL, assetType)
		},
	)
}

// FetchCredentials with retry logic
func (r *RetryTransportClient) FetchCredentials(ctx context.Context, contract *domain.NegotiationEntry) (*domain.CredentialEntry, error) {
	return retry(
		r,
		ctx,
		func(ctx context.Context) (*domain.CredentialEntry, error) {
			return r.inner.FetchCredentials(ctx, contract)
		},
	)
}

// Send with retry logic
func (r *RetryTransportClient) Send(ctx context.Context, endpoint string, credentials *domain.CredentialEntry, payload []byte) error {
	_, err := retry(
		r,
		ctx,
		func(ctx context.Context) (*struct{}, error) {
			return &struct{}{}, r.inner.Send(ctx, endpoint, credentials, payload)
		},
	)
	return err
}

// Generic retry helper
func retry[T any](r *RetryTransportClient, ctx context.Context, operation func(ctx context.Context) (*T, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := operation(ctx)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt < r.maxAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.backoff(attempt)):
			}
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.IsRetryable()
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	// network-level failures and deadline overruns get another chance
	return true
}

// Backoff calculation with exponential delay and jitter
func (r *RetryTransportClient) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)

	jitter := time.Duration(rand.Intn(250)) * time.Millisecond

	return base + jitter
}
