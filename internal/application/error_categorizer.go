package application

import (
	"context"
	"errors"

	"github.com/catenax-ng/exchange-gateway/internal/domain"
)

// ErrorCategory represents the nature of an error for retry logic
type ErrorCategory string

const (
	CategoryTransient      ErrorCategory = "TRANSIENT"
	CategoryPermanent      ErrorCategory = "PERMANENT"
	CategoryStructural     ErrorCategory = "STRUCTURAL"
	CategoryInfrastructure ErrorCategory = "INFRASTRUCTURE"
)

// CategorizeError determines error category for retry and logging purposes.
// Transient errors may be retried with backoff; structural errors fail
// immediately without retry.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	// Context errors are network/timeout conditions
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTransient
	}

	// Structural: the request itself can never succeed as submitted
	if errors.Is(err, domain.ErrDuplicateRequest) || errors.Is(err, domain.ErrInvalidTransition) {
		return CategoryStructural
	}

	if domErr, ok := domain.IsDomainError(err); ok {
		switch domErr.Code {
		case domain.CauseUnknownPartner, domain.CauseUnknownMaterial, domain.CauseUnknownAssetType:
			return CategoryStructural
		}
	}

	if svcErr, ok := IsServiceError(err); ok {
		switch svcErr.Code {
		case ErrCodeDuplicateRequest, ErrCodeUnknownPartner, ErrCodeUnknownMaterial, ErrCodeInvalidInput:
			return CategoryStructural
		case ErrCodeNegotiationFailed, ErrCodeBackendTimeout, ErrCodeBusy:
			return CategoryTransient
		case ErrCodeCredentialExpired:
			return CategoryTransient
		case ErrCodeCounterpartRejected:
			return CategoryPermanent
		case ErrCodeInternal:
			return CategoryInfrastructure
		}
	}

	// Unknown errors default to transient so a retry gets a chance
	return CategoryTransient
}

// CauseCodeFor maps an error to the stable cause code recorded on an ERROR
// transition. Callers polling GetState only ever see these codes, never a
// raw error string.
func CauseCodeFor(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.CauseBackendTimeout
	}

	if svcErr, ok := IsServiceError(err); ok {
		switch svcErr.Code {
		case ErrCodeDuplicateRequest, ErrCodeUnknownPartner, ErrCodeUnknownMaterial,
			ErrCodeNegotiationFailed, ErrCodeCredentialExpired, ErrCodeBackendTimeout,
			ErrCodeCounterpartRejected, ErrCodeBusy:
			return svcErr.Code
		}
		return domain.CauseInternal
	}

	if domErr, ok := domain.IsDomainError(err); ok {
		switch domErr.Code {
		case domain.CauseDuplicateRequest, domain.CauseUnknownPartner,
			domain.CauseUnknownMaterial, domain.CauseUnknownAssetType:
			return domErr.Code
		}
	}

	return domain.CauseInternal
}
