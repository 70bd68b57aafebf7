package application

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/catenax-ng/exchange-gateway/internal/domain"
)

// APPLICATION-LEVEL ERRORS (Orchestration)

type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeDuplicateRequest    = domain.CauseDuplicateRequest
	ErrCodeUnknownPartner      = domain.CauseUnknownPartner
	ErrCodeUnknownMaterial     = domain.CauseUnknownMaterial
	ErrCodeNegotiationFailed   = domain.CauseNegotiationFailed
	ErrCodeCredentialExpired   = domain.CauseCredentialExpired
	ErrCodeBackendTimeout      = domain.CauseBackendTimeout
	ErrCodeCounterpartRejected = domain.CauseCounterpartRejected
	ErrCodeBusy                = domain.CauseBusy
	ErrCodeInternal            = "INTERNAL_ERROR"
	ErrCodeInvalidInput        = "INVALID_INPUT"
)

func NewDuplicateRequestError(requestID string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeDuplicateRequest,
		Message:    fmt.Sprintf("request %s is already tracked", requestID),
		HTTPStatus: http.StatusConflict,
		Err:        domain.ErrDuplicateRequest,
	}
}

func NewUnknownPartnerError(bpnl string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeUnknownPartner,
		Message:    fmt.Sprintf("partner %s is not known", bpnl),
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

func NewNegotiationFailedError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeNegotiationFailed,
		Message:    "contract negotiation with counterpart failed",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewBackendTimeoutError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeBackendTimeout,
		Message:    "backend-of-record did not answer in time",
		HTTPStatus: http.StatusGatewayTimeout,
		Err:        err,
	}
}

func NewCounterpartRejectedError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeCounterpartRejected,
		Message:    "counterpart rejected the exchange",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewBusyError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeBusy,
		Message:    "coordinator queue is full, retry later",
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInvalidInputError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidInput,
		Message:    "Invalid input",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}

// ToHTTPStatus maps any error to the status code the REST layer responds with.
func ToHTTPStatus(err error) int {
	if svcErr, ok := IsServiceError(err); ok && svcErr.HTTPStatus != 0 {
		return svcErr.HTTPStatus
	}
	if errors.Is(err, domain.ErrRequestNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, domain.ErrDuplicateRequest) {
		return http.StatusConflict
	}
	if errors.Is(err, domain.ErrUnknownAck) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// ToErrorCode maps any error to a stable machine-readable code.
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}
	if domErr, ok := domain.IsDomainError(err); ok {
		return domErr.Code
	}
	return ErrCodeInternal
}
