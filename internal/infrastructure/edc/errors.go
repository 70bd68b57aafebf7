package edc

import (
	"errors"
	"fmt"
)

// TransportError is a failure reported by the connector or the counterpart.
type TransportError struct {
	Code       string
	Message    string
	StatusCode int
}

type transportErrorResponse struct {
	Err     string `json:"error"`
	Message string `json:"message"`
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error [%s]: %s (status: %d)", e.Code, e.Message, e.StatusCode)
}

func (e *TransportError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// UnknownContract reports whether the counterpart rejected a contract id it
// no longer recognizes. This is the one condition that evicts a negotiation
// cache entry.
func (e *TransportError) UnknownContract() bool {
	return e.Code == "unknown_contract" || e.Code == "contract_expired"
}

func IsTransportError(err error) (*TransportError, bool) {
	var transportErr *TransportError
	ok := errors.As(err, &transportErr)
	return transportErr, ok
}
