package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Stable cause codes recorded on ERROR transitions and returned by GetState.
const (
	CauseDuplicateRequest    = "DUPLICATE_REQUEST"
	CauseUnknownPartner      = "UNKNOWN_PARTNER"
	CauseUnknownMaterial     = "UNKNOWN_MATERIAL"
	CauseUnknownAssetType    = "UNKNOWN_ASSET_TYPE"
	CauseNegotiationFailed   = "NEGOTIATION_FAILED"
	CauseCredentialExpired   = "CREDENTIAL_EXPIRED"
	CauseBackendTimeout      = "BACKEND_TIMEOUT"
	CauseCounterpartRejected = "COUNTERPART_REJECTED"
	CauseBusy                = "BUSY"
	CauseInternal            = "INTERNAL"
)

var (
	ErrInvalidTransition = &DomainError{Code: "INVALID_TRANSITION", Message: "invalid state transition"}
	ErrDuplicateRequest  = &DomainError{Code: CauseDuplicateRequest, Message: "request id is already tracked"}
	ErrRequestNotFound   = &DomainError{Code: "REQUEST_NOT_FOUND", Message: "request not found"}
	ErrUnknownAck        = &DomainError{Code: "UNKNOWN_ACK", Message: "no pending request for acknowledgement id"}
	ErrRecordNotFound    = &DomainError{Code: "RECORD_NOT_FOUND", Message: "no record for partner and material"}
)

func NewUnknownPartnerError(bpnl string) *DomainError {
	return &DomainError{
		Code:    CauseUnknownPartner,
		Message: fmt.Sprintf("partner %s is not known", bpnl),
	}
}

func NewUnknownMaterialError(ownMaterialNumber string) *DomainError {
	return &DomainError{
		Code:    CauseUnknownMaterial,
		Message: fmt.Sprintf("material %s is not known", ownMaterialNumber),
	}
}

func NewUnknownAssetTypeError(assetType string) *DomainError {
	return &DomainError{
		Code:    CauseUnknownAssetType,
		Message: fmt.Sprintf("asset type %q is not known", assetType),
	}
}

// IsDomainError unwraps err into a DomainError if possible.
func IsDomainError(err error) (*DomainError, bool) {
	var domErr *DomainError
	ok := errors.As(err, &domErr)
	return domErr, ok
}
