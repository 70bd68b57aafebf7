// Package domain encodes the exchange request entity and its lifecycle
package domain

import (
	"errors"
	"slices"
	"time"
)

// RequestState represents the current state of an exchange request in its lifecycle
type RequestState string

const (
	StateRequested RequestState = "REQUESTED"
	StateReceipt   RequestState = "RECEIPT"
	StateWorking   RequestState = "WORKING"
	StateCompleted RequestState = "COMPLETED"
	StateError     RequestState = "ERROR"
)

// Direction tells whether a request was received from a partner or
// triggered locally against a partner.
type Direction string

const (
	DirectionInbound  Direction = "INBOUND"
	DirectionOutbound Direction = "OUTBOUND"
)

// AssetType is the category of business data being exchanged.
type AssetType string

const (
	AssetItemStock    AssetType = "ITEM_STOCK"
	AssetProduction   AssetType = "PRODUCTION"
	AssetDemand       AssetType = "DEMAND"
	AssetDelivery     AssetType = "DELIVERY"
	AssetNotification AssetType = "NOTIFICATION"
)

// SemanticID returns the Catena-X semantic model urn for the asset type's
// wire schema.
func (a AssetType) SemanticID() string {
	switch a {
	case AssetItemStock:
		return "urn:samm:io.catenax.item_stock:2.0.0#ItemStock"
	case AssetProduction:
		return "urn:samm:io.catenax.planned_production_output:2.0.0#PlannedProductionOutput"
	case AssetDemand:
		return "urn:samm:io.catenax.short_term_material_demand:1.0.0#ShortTermMaterialDemand"
	case AssetDelivery:
		return "urn:samm:io.catenax.delivery_information:2.0.0#DeliveryInformation"
	case AssetNotification:
		return "urn:samm:io.catenax.demand_and_capacity_notification:2.0.0#DemandAndCapacityNotification"
	}
	return ""
}

// SchemaVersion returns the schema version string included in
// backend-of-record refresh requests.
func (a AssetType) SchemaVersion() string {
	switch a {
	case AssetDemand:
		return "1.0"
	default:
		return "2.0"
	}
}

// Valid reports whether the asset type is one of the known categories.
func (a AssetType) Valid() bool {
	switch a {
	case AssetItemStock, AssetProduction, AssetDemand, AssetDelivery, AssetNotification:
		return true
	}
	return false
}

// HasDirection reports whether the asset type distinguishes an inbound and
// outbound reading of the same material. Notifications do not.
func (a AssetType) HasDirection() bool {
	return a != AssetNotification
}

// ExchangeRequest tracks one inbound or outbound data exchange with a
// partner end-to-end. Entries are append-only; a request id is never reused.
type ExchangeRequest struct {
	RequestID         string
	PartnerBpnl       string
	OwnMaterialNumber string
	AssetType         AssetType
	Direction         Direction
	State             RequestState

	// CauseCode carries the stable error classification once State is ERROR.
	CauseCode *string

	// AckID links a WORKING inbound request to the pending
	// backend-of-record answer.
	AckID *string

	CreatedAt        time.Time
	LastTransitionAt time.Time
}

func NewExchangeRequest(
	requestID string,
	partnerBpnl string,
	ownMaterialNumber string,
	assetType AssetType,
	direction Direction,
) (*ExchangeRequest, error) {
	if requestID == "" {
		return nil, errors.New("request ID is required")
	}
	if partnerBpnl == "" {
		return nil, errors.New("partner BPNL is required")
	}
	if ownMaterialNumber == "" {
		return nil, errors.New("own material number is required")
	}
	if !assetType.Valid() {
		return nil, NewUnknownAssetTypeError(string(assetType))
	}
	switch {
	case direction == DirectionInbound || direction == DirectionOutbound:
		// Directional asset types keep the caller's direction;
		// non-directional ones drop it so both spellings land on the same
		// request key.
		if !assetType.HasDirection() {
			direction = ""
		}
	case direction == "" && !assetType.HasDirection():
		// notifications carry no direction
	default:
		return nil, errors.New("direction must be INBOUND or OUTBOUND")
	}

	now := time.Now()
	return &ExchangeRequest{
		RequestID:         requestID,
		PartnerBpnl:       partnerBpnl,
		OwnMaterialNumber: ownMaterialNumber,
		AssetType:         assetType,
		Direction:         direction,
		State:             StateRequested,
		CreatedAt:         now,
		LastTransitionAt:  now,
	}, nil
}

func (r *ExchangeRequest) MarkReceipt() error {
	return r.transition(StateReceipt)
}

func (r *ExchangeRequest) MarkWorking() error {
	return r.transition(StateWorking)
}

func (r *ExchangeRequest) Complete() error {
	return r.transition(StateCompleted)
}

// Fail moves the request to its terminal ERROR state and records the cause
// classification that callers of GetState will see.
func (r *ExchangeRequest) Fail(causeCode string) error {
	if err := r.transition(StateError); err != nil {
		return err
	}
	r.CauseCode = &causeCode
	return nil
}

// AttachAck records the acknowledgement id of a pending backend-of-record pull.
func (r *ExchangeRequest) AttachAck(ackID string) {
	r.AckID = &ackID
}

func (r *ExchangeRequest) transition(target RequestState) error {
	if err := r.canTransitionTo(target); err != nil {
		return err
	}
	r.State = target
	r.LastTransitionAt = time.Now()
	return nil
}

// RECEIPT must always precede WORKING; COMPLETED and ERROR are terminal.
func (r *ExchangeRequest) canTransitionTo(target RequestState) error {
	switch r.State {
	case StateRequested:
		return r.allow(target, StateReceipt, StateError)
	case StateReceipt:
		return r.allow(target, StateWorking, StateError)
	case StateWorking:
		return r.allow(target, StateCompleted, StateError)
	}
	return ErrInvalidTransition
}

func (r *ExchangeRequest) allow(target RequestState, allowed ...RequestState) error {
	if slices.Contains(allowed, target) {
		return nil
	}
	return ErrInvalidTransition
}

func (r *ExchangeRequest) IsTerminal() bool {
	switch r.State {
	case StateCompleted, StateError:
		return true
	default:
		return false
	}
}

// Reconstitute - Special constructor for loading from DB
func Reconstitute(
	requestID string, partnerBpnl string, ownMaterialNumber string,
	assetType AssetType, direction Direction,
	state RequestState,
	causeCode, ackID *string,
	createdAt, lastTransitionAt time.Time,
) *ExchangeRequest {
	return &ExchangeRequest{
		RequestID:         requestID,
		PartnerBpnl:       partnerBpnl,
		OwnMaterialNumber: ownMaterialNumber,
		AssetType:         assetType,
		Direction:         direction,
		State:             state,
		CauseCode:         causeCode,
		AckID:             ackID,
		CreatedAt:         createdAt,
		LastTransitionAt:  lastTransitionAt,
	}
}
