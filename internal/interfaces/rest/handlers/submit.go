package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/catenax-ng/exchange-gateway/internal/application"
	"github.com/catenax-ng/exchange-gateway/internal/application/services"
	"github.com/catenax-ng/exchange-gateway/internal/domain"
	"github.com/catenax-ng/exchange-gateway/internal/interfaces/rest"
)

type submitRequestBody struct {
	RequestID         string           `json:"requestId"`
	PartnerBpnl       string           `json:"partnerBpnl"`
	OwnMaterialNumber string           `json:"ownMaterialNumber"`
	AssetType         string           `json:"assetType"`
	Direction         string           `json:"direction"`
	Payload           *json.RawMessage `json:"payload,omitempty"`
	TimeoutSeconds    int              `json:"timeoutSeconds,omitempty"`
}

type submitResponseData struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
}

type submitResponse struct {
	Success bool               `json:"success"`
	Data    submitResponseData `json:"data"`
}

// SubmitRequest accepts a new exchange request. 202 only means the request
// is tracked; clients poll the status endpoint for the outcome.
func (h *Handlers) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var body submitRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}

	cmd := services.SubmitCommand{
		RequestID:         body.RequestID,
		PartnerBpnl:       body.PartnerBpnl,
		OwnMaterialNumber: body.OwnMaterialNumber,
		AssetType:         domain.AssetType(body.AssetType),
		Direction:         domain.Direction(body.Direction),
		Timeout:           time.Duration(body.TimeoutSeconds) * time.Second,
	}
	if body.Payload != nil {
		var record any
		if err := json.Unmarshal(*body.Payload, &record); err != nil {
			rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
			return
		}
		cmd.Record = record
	}

	status, err := h.coordinator.Submit(r.Context(), cmd)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	switch status {
	case services.SubmitAccepted:
		rest.WriteJSON(w, http.StatusAccepted, submitResponse{
			Success: true,
			Data:    submitResponseData{RequestID: cmd.RequestID, Status: string(status)},
		})
	case services.SubmitDuplicate:
		rest.WriteError(w, application.NewDuplicateRequestError(cmd.RequestID), h.logger)
	case services.SubmitUnknownPartner:
		rest.WriteError(w, application.NewUnknownPartnerError(cmd.PartnerBpnl), h.logger)
	case services.SubmitBusy:
		rest.WriteError(w, application.NewBusyError(), h.logger)
	}
}
