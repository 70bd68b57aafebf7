package handlers

import (
	"net/http"

	"github.com/catenax-ng/exchange-gateway/internal/interfaces/rest"
)

type statusResponseData struct {
	RequestID string `json:"requestId"`
	State     string `json:"state"`
	CauseCode string `json:"causeCode,omitempty"`
}

type statusResponse struct {
	Success bool               `json:"success"`
	Data    statusResponseData `json:"data"`
}

// GetRequestState serves status polling. Failed requests expose only their
// cause code, never internal error detail.
func (h *Handlers) GetRequestState(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("id")

	view, err := h.coordinator.GetState(r.Context(), requestID)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, statusResponse{
		Success: true,
		Data: statusResponseData{
			RequestID: view.RequestID,
			State:     string(view.State),
			CauseCode: view.CauseCode,
		},
	})
}

type partnerRequestsResponse struct {
	Success bool                 `json:"success"`
	Data    []statusResponseData `json:"data"`
}

// ListPartnerRequests lists the tracked requests of one partner, newest
// first.
func (h *Handlers) ListPartnerRequests(w http.ResponseWriter, r *http.Request) {
	partnerBpnl := r.PathValue("bpnl")

	views, err := h.coordinator.ListByPartner(r.Context(), partnerBpnl)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	data := make([]statusResponseData, 0, len(views))
	for _, view := range views {
		data = append(data, statusResponseData{
			RequestID: view.RequestID,
			State:     string(view.State),
			CauseCode: view.CauseCode,
		})
	}

	rest.WriteJSON(w, http.StatusOK, partnerRequestsResponse{
		Success: true,
		Data:    data,
	})
}
