package handlers

import (
	"io"
	"net/http"

	"github.com/catenax-ng/exchange-gateway/internal/application"
	"github.com/catenax-ng/exchange-gateway/internal/interfaces/rest"
)

type answerResponse struct {
	Success bool `json:"success"`
}

// ReceiveBackendAnswer is the callback endpoint for the backend-of-record.
// The body is the requested data in its wire schema, correlated to a
// pending request by the acknowledgement id.
func (h *Handlers) ReceiveBackendAnswer(w http.ResponseWriter, r *http.Request) {
	ackID := r.PathValue("ackId")

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}

	if err := h.coordinator.OnBackendAnswer(r.Context(), ackID, payload); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, answerResponse{Success: true})
}
