package handlers

import (
	"log/slog"
	"net/http"

	"github.com/catenax-ng/exchange-gateway/internal/application/services"
)

// Handlers exposes the coordination API over HTTP.
type Handlers struct {
	coordinator *services.Coordinator
	logger      *slog.Logger
}

func NewHandlers(coordinator *services.Coordinator, logger *slog.Logger) *Handlers {
	return &Handlers{
		coordinator: coordinator,
		logger:      logger,
	}
}

// Register wires every route onto the mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/requests", h.SubmitRequest)
	mux.HandleFunc("GET /api/v1/requests/{id}", h.GetRequestState)
	mux.HandleFunc("GET /api/v1/partners/{bpnl}/requests", h.ListPartnerRequests)
	mux.HandleFunc("POST /api/v1/answers/{ackId}", h.ReceiveBackendAnswer)
	mux.HandleFunc("GET /health", h.Health)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
