package http

import (
	"encoding/json"
	"errors"
	"net/http"

	dashboardapp "propipe-books/internal/dashboard/application"
)

// Handler serves the dashboard endpoint.
type Handler struct {
	service *dashboardapp.Service
}

// NewHandler constructs a Handler.
func NewHandler(service *dashboardapp.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("dashboard handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP routes dashboard requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/v1/dashboard" || r.Method != http.MethodGet {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		http.Error(w, "dashboard unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}
