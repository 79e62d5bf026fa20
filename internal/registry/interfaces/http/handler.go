package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ledger "propipe-books/internal/ledger/domain"
	registryapp "propipe-books/internal/registry/application"
)

// Handler serves the project and partner registry endpoints.
type Handler struct {
	service *registryapp.Service
}

// NewHandler constructs a Handler.
func NewHandler(service *registryapp.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("registry handler: nil service")
	}
	return &Handler{service: service}, nil
}

type projectView struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Location       string          `json:"location"`
	RunningBalance decimal.Decimal `json:"running_balance"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
}

type partnerView struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	SharePercentage decimal.Decimal `json:"share_percentage"`
	BaseSalary      decimal.Decimal `json:"base_salary"`
	RunningBalance  decimal.Decimal `json:"running_balance"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
}

func viewProject(p *ledger.Project) projectView {
	return projectView{
		ID:             p.ID.String(),
		Name:           p.Name,
		Location:       p.Location,
		RunningBalance: p.RunningBalance,
		IsActive:       p.IsActive,
		CreatedAt:      p.CreatedAt,
	}
}

func viewPartner(p *ledger.Partner) partnerView {
	return partnerView{
		ID:              p.ID.String(),
		Name:            p.Name,
		SharePercentage: p.SharePercentage,
		BaseSalary:      p.BaseSalary,
		RunningBalance:  p.RunningBalance,
		IsActive:        p.IsActive,
		CreatedAt:       p.CreatedAt,
	}
}

// ServeHTTP routes registry requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/projects":
		h.handleProjects(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/projects/"):
		h.handleProject(w, r, strings.TrimPrefix(r.URL.Path, "/api/v1/projects/"))
	case r.URL.Path == "/api/v1/partners":
		h.handlePartners(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/partners/"):
		h.handlePartner(w, r, strings.TrimPrefix(r.URL.Path, "/api/v1/partners/"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleProjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			Name           string          `json:"name"`
			Location       string          `json:"location"`
			OpeningBalance decimal.Decimal `json:"opening_balance"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		project, err := h.service.CreateProject(r.Context(), req.Name, req.Location, req.OpeningBalance)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, viewProject(project))
	case http.MethodGet:
		activeOnly := r.URL.Query().Get("active") == "true"
		list, err := h.service.ListProjects(r.Context(), activeOnly)
		if err != nil {
			respondError(w, err)
			return
		}
		views := make([]projectView, 0, len(list))
		for i := range list {
			views = append(views, viewProject(&list[i]))
		}
		writeJSON(w, http.StatusOK, views)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleProject(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.Split(rest, "/")
	id, err := uuid.Parse(parts[0])
	if err != nil {
		http.Error(w, "invalid project id", http.StatusBadRequest)
		return
	}
	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		project, err := h.service.GetProject(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewProject(project))
	case len(parts) == 2 && parts[1] == "active" && r.Method == http.MethodPatch:
		var req struct {
			Active bool `json:"active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := h.service.SetProjectActive(r.Context(), id, req.Active); err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handlePartners(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			Name            string          `json:"name"`
			SharePercentage decimal.Decimal `json:"share_percentage"`
			BaseSalary      decimal.Decimal `json:"base_salary"`
			OpeningBalance  decimal.Decimal `json:"opening_balance"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		partner, err := h.service.CreatePartner(r.Context(), req.Name, req.SharePercentage, req.BaseSalary, req.OpeningBalance)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, viewPartner(partner))
	case http.MethodGet:
		activeOnly := r.URL.Query().Get("active") == "true"
		list, err := h.service.ListPartners(r.Context(), activeOnly)
		if err != nil {
			respondError(w, err)
			return
		}
		views := make([]partnerView, 0, len(list))
		for i := range list {
			views = append(views, viewPartner(&list[i]))
		}
		writeJSON(w, http.StatusOK, views)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handlePartner(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.Split(rest, "/")
	id, err := uuid.Parse(parts[0])
	if err != nil {
		http.Error(w, "invalid partner id", http.StatusBadRequest)
		return
	}
	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		partner, err := h.service.GetPartner(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewPartner(partner))
	case len(parts) == 2 && parts[1] == "active" && r.Method == http.MethodPatch:
		var req struct {
			Active bool `json:"active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := h.service.SetPartnerActive(r.Context(), id, req.Active); err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ledger.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ledger.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ledger.ErrStorageUnavailable):
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
