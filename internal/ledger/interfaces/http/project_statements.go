package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"propipe-books/internal/audit"
	"propipe-books/internal/auth"
	ledgerapp "propipe-books/internal/ledger/application"
	ledger "propipe-books/internal/ledger/domain"
)

// ProjectStatementHandler serves project statement endpoints.
type ProjectStatementHandler struct {
	service     *ledgerapp.ProjectStatementService
	auditLogger audit.Logger
}

// NewProjectStatementHandler constructs a ProjectStatementHandler.
func NewProjectStatementHandler(service *ledgerapp.ProjectStatementService, auditLogger audit.Logger) (*ProjectStatementHandler, error) {
	if service == nil {
		return nil, errors.New("project statement handler: nil service")
	}
	return &ProjectStatementHandler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP routes project statement requests.
func (h *ProjectStatementHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/v1/project-statements" {
		switch r.Method {
		case http.MethodPost:
			h.handleCreate(w, r)
		case http.MethodGet:
			h.handleList(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}
	if !strings.HasPrefix(r.URL.Path, "/api/v1/project-statements/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/project-statements/")
	parts := strings.Split(path, "/")
	if len(parts) < 1 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if parts[0] == "opening-balance" && len(parts) == 1 && r.Method == http.MethodGet {
		h.handleSuggestion(w, r)
		return
	}

	id, err := uuid.Parse(parts[0])
	if err != nil {
		http.Error(w, "invalid statement id", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.handleGet(w, r, id)
	case len(parts) == 2 && parts[1] == "lines" && r.Method == http.MethodPost:
		h.handleAddLine(w, r, id)
	case len(parts) == 3 && parts[1] == "lines":
		lineID, err := uuid.Parse(parts[2])
		if err != nil {
			http.Error(w, "invalid line id", http.StatusBadRequest)
			return
		}
		switch r.Method {
		case http.MethodPatch:
			h.handleUpdateLine(w, r, id, lineID)
		case http.MethodDelete:
			h.handleDeleteLine(w, r, id, lineID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "close" && r.Method == http.MethodPost:
		h.handleClose(w, r, id)
	case len(parts) == 2 && parts[1] == "reopen" && r.Method == http.MethodPost:
		h.handleReopen(w, r, id)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *ProjectStatementHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID       string           `json:"project_id"`
		Title           string           `json:"title"`
		Date            string           `json:"date"`
		PreviousBalance *decimal.Decimal `json:"previous_balance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		http.Error(w, "invalid project id", http.StatusBadRequest)
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	stmt, err := h.service.Create(r.Context(), projectID, req.Title, date.UTC(), req.PreviousBalance)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewProjectStatement(stmt, nil))
	h.logAudit(r, stmt.ID.String(), "project_statement.create", map[string]any{
		"project_id": req.ProjectID,
		"title":      req.Title,
		"date":       req.Date,
	})
}

func (h *ProjectStatementHandler) handleList(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(r.URL.Query().Get("project_id"))
	if err != nil {
		http.Error(w, "project_id query parameter required", http.StatusBadRequest)
		return
	}
	list, err := h.service.ListByProject(r.Context(), projectID)
	if err != nil {
		respondError(w, err)
		return
	}
	views := make([]projectStatementView, 0, len(list))
	for i := range list {
		views = append(views, viewProjectStatement(&list[i], nil))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *ProjectStatementHandler) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(r.URL.Query().Get("project_id"))
	if err != nil {
		http.Error(w, "project_id query parameter required", http.StatusBadRequest)
		return
	}
	suggestion, err := h.service.SuggestOpeningBalance(r.Context(), projectID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestionView{Value: suggestion.Value, Editable: suggestion.Editable})
}

func (h *ProjectStatementHandler) handleGet(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	stmt, lines, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewProjectStatement(stmt, lines))
}

func (h *ProjectStatementHandler) handleAddLine(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req struct {
		Direction   string          `json:"direction"`
		Category    string          `json:"category"`
		Amount      decimal.Decimal `json:"amount"`
		IsPaid      bool            `json:"is_paid"`
		Description string          `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	direction, err := ledger.ParseDirection(req.Direction)
	if err != nil {
		respondError(w, err)
		return
	}
	line, err := h.service.AddLine(r.Context(), id, direction, req.Category, req.Amount, req.IsPaid, req.Description)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewLine(*line))
}

func (h *ProjectStatementHandler) handleUpdateLine(w http.ResponseWriter, r *http.Request, id, lineID uuid.UUID) {
	var req struct {
		Direction   *string          `json:"direction"`
		Category    *string          `json:"category"`
		Amount      *decimal.Decimal `json:"amount"`
		IsPaid      *bool            `json:"is_paid"`
		Description *string          `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	patch := ledger.LinePatch{
		Category:    req.Category,
		Amount:      req.Amount,
		IsPaid:      req.IsPaid,
		Description: req.Description,
	}
	if req.Direction != nil {
		direction, err := ledger.ParseDirection(*req.Direction)
		if err != nil {
			respondError(w, err)
			return
		}
		patch.Direction = &direction
	}
	line, err := h.service.UpdateLine(r.Context(), id, lineID, patch)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewLine(*line))
}

func (h *ProjectStatementHandler) handleDeleteLine(w http.ResponseWriter, r *http.Request, id, lineID uuid.UUID) {
	if err := h.service.RemoveLine(r.Context(), id, lineID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProjectStatementHandler) handleClose(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req struct {
		TransferAction string `json:"transfer_action"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
	}
	action, err := ledger.ParseTransferAction(req.TransferAction)
	if err != nil {
		respondError(w, err)
		return
	}
	stmt, err := h.service.Close(r.Context(), id, action)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewProjectStatement(stmt, nil))
	h.logAudit(r, id.String(), "project_statement.close", map[string]any{
		"transfer_action": string(action),
		"final_balance":   stmt.FinalBalance.String(),
	})
}

func (h *ProjectStatementHandler) handleReopen(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	stmt, err := h.service.Reopen(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewProjectStatement(stmt, nil))
	h.logAudit(r, id.String(), "project_statement.reopen", map[string]any{
		"restored_balance": stmt.PreviousBalance.String(),
	})
}

func (h *ProjectStatementHandler) logAudit(r *http.Request, statementID, action string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	payload, _ := json.Marshal(meta)
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		CompanyID:    auth.CompanyIDFromContext(r.Context()),
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: audit.ResourceProjectStatement,
		ResourceID:   statementID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
