package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"propipe-books/internal/audit"
	"propipe-books/internal/auth"
	ledgerapp "propipe-books/internal/ledger/application"
	ledger "propipe-books/internal/ledger/domain"
)

// PartnerStatementHandler serves partner statement endpoints.
type PartnerStatementHandler struct {
	service     *ledgerapp.PartnerStatementService
	auditLogger audit.Logger
}

// NewPartnerStatementHandler constructs a PartnerStatementHandler.
func NewPartnerStatementHandler(service *ledgerapp.PartnerStatementService, auditLogger audit.Logger) (*PartnerStatementHandler, error) {
	if service == nil {
		return nil, errors.New("partner statement handler: nil service")
	}
	return &PartnerStatementHandler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP routes partner statement requests.
func (h *PartnerStatementHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/v1/partner-statements" {
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
	if !strings.HasPrefix(r.URL.Path, "/api/v1/partner-statements/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/partner-statements/")
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
	case len(parts) == 1 && r.Method == http.MethodPatch:
		h.handleUpdate(w, r, id)
	case len(parts) == 2 && parts[1] == "close" && r.Method == http.MethodPost:
		h.handleClose(w, r, id)
	case len(parts) == 2 && parts[1] == "reopen" && r.Method == http.MethodPost:
		h.handleReopen(w, r, id)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type partnerStatementPatchRequest struct {
	PersonalExpenseReimbursement *decimal.Decimal `json:"personal_expense_reimbursement"`
	MonthlySalary                *decimal.Decimal `json:"monthly_salary"`
	ProfitShare                  *decimal.Decimal `json:"profit_share"`
	ActualWithdrawn              *decimal.Decimal `json:"actual_withdrawn"`
	Note                         *string          `json:"note"`
}

func (req partnerStatementPatchRequest) patch() ledger.PartnerStatementPatch {
	return ledger.PartnerStatementPatch{
		PersonalExpenseReimbursement: req.PersonalExpenseReimbursement,
		MonthlySalary:                req.MonthlySalary,
		ProfitShare:                  req.ProfitShare,
		ActualWithdrawn:              req.ActualWithdrawn,
		Note:                         req.Note,
	}
}

func (h *PartnerStatementHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PartnerID       string           `json:"partner_id"`
		Month           int              `json:"month"`
		Year            int              `json:"year"`
		PreviousBalance *decimal.Decimal `json:"previous_balance"`
		partnerStatementPatchRequest
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	partnerID, err := uuid.Parse(req.PartnerID)
	if err != nil {
		http.Error(w, "invalid partner id", http.StatusBadRequest)
		return
	}
	stmt, err := h.service.Create(r.Context(), partnerID, req.Month, req.Year, req.patch(), req.PreviousBalance)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewPartnerStatement(stmt))
	h.logAudit(r, stmt.ID.String(), "partner_statement.create", map[string]any{
		"partner_id": req.PartnerID,
		"month":      req.Month,
		"year":       req.Year,
	})
}

func (h *PartnerStatementHandler) handleList(w http.ResponseWriter, r *http.Request) {
	partnerID, err := uuid.Parse(r.URL.Query().Get("partner_id"))
	if err != nil {
		http.Error(w, "partner_id query parameter required", http.StatusBadRequest)
		return
	}
	list, err := h.service.ListByPartner(r.Context(), partnerID)
	if err != nil {
		respondError(w, err)
		return
	}
	views := make([]partnerStatementView, 0, len(list))
	for i := range list {
		views = append(views, viewPartnerStatement(&list[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *PartnerStatementHandler) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	partnerID, err := uuid.Parse(r.URL.Query().Get("partner_id"))
	if err != nil {
		http.Error(w, "partner_id query parameter required", http.StatusBadRequest)
		return
	}
	suggestion, err := h.service.SuggestOpeningBalance(r.Context(), partnerID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestionView{Value: suggestion.Value, Editable: suggestion.Editable})
}

func (h *PartnerStatementHandler) handleGet(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	stmt, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewPartnerStatement(stmt))
}

func (h *PartnerStatementHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req partnerStatementPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	stmt, err := h.service.Update(r.Context(), id, req.patch())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewPartnerStatement(stmt))
}

func (h *PartnerStatementHandler) handleClose(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	stmt, err := h.service.Close(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewPartnerStatement(stmt))
	h.logAudit(r, id.String(), "partner_statement.close", map[string]any{
		"next_month_balance": stmt.NextMonthBalance.String(),
	})
}

func (h *PartnerStatementHandler) handleReopen(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	stmt, err := h.service.Reopen(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewPartnerStatement(stmt))
	h.logAudit(r, id.String(), "partner_statement.reopen", map[string]any{
		"restored_balance": stmt.PreviousBalance.String(),
	})
}

func (h *PartnerStatementHandler) logAudit(r *http.Request, statementID, action string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	payload, _ := json.Marshal(meta)
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		CompanyID:    auth.CompanyIDFromContext(r.Context()),
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: audit.ResourcePartnerStatement,
		ResourceID:   statementID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
