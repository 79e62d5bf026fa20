package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ledgerapp "propipe-books/internal/ledger/application"
	ledger "propipe-books/internal/ledger/domain"
	"propipe-books/internal/ledger/infrastructure/memory"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type statementBody struct {
	ID              string          `json:"id"`
	ProjectID       string          `json:"project_id"`
	Status          string          `json:"status"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	FinalBalance    decimal.Decimal `json:"final_balance"`
	TransferAction  string          `json:"transfer_action"`
	Totals          struct {
		TotalIncome decimal.Decimal `json:"total_income"`
		NetCash     decimal.Decimal `json:"net_cash"`
	} `json:"totals"`
	Lines []struct {
		ID string `json:"id"`
	} `json:"lines"`
}

func newTestHandler(t *testing.T, cfg ledgerapp.Config) (*ProjectStatementHandler, *memory.Store, ledger.Project) {
	t.Helper()
	store := memory.NewStore()
	project := ledger.Project{
		ID:             uuid.New(),
		Name:           "Harbor Crossing",
		RunningBalance: decimal.Zero,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}
	if err := store.Projects().Create(context.Background(), project); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	resolver, err := ledgerapp.NewContinuityResolver(store.ProjectStatements(), store.PartnerStatements(), store.Projects(), store.Partners())
	if err != nil {
		t.Fatalf("continuity resolver: %v", err)
	}
	clock := fixedClock{t: time.Date(2024, time.July, 15, 10, 0, 0, 0, time.UTC)}
	svc, err := ledgerapp.NewProjectStatementService(store.ProjectStatements(), store.Projects(), resolver, nil, clock, cfg)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	handler, err := NewProjectStatementHandler(svc, nil)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	return handler, store, project
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeStatement(t *testing.T, rec *httptest.ResponseRecorder) statementBody {
	t.Helper()
	var out statementBody
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestProjectStatementHandler_CreateAddLineClose(t *testing.T) {
	handler, store, project := newTestHandler(t, ledgerapp.Config{EnforceContinuity: true})

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/project-statements", map[string]any{
		"project_id": project.ID.String(),
		"title":      "July works",
		"date":       "2024-07-10",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeStatement(t, rec)
	if created.Status != ledger.StatementStatusDraft {
		t.Fatalf("expected draft, got %s", created.Status)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/project-statements/"+created.ID+"/lines", map[string]any{
		"direction": "income",
		"category":  "client_payment",
		"amount":    "10000",
		"is_paid":   true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add line: got %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/project-statements/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: got %d", rec.Code)
	}
	got := decodeStatement(t, rec)
	if !got.Totals.TotalIncome.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("total income: got %s", got.Totals.TotalIncome)
	}
	if len(got.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(got.Lines))
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/project-statements/"+created.ID+"/close", map[string]any{
		"transfer_action": "transferred_to_safe",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("close: got %d, body %s", rec.Code, rec.Body.String())
	}
	closed := decodeStatement(t, rec)
	if closed.Status != ledger.StatementStatusClosed {
		t.Fatalf("expected closed, got %s", closed.Status)
	}
	if closed.TransferAction != string(ledger.TransferredToSafe) {
		t.Fatalf("transfer action: got %s", closed.TransferAction)
	}

	refreshed, err := store.Projects().Get(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if !refreshed.RunningBalance.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("running balance: got %s", refreshed.RunningBalance)
	}
}

func TestProjectStatementHandler_ErrorMapping(t *testing.T) {
	handler, _, project := newTestHandler(t, ledgerapp.Config{})

	// Malformed body.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/project-statements", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: got %d", rec.Code)
	}

	// Unknown project.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/project-statements", map[string]any{
		"project_id": uuid.NewString(),
		"title":      "Ghost",
		"date":       "2024-07-10",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown project: got %d", rec.Code)
	}

	// Unknown statement.
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/project-statements/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown statement: got %d", rec.Code)
	}

	// Lifecycle conflicts surface as 409.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/project-statements", map[string]any{
		"project_id": project.ID.String(),
		"title":      "Phase 1",
		"date":       "2024-07-10",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got %d", rec.Code)
	}
	created := decodeStatement(t, rec)
	if rec = doJSON(t, handler, http.MethodPost, "/api/v1/project-statements/"+created.ID+"/close", nil); rec.Code != http.StatusOK {
		t.Fatalf("close: got %d, body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/project-statements/"+created.ID+"/lines", map[string]any{
		"direction": "income",
		"category":  "late",
		"amount":    "1",
		"is_paid":   true,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("line on closed: got %d", rec.Code)
	}
	// Reopen is policy-gated and off here.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/project-statements/"+created.ID+"/reopen", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("reopen disabled: got %d", rec.Code)
	}
}

func TestProjectStatementHandler_OpeningBalanceSuggestion(t *testing.T) {
	handler, _, project := newTestHandler(t, ledgerapp.Config{})

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/project-statements/opening-balance?project_id="+project.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("suggestion: got %d, body %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Value    decimal.Decimal `json:"value"`
		Editable bool            `json:"editable"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode suggestion: %v", err)
	}
	if !out.Editable {
		t.Fatal("first suggestion should be editable")
	}
	if !out.Value.IsZero() {
		t.Fatalf("suggestion value: got %s", out.Value)
	}
}
