package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ledger "propipe-books/internal/ledger/domain"
	"propipe-books/internal/eventing"
	"propipe-books/internal/ledger/infrastructure/memory"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func testClock() fixedClock {
	return fixedClock{t: time.Date(2024, time.July, 15, 10, 0, 0, 0, time.UTC)}
}

func mustMoney(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := ledger.ParseMoney(s)
	if err != nil {
		t.Fatalf("parse money %q: %v", s, err)
	}
	return d
}

func seedProject(t *testing.T, store *memory.Store, balance string) ledger.Project {
	t.Helper()
	project := ledger.Project{
		ID:             uuid.New(),
		Name:           "Harbor Crossing",
		Location:       "Pier 4",
		RunningBalance: mustMoney(t, balance),
		IsActive:       true,
		CreatedAt:      testClock().Now(),
	}
	if err := store.Projects().Create(context.Background(), project); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return project
}

func newProjectService(t *testing.T, store *memory.Store, bus Publisher, cfg Config) *ProjectStatementService {
	t.Helper()
	resolver, err := NewContinuityResolver(store.ProjectStatements(), store.PartnerStatements(), store.Projects(), store.Partners())
	if err != nil {
		t.Fatalf("continuity resolver: %v", err)
	}
	svc, err := NewProjectStatementService(store.ProjectStatements(), store.Projects(), resolver, bus, testClock(), cfg)
	if err != nil {
		t.Fatalf("project service: %v", err)
	}
	return svc
}

func TestProjectStatement_LinesDriveTotalsAndClose(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	project := seedProject(t, store, "0")

	bus := eventing.NewInMemoryBus()
	var closed []ProjectStatementClosed
	bus.Subscribe(eventing.EventType(ProjectStatementClosed{}), func(_ context.Context, event any) error {
		closed = append(closed, event.(ProjectStatementClosed))
		return nil
	})

	svc := newProjectService(t, store, bus, Config{EnforceContinuity: true})

	stmt, err := svc.Create(ctx, project.ID, "July works", time.Date(2024, time.July, 10, 0, 0, 0, 0, time.UTC), nil)
	if err != nil {
		t.Fatalf("create statement: %v", err)
	}
	if !stmt.PreviousBalance.IsZero() {
		t.Fatalf("expected zero opening balance, got %s", stmt.PreviousBalance)
	}

	if _, err := svc.AddLine(ctx, stmt.ID, ledger.DirectionIncome, "client_payment", mustMoney(t, "10000"), true, "milestone 2"); err != nil {
		t.Fatalf("add income: %v", err)
	}
	if _, err := svc.AddLine(ctx, stmt.ID, ledger.DirectionExpense, "materials", mustMoney(t, "4000"), true, "rebar"); err != nil {
		t.Fatalf("add paid expense: %v", err)
	}
	unpaid, err := svc.AddLine(ctx, stmt.ID, ledger.DirectionExpense, "labor", mustMoney(t, "1000"), false, "")
	if err != nil {
		t.Fatalf("add unpaid expense: %v", err)
	}

	got, _, err := svc.Get(ctx, stmt.ID)
	if err != nil {
		t.Fatalf("get statement: %v", err)
	}
	assertMoney(t, "total income", got.Totals.TotalIncome, "10000")
	assertMoney(t, "paid expenses", got.Totals.TotalExpensePaid, "4000")
	assertMoney(t, "unpaid expenses", got.Totals.TotalExpenseUnpaid, "1000")
	assertMoney(t, "net cash", got.Totals.NetCash, "6000")
	assertMoney(t, "final balance", got.FinalBalance, "6000")

	// Paying the outstanding line moves it between expense buckets.
	paid := true
	if _, err := svc.UpdateLine(ctx, stmt.ID, unpaid.ID, ledger.LinePatch{IsPaid: &paid}); err != nil {
		t.Fatalf("update line: %v", err)
	}
	got, _, err = svc.Get(ctx, stmt.ID)
	if err != nil {
		t.Fatalf("get statement: %v", err)
	}
	assertMoney(t, "paid expenses after flip", got.Totals.TotalExpensePaid, "5000")
	assertMoney(t, "unpaid expenses after flip", got.Totals.TotalExpenseUnpaid, "0")
	assertMoney(t, "net cash after flip", got.Totals.NetCash, "5000")

	closedStmt, err := svc.Close(ctx, stmt.ID, ledger.TransferredToSafe)
	if err != nil {
		t.Fatalf("close statement: %v", err)
	}
	if closedStmt.Status != ledger.StatementStatusClosed {
		t.Fatalf("expected closed status, got %s", closedStmt.Status)
	}
	if closedStmt.ClosedAt == nil {
		t.Fatal("expected ClosedAt to be set")
	}

	refreshed, err := store.Projects().Get(ctx, project.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	assertMoney(t, "project running balance", refreshed.RunningBalance, "5000")

	if len(closed) != 1 {
		t.Fatalf("expected 1 close event, got %d", len(closed))
	}
	if closed[0].StatementID != stmt.ID || !closed[0].FinalBalance.Equal(mustMoney(t, "5000")) {
		t.Fatalf("unexpected close event: %+v", closed[0])
	}
}

func TestProjectStatement_ClosedIsFrozen(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	project := seedProject(t, store, "0")
	svc := newProjectService(t, store, nil, Config{})

	stmt, err := svc.Create(ctx, project.ID, "Q3", time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), nil)
	if err != nil {
		t.Fatalf("create statement: %v", err)
	}
	line, err := svc.AddLine(ctx, stmt.ID, ledger.DirectionIncome, "advance", mustMoney(t, "500"), true, "")
	if err != nil {
		t.Fatalf("add line: %v", err)
	}
	if _, err := svc.Close(ctx, stmt.ID, ledger.TransferNone); err != nil {
		t.Fatalf("close statement: %v", err)
	}

	if _, err := svc.AddLine(ctx, stmt.ID, ledger.DirectionIncome, "late", mustMoney(t, "1"), true, ""); !errors.Is(err, ledger.ErrInvalidState) {
		t.Fatalf("add line on closed: want ErrInvalidState, got %v", err)
	}
	amount := mustMoney(t, "600")
	if _, err := svc.UpdateLine(ctx, stmt.ID, line.ID, ledger.LinePatch{Amount: &amount}); !errors.Is(err, ledger.ErrInvalidState) {
		t.Fatalf("update line on closed: want ErrInvalidState, got %v", err)
	}
	if err := svc.RemoveLine(ctx, stmt.ID, line.ID); !errors.Is(err, ledger.ErrInvalidState) {
		t.Fatalf("remove line on closed: want ErrInvalidState, got %v", err)
	}
	if _, err := svc.Close(ctx, stmt.ID, ledger.TransferNone); !errors.Is(err, ledger.ErrInvalidState) {
		t.Fatalf("double close: want ErrInvalidState, got %v", err)
	}
}

func TestProjectStatement_ReopenPolicy(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	project := seedProject(t, store, "250")
	svc := newProjectService(t, store, nil, Config{})

	stmt, err := svc.Create(ctx, project.ID, "Phase 1", time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), nil)
	if err != nil {
		t.Fatalf("create statement: %v", err)
	}
	if _, err := svc.AddLine(ctx, stmt.ID, ledger.DirectionIncome, "deposit", mustMoney(t, "100"), true, ""); err != nil {
		t.Fatalf("add line: %v", err)
	}
	if _, err := svc.Close(ctx, stmt.ID, ledger.TransferNone); err != nil {
		t.Fatalf("close statement: %v", err)
	}

	if _, err := svc.Reopen(ctx, stmt.ID); !errors.Is(err, ledger.ErrInvalidState) {
		t.Fatalf("reopen while disabled: want ErrInvalidState, got %v", err)
	}

	allowed := newProjectService(t, store, nil, Config{AllowProjectReopen: true})
	reopened, err := allowed.Reopen(ctx, stmt.ID)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Status != ledger.StatementStatusDraft {
		t.Fatalf("expected draft after reopen, got %s", reopened.Status)
	}
	refreshed, err := store.Projects().Get(ctx, project.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	assertMoney(t, "running balance after reopen", refreshed.RunningBalance, "250")
}

func TestProjectStatement_OpeningBalanceContinuity(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	project := seedProject(t, store, "1200")
	svc := newProjectService(t, store, nil, Config{EnforceContinuity: true})

	suggestion, err := svc.SuggestOpeningBalance(ctx, project.ID)
	if err != nil {
		t.Fatalf("suggest opening balance: %v", err)
	}
	if !suggestion.Editable {
		t.Fatal("first-ever statement suggestion should be editable")
	}
	assertMoney(t, "first suggestion", suggestion.Value, "1200")

	// First statement may override the suggestion.
	override := mustMoney(t, "900")
	first, err := svc.Create(ctx, project.ID, "Kickoff", time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), &override)
	if err != nil {
		t.Fatalf("create with override: %v", err)
	}
	assertMoney(t, "overridden opening balance", first.PreviousBalance, "900")

	if _, err := svc.AddLine(ctx, first.ID, ledger.DirectionIncome, "invoice", mustMoney(t, "300"), true, ""); err != nil {
		t.Fatalf("add line: %v", err)
	}
	if _, err := svc.Close(ctx, first.ID, ledger.TransferNone); err != nil {
		t.Fatalf("close first: %v", err)
	}

	suggestion, err = svc.SuggestOpeningBalance(ctx, project.ID)
	if err != nil {
		t.Fatalf("suggest after close: %v", err)
	}
	if suggestion.Editable {
		t.Fatal("chained suggestion should not be editable")
	}
	assertMoney(t, "chained suggestion", suggestion.Value, "1200")

	mismatch := mustMoney(t, "5000")
	if _, err := svc.Create(ctx, project.ID, "Phase 2", time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), &mismatch); !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("mismatched opening balance: want ErrValidation, got %v", err)
	}

	second, err := svc.Create(ctx, project.ID, "Phase 2", time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), nil)
	if err != nil {
		t.Fatalf("create chained: %v", err)
	}
	assertMoney(t, "chained opening balance", second.PreviousBalance, "1200")
}

func TestProjectStatement_CreateRejectsUnknownProject(t *testing.T) {
	store := memory.NewStore()
	svc := newProjectService(t, store, nil, Config{})

	_, err := svc.Create(context.Background(), uuid.New(), "Ghost", time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), nil)
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func assertMoney(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(mustMoney(t, want)) {
		t.Fatalf("%s: got %s, want %s", label, got, want)
	}
}
