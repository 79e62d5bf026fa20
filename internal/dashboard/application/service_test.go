package application

import (
	"context"
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

func mustMoney(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := ledger.ParseMoney(s)
	if err != nil {
		t.Fatalf("parse money %q: %v", s, err)
	}
	return d
}

func assertMoney(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(mustMoney(t, want)) {
		t.Fatalf("%s: got %s, want %s", label, got, want)
	}
}

func seedProject(t *testing.T, store *memory.Store, name, balance string, active bool) ledger.Project {
	t.Helper()
	project := ledger.Project{
		ID:             uuid.New(),
		Name:           name,
		RunningBalance: mustMoney(t, balance),
		IsActive:       active,
		CreatedAt:      time.Now().UTC(),
	}
	if err := store.Projects().Create(context.Background(), project); err != nil {
		t.Fatalf("seed project %s: %v", name, err)
	}
	return project
}

func seedPartner(t *testing.T, store *memory.Store, name, balance string, active bool) {
	t.Helper()
	partner := ledger.Partner{
		ID:             uuid.New(),
		Name:           name,
		RunningBalance: mustMoney(t, balance),
		IsActive:       active,
		CreatedAt:      time.Now().UTC(),
	}
	if err := store.Partners().Create(context.Background(), partner); err != nil {
		t.Fatalf("seed partner %s: %v", name, err)
	}
}

func TestDashboardSummary(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	clock := fixedClock{t: time.Date(2024, time.July, 15, 10, 0, 0, 0, time.UTC)}

	projectA := seedProject(t, store, "Harbor Crossing", "500", true)
	seedProject(t, store, "North Depot", "-200", true)
	seedProject(t, store, "Mothballed Yard", "9999", false)
	seedPartner(t, store, "R. Almasi", "50", true)
	seedPartner(t, store, "Former Partner", "80", false)

	// Close a June statement so its net cash lands in the June bucket while
	// the payment dates land in the current month.
	resolver, err := ledgerapp.NewContinuityResolver(store.ProjectStatements(), store.PartnerStatements(), store.Projects(), store.Partners())
	if err != nil {
		t.Fatalf("continuity resolver: %v", err)
	}
	statements, err := ledgerapp.NewProjectStatementService(store.ProjectStatements(), store.Projects(), resolver, nil, clock, ledgerapp.Config{})
	if err != nil {
		t.Fatalf("statement service: %v", err)
	}
	stmt, err := statements.Create(ctx, projectA.ID, "June works", time.Date(2024, time.June, 5, 0, 0, 0, 0, time.UTC), nil)
	if err != nil {
		t.Fatalf("create statement: %v", err)
	}
	if _, err := statements.AddLine(ctx, stmt.ID, ledger.DirectionIncome, "client_payment", mustMoney(t, "300"), true, ""); err != nil {
		t.Fatalf("add income: %v", err)
	}
	if _, err := statements.AddLine(ctx, stmt.ID, ledger.DirectionExpense, "materials", mustMoney(t, "100"), true, ""); err != nil {
		t.Fatalf("add expense: %v", err)
	}
	if _, err := statements.Close(ctx, stmt.ID, ledger.TransferNone); err != nil {
		t.Fatalf("close statement: %v", err)
	}

	svc, err := NewService(store.Dashboard(), clock, 3)
	if err != nil {
		t.Fatalf("dashboard service: %v", err)
	}
	summary, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	// Closing carried the June net cash onto the project's balance.
	assertMoney(t, "positive project balance", summary.PositiveProjectBalance, "700")
	assertMoney(t, "negative project balance", summary.NegativeProjectBalance, "-200")
	if len(summary.Projects) != 2 {
		t.Fatalf("expected 2 active projects, got %d", len(summary.Projects))
	}
	if len(summary.Partners) != 1 {
		t.Fatalf("expected 1 active partner, got %d", len(summary.Partners))
	}
	if summary.Partners[0].Name != "R. Almasi" {
		t.Fatalf("unexpected partner: %s", summary.Partners[0].Name)
	}

	if len(summary.Months) != 3 {
		t.Fatalf("expected 3 month buckets, got %d", len(summary.Months))
	}
	for i, want := range []struct{ year, month int }{
		{2024, 5}, {2024, 6}, {2024, 7},
	} {
		if summary.Months[i].Year != want.year || summary.Months[i].Month != want.month {
			t.Fatalf("bucket %d: got %d-%02d, want %d-%02d", i, summary.Months[i].Year, summary.Months[i].Month, want.year, want.month)
		}
	}
	assertMoney(t, "may net cash", summary.Months[0].ClosedNetCash, "0")
	assertMoney(t, "june net cash", summary.Months[1].ClosedNetCash, "200")
	// Lines were marked paid at the (fixed) current time, so the spend shows
	// up in July regardless of the statement's own date.
	assertMoney(t, "june paid expenses", summary.Months[1].PaidExpenses, "0")
	assertMoney(t, "july paid expenses", summary.Months[2].PaidExpenses, "100")
	assertMoney(t, "current month paid expenses", summary.MonthPaidExpenses, "100")
}

func TestDashboardSummary_EmptyStore(t *testing.T) {
	store := memory.NewStore()
	clock := fixedClock{t: time.Date(2024, time.July, 15, 10, 0, 0, 0, time.UTC)}

	svc, err := NewService(store.Dashboard(), clock, 0)
	if err != nil {
		t.Fatalf("dashboard service: %v", err)
	}
	summary, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	assertMoney(t, "positive project balance", summary.PositiveProjectBalance, "0")
	assertMoney(t, "negative project balance", summary.NegativeProjectBalance, "0")
	if len(summary.Months) != DefaultTrailingMonths {
		t.Fatalf("expected %d buckets, got %d", DefaultTrailingMonths, len(summary.Months))
	}
}
