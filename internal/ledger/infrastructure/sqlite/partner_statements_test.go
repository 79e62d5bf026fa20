package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ledger "propipe-books/internal/ledger/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "books.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mustMoney(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := ledger.ParseMoney(s)
	if err != nil {
		t.Fatalf("parse money %q: %v", s, err)
	}
	return d
}

func seedPartner(t *testing.T, store *Store, balance string) ledger.Partner {
	t.Helper()
	partner := ledger.Partner{
		ID:              uuid.New(),
		Name:            "R. Almasi",
		SharePercentage: mustMoney(t, "35"),
		BaseSalary:      mustMoney(t, "2000"),
		RunningBalance:  mustMoney(t, balance),
		IsActive:        true,
		CreatedAt:       time.Now().UTC(),
	}
	if err := store.Partners().Create(context.Background(), partner); err != nil {
		t.Fatalf("seed partner: %v", err)
	}
	return partner
}

func newPartnerStatement(t *testing.T, partnerID uuid.UUID, month, year int, opening string) ledger.PartnerStatement {
	t.Helper()
	stmt, err := ledger.NewPartnerStatement(partnerID, month, year, mustMoney(t, opening), time.Now().UTC())
	if err != nil {
		t.Fatalf("new partner statement: %v", err)
	}
	return stmt
}

func TestPartnerStatementRepo_GetByPeriod(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	partner := seedPartner(t, store, "1000")

	stmt := newPartnerStatement(t, partner.ID, 7, 2024, "1000")
	if err := store.PartnerStatements().Create(ctx, stmt); err != nil {
		t.Fatalf("create statement: %v", err)
	}

	// Go through the interface so the month/year argument order is pinned
	// to the contract, not to this implementation.
	var repo ledger.PartnerStatementRepository = store.PartnerStatements()

	got, err := repo.GetByPeriod(ctx, partner.ID, 7, 2024)
	if err != nil {
		t.Fatalf("get by period: %v", err)
	}
	if got.ID != stmt.ID || got.Month != 7 || got.Year != 2024 {
		t.Fatalf("got statement %s (%d-%02d), want %s (2024-07)", got.ID, got.Year, got.Month, stmt.ID)
	}

	if _, err := repo.GetByPeriod(ctx, partner.ID, 8, 2024); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("empty period: want ErrNotFound, got %v", err)
	}
}

func TestPartnerStatementRepo_DuplicatePeriod(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	partner := seedPartner(t, store, "0")

	if err := store.PartnerStatements().Create(ctx, newPartnerStatement(t, partner.ID, 7, 2024, "0")); err != nil {
		t.Fatalf("create statement: %v", err)
	}
	err := store.PartnerStatements().Create(ctx, newPartnerStatement(t, partner.ID, 7, 2024, "0"))
	if !errors.Is(err, ledger.ErrDuplicatePeriod) {
		t.Fatalf("duplicate period: want ErrDuplicatePeriod, got %v", err)
	}
}

func TestPartnerStatementRepo_CloseAndReopen(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	partner := seedPartner(t, store, "1000")
	repo := store.PartnerStatements()

	stmt := newPartnerStatement(t, partner.ID, 7, 2024, "1000")
	withdrawn := mustMoney(t, "500")
	salary := mustMoney(t, "2000")
	patched, err := ledger.PartnerStatementPatch{
		ActualWithdrawn: &withdrawn,
		MonthlySalary:   &salary,
	}.Apply(stmt, time.Now().UTC())
	if err != nil {
		t.Fatalf("apply patch: %v", err)
	}
	if err := repo.Create(ctx, patched); err != nil {
		t.Fatalf("create statement: %v", err)
	}

	closedAt := time.Now().UTC()
	if err := repo.Close(ctx, patched.ID, closedAt); err != nil {
		t.Fatalf("close: %v", err)
	}
	refreshed, err := store.Partners().Get(ctx, partner.ID)
	if err != nil {
		t.Fatalf("get partner: %v", err)
	}
	// 1000 + 500 - 2000
	if !refreshed.RunningBalance.Equal(mustMoney(t, "-500")) {
		t.Fatalf("running balance after close: got %s, want -500", refreshed.RunningBalance)
	}

	if err := repo.Close(ctx, patched.ID, closedAt); !errors.Is(err, ledger.ErrInvalidState) {
		t.Fatalf("double close: want ErrInvalidState, got %v", err)
	}
	if err := repo.Update(ctx, patched); !errors.Is(err, ledger.ErrInvalidState) {
		t.Fatalf("update closed: want ErrInvalidState, got %v", err)
	}

	if err := repo.Reopen(ctx, patched.ID, time.Now().UTC()); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	refreshed, err = store.Partners().Get(ctx, partner.ID)
	if err != nil {
		t.Fatalf("get partner: %v", err)
	}
	if !refreshed.RunningBalance.Equal(mustMoney(t, "1000")) {
		t.Fatalf("running balance after reopen: got %s, want 1000", refreshed.RunningBalance)
	}
	if err := repo.Reopen(ctx, patched.ID, time.Now().UTC()); !errors.Is(err, ledger.ErrInvalidState) {
		t.Fatalf("double reopen: want ErrInvalidState, got %v", err)
	}
}
