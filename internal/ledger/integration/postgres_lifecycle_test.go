package integration_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	ledger "propipe-books/internal/ledger/domain"
	ledgerpg "propipe-books/internal/ledger/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := ledgerpg.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestProjectStatementLifecycle_Postgres(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	projects := ledgerpg.NewProjectRepository(db)
	statements := ledgerpg.NewProjectStatementRepository(db)

	now := time.Now().UTC().Truncate(time.Microsecond)
	opening, err := ledger.ParseMoney("0")
	if err != nil {
		t.Fatalf("parse opening: %v", err)
	}

	project := ledger.Project{
		ID:             uuid.New(),
		Name:           "it-harbor-crossing",
		RunningBalance: opening,
		IsActive:       true,
		CreatedAt:      now,
	}
	if err := projects.Create(ctx, project); err != nil {
		t.Fatalf("create project: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.ExecContext(ctx, "DELETE FROM statement_lines WHERE statement_id IN (SELECT id FROM project_statements WHERE project_id = $1)", project.ID)
		_, _ = db.ExecContext(ctx, "DELETE FROM project_statements WHERE project_id = $1", project.ID)
		_, _ = db.ExecContext(ctx, "DELETE FROM projects WHERE id = $1", project.ID)
	})

	stmt, err := ledger.NewProjectStatement(project.ID, "it-lifecycle", now, opening, now)
	if err != nil {
		t.Fatalf("new statement: %v", err)
	}
	if err := statements.Create(ctx, stmt); err != nil {
		t.Fatalf("create statement: %v", err)
	}

	amount, err := ledger.ParseMoney("125.50")
	if err != nil {
		t.Fatalf("parse amount: %v", err)
	}
	line, err := ledger.NewStatementLine(stmt.ID, ledger.DirectionIncome, "client_payment", amount, true, "milestone", now)
	if err != nil {
		t.Fatalf("new line: %v", err)
	}
	stmt.Recompute([]ledger.StatementLine{line})
	if err := statements.InsertLine(ctx, line, ledger.Derived{Totals: stmt.Totals, FinalBalance: stmt.FinalBalance, UpdatedAt: now}); err != nil {
		t.Fatalf("insert line: %v", err)
	}

	got, err := statements.Get(ctx, stmt.ID)
	if err != nil {
		t.Fatalf("get statement: %v", err)
	}
	if !got.FinalBalance.Equal(amount) {
		t.Fatalf("final balance: got %s, want %s", got.FinalBalance, amount)
	}

	if err := statements.Close(ctx, stmt.ID, ledger.TransferNone, now); err != nil {
		t.Fatalf("close statement: %v", err)
	}
	// Close is final once committed.
	if err := statements.InsertLine(ctx, line, ledger.Derived{Totals: stmt.Totals, FinalBalance: stmt.FinalBalance, UpdatedAt: now}); !errors.Is(err, ledger.ErrInvalidState) {
		t.Fatalf("line insert on closed statement: want ErrInvalidState, got %v", err)
	}

	refreshed, err := projects.Get(ctx, project.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if !refreshed.RunningBalance.Equal(amount) {
		t.Fatalf("running balance: got %s, want %s", refreshed.RunningBalance, amount)
	}
}

func TestPartnerStatementPeriodUniqueness_Postgres(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	partners := ledgerpg.NewPartnerRepository(db)
	statements := ledgerpg.NewPartnerStatementRepository(db)

	now := time.Now().UTC().Truncate(time.Microsecond)
	zero, err := ledger.ParseMoney("0")
	if err != nil {
		t.Fatalf("parse zero: %v", err)
	}

	partner := ledger.Partner{
		ID:              uuid.New(),
		Name:            "it-partner",
		SharePercentage: zero,
		BaseSalary:      zero,
		RunningBalance:  zero,
		IsActive:        true,
		CreatedAt:       now,
	}
	if err := partners.Create(ctx, partner); err != nil {
		t.Fatalf("create partner: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.ExecContext(ctx, "DELETE FROM partner_statements WHERE partner_id = $1", partner.ID)
		_, _ = db.ExecContext(ctx, "DELETE FROM partners WHERE id = $1", partner.ID)
	})

	first, err := ledger.NewPartnerStatement(partner.ID, 7, 2031, zero, now)
	if err != nil {
		t.Fatalf("new statement: %v", err)
	}
	if err := statements.Create(ctx, first); err != nil {
		t.Fatalf("create statement: %v", err)
	}

	// Look the period up through the interface so the month/year argument
	// order is pinned to the contract.
	var repo ledger.PartnerStatementRepository = statements
	found, err := repo.GetByPeriod(ctx, partner.ID, 7, 2031)
	if err != nil {
		t.Fatalf("get by period: %v", err)
	}
	if found.ID != first.ID {
		t.Fatalf("get by period: got %s, want %s", found.ID, first.ID)
	}

	second, err := ledger.NewPartnerStatement(partner.ID, 7, 2031, zero, now)
	if err != nil {
		t.Fatalf("new duplicate: %v", err)
	}
	if err := statements.Create(ctx, second); !errors.Is(err, ledger.ErrDuplicatePeriod) {
		t.Fatalf("duplicate period: want ErrDuplicatePeriod, got %v", err)
	}
}
