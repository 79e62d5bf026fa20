package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProjectStatementRepository persists project statements and their lines.
//
// Get and GetLine return ErrNotFound for missing records; LatestByProject
// returns nil without error when the project has no statements yet.
//
// Line mutations must persist the line change and the derived totals in one
// atomic unit, and must fail with ErrInvalidState when the statement is no
// longer draft. Close flips the status and writes the statement's final
// balance into the owning project's running balance; both writes succeed or
// neither does. Concurrent Close calls on the same statement are serialized
// so that at most one observes the draft status.
type ProjectStatementRepository interface {
	Create(ctx context.Context, stmt ProjectStatement) error
	Get(ctx context.Context, id uuid.UUID) (*ProjectStatement, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]ProjectStatement, error)
	LatestByProject(ctx context.Context, projectID uuid.UUID) (*ProjectStatement, error)

	ListLines(ctx context.Context, statementID uuid.UUID) ([]StatementLine, error)
	GetLine(ctx context.Context, statementID, lineID uuid.UUID) (*StatementLine, error)
	InsertLine(ctx context.Context, line StatementLine, derived Derived) error
	UpdateLine(ctx context.Context, line StatementLine, derived Derived) error
	DeleteLine(ctx context.Context, statementID, lineID uuid.UUID, derived Derived) error

	Close(ctx context.Context, id uuid.UUID, action TransferAction, closedAt time.Time) error
	// Reopen undoes the close propagation, restoring the project's running
	// balance to the statement's previous balance.
	Reopen(ctx context.Context, id uuid.UUID, reopenedAt time.Time) error
}

// PartnerStatementRepository persists partner compensation statements.
// Create fails with ErrDuplicatePeriod when the (partner, month, year)
// period already has a statement. Close and Reopen carry the same atomicity
// contract as project statements, against the partner's running balance.
type PartnerStatementRepository interface {
	Create(ctx context.Context, stmt PartnerStatement) error
	Get(ctx context.Context, id uuid.UUID) (*PartnerStatement, error)
	GetByPeriod(ctx context.Context, partnerID uuid.UUID, month, year int) (*PartnerStatement, error)
	ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]PartnerStatement, error)
	// LatestByPartner returns the statement of the most recent period, or nil.
	LatestByPartner(ctx context.Context, partnerID uuid.UUID) (*PartnerStatement, error)

	// Update persists compensation fields and the recomputed NextMonthBalance
	// while the statement is draft.
	Update(ctx context.Context, stmt PartnerStatement) error

	Close(ctx context.Context, id uuid.UUID, closedAt time.Time) error
	Reopen(ctx context.Context, id uuid.UUID, reopenedAt time.Time) error
}

// ProjectRepository persists project records. RunningBalance is written only
// by statement close/reopen transactions, never through this interface.
type ProjectRepository interface {
	Create(ctx context.Context, project Project) error
	Get(ctx context.Context, id uuid.UUID) (*Project, error)
	List(ctx context.Context, activeOnly bool) ([]Project, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// PartnerRepository persists partner records.
type PartnerRepository interface {
	Create(ctx context.Context, partner Partner) error
	Get(ctx context.Context, id uuid.UUID) (*Partner, error)
	List(ctx context.Context, activeOnly bool) ([]Partner, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// ClosedNetCash is one closed project statement's contribution to the
// trailing net-cash series.
type ClosedNetCash struct {
	Date    time.Time
	NetCash decimal.Decimal
}

// PaidExpense is one paid expense line's contribution to the expense series.
type PaidExpense struct {
	PaidAt time.Time
	Amount decimal.Decimal
}

// DashboardReader provides the read-only slices the dashboard sums over.
// Every call re-reads current state; no caching is promised.
type DashboardReader interface {
	ActiveProjects(ctx context.Context) ([]Project, error)
	ActivePartners(ctx context.Context) ([]Partner, error)
	PaidExpensesBetween(ctx context.Context, from, to time.Time) ([]PaidExpense, error)
	ClosedNetCashBetween(ctx context.Context, from, to time.Time) ([]ClosedNetCash, error)
}
