package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	StatementStatusDraft  = "draft"
	StatementStatusClosed = "closed"
)

// TransferAction records what happened to a closed statement's cash.
// Informational only; it never participates in balance computation.
type TransferAction string

const (
	TransferNone        TransferAction = "none"
	TransferredToSafe   TransferAction = "transferred_to_safe"
	TransferCarriedOver TransferAction = "carried_over"
)

// ParseTransferAction validates a transfer action string. Empty means none.
func ParseTransferAction(s string) (TransferAction, error) {
	switch TransferAction(s) {
	case "", TransferNone:
		return TransferNone, nil
	case TransferredToSafe:
		return TransferredToSafe, nil
	case TransferCarriedOver:
		return TransferCarriedOver, nil
	}
	return "", fmt.Errorf("%w: unknown transfer action %q", ErrValidation, s)
}

// Totals are the derived aggregates of a project statement. NetCash counts
// income minus paid expenses only; unpaid expenses are tracked but excluded.
type Totals struct {
	TotalIncome        decimal.Decimal
	TotalExpensePaid   decimal.Decimal
	TotalExpenseUnpaid decimal.Decimal
	NetCash            decimal.Decimal
}

// ProjectStatement is a dated batch of income/expense lines for one project.
// Totals and FinalBalance are always the deterministic function of the
// current lines and PreviousBalance; they are never hand-edited.
type ProjectStatement struct {
	ID              uuid.UUID
	ProjectID       uuid.UUID
	Title           string
	Date            time.Time
	Status          string
	PreviousBalance decimal.Decimal
	Totals          Totals
	FinalBalance    decimal.Decimal
	TransferAction  TransferAction
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ClosedAt        *time.Time
}

// NewProjectStatement creates a draft statement with zeroed totals. The final
// balance of an empty statement equals its opening balance.
func NewProjectStatement(projectID uuid.UUID, title string, date time.Time, previousBalance decimal.Decimal, now time.Time) (ProjectStatement, error) {
	if projectID == uuid.Nil {
		return ProjectStatement{}, fmt.Errorf("%w: project id required", ErrValidation)
	}
	if strings.TrimSpace(title) == "" {
		return ProjectStatement{}, fmt.Errorf("%w: title required", ErrValidation)
	}
	if date.IsZero() {
		return ProjectStatement{}, fmt.Errorf("%w: date required", ErrValidation)
	}
	return ProjectStatement{
		ID:              uuid.New(),
		ProjectID:       projectID,
		Title:           strings.TrimSpace(title),
		Date:            date,
		Status:          StatementStatusDraft,
		PreviousBalance: RoundMoney(previousBalance),
		FinalBalance:    RoundMoney(previousBalance),
		TransferAction:  TransferNone,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Recompute refreshes totals and the final balance from the given lines.
func (s *ProjectStatement) Recompute(lines []StatementLine) {
	s.Totals = ComputeTotals(lines)
	s.FinalBalance = s.PreviousBalance.Add(s.Totals.NetCash)
}

// IsDraft reports whether the statement still accepts mutations.
func (s *ProjectStatement) IsDraft() bool {
	return s.Status == StatementStatusDraft
}

// Derived carries the recomputed aggregates that must be persisted in the
// same atomic unit as the line change that produced them.
type Derived struct {
	Totals       Totals
	FinalBalance decimal.Decimal
	UpdatedAt    time.Time
}
