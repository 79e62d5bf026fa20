package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction marks which side of the ledger a line affects.
type Direction string

const (
	DirectionIncome  Direction = "income"
	DirectionExpense Direction = "expense"
)

// ParseDirection validates a direction string.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionIncome:
		return DirectionIncome, nil
	case DirectionExpense:
		return DirectionExpense, nil
	}
	return "", fmt.Errorf("%w: unknown direction %q", ErrValidation, s)
}

// StatementLine is one income or expense entry inside a project statement.
// The stored amount is always positive; the sign is carried by Direction.
type StatementLine struct {
	ID          uuid.UUID
	StatementID uuid.UUID
	Direction   Direction
	Category    string
	Amount      decimal.Decimal
	IsPaid      bool
	Description string
	PaidAt      *time.Time
	CreatedAt   time.Time
}

// NewStatementLine builds a validated line for a statement.
func NewStatementLine(statementID uuid.UUID, direction Direction, category string, amount decimal.Decimal, isPaid bool, description string, now time.Time) (StatementLine, error) {
	line := StatementLine{
		ID:          uuid.New(),
		StatementID: statementID,
		Direction:   direction,
		Category:    category,
		Amount:      RoundMoney(amount),
		IsPaid:      isPaid,
		Description: description,
		CreatedAt:   now,
	}
	if isPaid {
		paidAt := now
		line.PaidAt = &paidAt
	}
	if err := line.Validate(); err != nil {
		return StatementLine{}, err
	}
	return line, nil
}

// Validate checks line invariants.
func (l StatementLine) Validate() error {
	if l.StatementID == uuid.Nil {
		return fmt.Errorf("%w: line without statement", ErrValidation)
	}
	if _, err := ParseDirection(string(l.Direction)); err != nil {
		return err
	}
	if !l.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrValidation, l.Amount)
	}
	if l.IsPaid && l.PaidAt == nil {
		return fmt.Errorf("%w: paid line without paid_at", ErrValidation)
	}
	if !l.IsPaid && l.PaidAt != nil {
		return fmt.Errorf("%w: unpaid line with paid_at", ErrValidation)
	}
	return nil
}
