package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// LinePatch is a typed partial update for a statement line. Nil fields are
// left unchanged.
type LinePatch struct {
	Direction   *Direction
	Category    *string
	Amount      *decimal.Decimal
	IsPaid      *bool
	Description *string
}

// Apply returns the patched line. Flipping IsPaid sets or clears PaidAt so
// the paid timestamp always matches the flag.
func (p LinePatch) Apply(line StatementLine, now time.Time) (StatementLine, error) {
	if p.Direction != nil {
		line.Direction = *p.Direction
	}
	if p.Category != nil {
		line.Category = *p.Category
	}
	if p.Amount != nil {
		line.Amount = RoundMoney(*p.Amount)
	}
	if p.Description != nil {
		line.Description = *p.Description
	}
	if p.IsPaid != nil && *p.IsPaid != line.IsPaid {
		line.IsPaid = *p.IsPaid
		if line.IsPaid {
			paidAt := now
			line.PaidAt = &paidAt
		} else {
			line.PaidAt = nil
		}
	}
	if err := line.Validate(); err != nil {
		return StatementLine{}, err
	}
	return line, nil
}

// PartnerStatementPatch is a typed partial update for a partner statement.
type PartnerStatementPatch struct {
	PersonalExpenseReimbursement *decimal.Decimal
	MonthlySalary                *decimal.Decimal
	ProfitShare                  *decimal.Decimal
	ActualWithdrawn              *decimal.Decimal
	Note                         *string
}

// Apply returns the patched statement with NextMonthBalance recomputed.
func (p PartnerStatementPatch) Apply(stmt PartnerStatement, now time.Time) (PartnerStatement, error) {
	if p.PersonalExpenseReimbursement != nil {
		stmt.PersonalExpenseReimbursement = RoundMoney(*p.PersonalExpenseReimbursement)
	}
	if p.MonthlySalary != nil {
		stmt.MonthlySalary = RoundMoney(*p.MonthlySalary)
	}
	if p.ProfitShare != nil {
		stmt.ProfitShare = RoundMoney(*p.ProfitShare)
	}
	if p.ActualWithdrawn != nil {
		stmt.ActualWithdrawn = RoundMoney(*p.ActualWithdrawn)
	}
	if p.Note != nil {
		stmt.Note = *p.Note
	}
	if err := stmt.Validate(); err != nil {
		return PartnerStatement{}, err
	}
	stmt.Recompute()
	stmt.UpdatedAt = now
	return stmt, nil
}
