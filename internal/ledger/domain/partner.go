package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PartnerStatement is a partner's monthly compensation statement, unique per
// (PartnerID, Month, Year). Sign convention: a positive balance is an amount
// the partner still owes the company; reimbursement, salary and profit share
// reduce it, actual withdrawals increase it.
type PartnerStatement struct {
	ID                           uuid.UUID
	PartnerID                    uuid.UUID
	Month                        int
	Year                         int
	Status                       string
	PreviousBalance              decimal.Decimal
	PersonalExpenseReimbursement decimal.Decimal
	MonthlySalary                decimal.Decimal
	ProfitShare                  decimal.Decimal
	ActualWithdrawn              decimal.Decimal
	NextMonthBalance             decimal.Decimal
	Note                         string
	CreatedAt                    time.Time
	UpdatedAt                    time.Time
	ClosedAt                     *time.Time
}

// NewPartnerStatement creates a draft statement for one compensation period.
func NewPartnerStatement(partnerID uuid.UUID, month, year int, previousBalance decimal.Decimal, now time.Time) (PartnerStatement, error) {
	if partnerID == uuid.Nil {
		return PartnerStatement{}, fmt.Errorf("%w: partner id required", ErrValidation)
	}
	if month < 1 || month > 12 {
		return PartnerStatement{}, fmt.Errorf("%w: month out of range: %d", ErrValidation, month)
	}
	if year < 2000 || year > 2200 {
		return PartnerStatement{}, fmt.Errorf("%w: year out of range: %d", ErrValidation, year)
	}
	s := PartnerStatement{
		ID:              uuid.New(),
		PartnerID:       partnerID,
		Month:           month,
		Year:            year,
		Status:          StatementStatusDraft,
		PreviousBalance: RoundMoney(previousBalance),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.Recompute()
	return s, nil
}

// Recompute refreshes the carried balance from the compensation fields:
// nextMonthBalance = previousBalance + actualWithdrawn - (reimbursement + salary + profitShare).
func (s *PartnerStatement) Recompute() {
	entitlements := s.PersonalExpenseReimbursement.Add(s.MonthlySalary).Add(s.ProfitShare)
	s.NextMonthBalance = s.PreviousBalance.Add(s.ActualWithdrawn).Sub(entitlements)
}

// Validate checks field invariants. Compensation fields may be zero but not negative.
func (s *PartnerStatement) Validate() error {
	for name, v := range map[string]decimal.Decimal{
		"personal_expense_reimbursement": s.PersonalExpenseReimbursement,
		"monthly_salary":                 s.MonthlySalary,
		"profit_share":                   s.ProfitShare,
		"actual_withdrawn":               s.ActualWithdrawn,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%w: %s must not be negative", ErrValidation, name)
		}
	}
	return nil
}

// IsDraft reports whether the statement still accepts mutations.
func (s *PartnerStatement) IsDraft() bool {
	return s.Status == StatementStatusDraft
}

// PeriodBefore reports whether s covers an earlier month than other.
func (s *PartnerStatement) PeriodBefore(other *PartnerStatement) bool {
	if other == nil {
		return true
	}
	if s.Year != other.Year {
		return s.Year < other.Year
	}
	return s.Month < other.Month
}
