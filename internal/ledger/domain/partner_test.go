package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestPartnerStatement_NextMonthBalanceFormula(t *testing.T) {
	stmt, err := NewPartnerStatement(uuid.New(), 7, 2024, decimal.NewFromInt(1000), time.Now().UTC())
	if err != nil {
		t.Fatalf("new partner statement: %v", err)
	}
	stmt.ActualWithdrawn = decimal.NewFromInt(500)
	stmt.PersonalExpenseReimbursement = decimal.NewFromInt(100)
	stmt.MonthlySalary = decimal.NewFromInt(2000)
	stmt.ProfitShare = decimal.NewFromInt(300)
	stmt.Recompute()

	if !stmt.NextMonthBalance.Equal(decimal.NewFromInt(-900)) {
		t.Fatalf("next month balance %s, want -900", stmt.NextMonthBalance)
	}
}

func TestNewPartnerStatement_RejectsBadPeriod(t *testing.T) {
	now := time.Now().UTC()
	if _, err := NewPartnerStatement(uuid.New(), 0, 2024, decimal.Zero, now); !errors.Is(err, ErrValidation) {
		t.Fatalf("month 0: got %v", err)
	}
	if _, err := NewPartnerStatement(uuid.New(), 13, 2024, decimal.Zero, now); !errors.Is(err, ErrValidation) {
		t.Fatalf("month 13: got %v", err)
	}
	if _, err := NewPartnerStatement(uuid.New(), 6, 1999, decimal.Zero, now); !errors.Is(err, ErrValidation) {
		t.Fatalf("year 1999: got %v", err)
	}
}

func TestPartnerStatement_ValidateRejectsNegativeFields(t *testing.T) {
	stmt, err := NewPartnerStatement(uuid.New(), 3, 2025, decimal.Zero, time.Now().UTC())
	if err != nil {
		t.Fatalf("new partner statement: %v", err)
	}
	stmt.MonthlySalary = decimal.NewFromInt(-1)
	if err := stmt.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPartnerStatementPatch_RecomputesBalance(t *testing.T) {
	stmt, err := NewPartnerStatement(uuid.New(), 3, 2025, decimal.NewFromInt(200), time.Now().UTC())
	if err != nil {
		t.Fatalf("new partner statement: %v", err)
	}
	withdrawn := decimal.NewFromInt(150)
	salary := decimal.NewFromInt(100)
	patched, err := PartnerStatementPatch{ActualWithdrawn: &withdrawn, MonthlySalary: &salary}.Apply(stmt, time.Now().UTC())
	if err != nil {
		t.Fatalf("apply patch: %v", err)
	}
	// 200 + 150 - 100
	if !patched.NextMonthBalance.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("next month balance %s, want 250", patched.NextMonthBalance)
	}
}

func TestPeriodBefore(t *testing.T) {
	now := time.Now().UTC()
	a, _ := NewPartnerStatement(uuid.New(), 12, 2024, decimal.Zero, now)
	b, _ := NewPartnerStatement(uuid.New(), 1, 2025, decimal.Zero, now)
	if !a.PeriodBefore(&b) {
		t.Fatal("2024-12 should sort before 2025-01")
	}
	if b.PeriodBefore(&a) {
		t.Fatal("2025-01 should not sort before 2024-12")
	}
}
