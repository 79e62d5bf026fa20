package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func mustLine(t *testing.T, statementID uuid.UUID, direction Direction, amount int64, isPaid bool) StatementLine {
	t.Helper()
	line, err := NewStatementLine(statementID, direction, "general", decimal.NewFromInt(amount), isPaid, "", time.Now().UTC())
	if err != nil {
		t.Fatalf("new line: %v", err)
	}
	return line
}

func TestComputeTotals_Deterministic(t *testing.T) {
	stmtID := uuid.New()
	lines := []StatementLine{
		mustLine(t, stmtID, DirectionIncome, 10000, false),
		mustLine(t, stmtID, DirectionExpense, 4000, true),
		mustLine(t, stmtID, DirectionExpense, 1000, false),
	}
	first := ComputeTotals(lines)
	second := ComputeTotals(lines)
	if !first.TotalIncome.Equal(second.TotalIncome) ||
		!first.TotalExpensePaid.Equal(second.TotalExpensePaid) ||
		!first.TotalExpenseUnpaid.Equal(second.TotalExpenseUnpaid) ||
		!first.NetCash.Equal(second.NetCash) {
		t.Fatalf("totals differ between runs: %+v vs %+v", first, second)
	}
}

func TestComputeTotals_Scenario(t *testing.T) {
	stmtID := uuid.New()
	lines := []StatementLine{
		mustLine(t, stmtID, DirectionIncome, 10000, false),
		mustLine(t, stmtID, DirectionExpense, 4000, true),
		mustLine(t, stmtID, DirectionExpense, 1000, false),
	}
	totals := ComputeTotals(lines)
	if !totals.TotalIncome.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("income: got %s", totals.TotalIncome)
	}
	if !totals.TotalExpensePaid.Equal(decimal.NewFromInt(4000)) {
		t.Fatalf("paid expense: got %s", totals.TotalExpensePaid)
	}
	if !totals.TotalExpenseUnpaid.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("unpaid expense: got %s", totals.TotalExpenseUnpaid)
	}
	if !totals.NetCash.Equal(decimal.NewFromInt(6000)) {
		t.Fatalf("net cash: got %s", totals.NetCash)
	}
}

func TestComputeTotals_AddThenRemoveRestoresTotals(t *testing.T) {
	stmtID := uuid.New()
	base := []StatementLine{
		mustLine(t, stmtID, DirectionIncome, 500, false),
		mustLine(t, stmtID, DirectionExpense, 120, true),
	}
	before := ComputeTotals(base)

	extra := mustLine(t, stmtID, DirectionExpense, 75, false)
	with := append(append([]StatementLine{}, base...), extra)
	if ComputeTotals(with).TotalExpenseUnpaid.Equal(before.TotalExpenseUnpaid) {
		t.Fatal("expected extra line to change totals")
	}

	after := ComputeTotals(with[:len(with)-1])
	if !after.TotalIncome.Equal(before.TotalIncome) ||
		!after.TotalExpensePaid.Equal(before.TotalExpensePaid) ||
		!after.TotalExpenseUnpaid.Equal(before.TotalExpenseUnpaid) ||
		!after.NetCash.Equal(before.NetCash) {
		t.Fatalf("totals did not return to pre-add values: %+v vs %+v", after, before)
	}
}

func TestProjectStatement_RecomputeBalanceInvariant(t *testing.T) {
	stmt, err := NewProjectStatement(uuid.New(), "Dock repair", time.Now().UTC(), decimal.NewFromInt(250), time.Now().UTC())
	if err != nil {
		t.Fatalf("new statement: %v", err)
	}
	lines := []StatementLine{
		mustLine(t, stmt.ID, DirectionIncome, 1000, false),
		mustLine(t, stmt.ID, DirectionExpense, 300, true),
	}
	stmt.Recompute(lines)

	want := stmt.PreviousBalance.Add(stmt.Totals.TotalIncome).Sub(stmt.Totals.TotalExpensePaid)
	if !stmt.FinalBalance.Equal(want) {
		t.Fatalf("final balance %s, want %s", stmt.FinalBalance, want)
	}
}

func TestNewStatementLine_RejectsNonPositiveAmount(t *testing.T) {
	_, err := NewStatementLine(uuid.New(), DirectionExpense, "fuel", decimal.Zero, false, "", time.Now().UTC())
	if err == nil {
		t.Fatal("expected error for zero amount")
	}
	_, err = NewStatementLine(uuid.New(), DirectionExpense, "fuel", decimal.NewFromInt(-5), false, "", time.Now().UTC())
	if err == nil {
		t.Fatal("expected error for negative amount")
	}
}

func TestLinePatch_IsPaidFlipManagesPaidAt(t *testing.T) {
	line := mustLine(t, uuid.New(), DirectionExpense, 80, false)
	if line.PaidAt != nil {
		t.Fatal("unpaid line should have nil PaidAt")
	}

	paid := true
	now := time.Now().UTC()
	patched, err := LinePatch{IsPaid: &paid}.Apply(line, now)
	if err != nil {
		t.Fatalf("apply patch: %v", err)
	}
	if patched.PaidAt == nil || !patched.PaidAt.Equal(now) {
		t.Fatalf("expected PaidAt %v, got %v", now, patched.PaidAt)
	}

	unpaid := false
	patched, err = LinePatch{IsPaid: &unpaid}.Apply(patched, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("apply second patch: %v", err)
	}
	if patched.PaidAt != nil {
		t.Fatalf("expected PaidAt cleared, got %v", patched.PaidAt)
	}
}
