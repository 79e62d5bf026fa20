package ledger

// ComputeTotals aggregates a statement's lines. Income lines add to
// TotalIncome, expense lines to TotalExpensePaid or TotalExpenseUnpaid
// depending on IsPaid. Pure function: no I/O, no hidden state, identical
// input yields identical output.
func ComputeTotals(lines []StatementLine) Totals {
	var t Totals
	for _, line := range lines {
		switch {
		case line.Direction == DirectionIncome:
			t.TotalIncome = t.TotalIncome.Add(line.Amount)
		case line.IsPaid:
			t.TotalExpensePaid = t.TotalExpensePaid.Add(line.Amount)
		default:
			t.TotalExpenseUnpaid = t.TotalExpenseUnpaid.Add(line.Amount)
		}
	}
	t.NetCash = t.TotalIncome.Sub(t.TotalExpensePaid)
	return t
}
