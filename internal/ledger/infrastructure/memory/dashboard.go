package memory

import (
	"context"
	"sort"
	"time"

	ledger "propipe-books/internal/ledger/domain"
)

type dashboardReader struct{ s *Store }

func (r dashboardReader) ActiveProjects(ctx context.Context) ([]ledger.Project, error) {
	return projectRepo{r.s}.List(ctx, true)
}

func (r dashboardReader) ActivePartners(ctx context.Context) ([]ledger.Partner, error) {
	return partnerRepo{r.s}.List(ctx, true)
}

// PaidExpensesBetween returns paid expense lines with paid_at in [from, to).
func (r dashboardReader) PaidExpensesBetween(ctx context.Context, from, to time.Time) ([]ledger.PaidExpense, error) {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []ledger.PaidExpense
	for _, byLine := range r.s.lines {
		for _, line := range byLine {
			if line.Direction != ledger.DirectionExpense || !line.IsPaid || line.PaidAt == nil {
				continue
			}
			if line.PaidAt.Before(from) || !line.PaidAt.Before(to) {
				continue
			}
			result = append(result, ledger.PaidExpense{PaidAt: *line.PaidAt, Amount: line.Amount})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PaidAt.Before(result[j].PaidAt) })
	return result, nil
}

// ClosedNetCashBetween returns closed statements with date in [from, to).
func (r dashboardReader) ClosedNetCashBetween(ctx context.Context, from, to time.Time) ([]ledger.ClosedNetCash, error) {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []ledger.ClosedNetCash
	for _, stmt := range r.s.projectStatements {
		if stmt.Status != ledger.StatementStatusClosed {
			continue
		}
		if stmt.Date.Before(from) || !stmt.Date.Before(to) {
			continue
		}
		result = append(result, ledger.ClosedNetCash{Date: stmt.Date, NetCash: stmt.Totals.NetCash})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}
