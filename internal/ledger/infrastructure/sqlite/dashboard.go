package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	ledger "propipe-books/internal/ledger/domain"
)

// DashboardRepo answers the dashboard's aggregate queries over SQLite.
type DashboardRepo struct {
	db *sql.DB
}

// ActiveProjects lists active projects ordered by name.
func (r *DashboardRepo) ActiveProjects(ctx context.Context) ([]ledger.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, location, running_balance, is_active, created_at FROM projects WHERE is_active = 1 ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active projects: %w", err)
	}
	defer rows.Close()

	var result []ledger.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return result, nil
}

// ActivePartners lists active partners ordered by name.
func (r *DashboardRepo) ActivePartners(ctx context.Context) ([]ledger.Partner, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, share_percentage, base_salary, running_balance, is_active, created_at FROM partners WHERE is_active = 1 ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active partners: %w", err)
	}
	defer rows.Close()

	var result []ledger.Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan partner row: %w", err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return result, nil
}

// PaidExpensesBetween returns paid expense lines with paid_at in [from, to).
func (r *DashboardRepo) PaidExpensesBetween(ctx context.Context, from, to time.Time) ([]ledger.PaidExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT paid_at, amount FROM statement_lines
		WHERE direction = 'expense' AND is_paid = 1 AND paid_at >= ? AND paid_at < ?
		ORDER BY paid_at ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list paid expenses: %w", err)
	}
	defer rows.Close()

	var result []ledger.PaidExpense
	for rows.Next() {
		var e ledger.PaidExpense
		var amount string
		if err := rows.Scan(&e.PaidAt, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan expense row: %w", err)
		}
		if e.Amount, err = ledger.ParseMoney(amount); err != nil {
			return nil, err
		}
		e.PaidAt = e.PaidAt.UTC()
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return result, nil
}

// ClosedNetCashBetween returns the net cash of closed project statements with
// a statement date in [from, to).
func (r *DashboardRepo) ClosedNetCashBetween(ctx context.Context, from, to time.Time) ([]ledger.ClosedNetCash, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT statement_date, net_cash FROM project_statements
		WHERE status = 'closed' AND statement_date >= ? AND statement_date < ?
		ORDER BY statement_date ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list closed net cash: %w", err)
	}
	defer rows.Close()

	var result []ledger.ClosedNetCash
	for rows.Next() {
		var c ledger.ClosedNetCash
		var net string
		if err := rows.Scan(&c.Date, &net); err != nil {
			return nil, fmt.Errorf("failed to scan net cash row: %w", err)
		}
		if c.NetCash, err = ledger.ParseMoney(net); err != nil {
			return nil, err
		}
		c.Date = c.Date.UTC()
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return result, nil
}
