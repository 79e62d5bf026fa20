package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	ledger "propipe-books/internal/ledger/domain"
)

// DashboardReader answers the aggregate queries the dashboard needs with
// direct SQL instead of walking every statement in Go.
type DashboardReader struct {
	db *sql.DB
}

// NewDashboardReader constructs a reader.
func NewDashboardReader(db *sql.DB) *DashboardReader {
	return &DashboardReader{db: db}
}

// ActiveProjects lists active projects ordered by name.
func (r *DashboardReader) ActiveProjects(ctx context.Context) ([]ledger.Project, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("dashboard reader: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, location, running_balance, is_active, created_at
FROM projects
WHERE is_active
ORDER BY name ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []ledger.Project
	for rows.Next() {
		var p ledger.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Location, &p.RunningBalance, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		p.CreatedAt = p.CreatedAt.UTC()
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// ActivePartners lists active partners ordered by name.
func (r *DashboardReader) ActivePartners(ctx context.Context) ([]ledger.Partner, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("dashboard reader: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, share_percentage, base_salary, running_balance, is_active, created_at
FROM partners
WHERE is_active
ORDER BY name ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []ledger.Partner
	for rows.Next() {
		var p ledger.Partner
		if err := rows.Scan(&p.ID, &p.Name, &p.SharePercentage, &p.BaseSalary, &p.RunningBalance, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		p.CreatedAt = p.CreatedAt.UTC()
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// PaidExpensesBetween returns paid expense lines with paid_at in [from, to),
// oldest first.
func (r *DashboardReader) PaidExpensesBetween(ctx context.Context, from, to time.Time) ([]ledger.PaidExpense, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("dashboard reader: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT paid_at, amount
FROM statement_lines
WHERE direction = 'expense' AND is_paid AND paid_at >= $1 AND paid_at < $2
ORDER BY paid_at ASC`, from, to)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []ledger.PaidExpense
	for rows.Next() {
		var e ledger.PaidExpense
		if err := rows.Scan(&e.PaidAt, &e.Amount); err != nil {
			return nil, mapError(err)
		}
		e.PaidAt = e.PaidAt.UTC()
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// ClosedNetCashBetween returns the net cash of closed project statements with
// a statement date in [from, to), oldest first.
func (r *DashboardReader) ClosedNetCashBetween(ctx context.Context, from, to time.Time) ([]ledger.ClosedNetCash, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("dashboard reader: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT statement_date, net_cash
FROM project_statements
WHERE status = 'closed' AND statement_date >= $1 AND statement_date < $2
ORDER BY statement_date ASC`, from, to)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []ledger.ClosedNetCash
	for rows.Next() {
		var c ledger.ClosedNetCash
		if err := rows.Scan(&c.Date, &c.NetCash); err != nil {
			return nil, mapError(err)
		}
		c.Date = c.Date.UTC()
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return result, nil
}
