package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	ledger "propipe-books/internal/ledger/domain"
)

const projectStatementColumns = `id, project_id, title, statement_date, status,
	previous_balance, total_income, total_expense_paid, total_expense_unpaid, net_cash,
	final_balance, transfer_action, created_at, updated_at, closed_at`

// ProjectStatementRepository persists project statements and their lines.
// Every mutating method runs as one transaction so a line write and the
// derived totals are never observable apart.
type ProjectStatementRepository struct {
	db *sql.DB
}

// NewProjectStatementRepository constructs a repository.
func NewProjectStatementRepository(db *sql.DB) *ProjectStatementRepository {
	return &ProjectStatementRepository{db: db}
}

// Create inserts a draft statement.
func (r *ProjectStatementRepository) Create(ctx context.Context, stmt ledger.ProjectStatement) error {
	if r == nil || r.db == nil {
		return errors.New("project statement repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO project_statements (
	id, project_id, title, statement_date, status,
	previous_balance, total_income, total_expense_paid, total_expense_unpaid, net_cash,
	final_balance, transfer_action, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		stmt.ID, stmt.ProjectID, stmt.Title, stmt.Date, stmt.Status,
		stmt.PreviousBalance, stmt.Totals.TotalIncome, stmt.Totals.TotalExpensePaid, stmt.Totals.TotalExpenseUnpaid, stmt.Totals.NetCash,
		stmt.FinalBalance, stmt.TransferAction, stmt.CreatedAt, stmt.UpdatedAt)
	return mapError(err)
}

// Get fetches one statement.
func (r *ProjectStatementRepository) Get(ctx context.Context, id uuid.UUID) (*ledger.ProjectStatement, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("project statement repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+projectStatementColumns+`
FROM project_statements
WHERE id = $1`, id)
	stmt, err := scanProjectStatement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: statement %s", ledger.ErrNotFound, id)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return stmt, nil
}

// ListByProject lists a project's statements, most recent date first.
func (r *ProjectStatementRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]ledger.ProjectStatement, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("project statement repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+projectStatementColumns+`
FROM project_statements
WHERE project_id = $1
ORDER BY statement_date DESC, created_at DESC`, projectID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []ledger.ProjectStatement
	for rows.Next() {
		stmt, err := scanProjectStatement(rows)
		if err != nil {
			return nil, mapError(err)
		}
		result = append(result, *stmt)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// LatestByProject returns the most recent statement by date, or nil.
func (r *ProjectStatementRepository) LatestByProject(ctx context.Context, projectID uuid.UUID) (*ledger.ProjectStatement, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("project statement repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+projectStatementColumns+`
FROM project_statements
WHERE project_id = $1
ORDER BY statement_date DESC, created_at DESC
LIMIT 1`, projectID)
	stmt, err := scanProjectStatement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return stmt, nil
}

// ListLines returns a statement's lines in creation order.
func (r *ProjectStatementRepository) ListLines(ctx context.Context, statementID uuid.UUID) ([]ledger.StatementLine, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("project statement repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, statement_id, direction, category, amount, is_paid, description, paid_at, created_at
FROM statement_lines
WHERE statement_id = $1
ORDER BY created_at ASC, id ASC`, statementID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []ledger.StatementLine
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, mapError(err)
		}
		result = append(result, *line)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// GetLine fetches one line of a statement.
func (r *ProjectStatementRepository) GetLine(ctx context.Context, statementID, lineID uuid.UUID) (*ledger.StatementLine, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("project statement repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, statement_id, direction, category, amount, is_paid, description, paid_at, created_at
FROM statement_lines
WHERE statement_id = $1 AND id = $2`, statementID, lineID)
	line, err := scanLine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: line %s", ledger.ErrNotFound, lineID)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return line, nil
}

// InsertLine adds a line and the derived totals in one transaction.
func (r *ProjectStatementRepository) InsertLine(ctx context.Context, line ledger.StatementLine, derived ledger.Derived) error {
	return r.mutateLines(ctx, line.StatementID, derived, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO statement_lines (id, statement_id, direction, category, amount, is_paid, description, paid_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			line.ID, line.StatementID, line.Direction, line.Category, line.Amount, line.IsPaid, line.Description, line.PaidAt, line.CreatedAt)
		return mapError(err)
	})
}

// UpdateLine replaces a line and the derived totals in one transaction.
func (r *ProjectStatementRepository) UpdateLine(ctx context.Context, line ledger.StatementLine, derived ledger.Derived) error {
	return r.mutateLines(ctx, line.StatementID, derived, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE statement_lines
SET direction = $1, category = $2, amount = $3, is_paid = $4, description = $5, paid_at = $6
WHERE statement_id = $7 AND id = $8`,
			line.Direction, line.Category, line.Amount, line.IsPaid, line.Description, line.PaidAt, line.StatementID, line.ID)
		if err != nil {
			return mapError(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return mapError(err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: line %s", ledger.ErrNotFound, line.ID)
		}
		return nil
	})
}

// DeleteLine removes a line and persists the derived totals in one transaction.
func (r *ProjectStatementRepository) DeleteLine(ctx context.Context, statementID, lineID uuid.UUID, derived ledger.Derived) error {
	return r.mutateLines(ctx, statementID, derived, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM statement_lines
WHERE statement_id = $1 AND id = $2`, statementID, lineID)
		if err != nil {
			return mapError(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return mapError(err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: line %s", ledger.ErrNotFound, lineID)
		}
		return nil
	})
}

// mutateLines runs a line change together with the derived totals write.
// The totals update is guarded on draft status, so a statement closed by a
// concurrent writer rejects the whole unit.
func (r *ProjectStatementRepository) mutateLines(ctx context.Context, statementID uuid.UUID, derived ledger.Derived, change func(tx *sql.Tx) error) error {
	if r == nil || r.db == nil {
		return errors.New("project statement repo: nil db")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err)
	}
	res, err := tx.ExecContext(ctx, `
UPDATE project_statements
SET total_income = $1, total_expense_paid = $2, total_expense_unpaid = $3, net_cash = $4,
	final_balance = $5, updated_at = $6
WHERE id = $7 AND status = 'draft'`,
		derived.Totals.TotalIncome, derived.Totals.TotalExpensePaid, derived.Totals.TotalExpenseUnpaid, derived.Totals.NetCash,
		derived.FinalBalance, derived.UpdatedAt, statementID)
	if err != nil {
		rollback(tx)
		return mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		rollback(tx)
		return mapError(err)
	}
	if affected == 0 {
		rollback(tx)
		return r.statusError(ctx, statementID)
	}
	if err := change(tx); err != nil {
		rollback(tx)
		return err
	}
	return mapError(tx.Commit())
}

// Close freezes a draft statement and writes its final balance into the
// owning project's running balance; both writes commit or neither does.
func (r *ProjectStatementRepository) Close(ctx context.Context, id uuid.UUID, action ledger.TransferAction, closedAt time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("project statement repo: nil db")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err)
	}
	var projectID uuid.UUID
	var finalBalance string
	var status string
	err = tx.QueryRowContext(ctx, `
SELECT project_id, final_balance, status
FROM project_statements
WHERE id = $1
FOR UPDATE`, id).Scan(&projectID, &finalBalance, &status)
	if errors.Is(err, sql.ErrNoRows) {
		rollback(tx)
		return fmt.Errorf("%w: statement %s", ledger.ErrNotFound, id)
	}
	if err != nil {
		rollback(tx)
		return mapError(err)
	}
	if status != ledger.StatementStatusDraft {
		rollback(tx)
		return fmt.Errorf("%w: statement %s is %s", ledger.ErrInvalidState, id, status)
	}
	res, err := tx.ExecContext(ctx, `
UPDATE project_statements
SET status = 'closed', transfer_action = $1, closed_at = $2, updated_at = $2
WHERE id = $3 AND status = 'draft'`, action, closedAt, id)
	if err != nil {
		rollback(tx)
		return mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		rollback(tx)
		return mapError(err)
	}
	if affected == 0 {
		rollback(tx)
		return fmt.Errorf("%w: statement %s", ledger.ErrConflict, id)
	}
	res, err = tx.ExecContext(ctx, `
UPDATE projects
SET running_balance = $1
WHERE id = $2`, finalBalance, projectID)
	if err != nil {
		rollback(tx)
		return mapError(err)
	}
	affected, err = res.RowsAffected()
	if err != nil {
		rollback(tx)
		return mapError(err)
	}
	if affected == 0 {
		rollback(tx)
		return fmt.Errorf("%w: project %s", ledger.ErrNotFound, projectID)
	}
	return mapError(tx.Commit())
}

// Reopen reverts a closed statement to draft and restores the project's
// running balance to the statement's opening balance.
func (r *ProjectStatementRepository) Reopen(ctx context.Context, id uuid.UUID, reopenedAt time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("project statement repo: nil db")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err)
	}
	var projectID uuid.UUID
	var previousBalance string
	var status string
	err = tx.QueryRowContext(ctx, `
SELECT project_id, previous_balance, status
FROM project_statements
WHERE id = $1
FOR UPDATE`, id).Scan(&projectID, &previousBalance, &status)
	if errors.Is(err, sql.ErrNoRows) {
		rollback(tx)
		return fmt.Errorf("%w: statement %s", ledger.ErrNotFound, id)
	}
	if err != nil {
		rollback(tx)
		return mapError(err)
	}
	if status != ledger.StatementStatusClosed {
		rollback(tx)
		return fmt.Errorf("%w: statement %s is %s", ledger.ErrInvalidState, id, status)
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE project_statements
SET status = 'draft', closed_at = NULL, updated_at = $1
WHERE id = $2 AND status = 'closed'`, reopenedAt, id); err != nil {
		rollback(tx)
		return mapError(err)
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE projects
SET running_balance = $1
WHERE id = $2`, previousBalance, projectID); err != nil {
		rollback(tx)
		return mapError(err)
	}
	return mapError(tx.Commit())
}

func (r *ProjectStatementRepository) statusError(ctx context.Context, id uuid.UUID) error {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM project_statements WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: statement %s", ledger.ErrNotFound, id)
	}
	if err != nil {
		return mapError(err)
	}
	return fmt.Errorf("%w: statement %s is %s", ledger.ErrInvalidState, id, status)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProjectStatement(row rowScanner) (*ledger.ProjectStatement, error) {
	var stmt ledger.ProjectStatement
	var closedAt sql.NullTime
	err := row.Scan(
		&stmt.ID, &stmt.ProjectID, &stmt.Title, &stmt.Date, &stmt.Status,
		&stmt.PreviousBalance, &stmt.Totals.TotalIncome, &stmt.Totals.TotalExpensePaid, &stmt.Totals.TotalExpenseUnpaid, &stmt.Totals.NetCash,
		&stmt.FinalBalance, &stmt.TransferAction, &stmt.CreatedAt, &stmt.UpdatedAt, &closedAt,
	)
	if err != nil {
		return nil, err
	}
	stmt.Date = stmt.Date.UTC()
	stmt.CreatedAt = stmt.CreatedAt.UTC()
	stmt.UpdatedAt = stmt.UpdatedAt.UTC()
	if closedAt.Valid {
		t := closedAt.Time.UTC()
		stmt.ClosedAt = &t
	}
	return &stmt, nil
}

func scanLine(row rowScanner) (*ledger.StatementLine, error) {
	var line ledger.StatementLine
	var paidAt sql.NullTime
	err := row.Scan(&line.ID, &line.StatementID, &line.Direction, &line.Category, &line.Amount, &line.IsPaid, &line.Description, &paidAt, &line.CreatedAt)
	if err != nil {
		return nil, err
	}
	line.CreatedAt = line.CreatedAt.UTC()
	if paidAt.Valid {
		t := paidAt.Time.UTC()
		line.PaidAt = &t
	}
	return &line, nil
}
