package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	ledger "propipe-books/internal/ledger/domain"
)

// ProjectStatementRepo implements the project statement repository over
// SQLite. Line writes and their derived totals share one transaction, and a
// close pairs the status flip with the project's running balance update.
type ProjectStatementRepo struct {
	db *sql.DB
}

// Create inserts a draft statement.
func (r *ProjectStatementRepo) Create(ctx context.Context, stmt ledger.ProjectStatement) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO project_statements (id, project_id, title, statement_date, status,
			previous_balance, total_income, total_expense_paid, total_expense_unpaid, net_cash,
			final_balance, transfer_action, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stmt.ID.String(), stmt.ProjectID.String(), stmt.Title, stmt.Date, stmt.Status,
		stmt.PreviousBalance.String(), stmt.Totals.TotalIncome.String(), stmt.Totals.TotalExpensePaid.String(),
		stmt.Totals.TotalExpenseUnpaid.String(), stmt.Totals.NetCash.String(),
		stmt.FinalBalance.String(), string(stmt.TransferAction), stmt.CreatedAt, stmt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create statement: %w", err)
	}
	return nil
}

// Get retrieves a statement by ID.
func (r *ProjectStatementRepo) Get(ctx context.Context, id uuid.UUID) (*ledger.ProjectStatement, error) {
	row := r.db.QueryRowContext(ctx, selectProjectStatement+` WHERE id = ?`, id.String())
	stmt, err := scanProjectStatement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: statement %s", ledger.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get statement: %w", err)
	}
	return stmt, nil
}

// ListByProject lists a project's statements, most recent date first.
func (r *ProjectStatementRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]ledger.ProjectStatement, error) {
	rows, err := r.db.QueryContext(ctx,
		selectProjectStatement+` WHERE project_id = ? ORDER BY statement_date DESC, created_at DESC`,
		projectID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list statements: %w", err)
	}
	defer rows.Close()
	return scanProjectStatements(rows)
}

// LatestByProject returns the most recent statement by date, or nil.
func (r *ProjectStatementRepo) LatestByProject(ctx context.Context, projectID uuid.UUID) (*ledger.ProjectStatement, error) {
	row := r.db.QueryRowContext(ctx,
		selectProjectStatement+` WHERE project_id = ? ORDER BY statement_date DESC, created_at DESC LIMIT 1`,
		projectID.String())
	stmt, err := scanProjectStatement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest statement: %w", err)
	}
	return stmt, nil
}

// ListLines returns a statement's lines in creation order.
func (r *ProjectStatementRepo) ListLines(ctx context.Context, statementID uuid.UUID) ([]ledger.StatementLine, error) {
	rows, err := r.db.QueryContext(ctx,
		selectLine+` WHERE statement_id = ? ORDER BY created_at ASC, id ASC`, statementID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list lines: %w", err)
	}
	defer rows.Close()

	var result []ledger.StatementLine
	for rows.Next() {
		line, err := scanStatementLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan line row: %w", err)
		}
		result = append(result, *line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return result, nil
}

// GetLine retrieves one line of a statement.
func (r *ProjectStatementRepo) GetLine(ctx context.Context, statementID, lineID uuid.UUID) (*ledger.StatementLine, error) {
	row := r.db.QueryRowContext(ctx,
		selectLine+` WHERE statement_id = ? AND id = ?`, statementID.String(), lineID.String())
	line, err := scanStatementLine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: line %s", ledger.ErrNotFound, lineID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get line: %w", err)
	}
	return line, nil
}

// InsertLine adds a line together with the derived totals.
func (r *ProjectStatementRepo) InsertLine(ctx context.Context, line ledger.StatementLine, derived ledger.Derived) error {
	return r.mutateLines(ctx, line.StatementID, derived, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO statement_lines (id, statement_id, direction, category, amount, is_paid, description, paid_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			line.ID.String(), line.StatementID.String(), string(line.Direction), line.Category,
			line.Amount.String(), line.IsPaid, line.Description, line.PaidAt, line.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert line: %w", err)
		}
		return nil
	})
}

// UpdateLine replaces a line together with the derived totals.
func (r *ProjectStatementRepo) UpdateLine(ctx context.Context, line ledger.StatementLine, derived ledger.Derived) error {
	return r.mutateLines(ctx, line.StatementID, derived, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE statement_lines SET direction = ?, category = ?, amount = ?, is_paid = ?, description = ?, paid_at = ?
			WHERE statement_id = ? AND id = ?`,
			string(line.Direction), line.Category, line.Amount.String(), line.IsPaid, line.Description, line.PaidAt,
			line.StatementID.String(), line.ID.String())
		if err != nil {
			return fmt.Errorf("failed to update line: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: line %s", ledger.ErrNotFound, line.ID)
		}
		return nil
	})
}

// DeleteLine removes a line together with the derived totals.
func (r *ProjectStatementRepo) DeleteLine(ctx context.Context, statementID, lineID uuid.UUID, derived ledger.Derived) error {
	return r.mutateLines(ctx, statementID, derived, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM statement_lines WHERE statement_id = ? AND id = ?`,
			statementID.String(), lineID.String())
		if err != nil {
			return fmt.Errorf("failed to delete line: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: line %s", ledger.ErrNotFound, lineID)
		}
		return nil
	})
}

func (r *ProjectStatementRepo) mutateLines(ctx context.Context, statementID uuid.UUID, derived ledger.Derived, change func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE project_statements
		SET total_income = ?, total_expense_paid = ?, total_expense_unpaid = ?, net_cash = ?, final_balance = ?, updated_at = ?
		WHERE id = ? AND status = 'draft'`,
		derived.Totals.TotalIncome.String(), derived.Totals.TotalExpensePaid.String(),
		derived.Totals.TotalExpenseUnpaid.String(), derived.Totals.NetCash.String(),
		derived.FinalBalance.String(), derived.UpdatedAt, statementID.String())
	if err != nil {
		rollback(tx)
		return fmt.Errorf("failed to update totals: %w", mapError(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		rollback(tx)
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		rollback(tx)
		return r.statusError(ctx, statementID)
	}
	if err := change(tx); err != nil {
		rollback(tx)
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit line change: %w", mapError(err))
	}
	return nil
}

// Close freezes a draft statement and writes its final balance into the
// project's running balance atomically.
func (r *ProjectStatementRepo) Close(ctx context.Context, id uuid.UUID, action ledger.TransferAction, closedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	var projectIDStr, finalBalance, status string
	err = tx.QueryRowContext(ctx,
		`SELECT project_id, final_balance, status FROM project_statements WHERE id = ?`,
		id.String()).Scan(&projectIDStr, &finalBalance, &status)
	if errors.Is(err, sql.ErrNoRows) {
		rollback(tx)
		return fmt.Errorf("%w: statement %s", ledger.ErrNotFound, id)
	}
	if err != nil {
		rollback(tx)
		return fmt.Errorf("failed to load statement: %w", err)
	}
	if status != ledger.StatementStatusDraft {
		rollback(tx)
		return fmt.Errorf("%w: statement %s is %s", ledger.ErrInvalidState, id, status)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE project_statements SET status = 'closed', transfer_action = ?, closed_at = ?, updated_at = ?
		WHERE id = ? AND status = 'draft'`,
		string(action), closedAt, closedAt, id.String())
	if err != nil {
		rollback(tx)
		return fmt.Errorf("failed to close statement: %w", mapError(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		rollback(tx)
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		// A competing close won between our status read and this write.
		rollback(tx)
		return fmt.Errorf("%w: statement %s already closed", ledger.ErrConflict, id)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE projects SET running_balance = ? WHERE id = ?`, finalBalance, projectIDStr); err != nil {
		rollback(tx)
		return fmt.Errorf("failed to update project balance: %w", mapError(err))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit close: %w", mapError(err))
	}
	return nil
}

// Reopen reverts a closed statement to draft and restores the project's
// running balance to the statement's opening balance.
func (r *ProjectStatementRepo) Reopen(ctx context.Context, id uuid.UUID, reopenedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	var projectIDStr, previousBalance, status string
	err = tx.QueryRowContext(ctx,
		`SELECT project_id, previous_balance, status FROM project_statements WHERE id = ?`,
		id.String()).Scan(&projectIDStr, &previousBalance, &status)
	if errors.Is(err, sql.ErrNoRows) {
		rollback(tx)
		return fmt.Errorf("%w: statement %s", ledger.ErrNotFound, id)
	}
	if err != nil {
		rollback(tx)
		return fmt.Errorf("failed to load statement: %w", err)
	}
	if status != ledger.StatementStatusClosed {
		rollback(tx)
		return fmt.Errorf("%w: statement %s is %s", ledger.ErrInvalidState, id, status)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE project_statements SET status = 'draft', closed_at = NULL, updated_at = ? WHERE id = ? AND status = 'closed'`,
		reopenedAt, id.String())
	if err != nil {
		rollback(tx)
		return fmt.Errorf("failed to reopen statement: %w", mapError(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		rollback(tx)
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		rollback(tx)
		return fmt.Errorf("%w: statement %s already reopened", ledger.ErrConflict, id)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE projects SET running_balance = ? WHERE id = ?`, previousBalance, projectIDStr); err != nil {
		rollback(tx)
		return fmt.Errorf("failed to update project balance: %w", mapError(err))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reopen: %w", mapError(err))
	}
	return nil
}

func (r *ProjectStatementRepo) statusError(ctx context.Context, id uuid.UUID) error {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM project_statements WHERE id = ?`, id.String()).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: statement %s", ledger.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to load statement: %w", err)
	}
	return fmt.Errorf("%w: statement %s is %s", ledger.ErrInvalidState, id, status)
}

const selectProjectStatement = `SELECT id, project_id, title, statement_date, status,
	previous_balance, total_income, total_expense_paid, total_expense_unpaid, net_cash,
	final_balance, transfer_action, created_at, updated_at, closed_at
FROM project_statements`

const selectLine = `SELECT id, statement_id, direction, category, amount, is_paid, description, paid_at, created_at
FROM statement_lines`

func scanProjectStatement(row rowScanner) (*ledger.ProjectStatement, error) {
	var stmt ledger.ProjectStatement
	var idStr, projectIDStr string
	var prev, income, paid, unpaid, net, final, action string
	var closedAt sql.NullTime
	err := row.Scan(&idStr, &projectIDStr, &stmt.Title, &stmt.Date, &stmt.Status,
		&prev, &income, &paid, &unpaid, &net, &final, &action,
		&stmt.CreatedAt, &stmt.UpdatedAt, &closedAt)
	if err != nil {
		return nil, err
	}
	if stmt.ID, err = uuid.Parse(idStr); err != nil {
		return nil, err
	}
	if stmt.ProjectID, err = uuid.Parse(projectIDStr); err != nil {
		return nil, err
	}
	if stmt.PreviousBalance, err = ledger.ParseMoney(prev); err != nil {
		return nil, err
	}
	if stmt.Totals.TotalIncome, err = ledger.ParseMoney(income); err != nil {
		return nil, err
	}
	if stmt.Totals.TotalExpensePaid, err = ledger.ParseMoney(paid); err != nil {
		return nil, err
	}
	if stmt.Totals.TotalExpenseUnpaid, err = ledger.ParseMoney(unpaid); err != nil {
		return nil, err
	}
	if stmt.Totals.NetCash, err = ledger.ParseMoney(net); err != nil {
		return nil, err
	}
	if stmt.FinalBalance, err = ledger.ParseMoney(final); err != nil {
		return nil, err
	}
	stmt.TransferAction = ledger.TransferAction(action)
	stmt.Date = stmt.Date.UTC()
	stmt.CreatedAt = stmt.CreatedAt.UTC()
	stmt.UpdatedAt = stmt.UpdatedAt.UTC()
	if closedAt.Valid {
		t := closedAt.Time.UTC()
		stmt.ClosedAt = &t
	}
	return &stmt, nil
}

func scanProjectStatements(rows *sql.Rows) ([]ledger.ProjectStatement, error) {
	var result []ledger.ProjectStatement
	for rows.Next() {
		stmt, err := scanProjectStatement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan statement row: %w", err)
		}
		result = append(result, *stmt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return result, nil
}

func scanStatementLine(row rowScanner) (*ledger.StatementLine, error) {
	var line ledger.StatementLine
	var idStr, stmtIDStr, direction, amount string
	var paidAt sql.NullTime
	err := row.Scan(&idStr, &stmtIDStr, &direction, &line.Category, &amount, &line.IsPaid, &line.Description, &paidAt, &line.CreatedAt)
	if err != nil {
		return nil, err
	}
	if line.ID, err = uuid.Parse(idStr); err != nil {
		return nil, err
	}
	if line.StatementID, err = uuid.Parse(stmtIDStr); err != nil {
		return nil, err
	}
	line.Direction = ledger.Direction(direction)
	if line.Amount, err = ledger.ParseMoney(amount); err != nil {
		return nil, err
	}
	line.CreatedAt = line.CreatedAt.UTC()
	if paidAt.Valid {
		t := paidAt.Time.UTC()
		line.PaidAt = &t
	}
	return &line, nil
}
