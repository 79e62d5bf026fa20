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

// PartnerStatementRepo implements the partner statement repository over
// SQLite. The UNIQUE(partner_id, year, month) constraint enforces one
// statement per partner per month.
type PartnerStatementRepo struct {
	db *sql.DB
}

// Create inserts a draft statement.
func (r *PartnerStatementRepo) Create(ctx context.Context, stmt ledger.PartnerStatement) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO partner_statements (id, partner_id, month, year, status,
			previous_balance, personal_expense_reimbursement, monthly_salary, profit_share, actual_withdrawn,
			next_month_balance, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stmt.ID.String(), stmt.PartnerID.String(), stmt.Month, stmt.Year, stmt.Status,
		stmt.PreviousBalance.String(), stmt.PersonalExpenseReimbursement.String(), stmt.MonthlySalary.String(),
		stmt.ProfitShare.String(), stmt.ActualWithdrawn.String(),
		stmt.NextMonthBalance.String(), stmt.Note, stmt.CreatedAt, stmt.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %d-%02d", ledger.ErrDuplicatePeriod, stmt.Year, stmt.Month)
	}
	if err != nil {
		return fmt.Errorf("failed to create partner statement: %w", err)
	}
	return nil
}

// Get retrieves a statement by ID.
func (r *PartnerStatementRepo) Get(ctx context.Context, id uuid.UUID) (*ledger.PartnerStatement, error) {
	row := r.db.QueryRowContext(ctx, selectPartnerStatement+` WHERE id = ?`, id.String())
	stmt, err := scanPartnerStatement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: partner statement %s", ledger.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get partner statement: %w", err)
	}
	return stmt, nil
}

// GetByPeriod retrieves the statement for a partner's month, if any.
func (r *PartnerStatementRepo) GetByPeriod(ctx context.Context, partnerID uuid.UUID, month, year int) (*ledger.PartnerStatement, error) {
	row := r.db.QueryRowContext(ctx,
		selectPartnerStatement+` WHERE partner_id = ? AND year = ? AND month = ?`,
		partnerID.String(), year, month)
	stmt, err := scanPartnerStatement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: partner statement %d-%02d", ledger.ErrNotFound, year, month)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get partner statement: %w", err)
	}
	return stmt, nil
}

// ListByPartner lists a partner's statements, most recent period first.
func (r *PartnerStatementRepo) ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]ledger.PartnerStatement, error) {
	rows, err := r.db.QueryContext(ctx,
		selectPartnerStatement+` WHERE partner_id = ? ORDER BY year DESC, month DESC`,
		partnerID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list partner statements: %w", err)
	}
	defer rows.Close()

	var result []ledger.PartnerStatement
	for rows.Next() {
		stmt, err := scanPartnerStatement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan partner statement row: %w", err)
		}
		result = append(result, *stmt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return result, nil
}

// LatestByPartner returns the most recent statement by period, or nil.
func (r *PartnerStatementRepo) LatestByPartner(ctx context.Context, partnerID uuid.UUID) (*ledger.PartnerStatement, error) {
	row := r.db.QueryRowContext(ctx,
		selectPartnerStatement+` WHERE partner_id = ? ORDER BY year DESC, month DESC LIMIT 1`,
		partnerID.String())
	stmt, err := scanPartnerStatement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest partner statement: %w", err)
	}
	return stmt, nil
}

// Update rewrites a draft statement's mutable fields.
func (r *PartnerStatementRepo) Update(ctx context.Context, stmt ledger.PartnerStatement) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE partner_statements
		SET previous_balance = ?, personal_expense_reimbursement = ?, monthly_salary = ?, profit_share = ?,
			actual_withdrawn = ?, next_month_balance = ?, note = ?, updated_at = ?
		WHERE id = ? AND status = 'draft'`,
		stmt.PreviousBalance.String(), stmt.PersonalExpenseReimbursement.String(), stmt.MonthlySalary.String(),
		stmt.ProfitShare.String(), stmt.ActualWithdrawn.String(), stmt.NextMonthBalance.String(),
		stmt.Note, stmt.UpdatedAt, stmt.ID.String())
	if err != nil {
		return fmt.Errorf("failed to update partner statement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return r.statusError(ctx, stmt.ID)
	}
	return nil
}

// Close freezes a draft statement and carries its next-month balance into the
// partner's running balance atomically.
func (r *PartnerStatementRepo) Close(ctx context.Context, id uuid.UUID, closedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	var partnerIDStr, nextBalance, status string
	err = tx.QueryRowContext(ctx,
		`SELECT partner_id, next_month_balance, status FROM partner_statements WHERE id = ?`,
		id.String()).Scan(&partnerIDStr, &nextBalance, &status)
	if errors.Is(err, sql.ErrNoRows) {
		rollback(tx)
		return fmt.Errorf("%w: partner statement %s", ledger.ErrNotFound, id)
	}
	if err != nil {
		rollback(tx)
		return fmt.Errorf("failed to load partner statement: %w", err)
	}
	if status != ledger.StatementStatusDraft {
		rollback(tx)
		return fmt.Errorf("%w: partner statement %s is %s", ledger.ErrInvalidState, id, status)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE partner_statements SET status = 'closed', closed_at = ?, updated_at = ? WHERE id = ? AND status = 'draft'`,
		closedAt, closedAt, id.String())
	if err != nil {
		rollback(tx)
		return fmt.Errorf("failed to close partner statement: %w", mapError(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		rollback(tx)
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		// A competing close won between our status read and this write.
		rollback(tx)
		return fmt.Errorf("%w: partner statement %s already closed", ledger.ErrConflict, id)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE partners SET running_balance = ? WHERE id = ?`, nextBalance, partnerIDStr); err != nil {
		rollback(tx)
		return fmt.Errorf("failed to update partner balance: %w", mapError(err))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit close: %w", mapError(err))
	}
	return nil
}

// Reopen reverts a closed statement to draft and restores the partner's
// running balance to the statement's opening balance.
func (r *PartnerStatementRepo) Reopen(ctx context.Context, id uuid.UUID, reopenedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	var partnerIDStr, previousBalance, status string
	err = tx.QueryRowContext(ctx,
		`SELECT partner_id, previous_balance, status FROM partner_statements WHERE id = ?`,
		id.String()).Scan(&partnerIDStr, &previousBalance, &status)
	if errors.Is(err, sql.ErrNoRows) {
		rollback(tx)
		return fmt.Errorf("%w: partner statement %s", ledger.ErrNotFound, id)
	}
	if err != nil {
		rollback(tx)
		return fmt.Errorf("failed to load partner statement: %w", err)
	}
	if status != ledger.StatementStatusClosed {
		rollback(tx)
		return fmt.Errorf("%w: partner statement %s is %s", ledger.ErrInvalidState, id, status)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE partner_statements SET status = 'draft', closed_at = NULL, updated_at = ? WHERE id = ? AND status = 'closed'`,
		reopenedAt, id.String())
	if err != nil {
		rollback(tx)
		return fmt.Errorf("failed to reopen partner statement: %w", mapError(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		rollback(tx)
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		rollback(tx)
		return fmt.Errorf("%w: partner statement %s already reopened", ledger.ErrConflict, id)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE partners SET running_balance = ? WHERE id = ?`, previousBalance, partnerIDStr); err != nil {
		rollback(tx)
		return fmt.Errorf("failed to update partner balance: %w", mapError(err))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reopen: %w", mapError(err))
	}
	return nil
}

func (r *PartnerStatementRepo) statusError(ctx context.Context, id uuid.UUID) error {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM partner_statements WHERE id = ?`, id.String()).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: partner statement %s", ledger.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to load partner statement: %w", err)
	}
	return fmt.Errorf("%w: partner statement %s is %s", ledger.ErrInvalidState, id, status)
}

const selectPartnerStatement = `SELECT id, partner_id, month, year, status,
	previous_balance, personal_expense_reimbursement, monthly_salary, profit_share, actual_withdrawn,
	next_month_balance, note, created_at, updated_at, closed_at
FROM partner_statements`

func scanPartnerStatement(row rowScanner) (*ledger.PartnerStatement, error) {
	var stmt ledger.PartnerStatement
	var idStr, partnerIDStr string
	var prev, reimb, salary, profit, withdrawn, next string
	var closedAt sql.NullTime
	err := row.Scan(&idStr, &partnerIDStr, &stmt.Month, &stmt.Year, &stmt.Status,
		&prev, &reimb, &salary, &profit, &withdrawn, &next,
		&stmt.Note, &stmt.CreatedAt, &stmt.UpdatedAt, &closedAt)
	if err != nil {
		return nil, err
	}
	if stmt.ID, err = uuid.Parse(idStr); err != nil {
		return nil, err
	}
	if stmt.PartnerID, err = uuid.Parse(partnerIDStr); err != nil {
		return nil, err
	}
	if stmt.PreviousBalance, err = ledger.ParseMoney(prev); err != nil {
		return nil, err
	}
	if stmt.PersonalExpenseReimbursement, err = ledger.ParseMoney(reimb); err != nil {
		return nil, err
	}
	if stmt.MonthlySalary, err = ledger.ParseMoney(salary); err != nil {
		return nil, err
	}
	if stmt.ProfitShare, err = ledger.ParseMoney(profit); err != nil {
		return nil, err
	}
	if stmt.ActualWithdrawn, err = ledger.ParseMoney(withdrawn); err != nil {
		return nil, err
	}
	if stmt.NextMonthBalance, err = ledger.ParseMoney(next); err != nil {
		return nil, err
	}
	stmt.CreatedAt = stmt.CreatedAt.UTC()
	stmt.UpdatedAt = stmt.UpdatedAt.UTC()
	if closedAt.Valid {
		t := closedAt.Time.UTC()
		stmt.ClosedAt = &t
	}
	return &stmt, nil
}
