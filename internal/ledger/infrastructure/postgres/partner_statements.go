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

const partnerStatementColumns = `id, partner_id, month, year, status,
	previous_balance, personal_expense_reimbursement, monthly_salary, profit_share, actual_withdrawn,
	next_month_balance, note, created_at, updated_at, closed_at`

// PartnerStatementRepository persists monthly partner compensation statements.
// The partner_statements_period unique constraint is the final arbiter of
// one-statement-per-month; Create surfaces a violation as ErrDuplicatePeriod.
type PartnerStatementRepository struct {
	db *sql.DB
}

// NewPartnerStatementRepository constructs a repository.
func NewPartnerStatementRepository(db *sql.DB) *PartnerStatementRepository {
	return &PartnerStatementRepository{db: db}
}

// Create inserts a draft statement.
func (r *PartnerStatementRepository) Create(ctx context.Context, stmt ledger.PartnerStatement) error {
	if r == nil || r.db == nil {
		return errors.New("partner statement repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO partner_statements (
	id, partner_id, month, year, status,
	previous_balance, personal_expense_reimbursement, monthly_salary, profit_share, actual_withdrawn,
	next_month_balance, note, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		stmt.ID, stmt.PartnerID, stmt.Month, stmt.Year, stmt.Status,
		stmt.PreviousBalance, stmt.PersonalExpenseReimbursement, stmt.MonthlySalary, stmt.ProfitShare, stmt.ActualWithdrawn,
		stmt.NextMonthBalance, stmt.Note, stmt.CreatedAt, stmt.UpdatedAt)
	return mapError(err)
}

// Get fetches one statement.
func (r *PartnerStatementRepository) Get(ctx context.Context, id uuid.UUID) (*ledger.PartnerStatement, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("partner statement repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+partnerStatementColumns+`
FROM partner_statements
WHERE id = $1`, id)
	stmt, err := scanPartnerStatement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: partner statement %s", ledger.ErrNotFound, id)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return stmt, nil
}

// GetByPeriod fetches the statement for a partner's month, if any.
func (r *PartnerStatementRepository) GetByPeriod(ctx context.Context, partnerID uuid.UUID, month, year int) (*ledger.PartnerStatement, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("partner statement repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+partnerStatementColumns+`
FROM partner_statements
WHERE partner_id = $1 AND year = $2 AND month = $3`, partnerID, year, month)
	stmt, err := scanPartnerStatement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: partner statement %d-%02d", ledger.ErrNotFound, year, month)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return stmt, nil
}

// ListByPartner lists a partner's statements, most recent period first.
func (r *PartnerStatementRepository) ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]ledger.PartnerStatement, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("partner statement repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+partnerStatementColumns+`
FROM partner_statements
WHERE partner_id = $1
ORDER BY year DESC, month DESC`, partnerID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []ledger.PartnerStatement
	for rows.Next() {
		stmt, err := scanPartnerStatement(rows)
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

// LatestByPartner returns the most recent statement by period, or nil.
func (r *PartnerStatementRepository) LatestByPartner(ctx context.Context, partnerID uuid.UUID) (*ledger.PartnerStatement, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("partner statement repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+partnerStatementColumns+`
FROM partner_statements
WHERE partner_id = $1
ORDER BY year DESC, month DESC
LIMIT 1`, partnerID)
	stmt, err := scanPartnerStatement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return stmt, nil
}

// Update rewrites a draft statement's mutable fields.
func (r *PartnerStatementRepository) Update(ctx context.Context, stmt ledger.PartnerStatement) error {
	if r == nil || r.db == nil {
		return errors.New("partner statement repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE partner_statements
SET previous_balance = $1, personal_expense_reimbursement = $2, monthly_salary = $3, profit_share = $4,
	actual_withdrawn = $5, next_month_balance = $6, note = $7, updated_at = $8
WHERE id = $9 AND status = 'draft'`,
		stmt.PreviousBalance, stmt.PersonalExpenseReimbursement, stmt.MonthlySalary, stmt.ProfitShare,
		stmt.ActualWithdrawn, stmt.NextMonthBalance, stmt.Note, stmt.UpdatedAt, stmt.ID)
	if err != nil {
		return mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return r.statusError(ctx, stmt.ID)
	}
	return nil
}

// Close freezes a draft statement and carries its next-month balance into the
// partner's running balance in one transaction.
func (r *PartnerStatementRepository) Close(ctx context.Context, id uuid.UUID, closedAt time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("partner statement repo: nil db")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err)
	}
	var partnerID uuid.UUID
	var nextBalance string
	var status string
	err = tx.QueryRowContext(ctx, `
SELECT partner_id, next_month_balance, status
FROM partner_statements
WHERE id = $1
FOR UPDATE`, id).Scan(&partnerID, &nextBalance, &status)
	if errors.Is(err, sql.ErrNoRows) {
		rollback(tx)
		return fmt.Errorf("%w: partner statement %s", ledger.ErrNotFound, id)
	}
	if err != nil {
		rollback(tx)
		return mapError(err)
	}
	if status != ledger.StatementStatusDraft {
		rollback(tx)
		return fmt.Errorf("%w: partner statement %s is %s", ledger.ErrInvalidState, id, status)
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE partner_statements
SET status = 'closed', closed_at = $1, updated_at = $1
WHERE id = $2 AND status = 'draft'`, closedAt, id); err != nil {
		rollback(tx)
		return mapError(err)
	}
	res, err := tx.ExecContext(ctx, `
UPDATE partners
SET running_balance = $1
WHERE id = $2`, nextBalance, partnerID)
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
		return fmt.Errorf("%w: partner %s", ledger.ErrNotFound, partnerID)
	}
	return mapError(tx.Commit())
}

// Reopen reverts a closed statement to draft and restores the partner's
// running balance to the statement's opening balance.
func (r *PartnerStatementRepository) Reopen(ctx context.Context, id uuid.UUID, reopenedAt time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("partner statement repo: nil db")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err)
	}
	var partnerID uuid.UUID
	var previousBalance string
	var status string
	err = tx.QueryRowContext(ctx, `
SELECT partner_id, previous_balance, status
FROM partner_statements
WHERE id = $1
FOR UPDATE`, id).Scan(&partnerID, &previousBalance, &status)
	if errors.Is(err, sql.ErrNoRows) {
		rollback(tx)
		return fmt.Errorf("%w: partner statement %s", ledger.ErrNotFound, id)
	}
	if err != nil {
		rollback(tx)
		return mapError(err)
	}
	if status != ledger.StatementStatusClosed {
		rollback(tx)
		return fmt.Errorf("%w: partner statement %s is %s", ledger.ErrInvalidState, id, status)
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE partner_statements
SET status = 'draft', closed_at = NULL, updated_at = $1
WHERE id = $2 AND status = 'closed'`, reopenedAt, id); err != nil {
		rollback(tx)
		return mapError(err)
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE partners
SET running_balance = $1
WHERE id = $2`, previousBalance, partnerID); err != nil {
		rollback(tx)
		return mapError(err)
	}
	return mapError(tx.Commit())
}

func (r *PartnerStatementRepository) statusError(ctx context.Context, id uuid.UUID) error {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM partner_statements WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: partner statement %s", ledger.ErrNotFound, id)
	}
	if err != nil {
		return mapError(err)
	}
	return fmt.Errorf("%w: partner statement %s is %s", ledger.ErrInvalidState, id, status)
}

func scanPartnerStatement(row rowScanner) (*ledger.PartnerStatement, error) {
	var stmt ledger.PartnerStatement
	var closedAt sql.NullTime
	err := row.Scan(
		&stmt.ID, &stmt.PartnerID, &stmt.Month, &stmt.Year, &stmt.Status,
		&stmt.PreviousBalance, &stmt.PersonalExpenseReimbursement, &stmt.MonthlySalary, &stmt.ProfitShare, &stmt.ActualWithdrawn,
		&stmt.NextMonthBalance, &stmt.Note, &stmt.CreatedAt, &stmt.UpdatedAt, &closedAt,
	)
	if err != nil {
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
