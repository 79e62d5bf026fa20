package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	ledger "propipe-books/internal/ledger/domain"
)

// ProjectRepo implements the project registry over SQLite.
type ProjectRepo struct {
	db *sql.DB
}

// Create inserts a project.
func (r *ProjectRepo) Create(ctx context.Context, p ledger.Project) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, location, running_balance, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.Name, p.Location, p.RunningBalance.String(), p.IsActive, p.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: project %q", ledger.ErrConflict, p.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// Get retrieves a project by ID.
func (r *ProjectRepo) Get(ctx context.Context, id uuid.UUID) (*ledger.Project, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, location, running_balance, is_active, created_at FROM projects WHERE id = ?`,
		id.String())
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: project %s", ledger.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// List retrieves projects ordered by name, optionally only active ones.
func (r *ProjectRepo) List(ctx context.Context, activeOnly bool) ([]ledger.Project, error) {
	query := `SELECT id, name, location, running_balance, is_active, created_at FROM projects ORDER BY name ASC`
	if activeOnly {
		query = `SELECT id, name, location, running_balance, is_active, created_at FROM projects WHERE is_active = 1 ORDER BY name ASC`
	}
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
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

// SetActive flips a project's active flag.
func (r *ProjectRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE projects SET is_active = ? WHERE id = ?`, active, id.String())
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: project %s", ledger.ErrNotFound, id)
	}
	return nil
}

func scanProject(row rowScanner) (*ledger.Project, error) {
	var p ledger.Project
	var idStr, balance string
	if err := row.Scan(&idStr, &p.Name, &p.Location, &balance, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	p.ID = id
	p.RunningBalance, err = ledger.ParseMoney(balance)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

// PartnerRepo implements the partner registry over SQLite.
type PartnerRepo struct {
	db *sql.DB
}

// Create inserts a partner.
func (r *PartnerRepo) Create(ctx context.Context, p ledger.Partner) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO partners (id, name, share_percentage, base_salary, running_balance, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.Name, p.SharePercentage.String(), p.BaseSalary.String(), p.RunningBalance.String(), p.IsActive, p.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: partner %q", ledger.ErrConflict, p.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to create partner: %w", err)
	}
	return nil
}

// Get retrieves a partner by ID.
func (r *PartnerRepo) Get(ctx context.Context, id uuid.UUID) (*ledger.Partner, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, share_percentage, base_salary, running_balance, is_active, created_at FROM partners WHERE id = ?`,
		id.String())
	p, err := scanPartner(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: partner %s", ledger.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}
	return p, nil
}

// List retrieves partners ordered by name, optionally only active ones.
func (r *PartnerRepo) List(ctx context.Context, activeOnly bool) ([]ledger.Partner, error) {
	query := `SELECT id, name, share_percentage, base_salary, running_balance, is_active, created_at FROM partners ORDER BY name ASC`
	if activeOnly {
		query = `SELECT id, name, share_percentage, base_salary, running_balance, is_active, created_at FROM partners WHERE is_active = 1 ORDER BY name ASC`
	}
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list partners: %w", err)
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

// SetActive flips a partner's active flag.
func (r *PartnerRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE partners SET is_active = ? WHERE id = ?`, active, id.String())
	if err != nil {
		return fmt.Errorf("failed to update partner: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: partner %s", ledger.ErrNotFound, id)
	}
	return nil
}

func scanPartner(row rowScanner) (*ledger.Partner, error) {
	var p ledger.Partner
	var idStr, share, salary, balance string
	if err := row.Scan(&idStr, &p.Name, &share, &salary, &balance, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	p.ID = id
	if p.SharePercentage, err = ledger.ParseMoney(share); err != nil {
		return nil, err
	}
	if p.BaseSalary, err = ledger.ParseMoney(salary); err != nil {
		return nil, err
	}
	if p.RunningBalance, err = ledger.ParseMoney(balance); err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}
