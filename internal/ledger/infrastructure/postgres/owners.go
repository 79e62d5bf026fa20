package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	ledger "propipe-books/internal/ledger/domain"
)

// ProjectRepository persists project records.
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository constructs a repository.
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a project.
func (r *ProjectRepository) Create(ctx context.Context, project ledger.Project) error {
	if r == nil || r.db == nil {
		return errors.New("project repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO projects (id, name, location, running_balance, is_active, created_at)
VALUES ($1,$2,$3,$4,$5,$6)`,
		project.ID, project.Name, project.Location, project.RunningBalance, project.IsActive, project.CreatedAt)
	return mapError(err)
}

// Get fetches a project.
func (r *ProjectRepository) Get(ctx context.Context, id uuid.UUID) (*ledger.Project, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("project repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, location, running_balance, is_active, created_at
FROM projects
WHERE id = $1`, id)
	var project ledger.Project
	err := row.Scan(&project.ID, &project.Name, &project.Location, &project.RunningBalance, &project.IsActive, &project.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: project %s", ledger.ErrNotFound, id)
	}
	if err != nil {
		return nil, mapError(err)
	}
	project.CreatedAt = project.CreatedAt.UTC()
	return &project, nil
}

// List returns projects sorted by name.
func (r *ProjectRepository) List(ctx context.Context, activeOnly bool) ([]ledger.Project, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("project repo: nil db")
	}
	query := `
SELECT id, name, location, running_balance, is_active, created_at
FROM projects`
	if activeOnly {
		query += `
WHERE is_active`
	}
	query += `
ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []ledger.Project
	for rows.Next() {
		var project ledger.Project
		if err := rows.Scan(&project.ID, &project.Name, &project.Location, &project.RunningBalance, &project.IsActive, &project.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		project.CreatedAt = project.CreatedAt.UTC()
		result = append(result, project)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// SetActive flips a project's active flag.
func (r *ProjectRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if r == nil || r.db == nil {
		return errors.New("project repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, `UPDATE projects SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: project %s", ledger.ErrNotFound, id)
	}
	return nil
}

// PartnerRepository persists partner records.
type PartnerRepository struct {
	db *sql.DB
}

// NewPartnerRepository constructs a repository.
func NewPartnerRepository(db *sql.DB) *PartnerRepository {
	return &PartnerRepository{db: db}
}

// Create inserts a partner.
func (r *PartnerRepository) Create(ctx context.Context, partner ledger.Partner) error {
	if r == nil || r.db == nil {
		return errors.New("partner repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO partners (id, name, share_percentage, base_salary, running_balance, is_active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		partner.ID, partner.Name, partner.SharePercentage, partner.BaseSalary, partner.RunningBalance, partner.IsActive, partner.CreatedAt)
	return mapError(err)
}

// Get fetches a partner.
func (r *PartnerRepository) Get(ctx context.Context, id uuid.UUID) (*ledger.Partner, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("partner repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, share_percentage, base_salary, running_balance, is_active, created_at
FROM partners
WHERE id = $1`, id)
	var partner ledger.Partner
	err := row.Scan(&partner.ID, &partner.Name, &partner.SharePercentage, &partner.BaseSalary, &partner.RunningBalance, &partner.IsActive, &partner.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: partner %s", ledger.ErrNotFound, id)
	}
	if err != nil {
		return nil, mapError(err)
	}
	partner.CreatedAt = partner.CreatedAt.UTC()
	return &partner, nil
}

// List returns partners sorted by name.
func (r *PartnerRepository) List(ctx context.Context, activeOnly bool) ([]ledger.Partner, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("partner repo: nil db")
	}
	query := `
SELECT id, name, share_percentage, base_salary, running_balance, is_active, created_at
FROM partners`
	if activeOnly {
		query += `
WHERE is_active`
	}
	query += `
ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []ledger.Partner
	for rows.Next() {
		var partner ledger.Partner
		if err := rows.Scan(&partner.ID, &partner.Name, &partner.SharePercentage, &partner.BaseSalary, &partner.RunningBalance, &partner.IsActive, &partner.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		partner.CreatedAt = partner.CreatedAt.UTC()
		result = append(result, partner)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// SetActive flips a partner's active flag.
func (r *PartnerRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if r == nil || r.db == nil {
		return errors.New("partner repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, `UPDATE partners SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: partner %s", ledger.ErrNotFound, id)
	}
	return nil
}
