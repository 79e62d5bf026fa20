// Package sqlite is a single-file alternative to the postgres store, for
// single-operator installs where running a database server is overkill.
// Decimal fields are stored as TEXT so no precision is lost.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Store owns the SQLite connection and hands out repository views.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database file and initializes the schema.
func Open(dataSourceName string) (*Store, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		location TEXT NOT NULL DEFAULT '',
		running_balance TEXT NOT NULL DEFAULT '0',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS partners (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		share_percentage TEXT NOT NULL DEFAULT '0',
		base_salary TEXT NOT NULL DEFAULT '0',
		running_balance TEXT NOT NULL DEFAULT '0',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS project_statements (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		title TEXT NOT NULL,
		statement_date DATETIME NOT NULL,
		status TEXT NOT NULL,
		previous_balance TEXT NOT NULL DEFAULT '0',
		total_income TEXT NOT NULL DEFAULT '0',
		total_expense_paid TEXT NOT NULL DEFAULT '0',
		total_expense_unpaid TEXT NOT NULL DEFAULT '0',
		net_cash TEXT NOT NULL DEFAULT '0',
		final_balance TEXT NOT NULL DEFAULT '0',
		transfer_action TEXT NOT NULL DEFAULT 'none',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		closed_at DATETIME,
		FOREIGN KEY(project_id) REFERENCES projects(id)
	);
	CREATE TABLE IF NOT EXISTS statement_lines (
		id TEXT PRIMARY KEY,
		statement_id TEXT NOT NULL,
		direction TEXT NOT NULL,
		category TEXT NOT NULL,
		amount TEXT NOT NULL,
		is_paid INTEGER NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		paid_at DATETIME,
		created_at DATETIME NOT NULL,
		FOREIGN KEY(statement_id) REFERENCES project_statements(id) ON DELETE CASCADE
	);
	CREATE TABLE IF NOT EXISTS partner_statements (
		id TEXT PRIMARY KEY,
		partner_id TEXT NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		status TEXT NOT NULL,
		previous_balance TEXT NOT NULL DEFAULT '0',
		personal_expense_reimbursement TEXT NOT NULL DEFAULT '0',
		monthly_salary TEXT NOT NULL DEFAULT '0',
		profit_share TEXT NOT NULL DEFAULT '0',
		actual_withdrawn TEXT NOT NULL DEFAULT '0',
		next_month_balance TEXT NOT NULL DEFAULT '0',
		note TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		closed_at DATETIME,
		FOREIGN KEY(partner_id) REFERENCES partners(id),
		UNIQUE(partner_id, year, month)
	);
	CREATE INDEX IF NOT EXISTS idx_project_statements_project ON project_statements(project_id, statement_date);
	CREATE INDEX IF NOT EXISTS idx_statement_lines_statement ON statement_lines(statement_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// DB exposes the underlying connection for shared concerns such as metrics.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Projects returns the project repository view.
func (s *Store) Projects() *ProjectRepo { return &ProjectRepo{db: s.db} }

// Partners returns the partner repository view.
func (s *Store) Partners() *PartnerRepo { return &PartnerRepo{db: s.db} }

// ProjectStatements returns the project statement repository view.
func (s *Store) ProjectStatements() *ProjectStatementRepo { return &ProjectStatementRepo{db: s.db} }

// PartnerStatements returns the partner statement repository view.
func (s *Store) PartnerStatements() *PartnerStatementRepo { return &PartnerStatementRepo{db: s.db} }

// Dashboard returns the dashboard reader view.
func (s *Store) Dashboard() *DashboardRepo { return &DashboardRepo{db: s.db} }

// isUniqueViolation reports whether err is a sqlite UNIQUE constraint error.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func rollback(tx *sql.Tx) {
	_ = tx.Rollback()
}
