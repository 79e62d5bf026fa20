package postgres

import (
	"context"
	"database/sql"
	"errors"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS projects (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	location TEXT NOT NULL DEFAULT '',
	running_balance NUMERIC(14,2) NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS partners (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	share_percentage NUMERIC(5,2) NOT NULL DEFAULT 0,
	base_salary NUMERIC(14,2) NOT NULL DEFAULT 0,
	running_balance NUMERIC(14,2) NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS project_statements (
	id UUID PRIMARY KEY,
	project_id UUID NOT NULL REFERENCES projects(id),
	title TEXT NOT NULL,
	statement_date TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL,
	previous_balance NUMERIC(14,2) NOT NULL,
	total_income NUMERIC(14,2) NOT NULL DEFAULT 0,
	total_expense_paid NUMERIC(14,2) NOT NULL DEFAULT 0,
	total_expense_unpaid NUMERIC(14,2) NOT NULL DEFAULT 0,
	net_cash NUMERIC(14,2) NOT NULL DEFAULT 0,
	final_balance NUMERIC(14,2) NOT NULL,
	transfer_action TEXT NOT NULL DEFAULT 'none',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	closed_at TIMESTAMPTZ
)`,
	`CREATE INDEX IF NOT EXISTS idx_project_statements_project
	ON project_statements (project_id, statement_date DESC, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS statement_lines (
	id UUID PRIMARY KEY,
	statement_id UUID NOT NULL REFERENCES project_statements(id) ON DELETE CASCADE,
	direction TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
	is_paid BOOLEAN NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	paid_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_statement_lines_statement
	ON statement_lines (statement_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS partner_statements (
	id UUID PRIMARY KEY,
	partner_id UUID NOT NULL REFERENCES partners(id),
	month INT NOT NULL,
	year INT NOT NULL,
	status TEXT NOT NULL,
	previous_balance NUMERIC(14,2) NOT NULL,
	personal_expense_reimbursement NUMERIC(14,2) NOT NULL DEFAULT 0,
	monthly_salary NUMERIC(14,2) NOT NULL DEFAULT 0,
	profit_share NUMERIC(14,2) NOT NULL DEFAULT 0,
	actual_withdrawn NUMERIC(14,2) NOT NULL DEFAULT 0,
	next_month_balance NUMERIC(14,2) NOT NULL,
	note TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	closed_at TIMESTAMPTZ,
	CONSTRAINT partner_statements_period UNIQUE (partner_id, year, month)
)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
	id TEXT PRIMARY KEY,
	company_id TEXT NOT NULL DEFAULT '',
	actor TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL,
	resource_type TEXT NOT NULL DEFAULT '',
	resource_id TEXT NOT NULL DEFAULT '',
	metadata JSONB,
	payload_digest TEXT NOT NULL DEFAULT '',
	ip TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
)`,
}

// Migrate creates the ledger schema when it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("postgres: nil db")
	}
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
