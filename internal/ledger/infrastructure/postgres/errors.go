package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	ledger "propipe-books/internal/ledger/domain"
)

// mapError folds driver failures into the ledger error taxonomy. Unique
// violations become duplicate-period errors, serialization failures become
// retryable conflicts, everything else is a storage fault.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			if pgErr.ConstraintName == "partner_statements_period" {
				return fmt.Errorf("%w: %s", ledger.ErrDuplicatePeriod, pgErr.Detail)
			}
			return fmt.Errorf("%w: %s", ledger.ErrConflict, pgErr.ConstraintName)
		case "40001", "40P01":
			return fmt.Errorf("%w: %v", ledger.ErrConflict, err)
		}
	}
	return fmt.Errorf("%w: %v", ledger.ErrStorageUnavailable, err)
}

func rollback(tx *sql.Tx) {
	_ = tx.Rollback()
}
