package sqlite

import (
	"context"
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"

	ledger "propipe-books/internal/ledger/domain"
)

// mapError folds driver failures into the ledger error taxonomy. A busy or
// locked database means a competing writer held the lock, so the whole
// operation is safe to retry; everything else is a storage fault. Unique
// violations are handled at the call sites that know which constraint they
// expect.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked {
			return fmt.Errorf("%w: %v", ledger.ErrConflict, err)
		}
	}
	return fmt.Errorf("%w: %v", ledger.ErrStorageUnavailable, err)
}
