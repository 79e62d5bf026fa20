package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	sqlite3 "github.com/mattn/go-sqlite3"

	ledger "propipe-books/internal/ledger/domain"
)

func TestMapError(t *testing.T) {
	if mapError(nil) != nil {
		t.Fatal("nil should stay nil")
	}

	busy := sqlite3.Error{Code: sqlite3.ErrBusy}
	if err := mapError(busy); !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("busy: want ErrConflict, got %v", err)
	}
	locked := fmt.Errorf("exec: %w", sqlite3.Error{Code: sqlite3.ErrLocked})
	if err := mapError(locked); !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("wrapped locked: want ErrConflict, got %v", err)
	}

	if err := mapError(errors.New("disk I/O error")); !errors.Is(err, ledger.ErrStorageUnavailable) {
		t.Fatalf("generic failure: want ErrStorageUnavailable, got %v", err)
	}

	if err := mapError(context.Canceled); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancellation should pass through, got %v", err)
	}
	if errors.Is(mapError(context.Canceled), ledger.ErrStorageUnavailable) {
		t.Fatal("cancellation must not be reported as a storage fault")
	}
}
