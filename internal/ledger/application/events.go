package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Publisher publishes domain events after a transition commits. A nil
// publisher disables eventing.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// Clock supplies timestamps so tests can pin time.
type Clock interface {
	Now() time.Time
}

// ProjectStatementClosed is published after a project statement close commits.
type ProjectStatementClosed struct {
	StatementID  uuid.UUID
	ProjectID    uuid.UUID
	FinalBalance decimal.Decimal
	ClosedAt     time.Time
}

// PartnerStatementClosed is published after a partner statement close commits.
type PartnerStatementClosed struct {
	StatementID      uuid.UUID
	PartnerID        uuid.UUID
	Month            int
	Year             int
	NextMonthBalance decimal.Decimal
	ClosedAt         time.Time
}

// PartnerStatementReopened is published after a partner statement reopen
// commits. RestoredBalance is the running balance written back to the partner.
type PartnerStatementReopened struct {
	StatementID     uuid.UUID
	PartnerID       uuid.UUID
	Month           int
	Year            int
	RestoredBalance decimal.Decimal
	ReopenedAt      time.Time
}
