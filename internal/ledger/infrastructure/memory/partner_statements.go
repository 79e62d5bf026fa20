package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	ledger "propipe-books/internal/ledger/domain"
)

type partnerStatementRepo struct{ s *Store }

func (r partnerStatementRepo) Create(ctx context.Context, stmt ledger.PartnerStatement) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.partnerStatements {
		if existing.PartnerID == stmt.PartnerID && existing.Month == stmt.Month && existing.Year == stmt.Year {
			return fmt.Errorf("%w: %04d-%02d", ledger.ErrDuplicatePeriod, stmt.Year, stmt.Month)
		}
	}
	r.s.partnerStatements[stmt.ID] = stmt
	return nil
}

func (r partnerStatementRepo) Get(ctx context.Context, id uuid.UUID) (*ledger.PartnerStatement, error) {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stmt, ok := r.s.partnerStatements[id]
	if !ok {
		return nil, fmt.Errorf("%w: statement %s", ledger.ErrNotFound, id)
	}
	return &stmt, nil
}

func (r partnerStatementRepo) GetByPeriod(ctx context.Context, partnerID uuid.UUID, month, year int) (*ledger.PartnerStatement, error) {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, stmt := range r.s.partnerStatements {
		if stmt.PartnerID == partnerID && stmt.Month == month && stmt.Year == year {
			return &stmt, nil
		}
	}
	return nil, fmt.Errorf("%w: statement for %04d-%02d", ledger.ErrNotFound, year, month)
}

func (r partnerStatementRepo) ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]ledger.PartnerStatement, error) {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.listByPartnerLocked(partnerID), nil
}

func (r partnerStatementRepo) LatestByPartner(ctx context.Context, partnerID uuid.UUID) (*ledger.PartnerStatement, error) {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := r.listByPartnerLocked(partnerID)
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (r partnerStatementRepo) listByPartnerLocked(partnerID uuid.UUID) []ledger.PartnerStatement {
	var result []ledger.PartnerStatement
	for _, stmt := range r.s.partnerStatements {
		if stmt.PartnerID == partnerID {
			result = append(result, stmt)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Year != result[j].Year {
			return result[i].Year > result[j].Year
		}
		return result[i].Month > result[j].Month
	})
	return result
}

func (r partnerStatementRepo) Update(ctx context.Context, stmt ledger.PartnerStatement) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.partnerStatements[stmt.ID]
	if !ok {
		return fmt.Errorf("%w: statement %s", ledger.ErrNotFound, stmt.ID)
	}
	if current.Status != ledger.StatementStatusDraft {
		return fmt.Errorf("%w: statement %s is %s", ledger.ErrInvalidState, stmt.ID, current.Status)
	}
	r.s.partnerStatements[stmt.ID] = stmt
	return nil
}

// Close freezes a statement and writes its carried balance into the
// partner's running balance, both under the same lock.
func (r partnerStatementRepo) Close(ctx context.Context, id uuid.UUID, closedAt time.Time) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stmt, ok := r.s.partnerStatements[id]
	if !ok {
		return fmt.Errorf("%w: statement %s", ledger.ErrNotFound, id)
	}
	if stmt.Status != ledger.StatementStatusDraft {
		return fmt.Errorf("%w: statement %s is %s", ledger.ErrInvalidState, id, stmt.Status)
	}
	partner, ok := r.s.partners[stmt.PartnerID]
	if !ok {
		return fmt.Errorf("%w: partner %s", ledger.ErrNotFound, stmt.PartnerID)
	}
	stmt.Status = ledger.StatementStatusClosed
	stmt.ClosedAt = &closedAt
	stmt.UpdatedAt = closedAt
	partner.RunningBalance = stmt.NextMonthBalance
	r.s.partnerStatements[id] = stmt
	r.s.partners[partner.ID] = partner
	return nil
}

// Reopen reverts a closed statement to draft and restores the partner's
// running balance to the statement's opening balance.
func (r partnerStatementRepo) Reopen(ctx context.Context, id uuid.UUID, reopenedAt time.Time) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stmt, ok := r.s.partnerStatements[id]
	if !ok {
		return fmt.Errorf("%w: statement %s", ledger.ErrNotFound, id)
	}
	if stmt.Status != ledger.StatementStatusClosed {
		return fmt.Errorf("%w: statement %s is %s", ledger.ErrInvalidState, id, stmt.Status)
	}
	partner, ok := r.s.partners[stmt.PartnerID]
	if !ok {
		return fmt.Errorf("%w: partner %s", ledger.ErrNotFound, stmt.PartnerID)
	}
	stmt.Status = ledger.StatementStatusDraft
	stmt.ClosedAt = nil
	stmt.UpdatedAt = reopenedAt
	partner.RunningBalance = stmt.PreviousBalance
	r.s.partnerStatements[id] = stmt
	r.s.partners[partner.ID] = partner
	return nil
}
