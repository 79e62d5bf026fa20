package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ledger "propipe-books/internal/ledger/domain"
	"propipe-books/internal/observability/metrics"
)

// PartnerStatementService owns the lifecycle of partner compensation
// statements. Unlike project statements, closing is reversible: reopen
// restores the partner's running balance to the statement's opening balance.
type PartnerStatementService struct {
	statements ledger.PartnerStatementRepository
	partners   ledger.PartnerRepository
	continuity *ContinuityResolver
	bus        Publisher
	clock      Clock
	cfg        Config
}

// NewPartnerStatementService constructs a service.
func NewPartnerStatementService(
	statements ledger.PartnerStatementRepository,
	partners ledger.PartnerRepository,
	continuity *ContinuityResolver,
	bus Publisher,
	clock Clock,
	cfg Config,
) (*PartnerStatementService, error) {
	if statements == nil {
		return nil, errors.New("partner statement service: nil statement repo")
	}
	if partners == nil {
		return nil, errors.New("partner statement service: nil partner repo")
	}
	if continuity == nil {
		return nil, errors.New("partner statement service: nil continuity resolver")
	}
	if clock == nil {
		return nil, errors.New("partner statement service: nil clock")
	}
	return &PartnerStatementService{
		statements: statements,
		partners:   partners,
		continuity: continuity,
		bus:        bus,
		clock:      clock,
		cfg:        cfg,
	}, nil
}

// Create opens a draft statement for one (partner, month, year) period.
// A period can hold only one statement.
func (s *PartnerStatementService) Create(ctx context.Context, partnerID uuid.UUID, month, year int, fields ledger.PartnerStatementPatch, openingBalance *decimal.Decimal) (*ledger.PartnerStatement, error) {
	if _, err := s.partners.Get(ctx, partnerID); err != nil {
		return nil, err
	}
	existing, err := s.statements.GetByPeriod(ctx, partnerID, month, year)
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %04d-%02d", ledger.ErrDuplicatePeriod, year, month)
	}
	suggestion, err := s.continuity.SuggestForPartner(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	previous, err := resolveOpening(suggestion, openingBalance, s.cfg.EnforceContinuity)
	if err != nil {
		return nil, err
	}
	stmt, err := ledger.NewPartnerStatement(partnerID, month, year, previous, s.clock.Now())
	if err != nil {
		return nil, err
	}
	filled, err := fields.Apply(stmt, s.clock.Now())
	if err != nil {
		return nil, err
	}
	// Create may still race another creator; the period uniqueness constraint
	// in the store is the final arbiter.
	if err := s.statements.Create(ctx, filled); err != nil {
		return nil, err
	}
	return &filled, nil
}

// Get returns one statement.
func (s *PartnerStatementService) Get(ctx context.Context, id uuid.UUID) (*ledger.PartnerStatement, error) {
	return s.statements.Get(ctx, id)
}

// ListByPartner returns all statements of a partner, most recent period first.
func (s *PartnerStatementService) ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]ledger.PartnerStatement, error) {
	return s.statements.ListByPartner(ctx, partnerID)
}

// SuggestOpeningBalance exposes the continuity suggestion for a partner.
func (s *PartnerStatementService) SuggestOpeningBalance(ctx context.Context, partnerID uuid.UUID) (Suggestion, error) {
	return s.continuity.SuggestForPartner(ctx, partnerID)
}

// Update applies a typed patch to a draft statement and recomputes the
// carried balance.
func (s *PartnerStatementService) Update(ctx context.Context, id uuid.UUID, patch ledger.PartnerStatementPatch) (*ledger.PartnerStatement, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObservePartnerUpdate(result, time.Since(start))
	}()

	stmt, err := s.statements.Get(ctx, id)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if !stmt.IsDraft() {
		result = metrics.ResultError
		return nil, fmt.Errorf("%w: statement %s is %s", ledger.ErrInvalidState, id, stmt.Status)
	}
	patched, err := patch.Apply(*stmt, s.clock.Now())
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if err := s.statements.Update(ctx, patched); err != nil {
		result = metrics.ResultError
		return nil, err
	}
	return &patched, nil
}

// Close freezes a draft statement and, atomically, writes its carried balance
// into the partner's running balance.
func (s *PartnerStatementService) Close(ctx context.Context, id uuid.UUID) (*ledger.PartnerStatement, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveStatementClose(metrics.KindPartner, result, time.Since(start))
	}()

	stmt, err := s.statements.Get(ctx, id)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if !stmt.IsDraft() {
		result = metrics.ResultError
		return nil, fmt.Errorf("%w: statement %s is %s", ledger.ErrInvalidState, id, stmt.Status)
	}
	closedAt := s.clock.Now()
	if err := s.statements.Close(ctx, id, closedAt); err != nil {
		result = metrics.ResultError
		return nil, err
	}
	stmt.Status = ledger.StatementStatusClosed
	stmt.ClosedAt = &closedAt
	stmt.UpdatedAt = closedAt
	s.publish(ctx, PartnerStatementClosed{
		StatementID:      stmt.ID,
		PartnerID:        stmt.PartnerID,
		Month:            stmt.Month,
		Year:             stmt.Year,
		NextMonthBalance: stmt.NextMonthBalance,
		ClosedAt:         closedAt,
	})
	return stmt, nil
}

// Reopen reverts a closed statement to draft. The partner's running balance
// goes back to the statement's opening balance, undoing the forward
// propagation: a stale carried balance must not survive a reopened period.
func (s *PartnerStatementService) Reopen(ctx context.Context, id uuid.UUID) (*ledger.PartnerStatement, error) {
	stmt, err := s.statements.Get(ctx, id)
	if err != nil {
		metrics.IncStatementReopen(metrics.KindPartner, metrics.ResultError)
		return nil, err
	}
	if stmt.Status != ledger.StatementStatusClosed {
		metrics.IncStatementReopen(metrics.KindPartner, metrics.ResultError)
		return nil, fmt.Errorf("%w: statement %s is %s", ledger.ErrInvalidState, id, stmt.Status)
	}
	reopenedAt := s.clock.Now()
	if err := s.statements.Reopen(ctx, id, reopenedAt); err != nil {
		metrics.IncStatementReopen(metrics.KindPartner, metrics.ResultError)
		return nil, err
	}
	metrics.IncStatementReopen(metrics.KindPartner, metrics.ResultSuccess)
	stmt.Status = ledger.StatementStatusDraft
	stmt.ClosedAt = nil
	stmt.UpdatedAt = reopenedAt
	s.publish(ctx, PartnerStatementReopened{
		StatementID:     stmt.ID,
		PartnerID:       stmt.PartnerID,
		Month:           stmt.Month,
		Year:            stmt.Year,
		RestoredBalance: stmt.PreviousBalance,
		ReopenedAt:      reopenedAt,
	})
	return stmt, nil
}

func (s *PartnerStatementService) publish(ctx context.Context, event any) {
	if s.bus == nil {
		return
	}
	_ = s.bus.Publish(ctx, event)
}
