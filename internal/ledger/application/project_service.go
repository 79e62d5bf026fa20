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

// ProjectStatementService owns the draft -> closed lifecycle of project
// statements. Every line mutation recomputes totals and the final balance
// and persists them in the same atomic unit as the line change.
type ProjectStatementService struct {
	statements ledger.ProjectStatementRepository
	projects   ledger.ProjectRepository
	continuity *ContinuityResolver
	bus        Publisher
	clock      Clock
	cfg        Config
}

// NewProjectStatementService constructs a service.
func NewProjectStatementService(
	statements ledger.ProjectStatementRepository,
	projects ledger.ProjectRepository,
	continuity *ContinuityResolver,
	bus Publisher,
	clock Clock,
	cfg Config,
) (*ProjectStatementService, error) {
	if statements == nil {
		return nil, errors.New("project statement service: nil statement repo")
	}
	if projects == nil {
		return nil, errors.New("project statement service: nil project repo")
	}
	if continuity == nil {
		return nil, errors.New("project statement service: nil continuity resolver")
	}
	if clock == nil {
		return nil, errors.New("project statement service: nil clock")
	}
	return &ProjectStatementService{
		statements: statements,
		projects:   projects,
		continuity: continuity,
		bus:        bus,
		clock:      clock,
		cfg:        cfg,
	}, nil
}

// Create opens a new draft statement for a project. The opening balance is
// resolved through the continuity rule; an explicit value is accepted only
// while the suggestion is editable (or when enforcement is off).
func (s *ProjectStatementService) Create(ctx context.Context, projectID uuid.UUID, title string, date time.Time, openingBalance *decimal.Decimal) (*ledger.ProjectStatement, error) {
	if _, err := s.projects.Get(ctx, projectID); err != nil {
		return nil, err
	}
	suggestion, err := s.continuity.SuggestForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	previous, err := resolveOpening(suggestion, openingBalance, s.cfg.EnforceContinuity)
	if err != nil {
		return nil, err
	}
	stmt, err := ledger.NewProjectStatement(projectID, title, date, previous, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.statements.Create(ctx, stmt); err != nil {
		return nil, err
	}
	return &stmt, nil
}

// Get returns a statement with its lines.
func (s *ProjectStatementService) Get(ctx context.Context, id uuid.UUID) (*ledger.ProjectStatement, []ledger.StatementLine, error) {
	stmt, err := s.statements.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	lines, err := s.statements.ListLines(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return stmt, lines, nil
}

// ListByProject returns all statements of a project, most recent first.
func (s *ProjectStatementService) ListByProject(ctx context.Context, projectID uuid.UUID) ([]ledger.ProjectStatement, error) {
	return s.statements.ListByProject(ctx, projectID)
}

// SuggestOpeningBalance exposes the continuity suggestion for a project.
func (s *ProjectStatementService) SuggestOpeningBalance(ctx context.Context, projectID uuid.UUID) (Suggestion, error) {
	return s.continuity.SuggestForProject(ctx, projectID)
}

// AddLine appends a line to a draft statement and recomputes its totals.
func (s *ProjectStatementService) AddLine(ctx context.Context, statementID uuid.UUID, direction ledger.Direction, category string, amount decimal.Decimal, isPaid bool, description string) (*ledger.StatementLine, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveLineMutation("add", result, time.Since(start))
	}()

	stmt, err := s.draftStatement(ctx, statementID)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	line, err := ledger.NewStatementLine(statementID, direction, category, amount, isPaid, description, s.clock.Now())
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	lines, err := s.statements.ListLines(ctx, statementID)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	stmt.Recompute(append(lines, line))
	if err := s.statements.InsertLine(ctx, line, s.derived(stmt)); err != nil {
		result = metrics.ResultError
		return nil, err
	}
	return &line, nil
}

// UpdateLine applies a typed patch to a line of a draft statement.
func (s *ProjectStatementService) UpdateLine(ctx context.Context, statementID, lineID uuid.UUID, patch ledger.LinePatch) (*ledger.StatementLine, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveLineMutation("update", result, time.Since(start))
	}()

	stmt, err := s.draftStatement(ctx, statementID)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	current, err := s.statements.GetLine(ctx, statementID, lineID)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	patched, err := patch.Apply(*current, s.clock.Now())
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	lines, err := s.statements.ListLines(ctx, statementID)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	for i := range lines {
		if lines[i].ID == lineID {
			lines[i] = patched
		}
	}
	stmt.Recompute(lines)
	if err := s.statements.UpdateLine(ctx, patched, s.derived(stmt)); err != nil {
		result = metrics.ResultError
		return nil, err
	}
	return &patched, nil
}

// RemoveLine deletes a line from a draft statement and recomputes its totals.
func (s *ProjectStatementService) RemoveLine(ctx context.Context, statementID, lineID uuid.UUID) error {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveLineMutation("remove", result, time.Since(start))
	}()

	stmt, err := s.draftStatement(ctx, statementID)
	if err != nil {
		result = metrics.ResultError
		return err
	}
	lines, err := s.statements.ListLines(ctx, statementID)
	if err != nil {
		result = metrics.ResultError
		return err
	}
	remaining := lines[:0:0]
	found := false
	for _, line := range lines {
		if line.ID == lineID {
			found = true
			continue
		}
		remaining = append(remaining, line)
	}
	if !found {
		result = metrics.ResultError
		return fmt.Errorf("%w: line %s", ledger.ErrNotFound, lineID)
	}
	stmt.Recompute(remaining)
	if err := s.statements.DeleteLine(ctx, statementID, lineID, s.derived(stmt)); err != nil {
		result = metrics.ResultError
		return err
	}
	return nil
}

// Close freezes a draft statement and, in the same atomic unit, writes its
// final balance into the owning project's running balance. At most one of
// two concurrent closers succeeds; the loser observes an error.
func (s *ProjectStatementService) Close(ctx context.Context, id uuid.UUID, action ledger.TransferAction) (*ledger.ProjectStatement, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveStatementClose(metrics.KindProject, result, time.Since(start))
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
	if action == "" {
		action = ledger.TransferNone
	}
	closedAt := s.clock.Now()
	if err := s.statements.Close(ctx, id, action, closedAt); err != nil {
		result = metrics.ResultError
		return nil, err
	}
	stmt.Status = ledger.StatementStatusClosed
	stmt.TransferAction = action
	stmt.ClosedAt = &closedAt
	stmt.UpdatedAt = closedAt
	s.publish(ctx, ProjectStatementClosed{
		StatementID:  stmt.ID,
		ProjectID:    stmt.ProjectID,
		FinalBalance: stmt.FinalBalance,
		ClosedAt:     closedAt,
	})
	return stmt, nil
}

// Reopen reverts a closed statement to draft, restoring the project's running
// balance to the statement's opening balance. Available only when the policy
// switch enables it.
func (s *ProjectStatementService) Reopen(ctx context.Context, id uuid.UUID) (*ledger.ProjectStatement, error) {
	if !s.cfg.AllowProjectReopen {
		metrics.IncStatementReopen(metrics.KindProject, metrics.ResultError)
		return nil, fmt.Errorf("%w: project statements cannot be reopened", ledger.ErrInvalidState)
	}
	stmt, err := s.statements.Get(ctx, id)
	if err != nil {
		metrics.IncStatementReopen(metrics.KindProject, metrics.ResultError)
		return nil, err
	}
	if stmt.Status != ledger.StatementStatusClosed {
		metrics.IncStatementReopen(metrics.KindProject, metrics.ResultError)
		return nil, fmt.Errorf("%w: statement %s is %s", ledger.ErrInvalidState, id, stmt.Status)
	}
	reopenedAt := s.clock.Now()
	if err := s.statements.Reopen(ctx, id, reopenedAt); err != nil {
		metrics.IncStatementReopen(metrics.KindProject, metrics.ResultError)
		return nil, err
	}
	metrics.IncStatementReopen(metrics.KindProject, metrics.ResultSuccess)
	stmt.Status = ledger.StatementStatusDraft
	stmt.ClosedAt = nil
	stmt.UpdatedAt = reopenedAt
	return stmt, nil
}

func (s *ProjectStatementService) draftStatement(ctx context.Context, id uuid.UUID) (*ledger.ProjectStatement, error) {
	stmt, err := s.statements.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !stmt.IsDraft() {
		return nil, fmt.Errorf("%w: statement %s is %s", ledger.ErrInvalidState, id, stmt.Status)
	}
	return stmt, nil
}

func (s *ProjectStatementService) derived(stmt *ledger.ProjectStatement) ledger.Derived {
	return ledger.Derived{
		Totals:       stmt.Totals,
		FinalBalance: stmt.FinalBalance,
		UpdatedAt:    s.clock.Now(),
	}
}

func (s *ProjectStatementService) publish(ctx context.Context, event any) {
	if s.bus == nil {
		return
	}
	_ = s.bus.Publish(ctx, event)
}
