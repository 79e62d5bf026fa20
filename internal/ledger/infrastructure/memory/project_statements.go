package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	ledger "propipe-books/internal/ledger/domain"
)

type projectStatementRepo struct{ s *Store }

func (r projectStatementRepo) Create(ctx context.Context, stmt ledger.ProjectStatement) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projectStatements[stmt.ID]; ok {
		return fmt.Errorf("%w: statement %s", ledger.ErrConflict, stmt.ID)
	}
	r.s.projectStatements[stmt.ID] = stmt
	r.s.lines[stmt.ID] = make(map[uuid.UUID]ledger.StatementLine)
	return nil
}

func (r projectStatementRepo) Get(ctx context.Context, id uuid.UUID) (*ledger.ProjectStatement, error) {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stmt, ok := r.s.projectStatements[id]
	if !ok {
		return nil, fmt.Errorf("%w: statement %s", ledger.ErrNotFound, id)
	}
	return &stmt, nil
}

func (r projectStatementRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]ledger.ProjectStatement, error) {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.listByProjectLocked(projectID), nil
}

func (r projectStatementRepo) LatestByProject(ctx context.Context, projectID uuid.UUID) (*ledger.ProjectStatement, error) {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := r.listByProjectLocked(projectID)
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (r projectStatementRepo) listByProjectLocked(projectID uuid.UUID) []ledger.ProjectStatement {
	var result []ledger.ProjectStatement
	for _, stmt := range r.s.projectStatements {
		if stmt.ProjectID == projectID {
			result = append(result, stmt)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (r projectStatementRepo) ListLines(ctx context.Context, statementID uuid.UUID) ([]ledger.StatementLine, error) {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projectStatements[statementID]; !ok {
		return nil, fmt.Errorf("%w: statement %s", ledger.ErrNotFound, statementID)
	}
	return r.listLinesLocked(statementID), nil
}

func (r projectStatementRepo) listLinesLocked(statementID uuid.UUID) []ledger.StatementLine {
	var result []ledger.StatementLine
	for _, line := range r.s.lines[statementID] {
		result = append(result, line)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result
}

func (r projectStatementRepo) GetLine(ctx context.Context, statementID, lineID uuid.UUID) (*ledger.StatementLine, error) {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	line, ok := r.s.lines[statementID][lineID]
	if !ok {
		return nil, fmt.Errorf("%w: line %s", ledger.ErrNotFound, lineID)
	}
	return &line, nil
}

func (r projectStatementRepo) InsertLine(ctx context.Context, line ledger.StatementLine, derived ledger.Derived) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stmt, err := r.draftLocked(line.StatementID)
	if err != nil {
		return err
	}
	r.s.lines[line.StatementID][line.ID] = line
	r.applyDerivedLocked(stmt, derived)
	return nil
}

func (r projectStatementRepo) UpdateLine(ctx context.Context, line ledger.StatementLine, derived ledger.Derived) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stmt, err := r.draftLocked(line.StatementID)
	if err != nil {
		return err
	}
	if _, ok := r.s.lines[line.StatementID][line.ID]; !ok {
		return fmt.Errorf("%w: line %s", ledger.ErrNotFound, line.ID)
	}
	r.s.lines[line.StatementID][line.ID] = line
	r.applyDerivedLocked(stmt, derived)
	return nil
}

func (r projectStatementRepo) DeleteLine(ctx context.Context, statementID, lineID uuid.UUID, derived ledger.Derived) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stmt, err := r.draftLocked(statementID)
	if err != nil {
		return err
	}
	if _, ok := r.s.lines[statementID][lineID]; !ok {
		return fmt.Errorf("%w: line %s", ledger.ErrNotFound, lineID)
	}
	delete(r.s.lines[statementID], lineID)
	r.applyDerivedLocked(stmt, derived)
	return nil
}

// Close freezes a statement and propagates its final balance into the owning
// project's running balance, both under the same lock.
func (r projectStatementRepo) Close(ctx context.Context, id uuid.UUID, action ledger.TransferAction, closedAt time.Time) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stmt, err := r.draftLocked(id)
	if err != nil {
		return err
	}
	project, ok := r.s.projects[stmt.ProjectID]
	if !ok {
		return fmt.Errorf("%w: project %s", ledger.ErrNotFound, stmt.ProjectID)
	}
	stmt.Status = ledger.StatementStatusClosed
	stmt.TransferAction = action
	stmt.ClosedAt = &closedAt
	stmt.UpdatedAt = closedAt
	project.RunningBalance = stmt.FinalBalance
	r.s.projectStatements[id] = *stmt
	r.s.projects[project.ID] = project
	return nil
}

func (r projectStatementRepo) Reopen(ctx context.Context, id uuid.UUID, reopenedAt time.Time) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stmt, ok := r.s.projectStatements[id]
	if !ok {
		return fmt.Errorf("%w: statement %s", ledger.ErrNotFound, id)
	}
	if stmt.Status != ledger.StatementStatusClosed {
		return fmt.Errorf("%w: statement %s is %s", ledger.ErrInvalidState, id, stmt.Status)
	}
	project, ok := r.s.projects[stmt.ProjectID]
	if !ok {
		return fmt.Errorf("%w: project %s", ledger.ErrNotFound, stmt.ProjectID)
	}
	stmt.Status = ledger.StatementStatusDraft
	stmt.ClosedAt = nil
	stmt.UpdatedAt = reopenedAt
	project.RunningBalance = stmt.PreviousBalance
	r.s.projectStatements[id] = stmt
	r.s.projects[project.ID] = project
	return nil
}

func (r projectStatementRepo) draftLocked(id uuid.UUID) (*ledger.ProjectStatement, error) {
	stmt, ok := r.s.projectStatements[id]
	if !ok {
		return nil, fmt.Errorf("%w: statement %s", ledger.ErrNotFound, id)
	}
	if stmt.Status != ledger.StatementStatusDraft {
		return nil, fmt.Errorf("%w: statement %s is %s", ledger.ErrInvalidState, id, stmt.Status)
	}
	return &stmt, nil
}

func (r projectStatementRepo) applyDerivedLocked(stmt *ledger.ProjectStatement, derived ledger.Derived) {
	stmt.Totals = derived.Totals
	stmt.FinalBalance = derived.FinalBalance
	stmt.UpdatedAt = derived.UpdatedAt
	r.s.projectStatements[stmt.ID] = *stmt
}
