package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	ledger "propipe-books/internal/ledger/domain"
)

// Store is an in-memory implementation of every ledger repository plus the
// dashboard reader. A single mutex makes each operation an isolated unit,
// matching the transactional contract of the SQL stores. Used by unit tests
// and as a standalone demo backend.
type Store struct {
	mu                sync.Mutex
	projects          map[uuid.UUID]ledger.Project
	partners          map[uuid.UUID]ledger.Partner
	projectStatements map[uuid.UUID]ledger.ProjectStatement
	partnerStatements map[uuid.UUID]ledger.PartnerStatement
	lines             map[uuid.UUID]map[uuid.UUID]ledger.StatementLine
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		projects:          make(map[uuid.UUID]ledger.Project),
		partners:          make(map[uuid.UUID]ledger.Partner),
		projectStatements: make(map[uuid.UUID]ledger.ProjectStatement),
		partnerStatements: make(map[uuid.UUID]ledger.PartnerStatement),
		lines:             make(map[uuid.UUID]map[uuid.UUID]ledger.StatementLine),
	}
}

// Projects returns the project repository view of the store.
func (s *Store) Projects() ledger.ProjectRepository { return projectRepo{s} }

// Partners returns the partner repository view of the store.
func (s *Store) Partners() ledger.PartnerRepository { return partnerRepo{s} }

// ProjectStatements returns the project statement repository view.
func (s *Store) ProjectStatements() ledger.ProjectStatementRepository { return projectStatementRepo{s} }

// PartnerStatements returns the partner statement repository view.
func (s *Store) PartnerStatements() ledger.PartnerStatementRepository { return partnerStatementRepo{s} }

// Dashboard returns the dashboard reader view of the store.
func (s *Store) Dashboard() ledger.DashboardReader { return dashboardReader{s} }

// ---- owner repositories ----

type projectRepo struct{ s *Store }

func (r projectRepo) Create(ctx context.Context, project ledger.Project) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[project.ID]; ok {
		return fmt.Errorf("%w: project %s", ledger.ErrConflict, project.ID)
	}
	r.s.projects[project.ID] = project
	return nil
}

func (r projectRepo) Get(ctx context.Context, id uuid.UUID) (*ledger.Project, error) {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	project, ok := r.s.projects[id]
	if !ok {
		return nil, fmt.Errorf("%w: project %s", ledger.ErrNotFound, id)
	}
	return &project, nil
}

func (r projectRepo) List(ctx context.Context, activeOnly bool) ([]ledger.Project, error) {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []ledger.Project
	for _, project := range r.s.projects {
		if activeOnly && !project.IsActive {
			continue
		}
		result = append(result, project)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r projectRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	project, ok := r.s.projects[id]
	if !ok {
		return fmt.Errorf("%w: project %s", ledger.ErrNotFound, id)
	}
	project.IsActive = active
	r.s.projects[id] = project
	return nil
}

type partnerRepo struct{ s *Store }

func (r partnerRepo) Create(ctx context.Context, partner ledger.Partner) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.partners[partner.ID]; ok {
		return fmt.Errorf("%w: partner %s", ledger.ErrConflict, partner.ID)
	}
	r.s.partners[partner.ID] = partner
	return nil
}

func (r partnerRepo) Get(ctx context.Context, id uuid.UUID) (*ledger.Partner, error) {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	partner, ok := r.s.partners[id]
	if !ok {
		return nil, fmt.Errorf("%w: partner %s", ledger.ErrNotFound, id)
	}
	return &partner, nil
}

func (r partnerRepo) List(ctx context.Context, activeOnly bool) ([]ledger.Partner, error) {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []ledger.Partner
	for _, partner := range r.s.partners {
		if activeOnly && !partner.IsActive {
			continue
		}
		result = append(result, partner)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r partnerRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	partner, ok := r.s.partners[id]
	if !ok {
		return fmt.Errorf("%w: partner %s", ledger.ErrNotFound, id)
	}
	partner.IsActive = active
	r.s.partners[id] = partner
	return nil
}
