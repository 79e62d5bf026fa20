package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ledger "propipe-books/internal/ledger/domain"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// Service manages the project and partner registry. Running balances are
// seeded here once and afterwards written only by statement close/reopen.
type Service struct {
	projects ledger.ProjectRepository
	partners ledger.PartnerRepository
	clock    Clock
}

// NewService constructs a registry service.
func NewService(projects ledger.ProjectRepository, partners ledger.PartnerRepository, clock Clock) (*Service, error) {
	if projects == nil {
		return nil, errors.New("registry service: nil project repo")
	}
	if partners == nil {
		return nil, errors.New("registry service: nil partner repo")
	}
	if clock == nil {
		return nil, errors.New("registry service: nil clock")
	}
	return &Service{projects: projects, partners: partners, clock: clock}, nil
}

// CreateProject registers a project with an opening balance.
func (s *Service) CreateProject(ctx context.Context, name, location string, openingBalance decimal.Decimal) (*ledger.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name required", ledger.ErrValidation)
	}
	project := ledger.Project{
		ID:             uuid.New(),
		Name:           name,
		Location:       strings.TrimSpace(location),
		RunningBalance: ledger.RoundMoney(openingBalance),
		IsActive:       true,
		CreatedAt:      s.clock.Now().UTC(),
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}
	return &project, nil
}

// GetProject fetches one project.
func (s *Service) GetProject(ctx context.Context, id uuid.UUID) (*ledger.Project, error) {
	return s.projects.Get(ctx, id)
}

// ListProjects lists projects, optionally only active ones.
func (s *Service) ListProjects(ctx context.Context, activeOnly bool) ([]ledger.Project, error) {
	return s.projects.List(ctx, activeOnly)
}

// SetProjectActive flips a project's active flag.
func (s *Service) SetProjectActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.projects.SetActive(ctx, id, active)
}

// CreatePartner registers a partner with an opening balance.
func (s *Service) CreatePartner(ctx context.Context, name string, sharePercentage, baseSalary, openingBalance decimal.Decimal) (*ledger.Partner, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: partner name required", ledger.ErrValidation)
	}
	if sharePercentage.IsNegative() || sharePercentage.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("%w: share percentage must be within [0, 100]", ledger.ErrValidation)
	}
	if baseSalary.IsNegative() {
		return nil, fmt.Errorf("%w: base salary must not be negative", ledger.ErrValidation)
	}
	partner := ledger.Partner{
		ID:              uuid.New(),
		Name:            name,
		SharePercentage: sharePercentage,
		BaseSalary:      ledger.RoundMoney(baseSalary),
		RunningBalance:  ledger.RoundMoney(openingBalance),
		IsActive:        true,
		CreatedAt:       s.clock.Now().UTC(),
	}
	if err := s.partners.Create(ctx, partner); err != nil {
		return nil, err
	}
	return &partner, nil
}

// GetPartner fetches one partner.
func (s *Service) GetPartner(ctx context.Context, id uuid.UUID) (*ledger.Partner, error) {
	return s.partners.Get(ctx, id)
}

// ListPartners lists partners, optionally only active ones.
func (s *Service) ListPartners(ctx context.Context, activeOnly bool) ([]ledger.Partner, error) {
	return s.partners.List(ctx, activeOnly)
}

// SetPartnerActive flips a partner's active flag.
func (s *Service) SetPartnerActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.partners.SetActive(ctx, id, active)
}
