package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ledger "propipe-books/internal/ledger/domain"
)

// Suggestion is the proposed opening balance for a new statement. Editable is
// true only for an owner's first-ever statement; once a prior statement
// exists the chain value is fixed.
type Suggestion struct {
	Value    decimal.Decimal
	Editable bool
}

// ContinuityResolver derives the opening balance of a new statement from the
// owner's running balance or from the latest prior statement in the series.
type ContinuityResolver struct {
	projectStatements ledger.ProjectStatementRepository
	partnerStatements ledger.PartnerStatementRepository
	projects          ledger.ProjectRepository
	partners          ledger.PartnerRepository
}

// NewContinuityResolver constructs a resolver.
func NewContinuityResolver(
	projectStatements ledger.ProjectStatementRepository,
	partnerStatements ledger.PartnerStatementRepository,
	projects ledger.ProjectRepository,
	partners ledger.PartnerRepository,
) (*ContinuityResolver, error) {
	if projectStatements == nil || partnerStatements == nil || projects == nil || partners == nil {
		return nil, errors.New("continuity resolver: nil repository")
	}
	return &ContinuityResolver{
		projectStatements: projectStatements,
		partnerStatements: partnerStatements,
		projects:          projects,
		partners:          partners,
	}, nil
}

// SuggestForProject resolves the opening balance for a new project statement.
func (r *ContinuityResolver) SuggestForProject(ctx context.Context, projectID uuid.UUID) (Suggestion, error) {
	latest, err := r.projectStatements.LatestByProject(ctx, projectID)
	if err != nil {
		return Suggestion{}, err
	}
	if latest != nil {
		return Suggestion{Value: latest.FinalBalance, Editable: false}, nil
	}
	project, err := r.projects.Get(ctx, projectID)
	if err != nil {
		return Suggestion{}, err
	}
	return Suggestion{Value: project.RunningBalance, Editable: true}, nil
}

// SuggestForPartner resolves the opening balance for a new partner statement.
func (r *ContinuityResolver) SuggestForPartner(ctx context.Context, partnerID uuid.UUID) (Suggestion, error) {
	latest, err := r.partnerStatements.LatestByPartner(ctx, partnerID)
	if err != nil {
		return Suggestion{}, err
	}
	if latest != nil {
		return Suggestion{Value: latest.NextMonthBalance, Editable: false}, nil
	}
	partner, err := r.partners.Get(ctx, partnerID)
	if err != nil {
		return Suggestion{}, err
	}
	return Suggestion{Value: partner.RunningBalance, Editable: true}, nil
}

// resolveOpening applies the continuity policy to an optionally caller-supplied
// opening balance. With enforcement on, a chained statement must start exactly
// where the prior one ended.
func resolveOpening(suggestion Suggestion, explicit *decimal.Decimal, enforce bool) (decimal.Decimal, error) {
	if explicit == nil {
		return suggestion.Value, nil
	}
	value := ledger.RoundMoney(*explicit)
	if !suggestion.Editable && enforce && !value.Equal(suggestion.Value) {
		return decimal.Zero, fmt.Errorf("%w: opening balance is fixed at %s by the prior statement", ledger.ErrValidation, suggestion.Value)
	}
	return value, nil
}
