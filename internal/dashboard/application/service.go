package application

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	ledger "propipe-books/internal/ledger/domain"
	"propipe-books/internal/observability/metrics"
)

// DefaultTrailingMonths is the span of the monthly series when none is configured.
const DefaultTrailingMonths = 6

// ProjectBalance is one active project's current balance.
type ProjectBalance struct {
	Name           string          `json:"name"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// PartnerBalance is one active partner's current balance.
type PartnerBalance struct {
	Name           string          `json:"name"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// MonthBucket aggregates one calendar month of the trailing series.
type MonthBucket struct {
	Year          int             `json:"year"`
	Month         int             `json:"month"`
	PaidExpenses  decimal.Decimal `json:"paid_expenses"`
	ClosedNetCash decimal.Decimal `json:"closed_net_cash"`
}

// Summary is the dashboard snapshot. Every call recomputes it from current
// state; nothing is cached.
type Summary struct {
	PositiveProjectBalance decimal.Decimal  `json:"positive_project_balance"`
	NegativeProjectBalance decimal.Decimal  `json:"negative_project_balance"`
	Projects               []ProjectBalance `json:"projects"`
	Partners               []PartnerBalance `json:"partners"`
	MonthPaidExpenses      decimal.Decimal  `json:"month_paid_expenses"`
	Months                 []MonthBucket    `json:"months"`
	GeneratedAt            time.Time        `json:"generated_at"`
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// Service aggregates dashboard reads.
type Service struct {
	reader         ledger.DashboardReader
	clock          Clock
	trailingMonths int
}

// NewService constructs a dashboard service.
func NewService(reader ledger.DashboardReader, clock Clock, trailingMonths int) (*Service, error) {
	if reader == nil {
		return nil, errors.New("dashboard service: nil reader")
	}
	if clock == nil {
		return nil, errors.New("dashboard service: nil clock")
	}
	if trailingMonths <= 0 {
		trailingMonths = DefaultTrailingMonths
	}
	return &Service{reader: reader, clock: clock, trailingMonths: trailingMonths}, nil
}

// Summary computes the dashboard snapshot.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveDashboard(result, time.Since(start))
	}()

	now := s.clock.Now().UTC()
	summary := &Summary{
		PositiveProjectBalance: decimal.Zero,
		NegativeProjectBalance: decimal.Zero,
		MonthPaidExpenses:      decimal.Zero,
		GeneratedAt:            now,
	}

	projects, err := s.reader.ActiveProjects(ctx)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	for _, p := range projects {
		summary.Projects = append(summary.Projects, ProjectBalance{Name: p.Name, RunningBalance: p.RunningBalance})
		if p.RunningBalance.IsNegative() {
			summary.NegativeProjectBalance = summary.NegativeProjectBalance.Add(p.RunningBalance)
		} else {
			summary.PositiveProjectBalance = summary.PositiveProjectBalance.Add(p.RunningBalance)
		}
	}

	partners, err := s.reader.ActivePartners(ctx)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	for _, p := range partners {
		summary.Partners = append(summary.Partners, PartnerBalance{Name: p.Name, RunningBalance: p.RunningBalance})
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	windowStart := monthStart.AddDate(0, -(s.trailingMonths - 1), 0)
	windowEnd := monthStart.AddDate(0, 1, 0)

	expenses, err := s.reader.PaidExpensesBetween(ctx, windowStart, windowEnd)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	netCash, err := s.reader.ClosedNetCashBetween(ctx, windowStart, windowEnd)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}

	buckets := make([]MonthBucket, 0, s.trailingMonths)
	index := make(map[int]int, s.trailingMonths)
	for i := 0; i < s.trailingMonths; i++ {
		at := windowStart.AddDate(0, i, 0)
		index[at.Year()*100+int(at.Month())] = i
		buckets = append(buckets, MonthBucket{
			Year:          at.Year(),
			Month:         int(at.Month()),
			PaidExpenses:  decimal.Zero,
			ClosedNetCash: decimal.Zero,
		})
	}
	for _, e := range expenses {
		at := e.PaidAt.UTC()
		if i, ok := index[at.Year()*100+int(at.Month())]; ok {
			buckets[i].PaidExpenses = buckets[i].PaidExpenses.Add(e.Amount)
		}
		if !at.Before(monthStart) && at.Before(windowEnd) {
			summary.MonthPaidExpenses = summary.MonthPaidExpenses.Add(e.Amount)
		}
	}
	for _, c := range netCash {
		at := c.Date.UTC()
		if i, ok := index[at.Year()*100+int(at.Month())]; ok {
			buckets[i].ClosedNetCash = buckets[i].ClosedNetCash.Add(c.NetCash)
		}
	}
	summary.Months = buckets

	return summary, nil
}
