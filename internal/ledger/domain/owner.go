package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Project is a sub-contracted project holding its own cash account.
// RunningBalance is written only when one of its statements closes or reopens.
type Project struct {
	ID             uuid.UUID
	Name           string
	Location       string
	RunningBalance decimal.Decimal
	IsActive       bool
	CreatedAt      time.Time
}

// Partner is a profit-sharing partner of the company.
type Partner struct {
	ID              uuid.UUID
	Name            string
	SharePercentage decimal.Decimal
	BaseSalary      decimal.Decimal
	RunningBalance  decimal.Decimal
	IsActive        bool
	CreatedAt       time.Time
}
