package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	ledger "propipe-books/internal/ledger/domain"
)

const dateLayout = "2006-01-02"

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError maps domain errors onto HTTP statuses: validation 400,
// missing resources 404, state/period/race problems 409, storage 503.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ledger.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ledger.ErrInvalidState),
		errors.Is(err, ledger.ErrDuplicatePeriod),
		errors.Is(err, ledger.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ledger.ErrStorageUnavailable):
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

type totalsView struct {
	TotalIncome        decimal.Decimal `json:"total_income"`
	TotalExpensePaid   decimal.Decimal `json:"total_expense_paid"`
	TotalExpenseUnpaid decimal.Decimal `json:"total_expense_unpaid"`
	NetCash            decimal.Decimal `json:"net_cash"`
}

type lineView struct {
	ID          string          `json:"id"`
	StatementID string          `json:"statement_id"`
	Direction   string          `json:"direction"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	IsPaid      bool            `json:"is_paid"`
	Description string          `json:"description"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type projectStatementView struct {
	ID              string          `json:"id"`
	ProjectID       string          `json:"project_id"`
	Title           string          `json:"title"`
	Date            string          `json:"date"`
	Status          string          `json:"status"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	Totals          totalsView      `json:"totals"`
	FinalBalance    decimal.Decimal `json:"final_balance"`
	TransferAction  string          `json:"transfer_action"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	ClosedAt        *time.Time      `json:"closed_at,omitempty"`
	Lines           []lineView      `json:"lines,omitempty"`
}

type partnerStatementView struct {
	ID                           string          `json:"id"`
	PartnerID                    string          `json:"partner_id"`
	Month                        int             `json:"month"`
	Year                         int             `json:"year"`
	Status                       string          `json:"status"`
	PreviousBalance              decimal.Decimal `json:"previous_balance"`
	PersonalExpenseReimbursement decimal.Decimal `json:"personal_expense_reimbursement"`
	MonthlySalary                decimal.Decimal `json:"monthly_salary"`
	ProfitShare                  decimal.Decimal `json:"profit_share"`
	ActualWithdrawn              decimal.Decimal `json:"actual_withdrawn"`
	NextMonthBalance             decimal.Decimal `json:"next_month_balance"`
	Note                         string          `json:"note"`
	CreatedAt                    time.Time       `json:"created_at"`
	UpdatedAt                    time.Time       `json:"updated_at"`
	ClosedAt                     *time.Time      `json:"closed_at,omitempty"`
}

type suggestionView struct {
	Value    decimal.Decimal `json:"value"`
	Editable bool            `json:"editable"`
}

func viewLine(line ledger.StatementLine) lineView {
	return lineView{
		ID:          line.ID.String(),
		StatementID: line.StatementID.String(),
		Direction:   string(line.Direction),
		Category:    line.Category,
		Amount:      line.Amount,
		IsPaid:      line.IsPaid,
		Description: line.Description,
		PaidAt:      line.PaidAt,
		CreatedAt:   line.CreatedAt,
	}
}

func viewProjectStatement(stmt *ledger.ProjectStatement, lines []ledger.StatementLine) projectStatementView {
	view := projectStatementView{
		ID:              stmt.ID.String(),
		ProjectID:       stmt.ProjectID.String(),
		Title:           stmt.Title,
		Date:            stmt.Date.Format(dateLayout),
		Status:          stmt.Status,
		PreviousBalance: stmt.PreviousBalance,
		Totals: totalsView{
			TotalIncome:        stmt.Totals.TotalIncome,
			TotalExpensePaid:   stmt.Totals.TotalExpensePaid,
			TotalExpenseUnpaid: stmt.Totals.TotalExpenseUnpaid,
			NetCash:            stmt.Totals.NetCash,
		},
		FinalBalance:   stmt.FinalBalance,
		TransferAction: string(stmt.TransferAction),
		CreatedAt:      stmt.CreatedAt,
		UpdatedAt:      stmt.UpdatedAt,
		ClosedAt:       stmt.ClosedAt,
	}
	for _, line := range lines {
		view.Lines = append(view.Lines, viewLine(line))
	}
	return view
}

func viewPartnerStatement(stmt *ledger.PartnerStatement) partnerStatementView {
	return partnerStatementView{
		ID:                           stmt.ID.String(),
		PartnerID:                    stmt.PartnerID.String(),
		Month:                        stmt.Month,
		Year:                         stmt.Year,
		Status:                       stmt.Status,
		PreviousBalance:              stmt.PreviousBalance,
		PersonalExpenseReimbursement: stmt.PersonalExpenseReimbursement,
		MonthlySalary:                stmt.MonthlySalary,
		ProfitShare:                  stmt.ProfitShare,
		ActualWithdrawn:              stmt.ActualWithdrawn,
		NextMonthBalance:             stmt.NextMonthBalance,
		Note:                         stmt.Note,
		CreatedAt:                    stmt.CreatedAt,
		UpdatedAt:                    stmt.UpdatedAt,
		ClosedAt:                     stmt.ClosedAt,
	}
}
