package railsr

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
)

type Account struct {
	ID           string         `json:"id"`
	CustomerID   string         `json:"customer_id"`
	CustomerName string         `json:"customer_name,omitempty"`
	AccountType  string         `json:"account_type"`
	Currency     string         `json:"currency"`
	Name         string         `json:"name,omitempty"`
	Balance      Amount         `json:"balance"`
	Status       string         `json:"status,omitempty"`
	IBAN         string         `json:"iban,omitempty"`
	CreatedAt    string         `json:"created_at,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// CustomerLabel returns the customer name, synthesising one from the
// customer id when upstream omits it.
func (a Account) CustomerLabel() string {
	if a.CustomerName != "" {
		return a.CustomerName
	}
	if a.CustomerID == "" {
		return "Unknown customer"
	}
	return "Customer " + a.CustomerID
}

type AccountInput struct {
	CustomerID  string         `json:"customer_id"`
	AccountType string         `json:"account_type"` // current, savings, credit
	Currency    string         `json:"currency"`
	Name        string         `json:"name,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type AccountBalance struct {
	AccountID        string `json:"account_id,omitempty"`
	Currency         string `json:"currency"`
	Balance          Amount `json:"balance"`
	AvailableBalance Amount `json:"available_balance,omitempty"`
}

type AccountDetails struct {
	AccountID     string `json:"account_id,omitempty"`
	IBAN          string `json:"iban,omitempty"`
	BIC           string `json:"bic,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	SortCode      string `json:"sort_code,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
	Currency      string `json:"currency,omitempty"`
}

type Statement struct {
	AccountID      string        `json:"account_id,omitempty"`
	StartDate      string        `json:"start_date"`
	EndDate        string        `json:"end_date"`
	OpeningBalance Amount        `json:"opening_balance"`
	ClosingBalance Amount        `json:"closing_balance"`
	Transactions   []Transaction `json:"transactions"`
}

type LedgerEntry struct {
	ID           string `json:"id"`
	AccountID    string `json:"account_id,omitempty"`
	Amount       Amount `json:"amount"`
	Currency     string `json:"currency"`
	Direction    string `json:"direction,omitempty"` // credit or debit
	Description  string `json:"description,omitempty"`
	BalanceAfter Amount `json:"balance_after,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// CurrencyBalance is one row of the balances-by-currency report.
type CurrencyBalance struct {
	Currency     string `json:"currency"`
	TotalBalance Amount `json:"total_balance,omitempty"`
	Balance      Amount `json:"balance,omitempty"`
}

// Value returns total_balance, or balance when total_balance is zero.
func (b CurrencyBalance) Value() float64 {
	if b.TotalBalance != 0 {
		return b.TotalBalance.Float64()
	}
	return b.Balance.Float64()
}

// Accounts wraps the /accounts endpoints.
type Accounts struct {
	r      Requester
	logger zerolog.Logger
}

func NewAccounts(r Requester, logger zerolog.Logger) *Accounts {
	return &Accounts{
		r:      r,
		logger: logger.With().Str("component", "railsr_accounts").Logger(),
	}
}

func (a *Accounts) Create(ctx context.Context, in AccountInput) (*Account, error) {
	return fetch[*Account](ctx, a.r, &Request{Method: http.MethodPost, Path: "/accounts", Body: in})
}

func (a *Accounts) Get(ctx context.Context, id string) (*Account, error) {
	return fetch[*Account](ctx, a.r, &Request{Path: "/accounts/" + escape(id)})
}

// ListByCustomer lists the accounts of one customer.
func (a *Accounts) ListByCustomer(ctx context.Context, customerID string, pr PageRequest) (*Page[Account], error) {
	return fetchPage[Account](ctx, a.r, "/customers/"+escape(customerID)+"/accounts", pr, nil)
}

// ListAll lists every account of the program.
func (a *Accounts) ListAll(ctx context.Context, pr PageRequest) (*Page[Account], error) {
	return fetchPage[Account](ctx, a.r, "/accounts", pr, nil)
}

func (a *Accounts) Balance(ctx context.Context, id string) (*AccountBalance, error) {
	return fetch[*AccountBalance](ctx, a.r, &Request{Path: "/accounts/" + escape(id) + "/balance"})
}

// Statement returns the statement for [startDate, endDate], both YYYY-MM-DD.
func (a *Accounts) Statement(ctx context.Context, id, startDate, endDate string) (*Statement, error) {
	return fetch[*Statement](ctx, a.r, &Request{
		Path:  "/accounts/" + escape(id) + "/statement",
		Query: url.Values{"start_date": {startDate}, "end_date": {endDate}},
	})
}

func (a *Accounts) Close(ctx context.Context, id, reason string) (*Account, error) {
	return fetch[*Account](ctx, a.r, &Request{
		Method: http.MethodPost,
		Path:   "/accounts/" + escape(id) + "/close",
		Body:   map[string]string{"reason": reason},
	})
}

// Details returns the bank details (IBAN, BIC and so on) of an account.
func (a *Accounts) Details(ctx context.Context, id string) (*AccountDetails, error) {
	return fetch[*AccountDetails](ctx, a.r, &Request{Path: "/accounts/" + escape(id) + "/details"})
}

func (a *Accounts) Ledger(ctx context.Context, id string, pr PageRequest) (*Page[LedgerEntry], error) {
	return fetchPage[LedgerEntry](ctx, a.r, "/accounts/"+escape(id)+"/ledger", pr, nil)
}

// Balances returns program-wide balances per currency. When the dedicated
// endpoint fails it sums the balances of the first 100 accounts instead,
// and when that fails too it returns an empty list without error.
func (a *Accounts) Balances(ctx context.Context) ([]CurrencyBalance, error) {
	balances, err := fetch[[]CurrencyBalance](ctx, a.r, &Request{Path: "/accounts/balances/by-currency"})
	if err == nil {
		if balances == nil {
			balances = []CurrencyBalance{}
		}
		return balances, nil
	}
	a.logger.Warn().Err(err).Msg("balances by currency unavailable, summing account balances")

	page, err := a.ListAll(ctx, PageRequest{Page: 1, PerPage: MaxPerPage})
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to calculate balances from accounts")
		return []CurrencyBalance{}, nil
	}
	return sumBalances(page.Items), nil
}

// sumBalances totals account balances per currency in order of first
// appearance. Accounts without a currency or with a zero balance are skipped.
func sumBalances(accounts []Account) []CurrencyBalance {
	index := make(map[string]int)
	out := []CurrencyBalance{}
	for _, acc := range accounts {
		if acc.Currency == "" || acc.Balance == 0 {
			continue
		}
		i, ok := index[acc.Currency]
		if !ok {
			i = len(out)
			index[acc.Currency] = i
			out = append(out, CurrencyBalance{Currency: acc.Currency})
		}
		out[i].TotalBalance += acc.Balance
	}
	return out
}
