package railsr

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

type Transaction struct {
	ID                   string         `json:"id"`
	SourceAccountID      string         `json:"source_account_id,omitempty"`
	DestinationAccountID string         `json:"destination_account_id,omitempty"`
	DestinationIBAN      string         `json:"destination_iban,omitempty"`
	Amount               Amount         `json:"amount"`
	Currency             string         `json:"currency"`
	Description          string         `json:"description,omitempty"`
	Reference            string         `json:"reference,omitempty"`
	Status               string         `json:"status,omitempty"`
	Type                 string         `json:"type,omitempty"`
	CreatedAt            string         `json:"created_at,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
}

// TransactionInput moves money from an account either to another account
// of the program or to an external IBAN.
type TransactionInput struct {
	SourceAccountID      string         `json:"source_account_id"`
	DestinationAccountID string         `json:"destination_account_id,omitempty"`
	DestinationIBAN      string         `json:"destination_iban,omitempty"`
	Amount               Amount         `json:"amount"`
	Currency             string         `json:"currency"`
	Description          string         `json:"description,omitempty"`
	Reference            string         `json:"reference,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
}

type Payment struct {
	ID             string         `json:"id"`
	AccountID      string         `json:"account_id"`
	Amount         Amount         `json:"amount"`
	Currency       string         `json:"currency"`
	PaymentMethod  string         `json:"payment_method"`
	PaymentDetails map[string]any `json:"payment_details,omitempty"`
	Description    string         `json:"description,omitempty"`
	Reference      string         `json:"reference,omitempty"`
	Status         string         `json:"status,omitempty"`
	CreatedAt      string         `json:"created_at,omitempty"`
}

type PaymentInput struct {
	AccountID      string         `json:"account_id"`
	Amount         Amount         `json:"amount"`
	Currency       string         `json:"currency"`
	PaymentMethod  string         `json:"payment_method"` // card, bank_transfer, direct_debit
	PaymentDetails map[string]any `json:"payment_details"`
	Description    string         `json:"description,omitempty"`
	Reference      string         `json:"reference,omitempty"`
}

// Transactions wraps the /transactions and /payments endpoints.
type Transactions struct {
	r      Requester
	logger zerolog.Logger
}

func NewTransactions(r Requester, logger zerolog.Logger) *Transactions {
	return &Transactions{
		r:      r,
		logger: logger.With().Str("component", "railsr_transactions").Logger(),
	}
}

func (t *Transactions) Create(ctx context.Context, in TransactionInput) (*Transaction, error) {
	return fetch[*Transaction](ctx, t.r, &Request{Method: http.MethodPost, Path: "/transactions", Body: in})
}

func (t *Transactions) Get(ctx context.Context, id string) (*Transaction, error) {
	return fetch[*Transaction](ctx, t.r, &Request{Path: "/transactions/" + escape(id)})
}

func (t *Transactions) ListByAccount(ctx context.Context, accountID string, pr PageRequest) (*Page[Transaction], error) {
	return fetchPage[Transaction](ctx, t.r, "/accounts/"+escape(accountID)+"/transactions", pr, nil)
}

// ListAll lists every transaction of the program. Some programs only expose
// the listing under /program/transactions, which is tried when the primary
// endpoint fails. The alternate endpoint's error is returned if both fail.
func (t *Transactions) ListAll(ctx context.Context, pr PageRequest) (*Page[Transaction], error) {
	page, err := fetchPage[Transaction](ctx, t.r, "/transactions", pr, nil)
	if err == nil || errors.Is(err, ErrConfiguration) {
		return page, err
	}
	t.logger.Warn().Err(err).Msg("transaction listing failed, trying /program/transactions")

	page, err = fetchPage[Transaction](ctx, t.r, "/program/transactions", pr, nil)
	if err != nil {
		t.logger.Error().Err(err).Msg("alternate transaction listing failed")
		return nil, err
	}
	return page, nil
}

func (t *Transactions) CreatePayment(ctx context.Context, in PaymentInput) (*Payment, error) {
	return fetch[*Payment](ctx, t.r, &Request{Method: http.MethodPost, Path: "/payments", Body: in})
}

func (t *Transactions) GetPayment(ctx context.Context, id string) (*Payment, error) {
	return fetch[*Payment](ctx, t.r, &Request{Path: "/payments/" + escape(id)})
}

func (t *Transactions) ListPaymentsByAccount(ctx context.Context, accountID string, pr PageRequest) (*Page[Payment], error) {
	return fetchPage[Payment](ctx, t.r, "/accounts/"+escape(accountID)+"/payments", pr, nil)
}

func (t *Transactions) ListAllPayments(ctx context.Context, pr PageRequest) (*Page[Payment], error) {
	return fetchPage[Payment](ctx, t.r, "/payments", pr, nil)
}
