package railsr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// Clients bundles every resource client over one Requester.
type Clients struct {
	Customers    *Customers
	Accounts     *Accounts
	Cards        *Cards
	Transactions *Transactions
	Webhooks     *Webhooks
	Program      *Program
}

// NewClients builds all resource clients on top of r.
func NewClients(r Requester, logger zerolog.Logger) *Clients {
	return &Clients{
		Customers:    NewCustomers(r),
		Accounts:     NewAccounts(r, logger),
		Cards:        NewCards(r),
		Transactions: NewTransactions(r, logger),
		Webhooks:     NewWebhooks(r),
		Program:      NewProgram(r),
	}
}

// fetch executes req and decodes the envelope's data member into T.
func fetch[T any](ctx context.Context, r Requester, req *Request) (T, error) {
	var out T
	if err := checkPath(req.Path); err != nil {
		return out, err
	}
	raw, err := r.Do(ctx, req)
	if err != nil {
		return out, err
	}
	if err := decodeData(raw, &out); err != nil {
		return out, malformed(req, raw, err)
	}
	return out, nil
}

// fetchPage executes a paged list request.
func fetchPage[T any](ctx context.Context, r Requester, path string, pr PageRequest, extra url.Values) (*Page[T], error) {
	query := pr.Values()
	for k, v := range extra {
		query[k] = v
	}
	req := &Request{Method: http.MethodGet, Path: path, Query: query}
	if err := checkPath(path); err != nil {
		return nil, err
	}

	raw, err := r.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	page, err := decodePage[T](raw, pr)
	if err != nil {
		return nil, malformed(req, raw, err)
	}
	return page, nil
}

// exec executes req and discards the response body.
func exec(ctx context.Context, r Requester, req *Request) error {
	if err := checkPath(req.Path); err != nil {
		return err
	}
	_, err := r.Do(ctx, req)
	return err
}

func malformed(req *Request, raw json.RawMessage, err error) *Error {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	return &Error{Kind: KindMalformed, Method: method, Path: req.Path, Raw: raw, Err: err}
}

// Address is a postal address used for customers and card shipping.
type Address struct {
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2,omitempty"`
	City         string `json:"city"`
	Country      string `json:"country"`
	PostalCode   string `json:"postal_code"`
}

// escape encodes id as a single path segment. A blank id yields an empty
// segment, which checkPath rejects.
func escape(id string) string {
	if strings.TrimSpace(id) == "" {
		return ""
	}
	return url.PathEscape(id)
}

// checkPath rejects paths that are relative or contain an empty segment, so
// a missing id can never turn an item request into a collection request.
func checkPath(path string) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	if path != "/" && (strings.HasSuffix(path, "/") || strings.Contains(path, "//")) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return nil
}
