package railsr

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

// routeHandler serves fixed responses keyed by request path.
type routeHandler map[string]struct {
	status int
	body   string
}

func (h routeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp, ok := h[r.URL.Path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"not_found","message":"no route"}}`))
		return
	}
	if resp.status != 0 {
		w.WriteHeader(resp.status)
	}
	w.Write([]byte(resp.body))
}

func TestAccounts_CreateSendsSnakeCase(t *testing.T) {
	var method, path string
	var body map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &body); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"acc_1","customer_id":"cust_1","account_type":"current","currency":"RUB","balance":"0.00"}}`))
	})

	accounts := NewAccounts(client, zerolog.Nop())
	acc, err := accounts.Create(context.Background(), AccountInput{
		CustomerID:  "cust_1",
		AccountType: "current",
		Currency:    "RUB",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if method != http.MethodPost || path != "/accounts" {
		t.Errorf("request = %s %s, want POST /accounts", method, path)
	}
	want := map[string]any{"customer_id": "cust_1", "account_type": "current", "currency": "RUB"}
	if !reflect.DeepEqual(body, want) {
		t.Errorf("body = %v, want %v", body, want)
	}
	if acc.ID != "acc_1" {
		t.Errorf("ID = %q, want acc_1", acc.ID)
	}
}

func TestList_MissingPaginationDefaultsToOnePage(t *testing.T) {
	client, _ := newTestClient(t, routeHandler{
		"/customers": {body: `{"data":[{"id":"c1"},{"id":"c2"}]}`},
	}.ServeHTTP)

	page, err := NewCustomers(client).List(context.Background(), PageRequest{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.TotalPages != 1 {
		t.Errorf("TotalPages = %d, want 1", page.TotalPages)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Errorf("Total = %d, items = %d, want 2 and 2", page.Total, len(page.Items))
	}
	if page.Page != 1 || page.PerPage != DefaultPerPage {
		t.Errorf("page = %d/%d, want 1/%d", page.Page, page.PerPage, DefaultPerPage)
	}
}

func TestList_Pagination(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		wantTotal      int
		wantTotalPages int
	}{
		{
			name:           "reported total pages",
			body:           `{"data":[{"id":"w1"}],"meta":{"pagination":{"total":41,"total_pages":3}}}`,
			wantTotal:      41,
			wantTotalPages: 3,
		},
		{
			name:           "total pages derived from total",
			body:           `{"data":[{"id":"w1"}],"meta":{"pagination":{"total":41}}}`,
			wantTotal:      41,
			wantTotalPages: 3,
		},
		{
			name:           "empty meta",
			body:           `{"data":[],"meta":{}}`,
			wantTotal:      0,
			wantTotalPages: 1,
		},
		{
			name:           "empty body",
			body:           ``,
			wantTotal:      0,
			wantTotalPages: 1,
		},
		{
			name:           "bare array",
			body:           `[{"id":"w1"},{"id":"w2"}]`,
			wantTotal:      2,
			wantTotalPages: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, routeHandler{"/webhooks": {body: tt.body}}.ServeHTTP)

			page, err := NewWebhooks(client).List(context.Background(), PageRequest{Page: 1, PerPage: 20})
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if page.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", page.Total, tt.wantTotal)
			}
			if page.TotalPages != tt.wantTotalPages {
				t.Errorf("TotalPages = %d, want %d", page.TotalPages, tt.wantTotalPages)
			}
			if page.Items == nil {
				t.Error("Items must not be nil")
			}
		})
	}
}

func TestList_WrongShapeIsMalformed(t *testing.T) {
	client, _ := newTestClient(t, routeHandler{"/cards": {body: `{"data":{"id":"not-a-list"}}`}}.ServeHTTP)

	_, err := NewCards(client).ListAll(context.Background(), PageRequest{}, "")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestCustomers_GetIsRepeatable(t *testing.T) {
	client, _ := newTestClient(t, routeHandler{
		"/customers/c1": {body: `{"data":{"id":"c1","first_name":"Anna","last_name":"Ivanova","email":"anna@example.com"}}`},
	}.ServeHTTP)
	customers := NewCustomers(client)

	first, err := customers.Get(context.Background(), "c1")
	if err != nil {
		t.Fatalf("first Get() error = %v", err)
	}
	second, err := customers.Get(context.Background(), "c1")
	if err != nil {
		t.Fatalf("second Get() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated Get differs: %+v vs %+v", first, second)
	}
	if first.FullName() != "Anna Ivanova" {
		t.Errorf("FullName() = %q", first.FullName())
	}
}

func TestCustomers_SubmitKYC(t *testing.T) {
	var path string
	var body map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)
		w.Write([]byte(`{"data":{"status":"pending"}}`))
	})

	status, err := NewCustomers(client).SubmitKYC(context.Background(), KYCDocument{
		CustomerID:    "c1",
		DocumentType:  "passport",
		DocumentFront: "ZnJvbnQ=",
	})
	if err != nil {
		t.Fatalf("SubmitKYC() error = %v", err)
	}
	if path != "/customers/c1/kyc" {
		t.Errorf("path = %s", path)
	}
	if _, ok := body["customer_id"]; ok {
		t.Error("customer id belongs in the path, not the body")
	}
	if body["document_type"] != "passport" {
		t.Errorf("document_type = %v", body["document_type"])
	}
	if status.Status != "pending" {
		t.Errorf("Status = %q", status.Status)
	}
}

func TestAccounts_Balances(t *testing.T) {
	t.Run("dedicated endpoint", func(t *testing.T) {
		client, _ := newTestClient(t, routeHandler{
			"/accounts/balances/by-currency": {body: `{"data":[{"currency":"USD","total_balance":"3500.50"}]}`},
		}.ServeHTTP)

		balances, err := NewAccounts(client, zerolog.Nop()).Balances(context.Background())
		if err != nil {
			t.Fatalf("Balances() error = %v", err)
		}
		if len(balances) != 1 || balances[0].Value() != 3500.50 {
			t.Errorf("balances = %+v", balances)
		}
	})

	t.Run("falls back to summing accounts", func(t *testing.T) {
		var perPage string
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/accounts/balances/by-currency":
				w.WriteHeader(http.StatusNotFound)
			case "/accounts":
				perPage = r.URL.Query().Get("per_page")
				w.Write([]byte(`{"data":[
					{"id":"a1","currency":"RUB","balance":"100.5"},
					{"id":"a2","currency":"EUR","balance":20},
					{"id":"a3","currency":"RUB","balance":50},
					{"id":"a4","currency":"USD","balance":0},
					{"id":"a5","balance":10}
				]}`))
			}
		})

		balances, err := NewAccounts(client, zerolog.Nop()).Balances(context.Background())
		if err != nil {
			t.Fatalf("Balances() error = %v", err)
		}
		if perPage != "100" {
			t.Errorf("per_page = %q, want 100", perPage)
		}
		want := []CurrencyBalance{
			{Currency: "RUB", TotalBalance: 150.5},
			{Currency: "EUR", TotalBalance: 20},
		}
		if !reflect.DeepEqual(balances, want) {
			t.Errorf("balances = %+v, want %+v", balances, want)
		}
	})

	t.Run("both failing yields empty list", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		balances, err := NewAccounts(client, zerolog.Nop()).Balances(context.Background())
		if err != nil {
			t.Fatalf("Balances() error = %v", err)
		}
		if balances == nil || len(balances) != 0 {
			t.Errorf("balances = %#v, want empty non-nil slice", balances)
		}
	})
}

func TestTransactions_ListAllFallback(t *testing.T) {
	t.Run("alternate endpoint", func(t *testing.T) {
		client, _ := newTestClient(t, routeHandler{
			"/transactions":         {status: http.StatusForbidden, body: `{"message":"forbidden"}`},
			"/program/transactions": {body: `{"data":[{"id":"t1","amount":12.5,"currency":"EUR"}],"meta":{"pagination":{"total":47,"total_pages":47}}}`},
		}.ServeHTTP)

		page, err := NewTransactions(client, zerolog.Nop()).ListAll(context.Background(), PageRequest{Page: 1, PerPage: 1})
		if err != nil {
			t.Fatalf("ListAll() error = %v", err)
		}
		if page.Total != 47 || page.Items[0].Amount != 12.5 {
			t.Errorf("page = %+v", page)
		}
	})

	t.Run("both failing returns the alternate error", func(t *testing.T) {
		client, _ := newTestClient(t, routeHandler{
			"/transactions": {status: http.StatusForbidden, body: `{"message":"forbidden"}`},
		}.ServeHTTP)

		_, err := NewTransactions(client, zerolog.Nop()).ListAll(context.Background(), PageRequest{})
		var apiErr *Error
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *Error, got %v", err)
		}
		if apiErr.Path != "/program/transactions" || apiErr.Status != http.StatusNotFound {
			t.Errorf("error = %s %d, want the alternate endpoint's 404", apiErr.Path, apiErr.Status)
		}
	})
}

func TestCards_ListAllTypeFilter(t *testing.T) {
	var query string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Write([]byte(`{"data":[]}`))
	})
	cards := NewCards(client)

	if _, err := cards.ListAll(context.Background(), PageRequest{}, "virtual"); err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if query != "card_type=virtual&page=1&per_page=20" {
		t.Errorf("query = %s", query)
	}

	if _, err := cards.ListAll(context.Background(), PageRequest{Page: 3, PerPage: 500}, ""); err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if query != "page=3&per_page=100" {
		t.Errorf("query = %s", query)
	}
}

func TestCards_Actions(t *testing.T) {
	var requests []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		requests = append(requests, r.Method+" "+r.URL.Path+" "+string(data))
		w.WriteHeader(http.StatusNoContent)
	})
	cards := NewCards(client)
	ctx := context.Background()

	if _, err := cards.Activate(ctx, "k1"); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if _, err := cards.Block(ctx, "k1", "lost"); err != nil {
		t.Fatalf("Block() error = %v", err)
	}
	if _, err := cards.SetLimit(ctx, "k1", CardLimit{LimitType: "daily", Amount: 500, Currency: "EUR"}); err != nil {
		t.Fatalf("SetLimit() error = %v", err)
	}

	want := []string{
		"POST /cards/k1/activate ",
		`POST /cards/k1/block {"reason":"lost"}`,
		`POST /cards/k1/limits {"limit_type":"daily","amount":500,"currency":"EUR"}`,
	}
	if !reflect.DeepEqual(requests, want) {
		t.Errorf("requests = %q, want %q", requests, want)
	}
}

func TestWebhooks_DeleteAndEventTypes(t *testing.T) {
	var deletes atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete && r.URL.Path == "/webhooks/wh1":
			deletes.Add(1)
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/webhooks/event_types":
			w.Write([]byte(`{"data":["card.created",{"name":"transaction.settled","description":"Settled"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	webhooks := NewWebhooks(client)

	if err := webhooks.Delete(context.Background(), "wh1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deletes.Load() != 1 {
		t.Errorf("deletes = %d, want 1", deletes.Load())
	}

	types, err := webhooks.EventTypes(context.Background())
	if err != nil {
		t.Fatalf("EventTypes() error = %v", err)
	}
	want := []EventType{{Name: "card.created"}, {Name: "transaction.settled", Description: "Settled"}}
	if !reflect.DeepEqual(types, want) {
		t.Errorf("types = %+v, want %+v", types, want)
	}
}

func TestProgram_TestConnection(t *testing.T) {
	client, _ := newTestClient(t, routeHandler{"/program": {body: `{"data":{"id":"prog-1","name":"Demo"}}`}}.ServeHTTP)
	result := NewProgram(client).TestConnection(context.Background())
	if !result.Success || result.Data.Name != "Demo" {
		t.Errorf("result = %+v", result)
	}

	failing, _ := newTestClient(t, routeHandler{}.ServeHTTP)
	result = NewProgram(failing).TestConnection(context.Background())
	if result.Success || result.Kind != KindUpstream || result.Error == "" {
		t.Errorf("result = %+v", result)
	}
}

func TestAccount_CustomerLabel(t *testing.T) {
	tests := []struct {
		acc  Account
		want string
	}{
		{Account{CustomerID: "c1", CustomerName: "Anna"}, "Anna"},
		{Account{CustomerID: "c1"}, "Customer c1"},
		{Account{}, "Unknown customer"},
	}
	for _, tt := range tests {
		if got := tt.acc.CustomerLabel(); got != tt.want {
			t.Errorf("CustomerLabel() = %q, want %q", got, tt.want)
		}
	}
}

func TestAmount_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    Amount
		wantErr bool
	}{
		{`12.5`, 12.5, false},
		{`"250000.00"`, 250000, false},
		{`""`, 0, false},
		{`null`, 0, false},
		{`"abc"`, 0, true},
	}
	for _, tt := range tests {
		var a Amount
		err := json.Unmarshal([]byte(tt.in), &a)
		if (err != nil) != tt.wantErr {
			t.Errorf("Unmarshal(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && a != tt.want {
			t.Errorf("Unmarshal(%s) = %v, want %v", tt.in, a, tt.want)
		}
	}
}

func TestParseErrorBody(t *testing.T) {
	tests := []struct {
		in   string
		want *ErrorBody
	}{
		{``, nil},
		{`{"error":"bad key"}`, &ErrorBody{Message: "bad key"}},
		{`{"error":{"code":"E1","message":"nope"}}`, &ErrorBody{Code: "E1", Message: "nope"}},
		{`{"message":"plain"}`, &ErrorBody{Message: "plain"}},
		{`{"unexpected":true}`, &ErrorBody{Message: `{"unexpected":true}`}},
		{`Service Unavailable`, &ErrorBody{Message: "Service Unavailable"}},
	}
	for _, tt := range tests {
		got := parseErrorBody([]byte(tt.in))
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseErrorBody(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestResources_BlankIDRejected(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"data":{}}`))
	})
	c := NewClients(client, zerolog.Nop())
	ctx := context.Background()

	tests := []struct {
		name string
		call func(id string) error
	}{
		{"customers get", func(id string) error { _, err := c.Customers.Get(ctx, id); return err }},
		{"customers update", func(id string) error { _, err := c.Customers.Update(ctx, id, CustomerInput{}); return err }},
		{"customers submit kyc", func(id string) error {
			_, err := c.Customers.SubmitKYC(ctx, KYCDocument{CustomerID: id})
			return err
		}},
		{"customers kyc status", func(id string) error { _, err := c.Customers.KYCStatus(ctx, id); return err }},
		{"accounts get", func(id string) error { _, err := c.Accounts.Get(ctx, id); return err }},
		{"accounts by customer", func(id string) error {
			_, err := c.Accounts.ListByCustomer(ctx, id, PageRequest{})
			return err
		}},
		{"accounts balance", func(id string) error { _, err := c.Accounts.Balance(ctx, id); return err }},
		{"accounts statement", func(id string) error {
			_, err := c.Accounts.Statement(ctx, id, "2024-01-01", "2024-01-31")
			return err
		}},
		{"accounts close", func(id string) error { _, err := c.Accounts.Close(ctx, id, "requested"); return err }},
		{"accounts details", func(id string) error { _, err := c.Accounts.Details(ctx, id); return err }},
		{"accounts ledger", func(id string) error { _, err := c.Accounts.Ledger(ctx, id, PageRequest{}); return err }},
		{"cards get", func(id string) error { _, err := c.Cards.Get(ctx, id); return err }},
		{"cards by customer", func(id string) error { _, err := c.Cards.ListByCustomer(ctx, id, PageRequest{}); return err }},
		{"cards activate", func(id string) error { _, err := c.Cards.Activate(ctx, id); return err }},
		{"cards block", func(id string) error { _, err := c.Cards.Block(ctx, id, "lost"); return err }},
		{"cards unblock", func(id string) error { _, err := c.Cards.Unblock(ctx, id); return err }},
		{"cards set limit", func(id string) error { _, err := c.Cards.SetLimit(ctx, id, CardLimit{}); return err }},
		{"cards limits", func(id string) error { _, err := c.Cards.Limits(ctx, id); return err }},
		{"cards pin", func(id string) error { _, err := c.Cards.RequestPIN(ctx, id); return err }},
		{"transactions get", func(id string) error { _, err := c.Transactions.Get(ctx, id); return err }},
		{"transactions by account", func(id string) error {
			_, err := c.Transactions.ListByAccount(ctx, id, PageRequest{})
			return err
		}},
		{"payments get", func(id string) error { _, err := c.Transactions.GetPayment(ctx, id); return err }},
		{"payments by account", func(id string) error {
			_, err := c.Transactions.ListPaymentsByAccount(ctx, id, PageRequest{})
			return err
		}},
		{"webhooks get", func(id string) error { _, err := c.Webhooks.Get(ctx, id); return err }},
		{"webhooks update", func(id string) error { _, err := c.Webhooks.Update(ctx, id, WebhookInput{}); return err }},
		{"webhooks delete", func(id string) error { return c.Webhooks.Delete(ctx, id) }},
		{"webhooks test", func(id string) error { _, err := c.Webhooks.Test(ctx, id, "transaction.completed"); return err }},
		{"webhooks events", func(id string) error { _, err := c.Webhooks.Events(ctx, id, PageRequest{}); return err }},
	}

	for _, tt := range tests {
		for _, id := range []string{"", "  "} {
			t.Run(tt.name, func(t *testing.T) {
				if err := tt.call(id); !errors.Is(err, ErrInvalidPath) {
					t.Errorf("id %q: expected ErrInvalidPath, got %v", id, err)
				}
			})
		}
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("upstream received %d requests, want 0", n)
	}
}

func TestCheckPath(t *testing.T) {
	tests := []struct {
		path string
		ok   bool
	}{
		{"/customers", true},
		{"/customers/c%201/kyc", true},
		{"/", true},
		{"customers", false},
		{"/webhooks/", false},
		{"/customers//kyc", false},
	}
	for _, tt := range tests {
		err := checkPath(tt.path)
		if (err == nil) != tt.ok {
			t.Errorf("checkPath(%q) error = %v, want ok=%v", tt.path, err, tt.ok)
		}
	}
}

func TestGet_EmptyBodyReturnsNil(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	c := NewClients(client, zerolog.Nop())

	customer, err := c.Customers.Get(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if customer != nil {
		t.Errorf("Get() = %+v, want nil", customer)
	}

	limits, err := c.Cards.Limits(context.Background(), "k1")
	if err != nil {
		t.Fatalf("Limits() error = %v", err)
	}
	if limits == nil || len(limits) != 0 {
		t.Errorf("Limits() = %#v, want empty slice", limits)
	}
}
