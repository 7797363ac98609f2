package railsr

import (
	"context"
	"net/http"
)

type Customer struct {
	ID          string         `json:"id"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	Email       string         `json:"email"`
	PhoneNumber string         `json:"phone_number,omitempty"`
	DateOfBirth string         `json:"date_of_birth,omitempty"`
	Address     *Address       `json:"address,omitempty"`
	Status      string         `json:"status,omitempty"`
	KYCStatus   string         `json:"kyc_status,omitempty"`
	CreatedAt   string         `json:"created_at,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// FullName joins first and last name.
func (c Customer) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// CustomerInput is the body for creating or partially updating a customer.
// Empty fields are omitted.
type CustomerInput struct {
	FirstName   string         `json:"first_name,omitempty"`
	LastName    string         `json:"last_name,omitempty"`
	Email       string         `json:"email,omitempty"`
	DateOfBirth string         `json:"date_of_birth,omitempty"`
	PhoneNumber string         `json:"phone_number,omitempty"`
	Address     *Address       `json:"address,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// KYCDocument is a document submission for identity verification. Images
// are base64 encoded.
type KYCDocument struct {
	CustomerID    string `json:"-"`
	DocumentType  string `json:"document_type"` // passport, driving_license, identity_card
	DocumentFront string `json:"document_front"`
	DocumentBack  string `json:"document_back,omitempty"`
	Selfie        string `json:"selfie,omitempty"`
}

type KYCStatus struct {
	CustomerID string `json:"customer_id,omitempty"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

// Customers wraps the /customers endpoints.
type Customers struct {
	r Requester
}

func NewCustomers(r Requester) *Customers {
	return &Customers{r: r}
}

func (c *Customers) Create(ctx context.Context, in CustomerInput) (*Customer, error) {
	return fetch[*Customer](ctx, c.r, &Request{Method: http.MethodPost, Path: "/customers", Body: in})
}

func (c *Customers) Get(ctx context.Context, id string) (*Customer, error) {
	return fetch[*Customer](ctx, c.r, &Request{Path: "/customers/" + escape(id)})
}

func (c *Customers) Update(ctx context.Context, id string, in CustomerInput) (*Customer, error) {
	return fetch[*Customer](ctx, c.r, &Request{Method: http.MethodPatch, Path: "/customers/" + escape(id), Body: in})
}

func (c *Customers) List(ctx context.Context, pr PageRequest) (*Page[Customer], error) {
	return fetchPage[Customer](ctx, c.r, "/customers", pr, nil)
}

func (c *Customers) SubmitKYC(ctx context.Context, doc KYCDocument) (*KYCStatus, error) {
	return fetch[*KYCStatus](ctx, c.r, &Request{
		Method: http.MethodPost,
		Path:   "/customers/" + escape(doc.CustomerID) + "/kyc",
		Body:   doc,
	})
}

func (c *Customers) KYCStatus(ctx context.Context, id string) (*KYCStatus, error) {
	return fetch[*KYCStatus](ctx, c.r, &Request{Path: "/customers/" + escape(id) + "/kyc"})
}
