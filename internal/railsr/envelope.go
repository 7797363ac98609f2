package railsr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Envelope is the {data, meta} wrapper used by upstream JSON responses.
type Envelope[T any] struct {
	Data  T          `json:"data"`
	Meta  *Meta      `json:"meta,omitempty"`
	Error *ErrorBody `json:"error,omitempty"`
}

type Meta struct {
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
}

// PageRequest selects a page of a list endpoint. Zero values mean page 1 of
// DefaultPerPage items.
type PageRequest struct {
	Page    int
	PerPage int
}

func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// Values returns the page and per_page query parameters.
func (p PageRequest) Values() url.Values {
	p = p.normalize()
	return url.Values{
		"page":     {strconv.Itoa(p.Page)},
		"per_page": {strconv.Itoa(p.PerPage)},
	}
}

// Page is one page of a list endpoint together with its pagination state.
// TotalPages is never below 1. Paginated is false when upstream sent no
// meta.pagination, in which case Total is only the item count.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	Paginated  bool `json:"-"`
}

// Amount is a monetary value. Upstream sends amounts both as JSON numbers
// and as numeric strings.
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*a = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*a = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("amount %s: %w", s, err)
	}
	*a = Amount(f)
	return nil
}

// Float64 returns the amount as a float64.
func (a Amount) Float64() float64 { return float64(a) }

// decodeData extracts the "data" member of an envelope into out. Bodies with
// no data member are decoded whole, since single-resource endpoints are not
// always wrapped.
func decodeData(raw json.RawMessage, out any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return err
		}
		if string(env.Data) == "[]" {
			// empty 2xx body on a single-resource endpoint leaves out unset
			if v := reflect.ValueOf(out).Elem(); v.Kind() != reflect.Slice {
				v.Set(reflect.Zero(v.Type()))
				return nil
			}
		}
		if len(env.Data) > 0 && string(env.Data) != "null" {
			return json.Unmarshal(env.Data, out)
		}
	}
	return json.Unmarshal(raw, out)
}

// decodePage decodes a list response. A bare JSON array is accepted as an
// unpaginated list.
func decodePage[T any](raw json.RawMessage, req PageRequest) (*Page[T], error) {
	req = req.normalize()
	raw = bytes.TrimSpace(raw)

	var (
		items []T
		pag   *Pagination
	)
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
	} else {
		var env struct {
			Data json.RawMessage `json:"data"`
			Meta *Meta           `json:"meta"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, err
		}
		if len(env.Data) > 0 && string(env.Data) != "null" {
			if err := json.Unmarshal(env.Data, &items); err != nil {
				return nil, err
			}
		}
		if env.Meta != nil {
			pag = env.Meta.Pagination
		}
	}
	if items == nil {
		items = []T{}
	}

	page := &Page[T]{
		Items:      items,
		Total:      len(items),
		TotalPages: 1,
		Page:       req.Page,
		PerPage:    req.PerPage,
	}
	if pag == nil {
		return page, nil
	}

	page.Paginated = true
	page.Total = pag.Total
	if pag.Page > 0 {
		page.Page = pag.Page
	}
	if pag.PerPage > 0 {
		page.PerPage = pag.PerPage
	}
	switch {
	case pag.TotalPages > 0:
		page.TotalPages = pag.TotalPages
	case page.Total > page.PerPage:
		page.TotalPages = (page.Total + page.PerPage - 1) / page.PerPage
	}
	return page, nil
}
