package railsr

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failed upstream call.
type ErrorKind string

const (
	KindConfiguration ErrorKind = "configuration_error"
	KindTimeout       ErrorKind = "timeout"
	KindNetwork       ErrorKind = "network_error"
	KindUpstream      ErrorKind = "upstream_error"
	KindMalformed     ErrorKind = "malformed_response"
)

// Sentinels for errors.Is. Every *Error matches exactly one of them.
var (
	ErrConfiguration     = errors.New("railsr: api key and program id are required")
	ErrTimeout           = errors.New("railsr: request timed out")
	ErrNetwork           = errors.New("railsr: network failure")
	ErrUpstream          = errors.New("railsr: upstream returned an error")
	ErrMalformedResponse = errors.New("railsr: malformed response body")
)

// ErrInvalidPath is returned for request paths that are relative or have an
// empty segment, such as an item path built from a blank id.
var ErrInvalidPath = errors.New("railsr: invalid request path")

func (k ErrorKind) sentinel() error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindTimeout:
		return ErrTimeout
	case KindNetwork:
		return ErrNetwork
	case KindUpstream:
		return ErrUpstream
	case KindMalformed:
		return ErrMalformedResponse
	}
	return nil
}

// ErrorBody is the error payload reported by the upstream API.
type ErrorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Error is the single error type produced by Client. Resource clients
// propagate it unchanged.
type Error struct {
	Kind   ErrorKind
	Method string
	Path   string

	// Status and Body are set for KindUpstream. Raw holds the response
	// body for KindUpstream and KindMalformed.
	Status int
	Body   *ErrorBody
	Raw    []byte

	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("railsr: ")
	if e.Method != "" {
		fmt.Fprintf(&b, "%s %s: ", e.Method, e.Path)
	}

	switch e.Kind {
	case KindConfiguration:
		b.WriteString("api key and program id are required")
	case KindTimeout:
		b.WriteString("request timed out")
	case KindNetwork:
		b.WriteString("network failure")
	case KindUpstream:
		fmt.Fprintf(&b, "upstream returned %d", e.Status)
		if e.Body != nil && e.Body.Message != "" {
			b.WriteString(": ")
			b.WriteString(e.Body.Message)
		}
	case KindMalformed:
		b.WriteString("malformed response body")
	default:
		b.WriteString("request failed")
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Retryable reports whether repeating the same call may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindNetwork:
		return true
	case KindUpstream:
		return e.Status >= 500
	}
	return false
}

// KindOf returns the classification of err, or "" if err did not come from
// this package.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// parseErrorBody probes the known upstream error shapes:
// {"error":{"code","message"}}, {"error":"..."}, {"code","message"} and
// finally non-JSON text, which becomes the message verbatim.
func parseErrorBody(raw []byte) *ErrorBody {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil
	}

	var probe struct {
		Error   json.RawMessage `json:"error"`
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return &ErrorBody{Message: text}
	}

	if len(probe.Error) > 0 && string(probe.Error) != "null" {
		var nested struct {
			Code    json.RawMessage `json:"code"`
			Message string          `json:"message"`
		}
		if err := json.Unmarshal(probe.Error, &nested); err == nil {
			return &ErrorBody{Code: scalarString(nested.Code), Message: nested.Message}
		}
		var msg string
		if err := json.Unmarshal(probe.Error, &msg); err == nil {
			return &ErrorBody{Message: msg}
		}
	}

	if probe.Message != "" || len(probe.Code) > 0 {
		return &ErrorBody{Code: scalarString(probe.Code), Message: probe.Message}
	}
	return &ErrorBody{Message: text}
}

// scalarString renders a JSON string or number without quotes.
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
