package restaurant

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Category is the coarse class of a booking API failure.
type Category string

const (
	CategoryBadParameters Category = "bad_parameters"
	CategoryNotFound      Category = "not_found"
	CategoryConflict      Category = "conflict"
	CategoryTransport     Category = "transport"
)

// Transport failure codes
const (
	CodeTimeout         = "timeout"
	CodeUnavailable     = "unavailable"
	CodeSchemaViolation = "schema_violation"
)

type APIError struct {
	Category Category
	Status   int // 0 when the request never got an HTTP answer
	Code     string
	Detail   string
	// Field is the form field named by a structured validation detail, if any.
	Field string
	Err   error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("booking api %s: %s", e.Category, e.Detail)
	}
	return fmt.Sprintf("booking api %s (status %d): %s", e.Category, e.Status, e.Detail)
}

func (e *APIError) Unwrap() error { return e.Err }

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// apiFieldNames maps API parameter names to form field names.
var apiFieldNames = map[string]string{
	"VisitDate":            "visit_date",
	"VisitTime":            "visit_time",
	"PartySize":            "party_size",
	"SpecialRequests":      "special_requests",
	"Title":                "title",
	"FirstName":            "first_name",
	"Surname":              "surname",
	"Email":                "email",
	"Mobile":               "mobile",
	"bookingReference":     "booking_reference",
	"cancellationReasonId": "cancellation_reason",
}

type validationItem struct {
	Loc  []interface{} `json:"loc"`
	Msg  string        `json:"msg"`
	Type string        `json:"type"`
}

// classifyStatus turns a non-2xx answer into an APIError. The detail may be a
// plain string or a list of structured validation items.
func classifyStatus(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Detail: strings.TrimSpace(string(body))}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Detail) > 0 {
		var text string
		var items []validationItem
		switch {
		case json.Unmarshal(envelope.Detail, &text) == nil:
			apiErr.Detail = text
		case json.Unmarshal(envelope.Detail, &items) == nil && len(items) > 0:
			apiErr.Detail = items[0].Msg
			apiErr.Field = fieldFromLoc(items[0].Loc)
		}
	}

	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		apiErr.Category = CategoryBadParameters
	case status == http.StatusNotFound:
		apiErr.Category = CategoryNotFound
	case status == http.StatusConflict:
		apiErr.Category = CategoryConflict
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		apiErr.Category = CategoryTransport
		apiErr.Code = CodeTimeout
	default:
		apiErr.Category = CategoryTransport
		apiErr.Code = CodeUnavailable
	}
	return apiErr
}

func fieldFromLoc(loc []interface{}) string {
	for i := len(loc) - 1; i >= 0; i-- {
		name, ok := loc[i].(string)
		if !ok {
			continue
		}
		name = strings.TrimSuffix(strings.TrimPrefix(name, "Customer["), "]")
		if f, ok := apiFieldNames[name]; ok {
			return f
		}
	}
	return ""
}
