package square

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies a failed Square call.
type ErrorKind string

const (
	KindAuth        ErrorKind = "auth"
	KindLocation    ErrorKind = "location"
	KindCurrency    ErrorKind = "currency"
	KindAmount      ErrorKind = "amount"
	KindRateLimited ErrorKind = "rate_limited"
	KindNetwork     ErrorKind = "network"
	KindUnknown     ErrorKind = "unknown"
)

// APIError is one entry of Square's errors array.
type APIError struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail"`
	Field    string `json:"field"`
}

type Error struct {
	Kind       ErrorKind
	StatusCode int
	Errors     []APIError
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("square %s error: %v", e.Kind, e.Err)
	}
	if len(e.Errors) > 0 {
		first := e.Errors[0]
		return fmt.Sprintf("square %s error (status %d): %s %s", e.Kind, e.StatusCode, first.Code, first.Detail)
	}
	return fmt.Sprintf("square %s error (status %d)", e.Kind, e.StatusCode)
}

func (e *Error) Unwrap() error { return e.Err }

// classify maps an HTTP status and Square's error entries to a kind. Error
// codes and fields are checked before the status so that a 400 about the
// location is not reported as unknown.
func classify(status int, errs []APIError) ErrorKind {
	for _, e := range errs {
		code := strings.ToUpper(e.Code)
		field := strings.ToLower(e.Field)
		switch {
		case e.Category == "AUTHENTICATION_ERROR", code == "UNAUTHORIZED", code == "ACCESS_TOKEN_EXPIRED",
			code == "ACCESS_TOKEN_REVOKED", code == "INSUFFICIENT_SCOPES", code == "FORBIDDEN":
			return KindAuth
		case e.Category == "RATE_LIMIT_ERROR", code == "RATE_LIMITED":
			return KindRateLimited
		case strings.Contains(field, "location"), strings.Contains(code, "LOCATION"):
			return KindLocation
		case strings.Contains(field, "currency"), strings.Contains(code, "CURRENCY"):
			return KindCurrency
		case strings.Contains(field, "amount"), strings.HasPrefix(code, "AMOUNT_"), code == "INVALID_AMOUNT":
			return KindAmount
		}
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	}
	return KindUnknown
}
