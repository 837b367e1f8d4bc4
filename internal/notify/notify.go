// Package notify sends transactional email through Resend and SMS through
// Twilio.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const defaultHTTPTimeout = 15 * time.Second

var ErrNotConfigured = errors.New("notification provider not configured")

type Email struct {
	To      []string
	Subject string
	HTML    string
	Text    string
	ReplyTo string
}

// Emailer returns the provider message id.
type Emailer interface {
	SendEmail(ctx context.Context, msg Email) (string, error)
}

// Texter returns the provider message sid.
type Texter interface {
	SendSMS(ctx context.Context, to, body string) (string, error)
}

// ProviderError is a non-2xx answer from a provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}
