package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

type ResendConfig struct {
	APIKey  string
	From    string
	BaseURL string
	Timeout time.Duration
}

type Resend struct {
	from   string
	client *resend.Client
}

func NewResend(cfg ResendConfig) *Resend {
	r := &Resend{from: cfg.From}
	if cfg.APIKey == "" {
		return r
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	r.client = resend.NewCustomClient(&http.Client{Timeout: timeout}, cfg.APIKey)
	if cfg.BaseURL != "" {
		// the SDK resolves "emails" against the base, so keep the trailing slash
		if u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/"); err == nil {
			r.client.BaseURL = u
		}
	}
	return r
}

func (r *Resend) SendEmail(ctx context.Context, msg Email) (string, error) {
	if r.client == nil || r.from == "" {
		return "", ErrNotConfigured
	}
	if len(msg.To) == 0 {
		return "", errors.New("resend: no recipients")
	}
	sent, err := r.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    r.from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: msg.ReplyTo,
	})
	if err != nil {
		return "", fmt.Errorf("resend: %w", err)
	}
	if sent.Id == "" {
		return "", errors.New("resend: response has no id")
	}
	return sent.Id, nil
}
