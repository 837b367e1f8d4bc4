// Package invoicenotify sends invoices and paid receipts to customers,
// alerts the workspace, and keeps the invoice event log.
package invoicenotify

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"ledgerflow/internal/logger"
	"ledgerflow/internal/metrics"
	"ledgerflow/internal/notify"
	"ledgerflow/internal/workspaces"
	"ledgerflow/models"
)

var ErrNotFound = errors.New("invoice not found")

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{7,14}$`)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

type Config struct {
	AppBaseURL  string
	AlertEmails []string
}

type Service struct {
	db      *gorm.DB
	email   notify.Emailer
	sms     notify.Texter
	cfg     Config
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

func NewService(db *gorm.DB, email notify.Emailer, sms notify.Texter, cfg Config, m *metrics.Metrics) *Service {
	return &Service{
		db:      db,
		email:   email,
		sms:     sms,
		cfg:     cfg,
		metrics: m,
		log:     logger.WithComponent("invoicenotify"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// NormalizePhone strips separators and returns the number if it looks like
// E.164.
func NormalizePhone(raw string) (string, bool) {
	p := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, raw)
	if !phonePattern.MatchString(p) {
		return "", false
	}
	return p, true
}

// Attempt is the outcome of one channel of a dispatch.
type Attempt struct {
	Channel    string
	To         string
	ProviderID string
	Err        error
}

func (a Attempt) OK() bool { return a.Err == nil }

type DispatchResult struct {
	Attempts   []Attempt
	MarkedSent bool
}

func (s *Service) load(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }).
		Preload("Customer").
		Preload("Workspace").
		Where("id = ?", invoiceID).
		Take(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// DispatchInvoice emails and texts the invoice to its customer. Email and
// SMS run concurrently and fail independently. Each attempt is logged as an
// event; a DRAFT invoice moves to SENT if at least one attempt succeeded.
func (s *Service) DispatchInvoice(ctx context.Context, invoiceID, paymentLinkURL string) (*DispatchResult, error) {
	inv, err := s.load(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if paymentLinkURL == "" {
		paymentLinkURL = inv.PaymentLinkURL
	}
	v := s.view(inv, paymentLinkURL)
	l := s.log.With().Str("invoice_id", inv.ID).Str("number", inv.Number).Logger()

	var emailAttempt, smsAttempt *Attempt
	var g errgroup.Group

	if inv.Customer != nil && strings.TrimSpace(inv.Customer.Email) != "" {
		emailAttempt = &Attempt{Channel: ChannelEmail, To: strings.TrimSpace(inv.Customer.Email)}
		g.Go(func() error {
			emailAttempt.ProviderID, emailAttempt.Err = s.sendInvoiceEmail(ctx, emailAttempt.To, v)
			return nil
		})
	}
	if inv.Customer != nil {
		if phone, ok := NormalizePhone(inv.Customer.Phone); ok {
			smsAttempt = &Attempt{Channel: ChannelSMS, To: phone}
			g.Go(func() error {
				smsAttempt.ProviderID, smsAttempt.Err = s.sendInvoiceSMS(ctx, phone, v)
				return nil
			})
		} else if inv.Customer.Phone != "" {
			l.Info().Str("phone", inv.Customer.Phone).Msg("customer phone not valid for sms")
		}
	}
	_ = g.Wait()

	res := &DispatchResult{}
	for _, a := range []*Attempt{emailAttempt, smsAttempt} {
		if a != nil {
			res.Attempts = append(res.Attempts, *a)
		}
	}
	if len(res.Attempts) == 0 {
		l.Warn().Msg("invoice has no reachable customer contact")
		return res, nil
	}

	anySent := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, a := range res.Attempts {
			typ := models.EventSentEmail
			if a.Channel == ChannelSMS {
				typ = models.EventSentSMS
			}
			detail := datatypes.JSONMap{"to": a.To}
			status := models.EventSuccess
			if a.OK() {
				detail["providerId"] = a.ProviderID
				anySent = true
			} else {
				status = models.EventFailed
				detail["error"] = a.Err.Error()
			}
			if err := appendEvent(tx, inv.ID, typ, status, a.Channel, detail); err != nil {
				return err
			}
		}
		if !anySent {
			return nil
		}
		upd := tx.Model(&models.Invoice{}).
			Where("id = ? AND status = ?", inv.ID, models.InvoiceStatusDraft).
			Updates(map[string]any{"status": models.InvoiceStatusSent, "sent_at": s.now()})
		if upd.Error != nil {
			return upd.Error
		}
		res.MarkedSent = upd.RowsAffected == 1
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record dispatch: %w", err)
	}

	for _, a := range res.Attempts {
		status := string(models.EventSuccess)
		evt := l.Info()
		if !a.OK() {
			status = string(models.EventFailed)
			evt = l.Error().Err(a.Err)
		}
		s.metrics.Notification(a.Channel, status)
		evt.Str("channel", a.Channel).Str("provider_id", a.ProviderID).Msg("invoice dispatch attempt")
	}
	return res, nil
}

func (s *Service) sendInvoiceEmail(ctx context.Context, to string, v invoiceView) (string, error) {
	if s.email == nil {
		return "", notify.ErrNotConfigured
	}
	html, err := renderHTML(invoiceHTML, v)
	if err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	text, err := renderText(invoiceText, v)
	if err != nil {
		return "", fmt.Errorf("render text: %w", err)
	}
	return s.email.SendEmail(ctx, notify.Email{
		To:      []string{to},
		Subject: fmt.Sprintf("Invoice %s from %s", v.Number, v.Company),
		HTML:    html,
		Text:    text,
		ReplyTo: v.CompanyEmail,
	})
}

func (s *Service) sendInvoiceSMS(ctx context.Context, to string, v invoiceView) (string, error) {
	if s.sms == nil {
		return "", notify.ErrNotConfigured
	}
	body, err := renderText(smsText, v)
	if err != nil {
		return "", fmt.Errorf("render sms: %w", err)
	}
	return s.sms.SendSMS(ctx, to, body)
}

// NotifyInvoicePaid sends the customer receipt and the workspace alert at
// most once per invoice. The paidNotifiedAt claim is taken before sending,
// so a failed send is not retried. It reports whether this call claimed it.
func (s *Service) NotifyInvoicePaid(ctx context.Context, invoiceID string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ? AND paid_notified_at IS NULL", invoiceID).
		Update("paid_notified_at", s.now())
	if res.Error != nil {
		return false, fmt.Errorf("claim paid notification: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	inv, err := s.load(ctx, invoiceID)
	if err != nil {
		return true, err
	}
	v := s.view(inv, "")
	l := s.log.With().Str("invoice_id", inv.ID).Str("number", inv.Number).Logger()
	detail := datatypes.JSONMap{}
	sent, failed := 0, 0

	if inv.Customer != nil && inv.Customer.Email != "" {
		id, err := s.sendReceipt(ctx, inv.Customer.Email, v)
		if err != nil {
			failed++
			detail["receiptError"] = err.Error()
			l.Error().Err(err).Msg("paid receipt failed")
			s.metrics.Notification(ChannelEmail, string(models.EventFailed))
		} else {
			sent++
			detail["receiptId"] = id
			s.metrics.Notification(ChannelEmail, string(models.EventSuccess))
		}
	}

	alertID, recipients, err := s.sendAlert(ctx, inv, v, fmt.Sprintf("%s paid invoice %s", v.Customer, inv.Number))
	switch {
	case err != nil:
		failed++
		detail["alertError"] = err.Error()
		l.Error().Err(err).Msg("paid alert failed")
	case len(recipients) > 0:
		sent++
		detail["alertId"] = alertID
		detail["alertRecipients"] = recipients
	}

	status := models.EventSuccess
	if failed > 0 && sent == 0 {
		status = models.EventFailed
	}
	if err := appendEvent(s.db.WithContext(ctx), inv.ID, models.EventPaidAlert, status, ChannelEmail, detail); err != nil {
		return true, err
	}
	l.Info().Int("sent", sent).Int("failed", failed).Msg("paid notifications sent")
	return true, nil
}

func (s *Service) sendReceipt(ctx context.Context, to string, v invoiceView) (string, error) {
	if s.email == nil {
		return "", notify.ErrNotConfigured
	}
	html, err := renderHTML(receiptHTML, v)
	if err != nil {
		return "", err
	}
	text, err := renderText(receiptText, v)
	if err != nil {
		return "", err
	}
	return s.email.SendEmail(ctx, notify.Email{
		To:      []string{to},
		Subject: fmt.Sprintf("Receipt for invoice %s", v.Number),
		HTML:    html,
		Text:    text,
		ReplyTo: v.CompanyEmail,
	})
}

// sendAlert emails the workspace alert recipients. No recipients is not an
// error.
func (s *Service) sendAlert(ctx context.Context, inv *models.Invoice, v invoiceView, headline string) (string, []string, error) {
	recipients, err := workspaces.AlertRecipients(ctx, s.db, inv.WorkspaceID, s.cfg.AlertEmails)
	if err != nil {
		return "", nil, fmt.Errorf("alert recipients: %w", err)
	}
	if len(recipients) == 0 {
		return "", nil, nil
	}
	if s.email == nil {
		return "", recipients, notify.ErrNotConfigured
	}
	text, err := renderText(alertText, alertView{invoiceView: v, Headline: headline})
	if err != nil {
		return "", recipients, err
	}
	id, err := s.email.SendEmail(ctx, notify.Email{
		To:      recipients,
		Subject: headline,
		Text:    text,
	})
	status := models.EventSuccess
	if err != nil {
		status = models.EventFailed
	}
	s.metrics.Notification("alert", string(status))
	return id, recipients, err
}

// RecordInvoiceOpen stamps lastOpenedAt on every hit and firstOpenedAt once.
// Only the call that sets firstOpenedAt alerts the workspace.
func (s *Service) RecordInvoiceOpen(ctx context.Context, invoiceID string, detail map[string]any) (first bool, err error) {
	now := s.now()
	db := s.db.WithContext(ctx)

	var exists int64
	if err := db.Model(&models.Invoice{}).Where("id = ?", invoiceID).Count(&exists).Error; err != nil {
		return false, err
	}
	if exists == 0 {
		return false, ErrNotFound
	}
	if err := db.Model(&models.Invoice{}).Where("id = ?", invoiceID).Update("last_opened_at", now).Error; err != nil {
		return false, err
	}
	claim := db.Model(&models.Invoice{}).
		Where("id = ? AND first_opened_at IS NULL", invoiceID).
		Update("first_opened_at", now)
	if claim.Error != nil {
		return false, claim.Error
	}
	first = claim.RowsAffected == 1

	d := datatypes.JSONMap{}
	for k, v := range detail {
		d[k] = v
	}
	d["first"] = first
	if err := appendEvent(db, invoiceID, models.EventOpened, models.EventSuccess, "", d); err != nil {
		return first, err
	}
	if !first {
		return false, nil
	}

	inv, err := s.load(ctx, invoiceID)
	if err != nil {
		return true, err
	}
	v := s.view(inv, "")
	id, recipients, err := s.sendAlert(ctx, inv, v, fmt.Sprintf("%s opened invoice %s", v.Customer, inv.Number))
	if len(recipients) == 0 && err == nil {
		return true, nil
	}
	alert := datatypes.JSONMap{"to": recipients, "reason": "first_open"}
	status := models.EventSuccess
	if err != nil {
		status = models.EventFailed
		alert["error"] = err.Error()
		s.log.Error().Err(err).Str("invoice_id", invoiceID).Msg("open alert failed")
	} else {
		alert["providerId"] = id
	}
	return true, appendEvent(db, invoiceID, models.EventAlertEmail, status, ChannelEmail, alert)
}

// RecordEmailClick logs a click on the pay button and returns the invoice
// so the caller can redirect.
func (s *Service) RecordEmailClick(ctx context.Context, invoiceID string, detail map[string]any) (*models.Invoice, error) {
	var inv models.Invoice
	if err := s.db.WithContext(ctx).Where("id = ?", invoiceID).Take(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	d := datatypes.JSONMap{}
	for k, v := range detail {
		d[k] = v
	}
	d["target"] = inv.PaymentLinkURL
	if err := appendEvent(s.db.WithContext(ctx), inv.ID, models.EventEmailClicked, models.EventSuccess, ChannelEmail, d); err != nil {
		return nil, err
	}
	return &inv, nil
}

// RecordPaymentLink stores a freshly created checkout link on the invoice.
func (s *Service) RecordPaymentLink(ctx context.Context, invoiceID, url, orderID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Invoice{}).Where("id = ?", invoiceID).
			Updates(map[string]any{"payment_link_url": url, "square_order_id": orderID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return appendEvent(tx, invoiceID, models.EventPaymentLinkCreated, models.EventSuccess, "",
			datatypes.JSONMap{"url": url, "orderId": orderID})
	})
}

func appendEvent(db *gorm.DB, invoiceID string, typ models.InvoiceEventType, status models.InvoiceEventStatus, channel string, detail datatypes.JSONMap) error {
	ev := models.InvoiceEvent{
		ID:        uuid.NewString(),
		InvoiceID: invoiceID,
		Type:      typ,
		Status:    status,
		Channel:   channel,
		Detail:    detail,
	}
	if err := db.Create(&ev).Error; err != nil {
		return fmt.Errorf("append %s event: %w", typ, err)
	}
	return nil
}
