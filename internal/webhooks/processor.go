// Package webhooks verifies Square webhook deliveries and reconciles them
// into payments, invoice status and user subscriptions.
package webhooks

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ledgerflow/internal/logger"
	"ledgerflow/models"
)

const (
	OutcomeProcessed  = "processed"
	OutcomeIgnored    = "ignored"
	OutcomeUnresolved = "unresolved"
	OutcomeError      = "error"
)

var invoiceNote = regexp.MustCompile(`Invoice:\s*([A-Z0-9-]+)`)

var errUnresolved = errors.New("invoice not resolved")

// PaidNotifier is implemented by invoicenotify.Service.
type PaidNotifier interface {
	NotifyInvoicePaid(ctx context.Context, invoiceID string) (bool, error)
}

type Processor struct {
	db       *gorm.DB
	notifier PaidNotifier
	log      zerolog.Logger
	now      func() time.Time
}

func NewProcessor(db *gorm.DB, notifier PaidNotifier) *Processor {
	return &Processor{
		db:       db,
		notifier: notifier,
		log:      logger.WithComponent("webhooks"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Process applies one verified event and returns its outcome label.
func (p *Processor) Process(ctx context.Context, ev Event, raw []byte) (string, error) {
	l := p.log.With().Str("event_type", ev.Type).Str("event_id", ev.EventID).Logger()

	var err error
	switch ev.Type {
	case "payment.created", "payment.updated", "payment.failed":
		err = p.handlePayment(ctx, l, ev, raw)
	case "order.updated":
		err = p.handleOrder(ctx, l, ev)
	case "subscription.created", "subscription.updated":
		err = p.handleSubscription(ctx, l, ev)
	default:
		l.Info().Msg("ignoring unhandled webhook event type")
		return OutcomeIgnored, nil
	}
	switch {
	case errors.Is(err, errUnresolved):
		l.Warn().Msg("webhook event dropped: invoice not resolved")
		return OutcomeUnresolved, nil
	case err != nil:
		return OutcomeError, err
	}
	return OutcomeProcessed, nil
}

func paymentStatus(eventType, squareStatus string) models.PaymentStatus {
	if eventType == "payment.failed" {
		return models.PaymentFailed
	}
	switch strings.ToUpper(squareStatus) {
	case "COMPLETED":
		return models.PaymentSucceeded
	case "FAILED", "CANCELED":
		return models.PaymentFailed
	}
	return models.PaymentPending
}

func (p *Processor) handlePayment(ctx context.Context, l zerolog.Logger, ev Event, raw []byte) error {
	pay := ev.Data.Object.Payment
	if pay == nil || pay.ID == "" {
		return fmt.Errorf("%s without payment object", ev.Type)
	}
	inv, err := p.resolvePaymentInvoice(ctx, pay)
	if err != nil {
		return err
	}
	l = l.With().Str("invoice_id", inv.ID).Str("payment_id", pay.ID).Logger()

	status := paymentStatus(ev.Type, pay.Status)
	processedAt := pay.UpdatedAt
	if processedAt.IsZero() {
		processedAt = p.now()
	}
	currency := pay.AmountMoney.Currency
	if currency == "" {
		currency = inv.Currency
	}

	// payment.created settles the invoice on its own; later updates only do
	// so once Square reports COMPLETED.
	markPaid := ev.Type == "payment.created" || status == models.PaymentSucceeded
	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.Payment{
			ID:                uuid.NewString(),
			InvoiceID:         inv.ID,
			Provider:          models.ProviderSquare,
			ProviderPaymentID: pay.ID,
			ProviderOrderID:   pay.OrderID,
			Amount:            decimal.New(pay.AmountMoney.Amount, -2),
			Currency:          currency,
			Status:            status,
			ProcessedAt:       processedAt,
			RawPayload:        datatypes.JSON(raw),
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "invoice_id"}, {Name: "provider"}, {Name: "provider_payment_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"provider_order_id", "amount", "currency", "status", "processed_at", "raw_payload", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("upsert payment: %w", err)
		}
		if !markPaid {
			return nil
		}
		return p.markPaid(tx, inv.ID)
	})
	if err != nil {
		return err
	}
	l.Info().Str("status", string(status)).Msg("square payment recorded")

	if markPaid {
		p.notifyPaid(ctx, l, inv.ID)
	}
	return nil
}

func (p *Processor) handleOrder(ctx context.Context, l zerolog.Logger, ev Event) error {
	order := ev.Data.Object.OrderUpdated
	if order == nil {
		order = ev.Data.Object.Order
	}
	if order == nil || order.Key() == "" {
		return fmt.Errorf("%s without order object", ev.Type)
	}
	if !strings.EqualFold(order.State, "COMPLETED") {
		l.Debug().Str("state", order.State).Msg("order not completed")
		return nil
	}

	var inv *models.Invoice
	var err error
	if order.ReferenceID != "" {
		inv, err = p.invoiceBy(ctx, "id = ?", order.ReferenceID)
	}
	if inv == nil && err == nil {
		inv, err = p.invoiceBy(ctx, "square_order_id = ?", order.Key())
	}
	if err != nil {
		return err
	}
	if inv == nil {
		return errUnresolved
	}

	if err := p.markPaid(p.db.WithContext(ctx), inv.ID); err != nil {
		return err
	}
	l.Info().Str("invoice_id", inv.ID).Str("order_id", order.Key()).Msg("square order completed")
	p.notifyPaid(ctx, l, inv.ID)
	return nil
}

func (p *Processor) handleSubscription(ctx context.Context, l zerolog.Logger, ev Event) error {
	sub := ev.Data.Object.Subscription
	if sub == nil || sub.CustomerID == "" {
		return fmt.Errorf("%s without subscription customer", ev.Type)
	}
	res := p.db.WithContext(ctx).Model(&models.User{}).
		Where("square_customer_id = ?", sub.CustomerID).
		Updates(map[string]any{
			"subscription_id":     sub.ID,
			"subscription_status": sub.Status,
			"subscription_plan":   sub.Plan(),
		})
	if res.Error != nil {
		return fmt.Errorf("update subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		l.Warn().Str("customer_id", sub.CustomerID).Msg("no user for square customer")
		return nil
	}
	l.Info().Str("subscription_id", sub.ID).Str("status", sub.Status).Msg("subscription updated")
	return nil
}

// resolvePaymentInvoice tries reference_id, then the order the link was
// created with, then an "Invoice: NUMBER" token in the note.
func (p *Processor) resolvePaymentInvoice(ctx context.Context, pay *Payment) (*models.Invoice, error) {
	if pay.ReferenceID != "" {
		inv, err := p.invoiceBy(ctx, "id = ?", pay.ReferenceID)
		if inv != nil || err != nil {
			return inv, err
		}
	}
	if pay.OrderID != "" {
		inv, err := p.invoiceBy(ctx, "square_order_id = ?", pay.OrderID)
		if inv != nil || err != nil {
			return inv, err
		}
	}
	m := invoiceNote.FindStringSubmatch(pay.Note)
	if m == nil {
		return nil, errUnresolved
	}
	var found []models.Invoice
	if err := p.db.WithContext(ctx).Where("number = ?", m[1]).Limit(2).Find(&found).Error; err != nil {
		return nil, err
	}
	if len(found) != 1 {
		// zero, or the same number in several workspaces
		return nil, errUnresolved
	}
	return &found[0], nil
}

func (p *Processor) invoiceBy(ctx context.Context, query string, arg any) (*models.Invoice, error) {
	var inv models.Invoice
	err := p.db.WithContext(ctx).Where(query, arg).Take(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// markPaid sets PAID, stamps paidAt once and recomputes amountPaid from the
// succeeded payments.
func (p *Processor) markPaid(db *gorm.DB, invoiceID string) error {
	var paid decimal.NullDecimal
	err := db.Model(&models.Payment{}).
		Select("SUM(amount)").
		Where("invoice_id = ? AND status = ?", invoiceID, models.PaymentSucceeded).
		Row().Scan(&paid)
	if err != nil {
		return fmt.Errorf("sum payments: %w", err)
	}
	updates := map[string]any{"status": models.InvoiceStatusPaid}
	if paid.Valid {
		updates["amount_paid"] = paid.Decimal
	}
	if err := db.Model(&models.Invoice{}).Where("id = ?", invoiceID).Updates(updates).Error; err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}
	return db.Model(&models.Invoice{}).
		Where("id = ? AND paid_at IS NULL", invoiceID).
		Update("paid_at", p.now()).Error
}

func (p *Processor) notifyPaid(ctx context.Context, l zerolog.Logger, invoiceID string) {
	if p.notifier == nil {
		return
	}
	claimed, err := p.notifier.NotifyInvoicePaid(ctx, invoiceID)
	if err != nil {
		l.Error().Err(err).Msg("paid notification failed")
		return
	}
	if !claimed {
		l.Debug().Msg("paid notification already sent")
	}
}
