package square

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"ledgerflow/internal/logger"
	"ledgerflow/internal/metrics"
	"ledgerflow/models"
)

// LinkCreator is satisfied by *Client.
type LinkCreator interface {
	CreatePaymentLink(ctx context.Context, in CreatePaymentLinkRequest) (*PaymentLink, error)
}

type LinkService struct {
	client      LinkCreator
	locationID  string
	redirectURL string
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

// NewLinkService returns a service that never creates links when client is
// nil or the location id is empty.
func NewLinkService(client LinkCreator, locationID, redirectURL string, m *metrics.Metrics) *LinkService {
	return &LinkService{
		client:      client,
		locationID:  locationID,
		redirectURL: redirectURL,
		metrics:     m,
		log:         logger.WithComponent("square"),
	}
}

var hundred = decimal.NewFromInt(100)

// MinorUnits converts a dollar amount to cents.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// MaybeCreatePaymentLink returns a hosted checkout link for the invoice, or
// false when the invoice is not payable online or Square fails. It never
// returns an error; the reason is logged.
func (s *LinkService) MaybeCreatePaymentLink(ctx context.Context, inv *models.Invoice) (*PaymentLink, bool) {
	l := s.log.With().Str("invoice_id", inv.ID).Str("number", inv.Number).Logger()

	reason := ""
	switch {
	case s.client == nil || s.locationID == "":
		reason = "square not configured"
	case len(inv.Lines) == 0:
		reason = "invoice has no line items"
	case !inv.Total.IsPositive():
		reason = "invoice total is not positive"
	case inv.Currency != "USD":
		reason = "currency not supported for payment links"
	}
	if reason != "" {
		l.Info().Str("currency", inv.Currency).Str("total", inv.Total.String()).Msgf("payment link skipped: %s", reason)
		s.metrics.PaymentLink("skipped")
		return nil, false
	}

	amount := MinorUnits(inv.ChargeAmount())
	req := CreatePaymentLinkRequest{
		QuickPay: QuickPay{
			Name:       "Invoice " + inv.Number,
			PriceMoney: Money{Amount: amount, Currency: inv.Currency},
			LocationID: s.locationID,
		},
		PaymentNote: "Invoice: " + inv.Number,
	}
	if s.redirectURL != "" {
		req.CheckoutOptions = &CheckoutOptions{RedirectURL: s.redirectURL}
	}

	link, err := s.client.CreatePaymentLink(ctx, req)
	if err != nil {
		kind := KindUnknown
		var serr *Error
		if errors.As(err, &serr) {
			kind = serr.Kind
		}
		l.Error().Err(err).Str("kind", string(kind)).Int64("amount", amount).Msg("payment link creation failed")
		s.metrics.PaymentLink("failed_" + string(kind))
		return nil, false
	}

	l.Info().Str("order_id", link.OrderID).Int64("amount", amount).Msg("payment link created")
	s.metrics.PaymentLink("created")
	return link, true
}
