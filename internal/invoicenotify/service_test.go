package invoicenotify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ledgerflow/internal/notify"
	"ledgerflow/internal/testutil"
	"ledgerflow/models"
)

type emailFunc func(context.Context, notify.Email) (string, error)

func (f emailFunc) SendEmail(ctx context.Context, m notify.Email) (string, error) { return f(ctx, m) }

type smsFunc func(ctx context.Context, to, body string) (string, error)

func (f smsFunc) SendSMS(ctx context.Context, to, body string) (string, error) { return f(ctx, to, body) }

// outbox records what the fakes were asked to send.
type outbox struct {
	mu     sync.Mutex
	emails []notify.Email
	texts  []string
}

func (o *outbox) emailer(err error) notify.Emailer {
	return emailFunc(func(_ context.Context, m notify.Email) (string, error) {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.emails = append(o.emails, m)
		if err != nil {
			return "", err
		}
		return "email-id", nil
	})
}

func (o *outbox) texter(err error) notify.Texter {
	return smsFunc(func(_ context.Context, to, body string) (string, error) {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.texts = append(o.texts, to+": "+body)
		if err != nil {
			return "", err
		}
		return "sms-id", nil
	})
}

func setup(t *testing.T, emailErr, smsErr error) (*Service, *gorm.DB, testutil.Fixture, *outbox) {
	t.Helper()
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	box := &outbox{}
	svc := NewService(db, box.emailer(emailErr), box.texter(smsErr), Config{AppBaseURL: "https://app.test/"}, nil)
	return svc, db, f, box
}

func line(qty, price string) models.InvoiceLine {
	return models.InvoiceLine{Description: "Work", Quantity: decimal.RequireFromString(qty), UnitPrice: decimal.RequireFromString(price)}
}

func events(t *testing.T, db *gorm.DB, invoiceID string, typ models.InvoiceEventType) []models.InvoiceEvent {
	t.Helper()
	var out []models.InvoiceEvent
	if err := db.Where("invoice_id = ? AND type = ?", invoiceID, typ).Find(&out).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	return out
}

func reload(t *testing.T, db *gorm.DB, id string) models.Invoice {
	t.Helper()
	var inv models.Invoice
	if err := db.Where("id = ?", id).Take(&inv).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	return inv
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"+1 (415) 555-0100", "+14155550100", true},
		{"44 20 7946 0958", "442079460958", true},
		{"555-0100", "", false},
		{"+0 123 456 789", "", false},
		{"", "", false},
		{"call me", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizePhone(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NormalizePhone(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDispatchEmailOnlyMarksSent(t *testing.T) {
	svc, db, f, box := setup(t, nil, nil)
	inv := testutil.Invoice(t, db, f, "INV-1001", line("2", "50"), line("1", "25"))

	res, err := svc.DispatchInvoice(context.Background(), inv.ID, "https://square.link/u/x")
	if err != nil {
		t.Fatalf("DispatchInvoice: %v", err)
	}
	if len(box.emails) != 1 || len(box.texts) != 0 {
		t.Fatalf("emails=%d texts=%d, want 1 and 0", len(box.emails), len(box.texts))
	}
	if len(res.Attempts) != 1 || !res.MarkedSent {
		t.Errorf("result = %+v", res)
	}
	if got := events(t, db, inv.ID, models.EventSentEmail); len(got) != 1 || got[0].Status != models.EventSuccess {
		t.Errorf("SENT_EMAIL events = %+v", got)
	}
	if got := events(t, db, inv.ID, models.EventSentSMS); len(got) != 0 {
		t.Errorf("SENT_SMS events = %d", len(got))
	}

	after := reload(t, db, inv.ID)
	if after.Status != models.InvoiceStatusSent || after.SentAt == nil {
		t.Errorf("status=%s sentAt=%v", after.Status, after.SentAt)
	}

	msg := box.emails[0]
	if msg.To[0] != "ap@globex.test" || msg.Subject != "Invoice INV-1001 from Acme Plumbing" {
		t.Errorf("email = %+v", msg)
	}
	for _, want := range []string{"https://app.test/i/" + inv.ID + "/pixel.gif", "https://app.test/i/" + inv.ID + "/pay", "$125.00"} {
		if !strings.Contains(msg.HTML, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestDispatchFailedEmailKeepsDraft(t *testing.T) {
	svc, db, f, _ := setup(t, errors.New("resend down"), nil)
	inv := testutil.Invoice(t, db, f, "INV-1001", line("1", "10"))

	res, err := svc.DispatchInvoice(context.Background(), inv.ID, "")
	if err != nil {
		t.Fatalf("DispatchInvoice: %v", err)
	}
	if res.MarkedSent {
		t.Error("marked sent after failed email")
	}
	got := events(t, db, inv.ID, models.EventSentEmail)
	if len(got) != 1 || got[0].Status != models.EventFailed || got[0].Detail["error"] != "resend down" {
		t.Errorf("events = %+v", got)
	}
	if after := reload(t, db, inv.ID); after.Status != models.InvoiceStatusDraft || after.SentAt != nil {
		t.Errorf("status=%s sentAt=%v", after.Status, after.SentAt)
	}
}

func TestDispatchChannelsFailIndependently(t *testing.T) {
	svc, db, f, box := setup(t, errors.New("bounced"), nil)
	db.Model(&models.Customer{}).Where("id = ?", f.Customer.ID).Update("phone", "+1 (415) 555-0100")
	inv := testutil.Invoice(t, db, f, "INV-1001", line("1", "10"))

	res, err := svc.DispatchInvoice(context.Background(), inv.ID, "")
	if err != nil {
		t.Fatalf("DispatchInvoice: %v", err)
	}
	if len(box.emails) != 1 || len(box.texts) != 1 {
		t.Fatalf("emails=%d texts=%d", len(box.emails), len(box.texts))
	}
	if !strings.Contains(box.texts[0], "+14155550100: Acme Plumbing: invoice INV-1001") {
		t.Errorf("sms = %q", box.texts[0])
	}
	if !res.MarkedSent {
		t.Error("sms success should mark the invoice sent")
	}
	if got := events(t, db, inv.ID, models.EventSentSMS); len(got) != 1 || got[0].Status != models.EventSuccess {
		t.Errorf("sms events = %+v", got)
	}
	if got := events(t, db, inv.ID, models.EventSentEmail); len(got) != 1 || got[0].Status != models.EventFailed {
		t.Errorf("email events = %+v", got)
	}
}

func TestDispatchNeverRewindsStatus(t *testing.T) {
	svc, db, f, _ := setup(t, nil, nil)
	inv := testutil.Invoice(t, db, f, "INV-1001", line("1", "10"))
	db.Model(&models.Invoice{}).Where("id = ?", inv.ID).Update("status", models.InvoiceStatusPaid)

	res, err := svc.DispatchInvoice(context.Background(), inv.ID, "")
	if err != nil {
		t.Fatalf("DispatchInvoice: %v", err)
	}
	if res.MarkedSent {
		t.Error("PAID invoice reported as marked sent")
	}
	if after := reload(t, db, inv.ID); after.Status != models.InvoiceStatusPaid {
		t.Errorf("status = %s", after.Status)
	}
}

func TestNotifyInvoicePaidOnce(t *testing.T) {
	svc, db, f, box := setup(t, nil, nil)
	inv := testutil.Invoice(t, db, f, "INV-1001", line("1", "10"))
	ctx := context.Background()

	claimed, err := svc.NotifyInvoicePaid(ctx, inv.ID)
	if err != nil || !claimed {
		t.Fatalf("first call: claimed=%v err=%v", claimed, err)
	}
	// receipt to the customer and alert to the owner
	if len(box.emails) != 2 {
		t.Fatalf("emails after first call = %d, want 2", len(box.emails))
	}
	if box.emails[1].To[0] != f.Owner.Email {
		t.Errorf("alert went to %v", box.emails[1].To)
	}

	for i := 0; i < 3; i++ {
		claimed, err := svc.NotifyInvoicePaid(ctx, inv.ID)
		if err != nil || claimed {
			t.Fatalf("repeat call %d: claimed=%v err=%v", i, claimed, err)
		}
	}
	if len(box.emails) != 2 {
		t.Errorf("emails after repeats = %d, want 2", len(box.emails))
	}
	if got := events(t, db, inv.ID, models.EventPaidAlert); len(got) != 1 {
		t.Errorf("PAID_ALERT events = %d, want 1", len(got))
	}
	if after := reload(t, db, inv.ID); after.PaidNotifiedAt == nil {
		t.Error("paidNotifiedAt not set")
	}
}

func TestNotifyInvoicePaidConcurrentDeliveries(t *testing.T) {
	svc, db, f, box := setup(t, nil, nil)
	inv := testutil.Invoice(t, db, f, "INV-1001", line("1", "10"))

	var wg sync.WaitGroup
	var mu sync.Mutex
	claims := 0
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.NotifyInvoicePaid(context.Background(), inv.ID)
			if err != nil {
				t.Errorf("NotifyInvoicePaid: %v", err)
			}
			if ok {
				mu.Lock()
				claims++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if claims != 1 || len(box.emails) != 2 {
		t.Errorf("claims=%d emails=%d, want 1 and 2", claims, len(box.emails))
	}
}

func TestRecordInvoiceOpenAlertsOnce(t *testing.T) {
	svc, db, f, box := setup(t, nil, nil)
	inv := testutil.Invoice(t, db, f, "INV-1001", line("1", "10"))
	ctx := context.Background()

	first, err := svc.RecordInvoiceOpen(ctx, inv.ID, map[string]any{"userAgent": "test"})
	if err != nil || !first {
		t.Fatalf("first open: first=%v err=%v", first, err)
	}
	firstSeen := reload(t, db, inv.ID).FirstOpenedAt

	first, err = svc.RecordInvoiceOpen(ctx, inv.ID, nil)
	if err != nil || first {
		t.Fatalf("second open: first=%v err=%v", first, err)
	}

	after := reload(t, db, inv.ID)
	if after.FirstOpenedAt == nil || !after.FirstOpenedAt.Equal(*firstSeen) || after.LastOpenedAt == nil {
		t.Errorf("first=%v last=%v", after.FirstOpenedAt, after.LastOpenedAt)
	}
	if got := events(t, db, inv.ID, models.EventOpened); len(got) != 2 {
		t.Errorf("OPENED events = %d, want 2", len(got))
	}
	if got := events(t, db, inv.ID, models.EventAlertEmail); len(got) != 1 || got[0].Status != models.EventSuccess {
		t.Errorf("ALERT_EMAIL events = %+v", got)
	}
	if len(box.emails) != 1 {
		t.Errorf("alert emails = %d, want 1", len(box.emails))
	}

	if _, err := svc.RecordInvoiceOpen(ctx, "missing", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown invoice: got %v", err)
	}
}

func TestRecordInvoiceOpenSameInstant(t *testing.T) {
	svc, db, f, box := setup(t, nil, nil)
	inv := testutil.Invoice(t, db, f, "INV-1001", line("1", "10"))
	at := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.RecordInvoiceOpen(ctx, inv.ID, nil); err != nil {
			t.Fatalf("open %d: %v", i+1, err)
		}
	}
	if got := events(t, db, inv.ID, models.EventOpened); len(got) != 2 {
		t.Errorf("OPENED events = %d, want 2", len(got))
	}
	if after := reload(t, db, inv.ID); after.LastOpenedAt == nil || !after.LastOpenedAt.Equal(at) {
		t.Errorf("lastOpenedAt = %v, want %v", after.LastOpenedAt, at)
	}
	if len(box.emails) != 1 {
		t.Errorf("alert emails = %d, want 1", len(box.emails))
	}
}

func TestAlertOverrideRecipients(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	box := &outbox{}
	svc := NewService(db, box.emailer(nil), nil, Config{AlertEmails: []string{"ops@acme.test"}}, nil)
	inv := testutil.Invoice(t, db, f, "INV-1", line("1", "10"))

	if _, err := svc.RecordInvoiceOpen(context.Background(), inv.ID, nil); err != nil {
		t.Fatalf("RecordInvoiceOpen: %v", err)
	}
	if len(box.emails) != 1 || box.emails[0].To[0] != "ops@acme.test" {
		t.Fatalf("emails = %+v", box.emails)
	}
}

func TestRecordPaymentLinkAndClick(t *testing.T) {
	svc, db, f, _ := setup(t, nil, nil)
	inv := testutil.Invoice(t, db, f, "INV-1", line("1", "10"))
	ctx := context.Background()

	if err := svc.RecordPaymentLink(ctx, inv.ID, "https://square.link/u/x", "ord_1"); err != nil {
		t.Fatalf("RecordPaymentLink: %v", err)
	}
	after := reload(t, db, inv.ID)
	if after.PaymentLinkURL != "https://square.link/u/x" || after.SquareOrderID != "ord_1" {
		t.Errorf("invoice = %+v", after)
	}
	if got := events(t, db, inv.ID, models.EventPaymentLinkCreated); len(got) != 1 {
		t.Errorf("PAYMENT_LINK_CREATED events = %d", len(got))
	}

	clicked, err := svc.RecordEmailClick(ctx, inv.ID, nil)
	if err != nil {
		t.Fatalf("RecordEmailClick: %v", err)
	}
	if clicked.PaymentLinkURL != "https://square.link/u/x" {
		t.Errorf("click target = %q", clicked.PaymentLinkURL)
	}
	if got := events(t, db, inv.ID, models.EventEmailClicked); len(got) != 1 {
		t.Errorf("EMAIL_CLICKED events = %d", len(got))
	}
}
