package webhooks

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ledgerflow/internal/square"
	"ledgerflow/internal/testutil"
	"ledgerflow/models"
)

const (
	signingKey = "whsec_test"
	baseURL    = "https://app.test"
)

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
	sent  map[string]bool
}

func (f *fakeNotifier) NotifyInvoicePaid(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	if f.sent == nil {
		f.sent = map[string]bool{}
	}
	if f.sent[id] {
		return false, nil
	}
	f.sent[id] = true
	return true, nil
}

func newRouter(t *testing.T) (*gin.Engine, *gorm.DB, testutil.Fixture, *fakeNotifier) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	n := &fakeNotifier{}
	h := NewHandler(HandlerConfig{SignatureKey: signingKey, AppBaseURL: baseURL}, NewProcessor(db, n), nil)
	r := gin.New()
	r.POST("/api/webhooks/square", h.Square)
	r.POST("/api/square/webhook", h.Square)
	return r, db, f, n
}

func deliver(r http.Handler, path, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	if signature != "" {
		req.Header.Set(square.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func signed(r http.Handler, path, body string) *httptest.ResponseRecorder {
	return deliver(r, path, body, square.Sign(signingKey, baseURL+path, []byte(body)))
}

func paymentEvent(eventType, paymentID, status, note string, cents int64) string {
	return fmt.Sprintf(`{"merchant_id":"M1","type":%q,"event_id":"ev-%s-%s","data":{"type":"payment","id":%q,"object":{"payment":{"id":%q,"status":%q,"amount_money":{"amount":%d,"currency":"USD"},"note":%q}}}}`,
		eventType, paymentID, status, paymentID, paymentID, status, cents, note)
}

func countPayments(t *testing.T, db *gorm.DB, invoiceID string) int64 {
	t.Helper()
	var n int64
	db.Model(&models.Payment{}).Where("invoice_id = ?", invoiceID).Count(&n)
	return n
}

func TestRejectsBadSignaturesBeforeMutation(t *testing.T) {
	r, db, f, n := newRouter(t)
	inv := testutil.Invoice(t, db, f, "INV-1001", models.InvoiceLine{Description: "x", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(125)})
	body := paymentEvent("payment.created", "pay_1", "COMPLETED", "Invoice: INV-1001", 12500)

	tests := []struct {
		name      string
		signature string
		want      int
	}{
		{"missing header", "", http.StatusBadRequest},
		{"wrong signature", "bm9wZQ==", http.StatusUnauthorized},
		{"signed for other url", square.Sign(signingKey, "https://evil.test/hook", []byte(body)), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := deliver(r, "/api/webhooks/square", body, tt.signature)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if !bytes.Contains(rec.Body.Bytes(), []byte(`"message"`)) {
				t.Errorf("body = %s", rec.Body.String())
			}
		})
	}

	if got := countPayments(t, db, inv.ID); got != 0 {
		t.Errorf("payments = %d, want 0", got)
	}
	var after models.Invoice
	db.Where("id = ?", inv.ID).Take(&after)
	if after.Status != models.InvoiceStatusDraft || len(n.calls) != 0 {
		t.Errorf("status=%s notifications=%d", after.Status, len(n.calls))
	}
}

func TestUnconfiguredKeyRejects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	h := NewHandler(HandlerConfig{AppBaseURL: baseURL}, NewProcessor(db, nil), nil)
	r := gin.New()
	r.POST("/api/webhooks/square", h.Square)

	rec := deliver(r, "/api/webhooks/square", `{}`, "c2ln")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestPaymentCreatedIsIdempotent(t *testing.T) {
	r, db, f, n := newRouter(t)
	inv := testutil.Invoice(t, db, f, "INV-1001", models.InvoiceLine{Description: "x", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(125)})
	body := paymentEvent("payment.created", "pay_1", "COMPLETED", "Invoice: INV-1001", 12500)

	for _, path := range []string{"/api/webhooks/square", "/api/square/webhook", "/api/webhooks/square"} {
		rec := signed(r, path, body)
		if rec.Code != http.StatusOK || rec.Body.String() != `{"received":true}` {
			t.Fatalf("%s: %d %s", path, rec.Code, rec.Body.String())
		}
	}

	if got := countPayments(t, db, inv.ID); got != 1 {
		t.Fatalf("payments = %d, want 1", got)
	}
	var after models.Invoice
	db.Where("id = ?", inv.ID).Take(&after)
	if after.Status != models.InvoiceStatusPaid || after.PaidAt == nil || !after.AmountPaid.Equal(decimal.NewFromInt(125)) {
		t.Errorf("invoice = status %s paidAt %v amountPaid %s", after.Status, after.PaidAt, after.AmountPaid)
	}
	if len(n.calls) != 3 || len(n.sent) != 1 {
		t.Errorf("notifier calls=%d distinct=%d", len(n.calls), len(n.sent))
	}
}

func TestPaymentCreatedMarksPaidBeforeCompletion(t *testing.T) {
	r, db, f, n := newRouter(t)
	inv := testutil.Invoice(t, db, f, "INV-1001", models.InvoiceLine{Description: "x", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)})

	signed(r, "/api/webhooks/square", paymentEvent("payment.created", "pay_9", "APPROVED", "Invoice: INV-1001", 5000))
	var p models.Payment
	db.Where("invoice_id = ?", inv.ID).Take(&p)
	if p.Status != models.PaymentPending {
		t.Fatalf("payment status = %s, want PENDING", p.Status)
	}
	var after models.Invoice
	db.Where("id = ?", inv.ID).Take(&after)
	if after.Status != models.InvoiceStatusPaid || after.PaidAt == nil {
		t.Fatalf("invoice status = %s paidAt %v, want PAID", after.Status, after.PaidAt)
	}
	if len(n.calls) != 1 {
		t.Fatalf("notifier calls = %d, want 1", len(n.calls))
	}

	signed(r, "/api/webhooks/square", paymentEvent("payment.updated", "pay_9", "COMPLETED", "Invoice: INV-1001", 5000))
	db.Where("invoice_id = ?", inv.ID).Take(&p)
	if p.Status != models.PaymentSucceeded {
		t.Errorf("payment status = %s, want SUCCEEDED", p.Status)
	}
	if got := countPayments(t, db, inv.ID); got != 1 {
		t.Errorf("payments = %d, want 1", got)
	}
	db.Where("id = ?", inv.ID).Take(&after)
	if !after.AmountPaid.Equal(decimal.NewFromInt(50)) {
		t.Errorf("amountPaid = %s, want 50", after.AmountPaid)
	}
	if len(n.calls) != 2 || len(n.sent) != 1 {
		t.Errorf("notifier calls=%d distinct=%d", len(n.calls), len(n.sent))
	}
}

func TestPaymentUpdatedWaitsForCompletion(t *testing.T) {
	r, db, f, n := newRouter(t)
	inv := testutil.Invoice(t, db, f, "INV-1001", models.InvoiceLine{Description: "x", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)})
	db.Model(&models.Invoice{}).Where("id = ?", inv.ID).Update("status", models.InvoiceStatusSent)

	signed(r, "/api/webhooks/square", paymentEvent("payment.updated", "pay_3", "APPROVED", "Invoice: INV-1001", 5000))
	var after models.Invoice
	db.Where("id = ?", inv.ID).Take(&after)
	if after.Status != models.InvoiceStatusSent || len(n.calls) != 0 {
		t.Errorf("status=%s notifications=%d", after.Status, len(n.calls))
	}
	if got := countPayments(t, db, inv.ID); got != 1 {
		t.Errorf("payments = %d, want 1", got)
	}
}

func paymentEventWithReference(paymentID, referenceID, note string) string {
	return fmt.Sprintf(`{"type":"payment.created","event_id":"ev-%s","data":{"type":"payment","id":%q,"object":{"payment":{"id":%q,"status":"COMPLETED","amount_money":{"amount":5000,"currency":"USD"},"reference_id":%q,"note":%q}}}}`,
		paymentID, paymentID, paymentID, referenceID, note)
}

func TestPaymentInvoiceResolution(t *testing.T) {
	tests := []struct {
		name      string
		reference func(first, second models.Invoice) string
		note      string
		wantFirst bool
	}{
		{"reference id without note", func(a, _ models.Invoice) string { return a.ID }, "", true},
		{"reference id wins over note", func(a, _ models.Invoice) string { return a.ID }, "Invoice: INV-1002", true},
		{"note without reference id", func(_, _ models.Invoice) string { return "" }, "Invoice: INV-1002", false},
		{"unknown reference id falls back to note", func(_, _ models.Invoice) string { return "no-such-invoice" }, "Invoice: INV-1002", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, db, f, _ := newRouter(t)
			line := models.InvoiceLine{Description: "x", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)}
			first := testutil.Invoice(t, db, f, "INV-1001", line)
			second := testutil.Invoice(t, db, f, "INV-1002", line)

			rec := signed(r, "/api/webhooks/square", paymentEventWithReference("pay_r", tt.reference(first, second), tt.note))
			if rec.Code != http.StatusOK {
				t.Fatalf("status %d", rec.Code)
			}

			want, other := first, second
			if !tt.wantFirst {
				want, other = second, first
			}
			if got := countPayments(t, db, want.ID); got != 1 {
				t.Errorf("payments on %s = %d, want 1", want.Number, got)
			}
			if got := countPayments(t, db, other.ID); got != 0 {
				t.Errorf("payments on %s = %d, want 0", other.Number, got)
			}
			var after models.Invoice
			db.Where("id = ?", other.ID).Take(&after)
			if after.Status == models.InvoiceStatusPaid {
				t.Errorf("%s marked paid", other.Number)
			}
		})
	}
}

func TestPaymentFailedOnlyMarksPayment(t *testing.T) {
	r, db, f, n := newRouter(t)
	inv := testutil.Invoice(t, db, f, "INV-1001", models.InvoiceLine{Description: "x", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)})
	db.Model(&models.Invoice{}).Where("id = ?", inv.ID).Update("status", models.InvoiceStatusSent)

	signed(r, "/api/webhooks/square", paymentEvent("payment.failed", "pay_2", "FAILED", "Invoice: INV-1001", 5000))

	var p models.Payment
	if err := db.Where("invoice_id = ?", inv.ID).Take(&p).Error; err != nil {
		t.Fatalf("payment row: %v", err)
	}
	if p.Status != models.PaymentFailed {
		t.Errorf("payment status = %s", p.Status)
	}
	var after models.Invoice
	db.Where("id = ?", inv.ID).Take(&after)
	if after.Status != models.InvoiceStatusSent || len(n.calls) != 0 {
		t.Errorf("status=%s notifications=%d", after.Status, len(n.calls))
	}
}

func TestOrderUpdatedResolvesByOrderID(t *testing.T) {
	r, db, f, n := newRouter(t)
	inv := testutil.Invoice(t, db, f, "INV-1001", models.InvoiceLine{Description: "x", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)})
	db.Model(&models.Invoice{}).Where("id = ?", inv.ID).Update("square_order_id", "ord_7")

	open := `{"type":"order.updated","event_id":"e1","data":{"type":"order_updated","id":"ord_7","object":{"order_updated":{"order_id":"ord_7","state":"OPEN"}}}}`
	signed(r, "/api/webhooks/square", open)
	var after models.Invoice
	db.Where("id = ?", inv.ID).Take(&after)
	if after.Status != models.InvoiceStatusDraft {
		t.Fatalf("OPEN order changed status to %s", after.Status)
	}

	done := `{"type":"order.updated","event_id":"e2","data":{"type":"order_updated","id":"ord_7","object":{"order_updated":{"order_id":"ord_7","state":"COMPLETED"}}}}`
	signed(r, "/api/webhooks/square", done)
	db.Where("id = ?", inv.ID).Take(&after)
	if after.Status != models.InvoiceStatusPaid || len(n.calls) != 1 {
		t.Errorf("status=%s notifications=%d", after.Status, len(n.calls))
	}
}

func TestUnresolvedAndUnknownEventsAreAcknowledged(t *testing.T) {
	r, db, _, n := newRouter(t)

	for _, body := range []string{
		paymentEvent("payment.created", "pay_x", "COMPLETED", "no invoice here", 100),
		`{"type":"refund.created","data":{}}`,
		`not json`,
	} {
		rec := signed(r, "/api/webhooks/square", body)
		if rec.Code != http.StatusOK {
			t.Errorf("%q: status %d", body, rec.Code)
		}
	}
	var count int64
	db.Model(&models.Payment{}).Count(&count)
	if count != 0 || len(n.calls) != 0 {
		t.Errorf("payments=%d notifications=%d", count, len(n.calls))
	}
}

func TestSubscriptionUpdatesUser(t *testing.T) {
	r, db, f, _ := newRouter(t)
	db.Model(&models.User{}).Where("id = ?", f.Owner.ID).Update("square_customer_id", "CUST_1")

	body := `{"type":"subscription.updated","event_id":"s1","data":{"type":"subscription","id":"sub_1","object":{"subscription":{"id":"sub_1","customer_id":"CUST_1","status":"ACTIVE","plan_variation_id":"PLAN_PRO"}}}}`
	if rec := signed(r, "/api/square/webhook", body); rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var u models.User
	db.Where("id = ?", f.Owner.ID).Take(&u)
	if u.SubscriptionID != "sub_1" || u.SubscriptionStatus != "ACTIVE" || u.SubscriptionPlan != "PLAN_PRO" {
		t.Errorf("user = %+v", u)
	}
}
