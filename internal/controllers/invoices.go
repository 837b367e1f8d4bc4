package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledgerflow/internal/invoicenotify"
	"ledgerflow/internal/invoices"
	"ledgerflow/internal/square"
	"ledgerflow/models"
)

type InvoiceController struct {
	Invoices *invoices.Service
	Links    *square.LinkService
	Notify   *invoicenotify.Service
}

type statusPayload struct {
	Status models.InvoiceStatus `json:"status"`
}

type attemptView struct {
	Channel    string `json:"channel"`
	To         string `json:"to"`
	OK         bool   `json:"ok"`
	ProviderID string `json:"providerId,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (ic InvoiceController) Create(c *gin.Context) {
	ac, ok := authContext(c)
	if !ok {
		return
	}
	var in invoices.Input
	if !decode(c, &in) {
		return
	}
	inv, err := ic.Invoices.Create(c.Request.Context(), ac, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (ic InvoiceController) List(c *gin.Context) {
	ac, ok := authContext(c)
	if !ok {
		return
	}
	f := invoices.ListFilter{
		Status:     models.InvoiceStatus(c.Query("status")),
		CustomerID: c.Query("customerId"),
		Number:     c.Query("number"),
	}
	if f.Status != "" && !f.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	var err error
	if f.From, err = models.ParseOptionalDate(c.Query("startDate")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid startDate"})
		return
	}
	if f.To, err = models.ParseOptionalDate(c.Query("endDate")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid endDate"})
		return
	}
	p := parsePage(c)
	f.Limit, f.Offset = p.limit, p.offset

	list, total, err := ic.Invoices.List(c.Request.Context(), ac, f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p.response(list, total))
}

func (ic InvoiceController) GetByID(c *gin.Context) {
	ac, ok := authContext(c)
	if !ok {
		return
	}
	inv, err := ic.Invoices.Get(c.Request.Context(), ac, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (ic InvoiceController) Update(c *gin.Context) {
	ac, ok := authContext(c)
	if !ok {
		return
	}
	var in invoices.Input
	if !decode(c, &in) {
		return
	}
	inv, err := ic.Invoices.Update(c.Request.Context(), ac, c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (ic InvoiceController) Delete(c *gin.Context) {
	ac, ok := authContext(c)
	if !ok {
		return
	}
	if err := ic.Invoices.Delete(c.Request.Context(), ac, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateStatus sets any status directly. Moving to PAID triggers the
// one-time paid notification.
func (ic InvoiceController) UpdateStatus(c *gin.Context) {
	ac, ok := authContext(c)
	if !ok {
		return
	}
	var body statusPayload
	if !decode(c, &body) {
		return
	}
	inv, err := ic.Invoices.UpdateStatus(c.Request.Context(), ac, c.Param("id"), body.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	if inv.Status == models.InvoiceStatusPaid {
		ic.notifyPaid(c, inv.ID)
	}
	c.JSON(http.StatusOK, inv)
}

func (ic InvoiceController) RecordPayment(c *gin.Context) {
	ac, ok := authContext(c)
	if !ok {
		return
	}
	var in invoices.PaymentInput
	if !decode(c, &in) {
		return
	}
	inv, paid, err := ic.Invoices.RecordPayment(c.Request.Context(), ac, c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	if paid {
		ic.notifyPaid(c, inv.ID)
	}
	c.JSON(http.StatusCreated, gin.H{"invoice": inv, "paid": paid})
}

// Send creates a payment link when the invoice has none yet, then emails
// and texts the customer.
func (ic InvoiceController) Send(c *gin.Context) {
	ac, ok := authContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	inv, err := ic.Invoices.Get(ctx, ac, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	linkURL := inv.PaymentLinkURL
	if linkURL == "" {
		if link, created := ic.Links.MaybeCreatePaymentLink(ctx, inv); created {
			if err := ic.Notify.RecordPaymentLink(ctx, inv.ID, link.URL, link.OrderID); err != nil {
				writeError(c, err)
				return
			}
			linkURL = link.URL
		}
	}

	res, err := ic.Notify.DispatchInvoice(ctx, inv.ID, linkURL)
	if err != nil {
		writeError(c, err)
		return
	}
	attempts := make([]attemptView, 0, len(res.Attempts))
	for _, a := range res.Attempts {
		v := attemptView{Channel: a.Channel, To: a.To, OK: a.OK(), ProviderID: a.ProviderID}
		if a.Err != nil {
			v.Error = a.Err.Error()
		}
		attempts = append(attempts, v)
	}
	c.JSON(http.StatusOK, gin.H{
		"paymentLinkUrl": linkURL,
		"markedSent":     res.MarkedSent,
		"attempts":       attempts,
	})
}

func (ic InvoiceController) notifyPaid(c *gin.Context, invoiceID string) {
	if _, err := ic.Notify.NotifyInvoicePaid(c.Request.Context(), invoiceID); err != nil {
		ctlLog().Error().Err(err).Str("invoice_id", invoiceID).Msg("paid notification failed")
	}
}
