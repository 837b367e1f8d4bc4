package controllers

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"ledgerflow/internal/invoicenotify"
	"ledgerflow/internal/invoices"
	"ledgerflow/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// LoadTemplates parses the server-rendered pages.
func LoadTemplates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"money": invoicenotify.FormatMoney,
		"date":  invoicenotify.FormatDate,
	}).ParseFS(templateFS, "templates/*.html")
}

// transparent 1x1 GIF
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

type PublicController struct {
	Invoices *invoices.Service
	Notify   *invoicenotify.Service
}

type publicInvoicePage struct {
	Invoice    *models.Invoice
	Company    string
	BrandColor string
	LogoURL    string
	Customer   string
	Balance    string
	PayURL     string
	PixelURL   string
	Paid       bool
}

// Invoice renders the customer-facing invoice page.
func (pc PublicController) Invoice(c *gin.Context) {
	inv, err := pc.Invoices.GetPublic(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, invoices.ErrNotFound) {
			c.String(http.StatusNotFound, "invoice not found")
			return
		}
		writeError(c, err)
		return
	}
	page := publicInvoicePage{
		Invoice:    inv,
		BrandColor: "#111827",
		Balance:    invoicenotify.FormatMoney(inv.Total.Sub(inv.AmountPaid), inv.Currency),
		PixelURL:   "/i/" + inv.ID + "/pixel.gif",
		Paid:       inv.Status == models.InvoiceStatusPaid,
	}
	if inv.Workspace != nil {
		page.Company = inv.Workspace.Name
		page.LogoURL = inv.Workspace.LogoURL
		if inv.Workspace.BrandColor != "" {
			page.BrandColor = inv.Workspace.BrandColor
		}
	}
	if inv.Customer != nil {
		page.Customer = inv.Customer.Name
	}
	if inv.PaymentLinkURL != "" && !page.Paid {
		page.PayURL = "/i/" + inv.ID + "/pay"
	}
	c.HTML(http.StatusOK, "invoice.html", page)
}

// Pixel records an open and always answers with the GIF so mail clients
// never show a broken image.
func (pc PublicController) Pixel(c *gin.Context) {
	id := c.Param("id")
	_, err := pc.Notify.RecordInvoiceOpen(c.Request.Context(), id, map[string]any{
		"userAgent": c.Request.UserAgent(),
		"ip":        c.ClientIP(),
	})
	if err != nil && !errors.Is(err, invoicenotify.ErrNotFound) {
		ctlLog().Error().Err(err).Str("invoice_id", id).Msg("record invoice open failed")
	}
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	c.Header("Pragma", "no-cache")
	c.Data(http.StatusOK, "image/gif", pixelGIF)
}

// Pay records the click and redirects to the hosted checkout, or back to
// the invoice page when there is no link.
func (pc PublicController) Pay(c *gin.Context) {
	inv, err := pc.Notify.RecordEmailClick(c.Request.Context(), c.Param("id"), map[string]any{
		"userAgent": c.Request.UserAgent(),
		"ip":        c.ClientIP(),
	})
	if err != nil {
		if errors.Is(err, invoicenotify.ErrNotFound) {
			c.String(http.StatusNotFound, "invoice not found")
			return
		}
		writeError(c, err)
		return
	}
	target := inv.PaymentLinkURL
	if target == "" {
		target = "/i/" + inv.ID
	}
	c.Redirect(http.StatusFound, target)
}
