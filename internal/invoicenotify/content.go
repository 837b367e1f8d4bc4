package invoicenotify

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/shopspring/decimal"

	"ledgerflow/models"
)

// invoiceView is the data every template renders from.
type invoiceView struct {
	Company      string
	CompanyEmail string
	BrandColor   string
	LogoURL      string
	Customer     string
	Number       string
	Total        string
	AmountDue    string
	Deposit      string
	DueDate      string
	Notes        string
	Lines        []lineView
	ViewURL      string
	PayURL       string
	PixelURL     string
	PaidAt       string
}

type lineView struct {
	Description string
	Quantity    string
	UnitPrice   string
	Amount      string
}

// FormatMoney renders USD as $12.50; other currencies get a trailing code.
func FormatMoney(amount decimal.Decimal, currency string) string {
	if currency == "" || currency == "USD" {
		if amount.IsNegative() {
			return "-$" + amount.Abs().StringFixed(2)
		}
		return "$" + amount.StringFixed(2)
	}
	return amount.StringFixed(2) + " " + currency
}

func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

func (s *Service) view(inv *models.Invoice, payLink string) invoiceView {
	v := invoiceView{
		Number:    inv.Number,
		Total:     FormatMoney(inv.Total, inv.Currency),
		AmountDue: FormatMoney(inv.ChargeAmount(), inv.Currency),
		DueDate:   FormatDate(inv.DueDate),
		Notes:     inv.Notes,
		ViewURL:   s.publicURL(inv.ID, ""),
		PixelURL:  s.publicURL(inv.ID, "/pixel.gif"),
		PaidAt:    FormatDate(inv.PaidAt),
	}
	if inv.RequiresDeposit && inv.DepositAmount.IsPositive() {
		v.Deposit = FormatMoney(inv.DepositAmount, inv.Currency)
	}
	if payLink != "" {
		v.PayURL = s.publicURL(inv.ID, "/pay")
	}
	if inv.Workspace != nil {
		v.Company = inv.Workspace.Name
		v.CompanyEmail = inv.Workspace.CompanyEmail
		v.BrandColor = inv.Workspace.BrandColor
		v.LogoURL = inv.Workspace.LogoURL
	}
	if v.BrandColor == "" {
		v.BrandColor = "#111827"
	}
	if inv.Customer != nil {
		v.Customer = inv.Customer.Name
	}
	for _, l := range inv.Lines {
		v.Lines = append(v.Lines, lineView{
			Description: l.Description,
			Quantity:    l.Quantity.String(),
			UnitPrice:   FormatMoney(l.UnitPrice, inv.Currency),
			Amount:      FormatMoney(l.Amount, inv.Currency),
		})
	}
	return v
}

func (s *Service) publicURL(invoiceID, suffix string) string {
	return strings.TrimRight(s.cfg.AppBaseURL, "/") + "/i/" + invoiceID + suffix
}

var invoiceHTML = htmltemplate.Must(htmltemplate.New("invoice").Parse(`<!doctype html>
<html><body style="font-family:Helvetica,Arial,sans-serif;color:#111827">
{{if .LogoURL}}<img src="{{.LogoURL}}" alt="{{.Company}}" style="max-height:48px"><br>{{end}}
<h2 style="color:{{.BrandColor}}">Invoice {{.Number}} from {{.Company}}</h2>
<p>Hi {{.Customer}},</p>
<p>{{.Company}} has sent you invoice {{.Number}} for <strong>{{.Total}}</strong>{{if .DueDate}}, due {{.DueDate}}{{end}}.</p>
{{if .Deposit}}<p>A deposit of <strong>{{.Deposit}}</strong> is due now.</p>{{end}}
<table cellpadding="6" style="border-collapse:collapse">
<tr><th align="left">Item</th><th>Qty</th><th align="right">Price</th><th align="right">Amount</th></tr>
{{range .Lines}}<tr><td>{{.Description}}</td><td align="center">{{.Quantity}}</td><td align="right">{{.UnitPrice}}</td><td align="right">{{.Amount}}</td></tr>
{{end}}<tr><td colspan="3" align="right"><strong>Total</strong></td><td align="right"><strong>{{.Total}}</strong></td></tr>
</table>
{{if .Notes}}<p>{{.Notes}}</p>{{end}}
{{if .PayURL}}<p><a href="{{.PayURL}}" style="background:{{.BrandColor}};color:#fff;padding:10px 16px;text-decoration:none;border-radius:4px">Pay {{.AmountDue}}</a></p>{{end}}
<p><a href="{{.ViewURL}}">View invoice online</a></p>
{{if .CompanyEmail}}<p>Questions? Reply to {{.CompanyEmail}}.</p>{{end}}
<img src="{{.PixelURL}}" width="1" height="1" alt="">
</body></html>`))

var invoiceText = texttemplate.Must(texttemplate.New("invoice").Parse(`Hi {{.Customer}},

{{.Company}} has sent you invoice {{.Number}} for {{.Total}}{{if .DueDate}}, due {{.DueDate}}{{end}}.
{{if .Deposit}}A deposit of {{.Deposit}} is due now.
{{end}}
{{range .Lines}}- {{.Description}}: {{.Quantity}} x {{.UnitPrice}} = {{.Amount}}
{{end}}
Total: {{.Total}}
{{if .PayURL}}
Pay {{.AmountDue}}: {{.PayURL}}
{{end}}
View invoice: {{.ViewURL}}
`))

var smsText = texttemplate.Must(texttemplate.New("sms").Parse(
	`{{.Company}}: invoice {{.Number}} for {{.Total}} is ready. {{if .PayURL}}Pay {{.AmountDue}}: {{.PayURL}}{{else}}View: {{.ViewURL}}{{end}}`))

var receiptHTML = htmltemplate.Must(htmltemplate.New("receipt").Parse(`<!doctype html>
<html><body style="font-family:Helvetica,Arial,sans-serif;color:#111827">
<h2 style="color:{{.BrandColor}}">Payment received</h2>
<p>Hi {{.Customer}},</p>
<p>Thank you. {{.Company}} has received payment for invoice {{.Number}} ({{.Total}}){{if .PaidAt}} on {{.PaidAt}}{{end}}.</p>
<p><a href="{{.ViewURL}}">View invoice</a></p>
</body></html>`))

var receiptText = texttemplate.Must(texttemplate.New("receipt").Parse(`Hi {{.Customer}},

Thank you. {{.Company}} has received payment for invoice {{.Number}} ({{.Total}}){{if .PaidAt}} on {{.PaidAt}}{{end}}.

View invoice: {{.ViewURL}}
`))

var alertText = texttemplate.Must(texttemplate.New("alert").Parse(`{{.Headline}}

Invoice: {{.Number}}
Customer: {{.Customer}}
Total: {{.Total}}

{{.ViewURL}}
`))

type alertView struct {
	invoiceView
	Headline string
}

func renderHTML(t *htmltemplate.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderText(t *texttemplate.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
