package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledgerflow/internal/invoices"
	"ledgerflow/models"
)

type ReportsController struct {
	Invoices *invoices.Service
}

// GetInvoices reads the v_invoice_summary view for the caller's workspace.
func (rc ReportsController) GetInvoices(c *gin.Context) {
	ac, ok := authContext(c)
	if !ok {
		return
	}
	f := invoices.ListFilter{
		Status:     models.InvoiceStatus(c.Query("status")),
		CustomerID: c.Query("customerId"),
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
	rows, err := rc.Invoices.Summary(c.Request.Context(), ac, f)
	if err != nil {
		writeError(c, err)
		return
	}
	if rows == nil {
		rows = []invoices.SummaryRow{}
	}
	c.JSON(http.StatusOK, rows)
}

func (rc ReportsController) GetStatusTotals(c *gin.Context) {
	ac, ok := authContext(c)
	if !ok {
		return
	}
	totals, err := rc.Invoices.StatusTotals(c.Request.Context(), ac)
	if err != nil {
		writeError(c, err)
		return
	}
	if totals == nil {
		totals = []invoices.StatusTotal{}
	}
	c.JSON(http.StatusOK, totals)
}
