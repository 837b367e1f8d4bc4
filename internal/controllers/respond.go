package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"ledgerflow/internal/auth"
	"ledgerflow/internal/customers"
	"ledgerflow/internal/guest"
	"ledgerflow/internal/invoicenotify"
	"ledgerflow/internal/invoices"
	"ledgerflow/internal/invoicetemplates"
	"ledgerflow/internal/logger"
	"ledgerflow/internal/validation"
	"ledgerflow/internal/workspaces"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

func ctlLog() *zerolog.Logger {
	l := logger.WithComponent("controllers")
	return &l
}

// writeError maps service errors to HTTP responses.
func writeError(c *gin.Context, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, invoices.ErrNotFound),
		errors.Is(err, customers.ErrNotFound),
		errors.Is(err, invoicetemplates.ErrNotFound),
		errors.Is(err, workspaces.ErrNotFound),
		errors.Is(err, invoicenotify.ErrNotFound),
		errors.Is(err, guest.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, invoices.ErrInvalidStatus):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, customers.ErrInUse),
		errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, guest.ErrLimitReached):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, guest.ErrCorrupt):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		ctlLog().Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// decode reads a JSON body, rejecting unknown fields.
func decode(c *gin.Context, v any) bool {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func authContext(c *gin.Context) (auth.Context, bool) {
	ac, ok := auth.FromGin(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrUnauthenticated.Error()})
	}
	return ac, ok
}

type page struct {
	limit  int
	offset int
}

func parsePage(c *gin.Context) page {
	p := page{limit: defaultLimit}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= maxLimit {
			p.limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			p.offset = n
		}
	}
	return p
}

func (p page) response(items any, total int64) gin.H {
	hasNext := int64(p.offset+p.limit) < total
	nextOffset := p.offset + p.limit
	if !hasNext {
		nextOffset = p.offset
	}
	return gin.H{
		"items": items,
		"pagination": gin.H{
			"total":      total,
			"limit":      p.limit,
			"offset":     p.offset,
			"hasNext":    hasNext,
			"nextOffset": nextOffset,
		},
	}
}
