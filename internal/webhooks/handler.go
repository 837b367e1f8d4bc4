package webhooks

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"ledgerflow/internal/logger"
	"ledgerflow/internal/metrics"
	"ledgerflow/internal/square"
)

const maxBodyBytes = 1 << 20

type HandlerConfig struct {
	SignatureKey string
	// NotificationURL is the URL registered with Square. When empty it is
	// derived from AppBaseURL and the request path.
	NotificationURL string
	AppBaseURL      string
}

type Handler struct {
	cfg       HandlerConfig
	processor *Processor
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

func NewHandler(cfg HandlerConfig, processor *Processor, m *metrics.Metrics) *Handler {
	return &Handler{
		cfg:       cfg,
		processor: processor,
		metrics:   m,
		log:       logger.WithComponent("webhooks"),
	}
}

func (h *Handler) notificationURL(r *http.Request) string {
	if h.cfg.NotificationURL != "" {
		return h.cfg.NotificationURL
	}
	return strings.TrimRight(h.cfg.AppBaseURL, "/") + r.URL.Path
}

// Square verifies the signature before anything else. Once verified, every
// outcome is acknowledged with 200 so Square does not retry.
func (h *Handler) Square(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "unreadable body"})
		return
	}

	signature := c.GetHeader(square.SignatureHeader)
	if signature == "" {
		h.metrics.WebhookEvent("unknown", "missing_signature")
		c.JSON(http.StatusBadRequest, gin.H{"message": "missing signature"})
		return
	}
	if h.cfg.SignatureKey == "" {
		h.log.Error().Msg("square webhook signature key not configured")
		h.metrics.WebhookEvent("unknown", "unconfigured")
		c.JSON(http.StatusUnauthorized, gin.H{"message": "webhook not configured"})
		return
	}
	if !square.VerifyWebhookSignature(h.cfg.SignatureKey, h.notificationURL(c.Request), body, signature) {
		h.log.Warn().Str("path", c.Request.URL.Path).Msg("square webhook signature mismatch")
		h.metrics.WebhookEvent("unknown", "invalid_signature")
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid signature"})
		return
	}

	ev, err := ParseEvent(body)
	if err != nil {
		h.log.Error().Err(err).Msg("square webhook body is not valid json")
		h.metrics.WebhookEvent("unknown", OutcomeError)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	outcome, err := h.processor.Process(c.Request.Context(), ev, body)
	if err != nil {
		h.log.Error().Err(err).Str("event_type", ev.Type).Str("event_id", ev.EventID).Msg("square webhook processing failed")
	}
	h.metrics.WebhookEvent(ev.Type, outcome)
	c.JSON(http.StatusOK, gin.H{"received": true})
}
