package routes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"ledgerflow/internal/auth"
	"ledgerflow/internal/config"
	"ledgerflow/internal/controllers"
	"ledgerflow/internal/customers"
	"ledgerflow/internal/invoicenotify"
	"ledgerflow/internal/invoices"
	"ledgerflow/internal/invoicetemplates"
	"ledgerflow/internal/logger"
	"ledgerflow/internal/metrics"
	"ledgerflow/internal/notify"
	"ledgerflow/internal/square"
	"ledgerflow/internal/webhooks"
	"ledgerflow/internal/workspaces"
)

// Deps are the collaborators the router wires into services. Square may be
// nil when payment links are not configured.
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Metrics *metrics.Metrics
	Emailer notify.Emailer
	Texter  notify.Texter
	Square  square.LinkCreator
}

func Register(d Deps) (*gin.Engine, error) {
	cfg := d.Config
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	invoiceSvc := invoices.NewService(d.DB)
	notifySvc := invoicenotify.NewService(d.DB, d.Emailer, d.Texter, invoicenotify.Config{
		AppBaseURL:  cfg.AppBaseURL,
		AlertEmails: cfg.AlertEmails,
	}, d.Metrics)
	links := square.NewLinkService(d.Square, cfg.Square.LocationID, cfg.Square.RedirectURL, d.Metrics)
	hook := webhooks.NewHandler(webhooks.HandlerConfig{
		SignatureKey:    cfg.Square.WebhookSignatureKey,
		NotificationURL: cfg.Square.WebhookNotificationURL,
		AppBaseURL:      cfg.AppBaseURL,
	}, webhooks.NewProcessor(d.DB, notifySvc), d.Metrics)

	inv := controllers.InvoiceController{Invoices: invoiceSvc, Links: links, Notify: notifySvc}
	cust := controllers.CustomerController{Customers: customers.NewService(d.DB)}
	tpl := controllers.TemplateController{Templates: invoicetemplates.NewService(d.DB)}
	settings := controllers.SettingsController{Workspaces: workspaces.NewService(d.DB)}
	reports := controllers.ReportsController{Invoices: invoiceSvc}
	authc := controllers.AuthController{Auth: auth.NewService(d.DB, tokens)}
	public := controllers.PublicController{Invoices: invoiceSvc, Notify: notifySvc}
	guestc := controllers.GuestController{SecureCookie: cfg.IsProduction()}

	pages, err := controllers.LoadTemplates()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	r := gin.New()
	r.Use(logger.RequestLogger(), gin.Recovery())
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(corsCfg.AllowOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	}
	r.Use(cors.New(corsCfg))
	r.SetHTMLTemplate(pages)

	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		sqlDB, err := d.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	// Square was pointed at two paths over time; both stay live.
	r.POST("/api/webhooks/square", hook.Square)
	r.POST("/api/square/webhook", hook.Square)

	r.GET("/i/:id", public.Invoice)
	r.GET("/i/:id/pixel.gif", public.Pixel)
	r.GET("/i/:id/pay", public.Pay)

	r.GET("/guest", guestc.Page)
	r.GET("/guest/invoices", guestc.List)
	r.POST("/guest/invoices", guestc.Create)
	r.DELETE("/guest/invoices/:id", guestc.Delete)

	api := r.Group("/api/v1")
	api.POST("/auth/register", authc.Register)
	api.POST("/auth/login", authc.Login)

	secured := api.Group("", auth.Middleware(tokens))

	secured.POST("/invoices", inv.Create)
	secured.GET("/invoices", inv.List)
	secured.GET("/invoices/:id", inv.GetByID)
	secured.PUT("/invoices/:id", inv.Update)
	secured.DELETE("/invoices/:id", inv.Delete)
	secured.PATCH("/invoices/:id/status", inv.UpdateStatus)
	secured.POST("/invoices/:id/payments", inv.RecordPayment)
	secured.POST("/invoices/:id/send", inv.Send)

	secured.POST("/customers", cust.Create)
	secured.GET("/customers", cust.List)
	secured.GET("/customers/:id", cust.GetByID)
	secured.PUT("/customers/:id", cust.Update)
	secured.DELETE("/customers/:id", cust.Delete)

	secured.POST("/invoice-templates", tpl.Create)
	secured.GET("/invoice-templates", tpl.List)
	secured.GET("/invoice-templates/:id", tpl.GetByID)
	secured.DELETE("/invoice-templates/:id", tpl.Delete)
	secured.POST("/invoice-templates/:id/apply", tpl.Apply)

	secured.GET("/settings", settings.Get)
	secured.PUT("/settings", settings.Update)

	secured.GET("/reports/invoices", reports.GetInvoices)
	secured.GET("/reports/status-totals", reports.GetStatusTotals)

	return r, nil
}
