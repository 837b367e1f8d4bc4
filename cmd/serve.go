package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"ledgerflow/internal/database"
	"ledgerflow/internal/logger"
	"ledgerflow/internal/metrics"
	"ledgerflow/internal/notify"
	"ledgerflow/internal/routes"
	"ledgerflow/internal/seed"
	"ledgerflow/internal/square"
)

var (
	serveAddr    string
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Example: `  ledgerflow serve
  ledgerflow serve --addr :9090 --migrate=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from ADDR)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "run migrations before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.UsesDefaultSecret() {
		log.Warn().Msg("JWT_SECRET is not set, using the development default")
	}

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	if serveMigrate {
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SeedDev {
		if _, err := seed.Run(ctx, db, seed.Options{}); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	deps := routes.Deps{
		Config:  cfg,
		DB:      db,
		Metrics: metrics.New(),
		Emailer: notify.NewResend(notify.ResendConfig{
			APIKey:  cfg.Resend.APIKey,
			From:    cfg.Resend.From,
			BaseURL: cfg.Resend.BaseURL,
			Timeout: cfg.HTTPTimeout,
		}),
		Texter: notify.NewTwilio(notify.TwilioConfig{
			AccountSID: cfg.Twilio.AccountSID,
			AuthToken:  cfg.Twilio.AuthToken,
			From:       cfg.Twilio.From,
			BaseURL:    cfg.Twilio.BaseURL,
			Timeout:    cfg.HTTPTimeout,
		}),
	}
	if cfg.Square.AccessToken != "" {
		deps.Square = square.NewClient(square.ClientConfig{
			AccessToken: cfg.Square.AccessToken,
			APIVersion:  cfg.Square.APIVersion,
			BaseURL:     cfg.SquareBaseURL(),
			Timeout:     cfg.HTTPTimeout,
		})
	} else {
		log.Warn().Msg("SQUARE_ACCESS_TOKEN is not set, payment links are disabled")
	}
	if cfg.Resend.APIKey == "" {
		log.Warn().Msg("RESEND_API_KEY is not set, emails will fail")
	}

	engine, err := routes.Register(deps)
	if err != nil {
		return err
	}

	addr := cfg.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}
