package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"ledgerflow/internal/config"
	"ledgerflow/internal/logger"
	"ledgerflow/models"
)

// Open connects to the configured database and verifies the connection.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	dsn := cfg.DSN()
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(strings.TrimPrefix(dsn, "sqlite:"))
	default:
		dialector = mysql.Open(dsn)
	}

	level := gormlogger.Warn
	if strings.EqualFold(cfg.LogLevel, "debug") || strings.EqualFold(cfg.LogLevel, "trace") {
		level = gormlogger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(logger.GormWriter{Log: logger.WithComponent("gorm")}, gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	if cfg.DBDriver == "sqlite" {
		// SQLite allows a single writer; serialise through one connection.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// Migrate creates or updates tables, report views and secondary indexes.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Workspace{},
		&models.User{},
		&models.Membership{},
		&models.Customer{},
		&models.Invoice{},
		&models.InvoiceLine{},
		&models.Payment{},
		&models.InvoiceEvent{},
		&models.InvoiceTemplate{},
		&models.InvoiceTemplateItem{},
		&models.InvoiceSequence{},
	)
	if err != nil {
		return err
	}

	log := logger.WithComponent("migrate")

	createView := "CREATE OR REPLACE VIEW"
	if db.Dialector.Name() == "sqlite" {
		createView = "CREATE VIEW IF NOT EXISTS"
	}
	views := []string{
		createView + ` v_invoice_summary AS
			SELECT i.id AS invoice_id, i.workspace_id, i.number, i.status, i.issue_date, i.due_date,
			       i.currency, i.total, i.amount_paid, i.deposit_amount, i.sent_at, i.paid_at,
			       c.id AS customer_id, c.name AS customer_name, c.email AS customer_email
			FROM invoices i
			JOIN customers c ON c.id = i.customer_id`,
	}
	for _, s := range views {
		if err := db.Exec(s).Error; err != nil {
			log.Warn().Err(err).Msg("migration warning (views)")
		}
	}

	// Duplicate index errors on re-run are expected and ignored.
	indexStmts := []string{
		`CREATE INDEX idx_invoices_workspace_status ON invoices (workspace_id, status)`,
		`CREATE INDEX idx_invoices_workspace_issue_date ON invoices (workspace_id, issue_date)`,
		`CREATE INDEX idx_invoice_events_invoice_type ON invoice_events (invoice_id, type)`,
	}
	for _, s := range indexStmts {
		_ = db.Exec(s).Error
	}
	return nil
}
