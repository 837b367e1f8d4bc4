// Package seed fills an empty database with a demo workspace for local
// development.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ledgerflow/internal/auth"
	"ledgerflow/internal/customers"
	"ledgerflow/internal/invoices"
	"ledgerflow/internal/invoicetemplates"
	"ledgerflow/internal/logger"
	"ledgerflow/models"
)

const (
	DemoEmail    = "demo@ledgerflow.test"
	DemoPassword = "ledgerflow-demo"
)

type Options struct {
	Invoices int
	// RandSeed makes the generated invoices reproducible.
	RandSeed int64
}

type Result struct {
	Skipped     bool
	WorkspaceID string
	Customers   int
	Invoices    int
}

var demoCustomers = []customers.Input{
	{Name: "Globex Corporation", Email: "ap@globex.test", Phone: "+1 (555) 010-2000", City: "Springfield", State: "IL", Country: "US"},
	{Name: "Initech", Email: "billing@initech.test", City: "Austin", State: "TX", Country: "US"},
	{Name: "Hooli", Email: "finance@hooli.test", Phone: "+1 650 555 0199", City: "Palo Alto", State: "CA", Country: "US"},
	{Type: models.CustomerIndividual, Name: "Marge Simpson", Email: "marge@example.test", Phone: "+15550104242"},
	{Type: models.CustomerIndividual, Name: "Ned Flanders", Phone: "+1 555 010 7777"},
}

var demoProducts = []struct {
	Description string
	UnitPrice   string
}{
	{"Service call", "95.00"},
	{"Labor (hourly)", "85.00"},
	{"Water heater install", "1250.00"},
	{"Drain cleaning", "180.00"},
	{"Replacement valve", "42.50"},
}

// Run creates the demo workspace unless the demo user already exists.
func Run(ctx context.Context, db *gorm.DB, opts Options) (*Result, error) {
	log := logger.WithComponent("seed")
	if opts.Invoices <= 0 {
		opts.Invoices = 12
	}
	if opts.RandSeed == 0 {
		opts.RandSeed = time.Now().UnixNano()
	}

	var cnt int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("email = ?", DemoEmail).Count(&cnt).Error; err != nil {
		return nil, err
	}
	if cnt > 0 {
		log.Info().Str("email", DemoEmail).Msg("demo data already present, skipping")
		return &Result{Skipped: true}, nil
	}

	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return nil, err
	}
	ws := models.Workspace{
		ID:           uuid.NewString(),
		Name:         "Demo Plumbing Co.",
		CompanyEmail: "office@demo-plumbing.test",
		CompanyPhone: "+1 555 010 1000",
		BrandColor:   "#0f766e",
	}
	user := models.User{
		ID:                 uuid.NewString(),
		Email:              DemoEmail,
		Name:               "Demo Owner",
		PasswordHash:       hash,
		DefaultWorkspaceID: ws.ID,
	}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ws).Error; err != nil {
			return err
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&models.Membership{
			ID:          uuid.NewString(),
			WorkspaceID: ws.ID,
			UserID:      user.ID,
			Role:        models.RoleOwner,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create demo workspace: %w", err)
	}

	ac := auth.Context{UserID: user.ID, WorkspaceID: ws.ID, IsAdmin: true}
	res := &Result{WorkspaceID: ws.ID}

	custSvc := customers.NewService(db)
	var custIDs []string
	for _, in := range demoCustomers {
		c, err := custSvc.Create(ctx, ac, in)
		if err != nil {
			return nil, fmt.Errorf("seed customer %s: %w", in.Name, err)
		}
		custIDs = append(custIDs, c.ID)
		res.Customers++
	}

	tplSvc := invoicetemplates.NewService(db)
	_, err = tplSvc.Create(ctx, ac, invoicetemplates.Input{
		Name: "Standard service visit",
		Items: []invoicetemplates.ItemInput{
			{Description: "Service call", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("95.00")},
			{Description: "Labor (hourly)", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("85.00")},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("seed template: %w", err)
	}

	rng := rand.New(rand.NewSource(opts.RandSeed))
	invSvc := invoices.NewService(db)
	now := time.Now().UTC()
	for i := 0; i < opts.Invoices; i++ {
		issue := now.AddDate(0, 0, -rng.Intn(60))
		due := issue.AddDate(0, 0, 30)
		in := invoices.Input{
			CustomerID: custIDs[rng.Intn(len(custIDs))],
			IssueDate:  issue.Format("2006-01-02"),
			DueDate:    due.Format("2006-01-02"),
		}
		for j, n := 0, rng.Intn(3)+1; j < n; j++ {
			p := demoProducts[rng.Intn(len(demoProducts))]
			in.Lines = append(in.Lines, invoices.LineInput{
				Description: p.Description,
				Quantity:    decimal.NewFromInt(int64(rng.Intn(4) + 1)),
				UnitPrice:   decimal.RequireFromString(p.UnitPrice),
			})
		}
		if i%4 == 1 {
			in.RequiresDeposit = true
			in.DepositType = models.DepositPercentage
			in.DepositValue = 25
		}

		inv, err := invSvc.Create(ctx, ac, in)
		if err != nil {
			return nil, fmt.Errorf("seed invoice %d: %w", i+1, err)
		}
		res.Invoices++

		switch i % 5 {
		case 1, 2:
			_, err = invSvc.UpdateStatus(ctx, ac, inv.ID, models.InvoiceStatusSent)
		case 3:
			_, _, err = invSvc.RecordPayment(ctx, ac, inv.ID, invoices.PaymentInput{Amount: inv.Total, Note: "Check"})
		case 4:
			if due.Before(now) {
				_, err = invSvc.UpdateStatus(ctx, ac, inv.ID, models.InvoiceStatusOverdue)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("seed invoice %s status: %w", inv.Number, err)
		}
	}

	log.Info().
		Str("workspace_id", ws.ID).
		Int("customers", res.Customers).
		Int("invoices", res.Invoices).
		Msg("demo data seeded")
	return res, nil
}
