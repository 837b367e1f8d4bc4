// Package testutil provides an in-memory database and fixtures for tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"ledgerflow/internal/database"
	"ledgerflow/models"
)

// NewDB opens a migrated in-memory SQLite database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test db: %v", err)
	}
	return db
}

// Fixture is a workspace with an owner, a plain member and one customer.
type Fixture struct {
	Workspace models.Workspace
	Owner     models.User
	Member    models.User
	Customer  models.Customer
}

// Seed creates a Fixture. The customer has an email and no phone.
func Seed(t *testing.T, db *gorm.DB) Fixture {
	t.Helper()

	ws := models.Workspace{ID: uuid.NewString(), Name: "Acme Plumbing", CompanyEmail: "billing@acme.test"}
	owner := models.User{ID: uuid.NewString(), Email: "owner-" + ws.ID[:8] + "@acme.test", Name: "Olivia Owner", DefaultWorkspaceID: ws.ID}
	member := models.User{ID: uuid.NewString(), Email: "member-" + ws.ID[:8] + "@acme.test", Name: "Max Member", DefaultWorkspaceID: ws.ID}
	cust := models.Customer{
		ID:          uuid.NewString(),
		WorkspaceID: ws.ID,
		Type:        models.CustomerBusiness,
		Name:        "Globex Corp",
		Email:       "ap@globex.test",
	}

	mustCreate(t, db, &ws)
	mustCreate(t, db, &owner)
	mustCreate(t, db, &member)
	mustCreate(t, db, &models.Membership{ID: uuid.NewString(), WorkspaceID: ws.ID, UserID: owner.ID, Role: models.RoleOwner})
	mustCreate(t, db, &models.Membership{ID: uuid.NewString(), WorkspaceID: ws.ID, UserID: member.ID, Role: models.RoleMember})
	mustCreate(t, db, &cust)

	return Fixture{Workspace: ws, Owner: owner, Member: member, Customer: cust}
}

// Invoice inserts an invoice with the given lines directly, bypassing the
// invoice service. Amounts are quantity × unit price.
func Invoice(t *testing.T, db *gorm.DB, f Fixture, number string, lines ...models.InvoiceLine) models.Invoice {
	t.Helper()

	inv := models.Invoice{
		ID:          uuid.NewString(),
		WorkspaceID: f.Workspace.ID,
		CustomerID:  f.Customer.ID,
		Number:      number,
		Status:      models.InvoiceStatusDraft,
		Currency:    "USD",
		IssueDate:   time.Now().UTC(),
	}
	for i := range lines {
		lines[i].ID = uuid.NewString()
		lines[i].InvoiceID = inv.ID
		lines[i].Amount = lines[i].Quantity.Mul(lines[i].UnitPrice)
		lines[i].SortOrder = i
		inv.Subtotal = inv.Subtotal.Add(lines[i].Amount)
	}
	inv.Total = inv.Subtotal
	inv.Lines = lines
	mustCreate(t, db, &inv)
	return inv
}

func mustCreate(t *testing.T, db *gorm.DB, v any) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("Failed to seed %T: %v", v, err)
	}
}
