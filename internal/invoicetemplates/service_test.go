package invoicetemplates

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"ledgerflow/internal/auth"
	"ledgerflow/internal/invoices"
	"ledgerflow/internal/testutil"
	"ledgerflow/internal/validation"
)

func TestTemplateLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	svc := NewService(db)
	ctx := context.Background()
	ac := auth.Context{UserID: f.Owner.ID, WorkspaceID: f.Workspace.ID, IsAdmin: true}

	tpl, err := svc.Create(ctx, ac, Input{
		Name: "Boiler service",
		Items: []ItemInput{
			{Description: "Call-out", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(80)},
			{Description: "Hourly labour", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(45)},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err := svc.List(ctx, ac)
	if err != nil || len(list) != 1 || len(list[0].Items) != 2 {
		t.Fatalf("List = %+v, %v", list, err)
	}

	lines, err := svc.Apply(ctx, ac, tpl.ID)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(lines) != 2 || lines[1].Description != "Hourly labour" {
		t.Fatalf("lines = %+v", lines)
	}
	if got := invoices.Subtotal(lines); !got.Equal(decimal.NewFromInt(170)) {
		t.Errorf("subtotal of applied lines = %s, want 170", got)
	}

	other := auth.Context{WorkspaceID: "elsewhere"}
	if _, err := svc.Apply(ctx, other, tpl.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign workspace Apply: got %v", err)
	}

	if err := svc.Delete(ctx, ac, tpl.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, ac, tpl.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: got %v", err)
	}
}

func TestCreateRequiresItems(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(db)

	_, err := svc.Create(context.Background(), auth.Context{WorkspaceID: "w"}, Input{Name: "Empty"})
	var verr *validation.Error
	if !errors.As(err, &verr) || verr.Fields["items"] == "" {
		t.Fatalf("got %v, want items error", err)
	}
}
