package workspaces

import (
	"context"
	"errors"
	"testing"

	"ledgerflow/internal/auth"
	"ledgerflow/internal/testutil"
	"ledgerflow/internal/validation"
)

func TestAlertRecipients(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	ctx := context.Background()

	got, err := AlertRecipients(ctx, db, f.Workspace.ID, nil)
	if err != nil {
		t.Fatalf("AlertRecipients: %v", err)
	}
	if len(got) != 1 || got[0] != f.Owner.Email {
		t.Fatalf("got %v, want only the owner %s", got, f.Owner.Email)
	}

	override := []string{"ops@acme.test"}
	got, err = AlertRecipients(ctx, db, f.Workspace.ID, override)
	if err != nil {
		t.Fatalf("AlertRecipients: %v", err)
	}
	if len(got) != 1 || got[0] != "ops@acme.test" {
		t.Fatalf("override ignored: %v", got)
	}
}

func TestUpdateSettings(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	svc := NewService(db)
	ctx := context.Background()

	owner := auth.Context{UserID: f.Owner.ID, WorkspaceID: f.Workspace.ID, IsAdmin: true}
	member := auth.Context{UserID: f.Member.ID, WorkspaceID: f.Workspace.ID}

	in := SettingsInput{Name: "Acme Plumbing LLC", CompanyEmail: "hello@acme.test", BrandColor: "#0a7cff"}
	if _, err := svc.UpdateSettings(ctx, member, in); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("member update: got %v, want ErrForbidden", err)
	}

	ws, err := svc.UpdateSettings(ctx, owner, in)
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if ws.Name != "Acme Plumbing LLC" || ws.BrandColor != "#0a7cff" {
		t.Errorf("settings not applied: %+v", ws)
	}

	_, err = svc.UpdateSettings(ctx, owner, SettingsInput{Name: "x", BrandColor: "blue"})
	var verr *validation.Error
	if !errors.As(err, &verr) || verr.Fields["brandColor"] == "" {
		t.Fatalf("expected brandColor validation error, got %v", err)
	}
}
