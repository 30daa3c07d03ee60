package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/affiliate-ledger/internal/domain"
)

func strp(s string) *string { return &s }

func TestUser_Create_Defaults(t *testing.T) {
	svc := &UserService{DB: newTestDB(t)}

	u, err := svc.Create(context.Background(), UserInput{Name: "  Ann  Lee ", Email: " Ann@Example.COM "})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == 0 || u.Name != "Ann Lee" || u.Email != "ann@example.com" || u.Role != domain.RoleBuyer {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.NotificationEmail != nil {
		t.Fatalf("notification email should be unset")
	}
}

func TestUser_Create_NotificationEmail(t *testing.T) {
	svc := &UserService{DB: newTestDB(t)}
	ctx := context.Background()

	u, err := svc.Create(ctx, UserInput{Name: "Shop", Email: "shop@example.com", Role: "Company", NotificationEmail: strp(" orders@example.com ")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Role != domain.RoleCompany || u.NotificationEmail == nil || *u.NotificationEmail != "orders@example.com" {
		t.Fatalf("unexpected user: %+v", u)
	}

	u, err = svc.Create(ctx, UserInput{Name: "Shop2", Email: "shop2@example.com", NotificationEmail: strp("  ")})
	if err != nil || u.NotificationEmail != nil {
		t.Fatalf("blank notification email should be dropped: u=%+v err=%v", u, err)
	}
}

func TestUser_Create_Validation(t *testing.T) {
	svc := &UserService{DB: newTestDB(t)}

	_, err := svc.Create(context.Background(), UserInput{
		Name:              "",
		Email:             "Ann <ann@example.com>",
		Role:              "wizard",
		NotificationEmail: strp("nope"),
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	for _, f := range []string{"name", "email", "role", "notification_email"} {
		if _, ok := verr.Fields[f]; !ok {
			t.Fatalf("missing field %q in %v", f, verr.Fields)
		}
	}
}

func TestUser_Create_EmailTaken(t *testing.T) {
	svc := &UserService{DB: newTestDB(t)}
	ctx := context.Background()

	if _, err := svc.Create(ctx, UserInput{Name: "A", Email: "dup@example.com"}); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := svc.Create(ctx, UserInput{Name: "B", Email: "DUP@example.com"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUser_Get(t *testing.T) {
	db := newTestDB(t)
	w := seedWorld(t, db, nil)
	svc := &UserService{DB: db}

	u, err := svc.Get(context.Background(), w.Influencer.ID)
	if err != nil || u.Name != "Ivy" {
		t.Fatalf("Get: u=%+v err=%v", u, err)
	}
	if _, err := svc.Get(context.Background(), 31337); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
