package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestFindPurchaseByKey_MissingOrBlank_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, key := range []string{"", "   ", "never-used-key"} {
		p, err := FindPurchaseByKey(ctx, db, key)
		if p != nil || !errors.Is(err, ErrNotFound) {
			t.Fatalf("key %q: expected (nil, ErrNotFound), got (%v, %v)", key, p, err)
		}
	}
}

func TestFindPurchaseByKey_ExactMatch(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db, nil)
	ctx := context.Background()

	p := f.purchase("Order-Key-0001", 1, time.Now().UTC())
	if err := CreatePurchase(ctx, db, p); err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}

	got, err := FindPurchaseByKey(ctx, db, "Order-Key-0001")
	if err != nil || got.ID != p.ID {
		t.Fatalf("expected purchase %d, got %+v err=%v", p.ID, got, err)
	}
	// Case-sensitive.
	if _, err := FindPurchaseByKey(ctx, db, "order-key-0001"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for different case, got %v", err)
	}
}

func TestCreatePurchase_DuplicateKey(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db, nil)
	ctx := context.Background()

	if err := CreatePurchase(ctx, db, f.purchase("dup-key-000001", 1, time.Now().UTC())); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := CreatePurchase(ctx, db, f.purchase("dup-key-000001", 2, time.Now().UTC()))
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	var n int64
	db.Table("purchases").Where("idempotency_key = ?", "dup-key-000001").Count(&n)
	if n != 1 {
		t.Fatalf("expected exactly one row for key, got %d", n)
	}
}

// Generic DB error path: foreign key failure is not a duplicate.
func TestCreatePurchase_ForeignKeyError_IsNotDuplicate(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db, nil)
	p := f.purchase("fk-key-0000001", 1, time.Now().UTC())
	p.BuyerID = 424242
	err := CreatePurchase(context.Background(), db, p)
	if err == nil {
		t.Fatalf("expected foreign key error")
	}
	if errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected non-duplicate error, got ErrDuplicate")
	}
}

func TestIsDuplicate(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrDuplicate, true},
		{"gorm translated", gorm.ErrDuplicatedKey, true},
		{"wrapped gorm", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true},
		{"sqlite text", errors.New("UNIQUE constraint failed: purchases.idempotency_key"), true},
		{"sqlite extended", errors.New("constraint failed: UNIQUE constraint failed (2067)"), true},
		{"postgres unique", &pgconn.PgError{Code: "23505"}, true},
		{"postgres fk", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite fk", errors.New("FOREIGN KEY constraint failed"), false},
		{"other", errors.New("disk I/O error"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsDuplicate(tc.err); got != tc.want {
				t.Fatalf("IsDuplicate(%v) = %v; want %v", tc.err, got, tc.want)
			}
		})
	}
}
