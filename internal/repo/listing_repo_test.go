package repo

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/affiliate-ledger/internal/domain"
)

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := &domain.User{Name: "A", Email: "a@example.com", Role: domain.RoleBuyer}
	if err := CreateUser(ctx, db, u); err != nil || u.ID == 0 {
		t.Fatalf("CreateUser: id=%d err=%v", u.ID, err)
	}
	err := CreateUser(ctx, db, &domain.User{Name: "B", Email: "a@example.com", Role: domain.RoleBuyer})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	got, err := GetUser(ctx, db, u.ID)
	if err != nil || got.Name != "A" {
		t.Fatalf("GetUser: %+v %v", got, err)
	}
	if _, err := GetUser(ctx, db, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListings_CreateGetListCount(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db, i64(3))
	ctx := context.Background()

	second := &domain.Listing{CompanyID: f.Company.ID, Title: "Cup", ProductName: "Tea cup", UnitPrice: 500}
	if err := CreateListing(ctx, db, second); err != nil {
		t.Fatalf("CreateListing: %v", err)
	}

	got, err := GetListing(ctx, db, f.Listing.ID)
	if err != nil || got.Stock == nil || *got.Stock != 3 {
		t.Fatalf("GetListing: %+v %v", got, err)
	}
	if _, err := GetListing(ctx, db, 12345); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	n, err := CountListings(ctx, db, 0)
	if err != nil || n != 2 {
		t.Fatalf("CountListings all = %d, %v", n, err)
	}
	n, err = CountListings(ctx, db, f.Buyer.ID)
	if err != nil || n != 0 {
		t.Fatalf("CountListings other company = %d, %v", n, err)
	}

	page, err := ListListingsPage(ctx, db, f.Company.ID, 0, 1)
	if err != nil || len(page) != 1 || page[0].ID != second.ID {
		t.Fatalf("ListListingsPage first page: %+v %v", page, err)
	}
	page, err = ListListingsPage(ctx, db, 0, 1, 10)
	if err != nil || len(page) != 1 || page[0].ID != f.Listing.ID {
		t.Fatalf("ListListingsPage second page: %+v %v", page, err)
	}
}

func TestTryDecrementStock_Limited(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db, i64(2))
	ctx := context.Background()

	applied, err := TryDecrementStock(ctx, db, f.Listing.ID, 3)
	if err != nil || applied {
		t.Fatalf("over-ask should not apply: applied=%v err=%v", applied, err)
	}
	if s, _ := GetStock(ctx, db, f.Listing.ID); s == nil || *s != 2 {
		t.Fatalf("stock changed on failed decrement: %v", s)
	}

	applied, err = TryDecrementStock(ctx, db, f.Listing.ID, 2)
	if err != nil || !applied {
		t.Fatalf("exact ask should apply: applied=%v err=%v", applied, err)
	}
	if s, _ := GetStock(ctx, db, f.Listing.ID); s == nil || *s != 0 {
		t.Fatalf("expected stock 0, got %v", s)
	}

	applied, err = TryDecrementStock(ctx, db, f.Listing.ID, 1)
	if err != nil || applied {
		t.Fatalf("sold out should not apply: applied=%v err=%v", applied, err)
	}
}

func TestTryDecrementStock_UnlimitedAndMissing(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		applied, err := TryDecrementStock(ctx, db, f.Listing.ID, 1000)
		if err != nil || !applied {
			t.Fatalf("unlimited should always apply: applied=%v err=%v", applied, err)
		}
	}
	if s, err := GetStock(ctx, db, f.Listing.ID); err != nil || s != nil {
		t.Fatalf("unlimited stock must stay NULL, got %v err=%v", s, err)
	}

	applied, err := TryDecrementStock(ctx, db, 9999, 1)
	if err != nil || applied {
		t.Fatalf("missing listing should not apply: applied=%v err=%v", applied, err)
	}
	if _, err := GetStock(ctx, db, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetStock_OwnerOnly(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db, i64(1))
	ctx := context.Background()

	if err := SetStock(ctx, db, f.Listing.ID, f.Buyer.ID, i64(50)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("non-owner should get ErrNotFound, got %v", err)
	}
	if err := SetStock(ctx, db, f.Listing.ID, f.Company.ID, i64(50)); err != nil {
		t.Fatalf("SetStock: %v", err)
	}
	if s, _ := GetStock(ctx, db, f.Listing.ID); s == nil || *s != 50 {
		t.Fatalf("expected 50, got %v", s)
	}
	if err := SetStock(ctx, db, f.Listing.ID, f.Company.ID, nil); err != nil {
		t.Fatalf("SetStock unlimited: %v", err)
	}
	if s, _ := GetStock(ctx, db, f.Listing.ID); s != nil {
		t.Fatalf("expected unlimited, got %v", *s)
	}
}

// Many connections race for the last units; exactly the available number
// of reservations may succeed and stock must end at zero.
func TestTryDecrementStock_ConcurrentNeverOversells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "race.db")
	db, err := OpenSQLite(path, 8)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	db = db.Session(&gorm.Session{Logger: logger.Default.LogMode(logger.Silent)})
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	f := seed(t, db, i64(5))

	const workers = 20
	var (
		wg      sync.WaitGroup
		applied atomic.Int64
		failed  atomic.Int64
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := TryDecrementStock(context.Background(), db, f.Listing.ID, 1)
			if err != nil {
				failed.Add(1)
				return
			}
			if ok {
				applied.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if failed.Load() != 0 {
		t.Fatalf("unexpected errors from concurrent decrements: %d", failed.Load())
	}
	if applied.Load() != 5 {
		t.Fatalf("expected exactly 5 successful reservations, got %d", applied.Load())
	}
	if s, _ := GetStock(context.Background(), db, f.Listing.ID); s == nil || *s != 0 {
		t.Fatalf("expected final stock 0, got %v", s)
	}
}
