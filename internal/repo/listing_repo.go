package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/affiliate-ledger/internal/domain"
)

// CreateListing inserts l and fills its ID.
func CreateListing(ctx context.Context, db *gorm.DB, l *domain.Listing) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(l).Error
}

// GetListing fetches a listing by ID or returns ErrNotFound.
func GetListing(ctx context.Context, db *gorm.DB, id int64) (*domain.Listing, error) {
	var l domain.Listing
	if err := db.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// CountListings returns the number of listings, optionally scoped to a
// company (companyID > 0).
func CountListings(ctx context.Context, db *gorm.DB, companyID int64) (int64, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.Listing{})
	if companyID > 0 {
		q = q.Where("company_id = ?", companyID)
	}
	err := q.Count(&total).Error
	return total, err
}

// ListListingsPage returns listings newest first, optionally scoped to a
// company (companyID > 0).
func ListListingsPage(ctx context.Context, db *gorm.DB, companyID int64, offset, limit int) ([]domain.Listing, error) {
	var out []domain.Listing
	q := db.WithContext(ctx)
	if companyID > 0 {
		q = q.Where("company_id = ?", companyID)
	}
	err := q.Order("created_at desc").Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// TryDecrementStock atomically reserves qty units of listing id.
//
// The check and the decrement are one conditional UPDATE, so two callers
// can never both succeed against the same remaining units. A NULL stock
// (unlimited) always matches and stays NULL because NULL - qty is NULL.
// applied is false when the listing does not exist or has fewer than qty
// units left; the row is then unchanged.
func TryDecrementStock(ctx context.Context, db *gorm.DB, id, qty int64) (applied bool, err error) {
	res := db.WithContext(ctx).
		Model(&domain.Listing{}).
		Where("id = ? AND (stock IS NULL OR stock >= ?)", id, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// GetStock returns the current stock of a listing (nil = unlimited).
func GetStock(ctx context.Context, db *gorm.DB, id int64) (*int64, error) {
	var row struct {
		Stock *int64
	}
	res := db.WithContext(ctx).Model(&domain.Listing{}).Select("stock").Where("id = ?", id).Limit(1).Scan(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return row.Stock, nil
}

// SetStock overwrites the stock of a listing owned by companyID. A nil
// stock makes the listing unlimited. Returns ErrNotFound when the listing
// does not exist or belongs to another company.
func SetStock(ctx context.Context, db *gorm.DB, id, companyID int64, stock *int64) error {
	res := db.WithContext(ctx).
		Model(&domain.Listing{}).
		Where("id = ? AND company_id = ?", id, companyID).
		Update("stock", stock)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
