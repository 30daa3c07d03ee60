package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/affiliate-ledger/internal/domain"
)

// PurchaseSummary is a purchase joined with its listing and the people
// involved, as shown in buyer and company order lists.
type PurchaseSummary struct {
	ID               int64     `json:"id"`
	ListingID        int64     `json:"listing_id"`
	Title            string    `json:"title"`
	ProductName      string    `json:"product_name"`
	Quantity         int64     `json:"quantity"`
	UnitPrice        int64     `json:"unit_price"`
	CompanyAmount    int64     `json:"company_amount"`
	InfluencerAmount int64     `json:"influencer_amount"`
	PlatformAmount   int64     `json:"platform_amount"`
	Handled          bool      `json:"handled"`
	BuyerID          int64     `json:"buyer_id"`
	BuyerName        string    `json:"buyer_name"`
	BuyerEmail       string    `json:"buyer_email"`
	ReferrerID       int64     `json:"referrer_id"`
	ReferrerName     *string   `json:"referrer_name,omitempty"`
	CompanyName      string    `json:"company_name"`
	CreatedAt        time.Time `json:"created_at"`
}

// OrderView is everything needed to describe one purchase to its company
// and buyer (notifications, detail pages).
type OrderView struct {
	PurchaseID               int64
	ListingID                int64
	Title                    string
	ProductName              string
	Quantity                 int64
	UnitPrice                int64
	CompanyAmount            int64
	InfluencerAmount         int64
	PlatformAmount           int64
	Handled                  bool
	CreatedAt                time.Time
	CompanyID                int64
	CompanyName              string
	CompanyEmail             string
	CompanyNotificationEmail *string
	BuyerID                  int64
	BuyerName                string
	BuyerEmail               string
	ReferrerID               int64
	ReferrerName             *string
}

// Total returns the gross amount of the order.
func (v OrderView) Total() int64 { return v.UnitPrice * v.Quantity }

const summarySelect = `
p.id, p.listing_id, l.title, l.product_name, p.quantity, p.unit_price,
p.company_amount, p.influencer_amount, p.platform_amount, p.handled,
p.buyer_id, b.name AS buyer_name, b.email AS buyer_email,
p.referrer_id, r.name AS referrer_name, c.name AS company_name, p.created_at`

// CreatePurchase inserts p and fills its ID. A collision on the
// idempotency key is reported as ErrDuplicate.
func CreatePurchase(ctx context.Context, db *gorm.DB, p *domain.Purchase) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		if IsDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetPurchase fetches a purchase by ID or returns ErrNotFound.
func GetPurchase(ctx context.Context, db *gorm.DB, id int64) (*domain.Purchase, error) {
	var p domain.Purchase
	if err := db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetOrderView loads the joined view of one purchase or returns ErrNotFound.
func GetOrderView(ctx context.Context, db *gorm.DB, id int64) (*OrderView, error) {
	var v OrderView
	res := db.WithContext(ctx).Raw(`
SELECT p.id AS purchase_id, p.listing_id, l.title, l.product_name, p.quantity, p.unit_price,
       p.company_amount, p.influencer_amount, p.platform_amount, p.handled, p.created_at,
       l.company_id, c.name AS company_name, c.email AS company_email,
       c.notification_email AS company_notification_email,
       p.buyer_id, b.name AS buyer_name, b.email AS buyer_email,
       p.referrer_id, r.name AS referrer_name
FROM purchases p
JOIN listings l ON l.id = p.listing_id
JOIN users c ON c.id = l.company_id
JOIN users b ON b.id = p.buyer_id
LEFT JOIN users r ON r.id = p.referrer_id
WHERE p.id = ?`, id).Scan(&v)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &v, nil
}

func summaries(ctx context.Context, db *gorm.DB) *gorm.DB {
	return db.WithContext(ctx).
		Table("purchases p").
		Select(summarySelect).
		Joins("JOIN listings l ON l.id = p.listing_id").
		Joins("JOIN users c ON c.id = l.company_id").
		Joins("JOIN users b ON b.id = p.buyer_id").
		Joins("LEFT JOIN users r ON r.id = p.referrer_id")
}

// CountPurchasesByBuyer returns the number of purchases made by buyerID.
func CountPurchasesByBuyer(ctx context.Context, db *gorm.DB, buyerID int64) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Purchase{}).Where("buyer_id = ?", buyerID).Count(&total).Error
	return total, err
}

// ListPurchasesByBuyerPage returns buyerID's purchases, newest first.
func ListPurchasesByBuyerPage(ctx context.Context, db *gorm.DB, buyerID int64, offset, limit int) ([]PurchaseSummary, error) {
	var out []PurchaseSummary
	err := summaries(ctx, db).
		Where("p.buyer_id = ?", buyerID).
		Order("p.created_at desc").Order("p.id desc").
		Offset(offset).
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// CountPurchasesByCompany returns the number of purchases of companyID's listings.
func CountPurchasesByCompany(ctx context.Context, db *gorm.DB, companyID int64) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Table("purchases p").
		Joins("JOIN listings l ON l.id = p.listing_id").
		Where("l.company_id = ?", companyID).
		Count(&total).Error
	return total, err
}

// ListPurchasesByCompanyPage returns purchases of companyID's listings,
// unhandled first, then newest first.
func ListPurchasesByCompanyPage(ctx context.Context, db *gorm.DB, companyID int64, offset, limit int) ([]PurchaseSummary, error) {
	var out []PurchaseSummary
	err := summaries(ctx, db).
		Where("l.company_id = ?", companyID).
		Order("p.handled asc").Order("p.created_at desc").Order("p.id desc").
		Offset(offset).
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// MarkPurchaseHandled flags a purchase as handled by the company that owns
// its listing. Returns ErrNotFound when the purchase does not exist or
// belongs to another company. Marking twice is not an error.
func MarkPurchaseHandled(ctx context.Context, db *gorm.DB, id, companyID int64) error {
	res := db.WithContext(ctx).
		Model(&domain.Purchase{}).
		Where("id = ? AND listing_id IN (?)", id,
			db.Model(&domain.Listing{}).Select("id").Where("company_id = ?", companyID)).
		Update("handled", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
