// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides aggregate queries: list metadata used
// for conditional responses (ETag generation) in the HTTP layer, referral
// sales history, and company dashboards.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/affiliate-ledger/internal/domain"
)

// BuyerPurchasesStats returns aggregate metadata for a buyer's purchases:
// the total number of rows and the greatest CreatedAt among them.
// When the buyer has no purchases, count is 0 and latest is nil.
func BuyerPurchasesStats(ctx context.Context, db *gorm.DB, buyerID int64) (count int64, latest *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Purchase{}).Where("buyer_id = ?", buyerID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}

// ProductSales aggregates one referrer's sales of a single listing.
type ProductSales struct {
	ListingID     int64  `json:"listing_id"`
	ProductName   string `json:"product_name"`
	TotalOrders   int64  `json:"total_orders"`
	TotalQuantity int64  `json:"total_quantity"`
	TotalReward   int64  `json:"total_reward"`
}

// DailySales aggregates one referrer's sales for a calendar day (UTC).
type DailySales struct {
	Day      string `json:"day"` // YYYY-MM-DD
	Quantity int64  `json:"quantity"`
	Reward   int64  `json:"reward"`
}

// SalesTotals summarizes a referrer's whole history.
type SalesTotals struct {
	TotalOrders   int64   `json:"total_orders"`
	TotalQuantity int64   `json:"total_quantity"`
	TotalReward   int64   `json:"total_reward"`
	FirstDay      *string `json:"first_day,omitempty"`
	LastDay       *string `json:"last_day,omitempty"`
}

// ReferrerSalesByProduct returns per-listing totals of purchases referred
// by referrerID, biggest reward first.
func ReferrerSalesByProduct(ctx context.Context, db *gorm.DB, referrerID int64) ([]ProductSales, error) {
	var out []ProductSales
	err := db.WithContext(ctx).
		Table("purchases p").
		Select(`p.listing_id, l.product_name,
COUNT(*) AS total_orders,
COALESCE(SUM(p.quantity), 0) AS total_quantity,
COALESCE(SUM(p.influencer_amount), 0) AS total_reward`).
		Joins("JOIN listings l ON l.id = p.listing_id").
		Where("p.referrer_id = ?", referrerID).
		Group("p.listing_id, l.product_name").
		Order("total_reward desc").Order("p.listing_id asc").
		Scan(&out).Error
	return out, err
}

// ReferrerSalesDaily returns per-day totals of purchases referred by
// referrerID in ascending day order, plus overall totals.
//
// Days are bucketed in Go from created_at so the result does not depend
// on each driver's date functions or time storage format.
func ReferrerSalesDaily(ctx context.Context, db *gorm.DB, referrerID int64) ([]DailySales, SalesTotals, error) {
	var rows []struct {
		CreatedAt        time.Time
		Quantity         int64
		InfluencerAmount int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Purchase{}).
		Select("created_at, quantity, influencer_amount").
		Where("referrer_id = ?", referrerID).
		Order("created_at asc").Order("id asc").
		Scan(&rows).Error
	if err != nil {
		return nil, SalesTotals{}, err
	}

	var (
		days   []DailySales
		totals SalesTotals
	)
	for _, r := range rows {
		day := r.CreatedAt.UTC().Format(time.DateOnly)
		if n := len(days); n == 0 || days[n-1].Day != day {
			days = append(days, DailySales{Day: day})
		}
		d := &days[len(days)-1]
		d.Quantity += r.Quantity
		d.Reward += r.InfluencerAmount

		totals.TotalOrders++
		totals.TotalQuantity += r.Quantity
		totals.TotalReward += r.InfluencerAmount
	}
	if len(days) > 0 {
		first, last := days[0].Day, days[len(days)-1].Day
		totals.FirstDay, totals.LastDay = &first, &last
	}
	return days, totals, nil
}

// CompanyStats summarizes a company's catalogue and sales.
type CompanyStats struct {
	TotalListings    int64 `json:"total_listings"`
	TotalPurchases   int64 `json:"total_purchases"`
	UnhandledCount   int64 `json:"unhandled_purchases"`
	TotalQuantity    int64 `json:"total_quantity"`
	GrossSales       int64 `json:"gross_sales"`
	CompanyRevenue   int64 `json:"company_revenue"`
	InfluencerPayout int64 `json:"influencer_payout"`
	PlatformFees     int64 `json:"platform_fees"`
}

// CompanyStatsFor aggregates listings and purchases owned by companyID.
func CompanyStatsFor(ctx context.Context, db *gorm.DB, companyID int64) (CompanyStats, error) {
	var st CompanyStats
	if err := db.WithContext(ctx).Model(&domain.Listing{}).
		Where("company_id = ?", companyID).
		Count(&st.TotalListings).Error; err != nil {
		return CompanyStats{}, err
	}

	var agg struct {
		TotalPurchases   int64
		UnhandledCount   int64
		TotalQuantity    int64
		GrossSales       int64
		CompanyRevenue   int64
		InfluencerPayout int64
		PlatformFees     int64
	}
	err := db.WithContext(ctx).
		Table("purchases p").
		Select(`COUNT(*) AS total_purchases,
COALESCE(SUM(CASE WHEN p.handled THEN 0 ELSE 1 END), 0) AS unhandled_count,
COALESCE(SUM(p.quantity), 0) AS total_quantity,
COALESCE(SUM(p.unit_price * p.quantity), 0) AS gross_sales,
COALESCE(SUM(p.company_amount), 0) AS company_revenue,
COALESCE(SUM(p.influencer_amount), 0) AS influencer_payout,
COALESCE(SUM(p.platform_amount), 0) AS platform_fees`).
		Joins("JOIN listings l ON l.id = p.listing_id").
		Where("l.company_id = ?", companyID).
		Scan(&agg).Error
	if err != nil {
		return CompanyStats{}, err
	}
	st.TotalPurchases = agg.TotalPurchases
	st.UnhandledCount = agg.UnhandledCount
	st.TotalQuantity = agg.TotalQuantity
	st.GrossSales = agg.GrossSales
	st.CompanyRevenue = agg.CompanyRevenue
	st.InfluencerPayout = agg.InfluencerPayout
	st.PlatformFees = agg.PlatformFees
	return st, nil
}
