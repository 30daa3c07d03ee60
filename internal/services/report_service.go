// Package services – ReportService
//
// This file implements the read side of the ledger: buyer order history,
// purchase confirmation views, referral sales history, the company order
// desk (including the "handled" flag), company statistics, and the
// notification log. Every method checks that the caller may see the data;
// purchases a caller is not party to are reported as not found.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/affiliate-ledger/internal/domain"
	"github.com/tbourn/affiliate-ledger/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SalesHistory is a referrer's earnings broken down by product and day.
type SalesHistory struct {
	ByProduct []repo.ProductSales `json:"by_product"`
	Daily     []repo.DailySales   `json:"daily"`
	Totals    repo.SalesTotals    `json:"totals"`
}

// ReportService answers ledger queries.
type ReportService struct {
	DB *gorm.DB
}

func (s *ReportService) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer("services/ReportService").Start(ctx, name, trace.WithAttributes(attrs...))
}

// BuyerPurchases returns a page of buyerID's purchases, newest first, and the total.
func (s *ReportService) BuyerPurchases(ctx context.Context, buyerID int64, page, pageSize int) ([]repo.PurchaseSummary, int64, error) {
	ctx, span := s.span(ctx, "BuyerPurchases",
		attribute.Int64("buyer.id", buyerID),
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)
	defer span.End()

	offset, limit := pageWindow(page, pageSize)
	total, err := repo.CountPurchasesByBuyer(ctx, s.DB, buyerID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []repo.PurchaseSummary{}, 0, nil
	}
	items, err := repo.ListPurchasesByBuyerPage(ctx, s.DB, buyerID, offset, limit)
	return items, total, err
}

// BuyerPurchasesStats returns the count and newest timestamp of buyerID's
// purchases, for cache validators.
func (s *ReportService) BuyerPurchasesStats(ctx context.Context, buyerID int64) (int64, *time.Time, error) {
	return repo.BuyerPurchasesStats(ctx, s.DB, buyerID)
}

// PurchaseView returns the confirmation view of a purchase. Only its buyer,
// its referrer, the company owning the listing, or an admin may see it.
func (s *ReportService) PurchaseView(ctx context.Context, viewerID, purchaseID int64) (*repo.OrderView, error) {
	ctx, span := s.span(ctx, "PurchaseView",
		attribute.Int64("viewer.id", viewerID),
		attribute.Int64("purchase.id", purchaseID),
	)
	defer span.End()

	v, err := repo.GetOrderView(ctx, s.DB, purchaseID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrPurchaseNotFound
		}
		return nil, err
	}
	switch viewerID {
	case v.BuyerID, v.ReferrerID, v.CompanyID:
		return v, nil
	}
	if ok, err := s.hasRole(ctx, viewerID, domain.RoleAdmin); err != nil {
		return nil, err
	} else if ok {
		return v, nil
	}
	return nil, ErrPurchaseNotFound
}

// ReferrerSales returns referrerID's sales history.
func (s *ReportService) ReferrerSales(ctx context.Context, referrerID int64) (*SalesHistory, error) {
	ctx, span := s.span(ctx, "ReferrerSales", attribute.Int64("referrer.id", referrerID))
	defer span.End()

	byProduct, err := repo.ReferrerSalesByProduct(ctx, s.DB, referrerID)
	if err != nil {
		return nil, err
	}
	daily, totals, err := repo.ReferrerSalesDaily(ctx, s.DB, referrerID)
	if err != nil {
		return nil, err
	}
	if byProduct == nil {
		byProduct = []repo.ProductSales{}
	}
	if daily == nil {
		daily = []repo.DailySales{}
	}
	return &SalesHistory{ByProduct: byProduct, Daily: daily, Totals: totals}, nil
}

// CompanyPurchases returns a page of purchases of companyID's listings,
// unhandled first. The caller must be a company.
func (s *ReportService) CompanyPurchases(ctx context.Context, companyID int64, page, pageSize int) ([]repo.PurchaseSummary, int64, error) {
	ctx, span := s.span(ctx, "CompanyPurchases",
		attribute.Int64("company.id", companyID),
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)
	defer span.End()

	if err := s.requireRole(ctx, companyID, domain.RoleCompany); err != nil {
		return nil, 0, err
	}
	offset, limit := pageWindow(page, pageSize)
	total, err := repo.CountPurchasesByCompany(ctx, s.DB, companyID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []repo.PurchaseSummary{}, 0, nil
	}
	items, err := repo.ListPurchasesByCompanyPage(ctx, s.DB, companyID, offset, limit)
	return items, total, err
}

// MarkHandled flags a purchase of one of companyID's listings as handled.
// Repeating the call is a no-op.
func (s *ReportService) MarkHandled(ctx context.Context, companyID, purchaseID int64) error {
	ctx, span := s.span(ctx, "MarkHandled",
		attribute.Int64("company.id", companyID),
		attribute.Int64("purchase.id", purchaseID),
	)
	defer span.End()

	if err := s.requireRole(ctx, companyID, domain.RoleCompany); err != nil {
		return err
	}
	if err := repo.MarkPurchaseHandled(ctx, s.DB, purchaseID, companyID); err != nil {
		if isNotFound(err) {
			return ErrPurchaseNotFound
		}
		return err
	}
	return nil
}

// CompanyStats returns catalogue and sales totals for companyID.
func (s *ReportService) CompanyStats(ctx context.Context, companyID int64) (*repo.CompanyStats, error) {
	ctx, span := s.span(ctx, "CompanyStats", attribute.Int64("company.id", companyID))
	defer span.End()

	if err := s.requireRole(ctx, companyID, domain.RoleCompany); err != nil {
		return nil, err
	}
	st, err := repo.CompanyStatsFor(ctx, s.DB, companyID)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Notifications returns a page of notification logs, optionally filtered
// by status. Admins only.
func (s *ReportService) Notifications(ctx context.Context, viewerID int64, status string, page, pageSize int) ([]domain.NotificationLog, int64, error) {
	ctx, span := s.span(ctx, "Notifications",
		attribute.String("status", status),
		attribute.Int("page", page),
	)
	defer span.End()

	switch status {
	case "", domain.NotificationPending, domain.NotificationDelivered, domain.NotificationFailed:
	default:
		return nil, 0, &ValidationError{Fields: map[string]string{"status": "must be pending, delivered or failed"}}
	}
	if err := s.requireRole(ctx, viewerID, domain.RoleAdmin); err != nil {
		return nil, 0, err
	}
	offset, limit := pageWindow(page, pageSize)
	total, err := repo.CountNotificationLogs(ctx, s.DB, status)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.NotificationLog{}, 0, nil
	}
	items, err := repo.ListNotificationLogsPage(ctx, s.DB, status, offset, limit)
	return items, total, err
}

func (s *ReportService) hasRole(ctx context.Context, userID int64, role string) (bool, error) {
	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return u.Role == role, nil
}

// requireRole admits users with role, and admins for any role.
func (s *ReportService) requireRole(ctx context.Context, userID int64, role string) error {
	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}
	if u.Role != role && u.Role != domain.RoleAdmin {
		return ErrForbidden
	}
	return nil
}
