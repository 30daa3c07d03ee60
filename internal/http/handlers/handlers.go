// Ledger HTTP handlers: service contracts, wiring, and shared helpers.
//
// Handlers are transport-thin: they read identity from the context, bind
// and check input shape, call application services, and translate results
// into HTTP responses (including redirects and conditional responses).
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/affiliate-ledger/internal/domain"
	"github.com/tbourn/affiliate-ledger/internal/http/middleware"
	"github.com/tbourn/affiliate-ledger/internal/repo"
	"github.com/tbourn/affiliate-ledger/internal/services"
	"github.com/tbourn/affiliate-ledger/internal/utils"
)

//
// Service contracts (context-aware)
//

// PurchaseService records purchases idempotently.
type PurchaseService interface {
	// Purchase runs one attempt and reports whether it committed or replayed.
	Purchase(ctx context.Context, req services.PurchaseRequest) (*services.PurchaseResult, error)
}

// ListingService manages the catalogue.
type ListingService interface {
	Create(ctx context.Context, companyID int64, in services.ListingInput) (*domain.Listing, error)
	Get(ctx context.Context, id int64) (*domain.Listing, error)
	ListPage(ctx context.Context, companyID int64, page, pageSize int) ([]domain.Listing, int64, error)
	SetStock(ctx context.Context, companyID, listingID int64, stock *int64) (*domain.Listing, error)
	PurchaseToken(ctx context.Context, listingID, referrerID int64) (*services.PurchaseToken, error)
}

// UserService registers and looks up participants.
type UserService interface {
	Create(ctx context.Context, in services.UserInput) (*domain.User, error)
	Get(ctx context.Context, id int64) (*domain.User, error)
}

// ReportService answers read-side queries. Every method enforces that the
// caller may see the data.
type ReportService interface {
	BuyerPurchases(ctx context.Context, buyerID int64, page, pageSize int) ([]repo.PurchaseSummary, int64, error)
	BuyerPurchasesStats(ctx context.Context, buyerID int64) (int64, *time.Time, error)
	PurchaseView(ctx context.Context, viewerID, purchaseID int64) (*repo.OrderView, error)
	ReferrerSales(ctx context.Context, referrerID int64) (*services.SalesHistory, error)
	CompanyPurchases(ctx context.Context, companyID int64, page, pageSize int) ([]repo.PurchaseSummary, int64, error)
	MarkHandled(ctx context.Context, companyID, purchaseID int64) error
	CompanyStats(ctx context.Context, companyID int64) (*repo.CompanyStats, error)
	Notifications(ctx context.Context, viewerID int64, status string, page, pageSize int) ([]domain.NotificationLog, int64, error)
}

var (
	_ PurchaseService = (*services.PurchaseService)(nil)
	_ ListingService  = (*services.ListingService)(nil)
	_ UserService     = (*services.UserService)(nil)
	_ ReportService   = (*services.ReportService)(nil)
)

//
// Handler wiring
//

// Handlers groups the ledger's HTTP endpoints.
type Handlers struct {
	purchases PurchaseService
	listings  ListingService
	users     UserService
	reports   ReportService

	// basePath prefixes Location headers (e.g. "/api/v1").
	basePath string
}

// New constructs a Handlers bound to the given services. basePath is the
// route group prefix used when building redirect targets.
func New(purchases PurchaseService, listings ListingService, users UserService, reports ReportService, basePath string) *Handlers {
	return &Handlers{
		purchases: purchases,
		listings:  listings,
		users:     users,
		reports:   reports,
		basePath:  basePath,
	}
}

//
// Shared DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func paginate(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

//
// Helpers
//

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// clampPagination parses and bounds page and page_size query params,
// returning (page, pageSize). maxSize caps page_size.
func clampPagination(c *gin.Context, maxSize int) (page, pageSize int) {
	page = utils.AtoiClamp(c.Query("page"), 1, 1, 0)
	pageSize = utils.AtoiClamp(c.Query("page_size"), defaultPageSize, 1, maxSize)
	return
}

// requireUser returns the caller's id or aborts with 401.
func requireUser(c *gin.Context) (int64, bool) {
	id, found := middleware.UserID(c)
	if !found {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return 0, false
	}
	return id, true
}

// pathID parses a positive integer path parameter or aborts with 400.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, valid := utils.ParseID(c.Param(name))
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}
