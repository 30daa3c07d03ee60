// Read-side HTTP handlers.
//
//   - GET  /me/purchases                  (buyer history, paginated, ETag support)
//   - GET  /me/sales                      (referrer earnings)
//   - GET  /company/purchases             (company order desk, paginated)
//   - POST /company/purchases/{id}/handle (mark handled; idempotent)
//   - GET  /company/stats
//   - GET  /notifications                 (notification log; admins)
package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/affiliate-ledger/internal/domain"
	"github.com/tbourn/affiliate-ledger/internal/http/middleware"
	"github.com/tbourn/affiliate-ledger/internal/repo"
)

// maxHistoryPageSize caps page_size on the buyer history.
const maxHistoryPageSize = 50

// BuyerPurchaseItem is one row of a buyer's history. It only carries
// fields that never change after the purchase is recorded.
type BuyerPurchaseItem struct {
	ID           int64     `json:"id"`
	ListingID    int64     `json:"listing_id"`
	Title        string    `json:"title"`
	ProductName  string    `json:"product_name"`
	CompanyName  string    `json:"company_name"`
	Quantity     int64     `json:"quantity"`
	UnitPrice    int64     `json:"unit_price"`
	Total        int64     `json:"total"`
	ReferrerID   int64     `json:"referrer_id"`
	ReferrerName *string   `json:"referrer_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListBuyerPurchasesResponse wraps a page of the caller's purchases.
type ListBuyerPurchasesResponse struct {
	Purchases  []BuyerPurchaseItem `json:"purchases"`
	Pagination Pagination          `json:"pagination"`
}

// ListCompanyPurchasesResponse wraps a page of a company's orders.
type ListCompanyPurchasesResponse struct {
	Purchases  []repo.PurchaseSummary `json:"purchases"`
	Pagination Pagination             `json:"pagination"`
}

// ListNotificationsResponse wraps a page of notification logs.
type ListNotificationsResponse struct {
	Notifications []domain.NotificationLog `json:"notifications"`
	Pagination    Pagination               `json:"pagination"`
}

// MyPurchases godoc
// @ID          myPurchases
// @Summary     My purchase history (paginated)
// @Description Returns the caller's purchases newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Me
// @Produce     json
//
// @Param       X-User-ID      header  string  false  "Buyer id (dev identity header)"
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(50) default(20)
//
// @Success     200  {object}  handlers.ListBuyerPurchasesResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /me/purchases [get]
func (h *Handlers) MyPurchases(c *gin.Context) {
	buyerID, found := requireUser(c)
	if !found {
		return
	}
	page, pageSize := clampPagination(c, maxHistoryPageSize)
	ctx := c.Request.Context()

	// Purchases are append-only and the listed fields are immutable, so
	// count and newest timestamp identify the page contents.
	if count, latest, err := h.reports.BuyerPurchasesStats(ctx, buyerID); err == nil {
		var ts int64
		if latest != nil {
			ts = latest.UTC().UnixNano()
		}
		etag := fmt.Sprintf(`W/"purchases:%d:%d:%d:%d:%d"`, buyerID, count, ts, page, pageSize)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.reports.BuyerPurchases(ctx, buyerID, page, pageSize)
	if err != nil {
		serviceError(c, err)
		return
	}
	out := make([]BuyerPurchaseItem, 0, len(items))
	for _, p := range items {
		out = append(out, BuyerPurchaseItem{
			ID:           p.ID,
			ListingID:    p.ListingID,
			Title:        p.Title,
			ProductName:  p.ProductName,
			CompanyName:  p.CompanyName,
			Quantity:     p.Quantity,
			UnitPrice:    p.UnitPrice,
			Total:        p.UnitPrice * p.Quantity,
			ReferrerID:   p.ReferrerID,
			ReferrerName: p.ReferrerName,
			CreatedAt:    p.CreatedAt,
		})
	}
	ok(c, http.StatusOK, ListBuyerPurchasesResponse{
		Purchases:  out,
		Pagination: paginate(page, pageSize, total),
	})
}

// MySales godoc
// @ID          mySales
// @Summary     My referral earnings
// @Description Per-product and per-day influencer rewards for purchases the caller referred.
// @Tags        Me
// @Produce     json
// @Param       X-User-ID  header  string  false  "Referrer id (dev identity header)"
// @Success     200  {object}  services.SalesHistory
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Router      /me/sales [get]
func (h *Handlers) MySales(c *gin.Context) {
	referrerID, found := requireUser(c)
	if !found {
		return
	}
	hist, err := h.reports.ReferrerSales(c.Request.Context(), referrerID)
	if err != nil {
		serviceError(c, err)
		return
	}
	middleware.NoStore(c)
	ok(c, http.StatusOK, hist)
}

// CompanyPurchases godoc
// @ID          companyPurchases
// @Summary     Company order desk (paginated)
// @Description Orders for the caller's listings, unhandled first.
// @Tags        Company
// @Produce     json
// @Param       X-User-ID  header  string  false  "Company id (dev identity header)"
// @Param       page       query   int     false  "Page number"     default(1)
// @Param       page_size  query   int     false  "Items per page"  default(20)
// @Success     200  {object}  handlers.ListCompanyPurchasesResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Caller is not a company"
// @Router      /company/purchases [get]
func (h *Handlers) CompanyPurchases(c *gin.Context) {
	companyID, found := requireUser(c)
	if !found {
		return
	}
	page, pageSize := clampPagination(c, maxPageSize)
	items, total, err := h.reports.CompanyPurchases(c.Request.Context(), companyID, page, pageSize)
	if err != nil {
		serviceError(c, err)
		return
	}
	middleware.NoStore(c)
	ok(c, http.StatusOK, ListCompanyPurchasesResponse{
		Purchases:  items,
		Pagination: paginate(page, pageSize, total),
	})
}

// HandlePurchase godoc
// @ID          handlePurchase
// @Summary     Mark an order handled
// @Description Sets the handled flag on an order for one of the caller's listings. Repeating it is a no-op.
// @Tags        Company
// @Param       X-User-ID  header  string  false  "Company id (dev identity header)"
// @Param       id         path    int     true   "Purchase ID"
// @Success     204  {string}  string  "No Content"
// @Failure     403  {object}  handlers.ErrorResponse  "Caller is not a company"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /company/purchases/{id}/handle [post]
func (h *Handlers) HandlePurchase(c *gin.Context) {
	companyID, found := requireUser(c)
	if !found {
		return
	}
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.reports.MarkHandled(c.Request.Context(), companyID, id); err != nil {
		serviceError(c, err)
		return
	}
	noContent(c)
}

// CompanyStats godoc
// @ID          companyStats
// @Summary     Company statistics
// @Tags        Company
// @Produce     json
// @Param       X-User-ID  header  string  false  "Company id (dev identity header)"
// @Success     200  {object}  repo.CompanyStats
// @Failure     403  {object}  handlers.ErrorResponse  "Caller is not a company"
// @Router      /company/stats [get]
func (h *Handlers) CompanyStats(c *gin.Context) {
	companyID, found := requireUser(c)
	if !found {
		return
	}
	st, err := h.reports.CompanyStats(c.Request.Context(), companyID)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}

// Notifications godoc
// @ID          listNotifications
// @Summary     Notification log (paginated)
// @Description Delivery attempts for order notices and receipts. Admins only.
// @Tags        Notifications
// @Produce     json
// @Param       X-User-ID  header  string  false  "Admin id (dev identity header)"
// @Param       status     query   string  false  "pending, delivered or failed"
// @Param       page       query   int     false  "Page number"     default(1)
// @Param       page_size  query   int     false  "Items per page"  default(20)
// @Success     200  {object}  handlers.ListNotificationsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid status"
// @Failure     403  {object}  handlers.ErrorResponse  "Admins only"
// @Router      /notifications [get]
func (h *Handlers) Notifications(c *gin.Context) {
	viewer, found := requireUser(c)
	if !found {
		return
	}
	page, pageSize := clampPagination(c, maxPageSize)
	status := strings.ToLower(strings.TrimSpace(c.Query("status")))

	items, total, err := h.reports.Notifications(c.Request.Context(), viewer, status, page, pageSize)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, ListNotificationsResponse{
		Notifications: items,
		Pagination:    paginate(page, pageSize, total),
	})
}
