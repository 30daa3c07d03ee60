// Listing HTTP handlers.
//
//   - POST /listings                          (company creates a listing)
//   - GET  /listings                          (paginated catalogue)
//   - GET  /listings/{id}
//   - PUT  /listings/{id}/stock               (owner restock; null = unlimited)
//   - GET  /listings/{id}/purchase-token?ref= (fresh key for a referral link)
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/affiliate-ledger/internal/domain"
	"github.com/tbourn/affiliate-ledger/internal/http/middleware"
	"github.com/tbourn/affiliate-ledger/internal/services"
	"github.com/tbourn/affiliate-ledger/internal/utils"
)

// CreateListingRequest is the JSON payload for a new listing.
type CreateListingRequest struct {
	Title       string `json:"title"        example:"Spring sale"`
	ProductName string `json:"product_name" example:"Green tea 100g"`
	UnitPrice   int64  `json:"unit_price"   example:"1000"`
	// Omit or null for unlimited stock.
	Stock    *int64     `json:"stock,omitempty" example:"50"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

// SetStockRequest documents the PUT /listings/{id}/stock payload. The
// stock field is required; null makes the listing unlimited.
type SetStockRequest struct {
	Stock *int64 `json:"stock" example:"20"`
}

// ListListingsResponse wraps a page of listings.
type ListListingsResponse struct {
	Listings   []domain.Listing `json:"listings"`
	Pagination Pagination       `json:"pagination"`
}

// CreateListing godoc
// @ID          createListing
// @Summary     Create a listing
// @Description Creates a listing owned by the calling company.
// @Tags        Listings
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false  "Company id (dev identity header)"
// @Param       body       body    handlers.CreateListingRequest  true  "Listing payload"
//
// @Success     201  {object}  domain.Listing
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Caller is not a company"
// @Router      /listings [post]
func (h *Handlers) CreateListing(c *gin.Context) {
	companyID, found := requireUser(c)
	if !found {
		return
	}
	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	l, err := h.listings.Create(c.Request.Context(), companyID, services.ListingInput{
		Title:       req.Title,
		ProductName: req.ProductName,
		UnitPrice:   req.UnitPrice,
		Stock:       req.Stock,
		Deadline:    req.Deadline,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	c.Header("Location", h.basePath+"/listings/"+strconv.FormatInt(l.ID, 10))
	ok(c, http.StatusCreated, l)
}

// ListListings godoc
// @ID          listListings
// @Summary     List listings (paginated)
// @Description Returns listings newest first, optionally for one company.
// @Tags        Listings
// @Produce     json
//
// @Param       company_id  query  int  false  "Only this company's listings"
// @Param       page        query  int  false  "Page number (1-based)"  default(1)
// @Param       page_size   query  int  false  "Items per page (max 100)"  default(20)
//
// @Success     200  {object}  handlers.ListListingsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /listings [get]
func (h *Handlers) ListListings(c *gin.Context) {
	page, pageSize := clampPagination(c, maxPageSize)
	companyID := int64(utils.AtoiDefault(c.Query("company_id"), 0))

	items, total, err := h.listings.ListPage(c.Request.Context(), companyID, page, pageSize)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, ListListingsResponse{
		Listings:   items,
		Pagination: paginate(page, pageSize, total),
	})
}

// GetListing godoc
// @ID          getListing
// @Summary     Get a listing
// @Tags        Listings
// @Produce     json
// @Param       id  path  int  true  "Listing ID"
// @Success     200  {object}  domain.Listing
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /listings/{id} [get]
func (h *Handlers) GetListing(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	l, err := h.listings.Get(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, l)
}

// SetStock godoc
// @ID          setListingStock
// @Summary     Restock a listing
// @Description Overwrites the stock of a listing the caller owns. A null stock makes it unlimited.
// @Tags        Listings
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false  "Company id (dev identity header)"
// @Param       id         path    int     true   "Listing ID"
// @Param       body       body    handlers.SetStockRequest  true  "New stock"
//
// @Success     200  {object}  domain.Listing
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /listings/{id}/stock [put]
func (h *Handlers) SetStock(c *gin.Context) {
	companyID, found := requireUser(c)
	if !found {
		return
	}
	id, valid := pathID(c, "id")
	if !valid {
		return
	}

	// Decode into a map so a missing field is not mistaken for null.
	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	field, present := raw["stock"]
	if !present {
		serviceError(c, &services.ValidationError{Fields: map[string]string{"stock": "is required (null for unlimited)"}})
		return
	}
	var stock *int64
	if err := json.Unmarshal(field, &stock); err != nil {
		serviceError(c, &services.ValidationError{Fields: map[string]string{"stock": "must be an integer or null"}})
		return
	}

	l, err := h.listings.SetStock(c.Request.Context(), companyID, id, stock)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, l)
}

// PurchaseToken godoc
// @ID          purchaseToken
// @Summary     Issue a purchase token
// @Description Returns a fresh idempotency key for buying the listing through referrer `ref`.
// @Description Submitting the purchase twice with this key records it once.
// @Tags        Listings
// @Produce     json
//
// @Param       id   path   int  true  "Listing ID"
// @Param       ref  query  int  true  "Referrer user ID"
//
// @Success     200  {object}  services.PurchaseToken
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Listing or referrer not found"
// @Router      /listings/{id}/purchase-token [get]
func (h *Handlers) PurchaseToken(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	ref, valid := utils.ParseID(c.Query("ref"))
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid ref")
		return
	}
	tok, err := h.listings.PurchaseToken(c.Request.Context(), id, ref)
	if err != nil {
		serviceError(c, err)
		return
	}
	// Every call mints a new key; caches must not hand one out twice.
	middleware.NoStore(c)
	ok(c, http.StatusOK, tok)
}
