// Purchase HTTP handlers.
//
//   - POST /purchases       (record a purchase; 303 to the confirmation)
//   - GET  /purchases/{id}  (confirmation view)
package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/affiliate-ledger/internal/http/middleware"
	"github.com/tbourn/affiliate-ledger/internal/repo"
	"github.com/tbourn/affiliate-ledger/internal/services"
)

// HeaderReplayed marks a purchase response that resolved to an existing row.
const HeaderReplayed = "Idempotent-Replayed"

// CreatePurchaseRequest is the JSON payload for a purchase. The buyer is
// the authenticated caller.
type CreatePurchaseRequest struct {
	ListingID  int64 `json:"listing_id"  example:"12"`
	ReferrerID int64 `json:"referrer_id" example:"4"`
	Quantity   int64 `json:"quantity"    example:"2"`
	// Issued by GET /listings/{id}/purchase-token; the Idempotency-Key
	// header is used when this is empty.
	IdempotencyKey string `json:"idempotency_key" example:"0f8fad5b-d9cb-469f-a165-70867728950e"`
}

// PurchaseCreatedResponse accompanies the 303 redirect.
type PurchaseCreatedResponse struct {
	PurchaseID int64  `json:"purchase_id" example:"31"`
	Outcome    string `json:"outcome"     example:"committed"`
	Location   string `json:"location"    example:"/api/v1/purchases/31"`
}

// PurchaseViewResponse describes one purchase to a party of it.
type PurchaseViewResponse struct {
	PurchaseID       int64     `json:"purchase_id"`
	ListingID        int64     `json:"listing_id"`
	Title            string    `json:"title"`
	ProductName      string    `json:"product_name"`
	Quantity         int64     `json:"quantity"`
	UnitPrice        int64     `json:"unit_price"`
	Total            int64     `json:"total"`
	CompanyAmount    int64     `json:"company_amount"`
	InfluencerAmount int64     `json:"influencer_amount"`
	PlatformAmount   int64     `json:"platform_amount"`
	Handled          bool      `json:"handled"`
	CompanyID        int64     `json:"company_id"`
	CompanyName      string    `json:"company_name"`
	BuyerID          int64     `json:"buyer_id"`
	BuyerName        string    `json:"buyer_name"`
	ReferrerID       int64     `json:"referrer_id"`
	ReferrerName     *string   `json:"referrer_name,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func newPurchaseView(v *repo.OrderView) PurchaseViewResponse {
	return PurchaseViewResponse{
		PurchaseID:       v.PurchaseID,
		ListingID:        v.ListingID,
		Title:            v.Title,
		ProductName:      v.ProductName,
		Quantity:         v.Quantity,
		UnitPrice:        v.UnitPrice,
		Total:            v.Total(),
		CompanyAmount:    v.CompanyAmount,
		InfluencerAmount: v.InfluencerAmount,
		PlatformAmount:   v.PlatformAmount,
		Handled:          v.Handled,
		CompanyID:        v.CompanyID,
		CompanyName:      v.CompanyName,
		BuyerID:          v.BuyerID,
		BuyerName:        v.BuyerName,
		ReferrerID:       v.ReferrerID,
		ReferrerName:     v.ReferrerName,
		CreatedAt:        v.CreatedAt,
	}
}

// CreatePurchase godoc
// @ID          createPurchase
// @Summary     Record a purchase
// @Description Records a purchase exactly once per idempotency key, decrements stock and splits revenue.
// @Description Both a new purchase and a replay of a known key answer 303 See Other pointing at the confirmation.
// @Tags        Purchases
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false  "Buyer id (dev identity header)"  example(7)
// @Param       Idempotency-Key  header  string  false  "Fallback when the body carries no key"
// @Param       body             body    handlers.CreatePurchaseRequest  true  "Purchase payload"
//
// @Success     303  {object}  handlers.PurchaseCreatedResponse
// @Header      303  {string}  Location             "Confirmation URL"
// @Header      303  {string}  Idempotent-Replayed  "true when the key was already recorded"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "Listing or referrer not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Insufficient stock"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /purchases [post]
func (h *Handlers) CreatePurchase(c *gin.Context) {
	buyerID, found := requireUser(c)
	if !found {
		return
	}
	var req CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if hdr, present := middleware.GetIdempotencyKey(c); present {
		switch {
		case key == "":
			key = hdr
		case key != hdr:
			serviceError(c, &services.ValidationError{Fields: map[string]string{
				"idempotency_key": "body and Idempotency-Key header disagree",
			}})
			return
		}
	}

	res, err := h.purchases.Purchase(c.Request.Context(), services.PurchaseRequest{
		ListingID:      req.ListingID,
		ReferrerID:     req.ReferrerID,
		BuyerID:        buyerID,
		Quantity:       req.Quantity,
		IdempotencyKey: key,
	})
	if err != nil {
		serviceError(c, err)
		return
	}

	loc := h.basePath + "/purchases/" + strconv.FormatInt(res.PurchaseID, 10)
	c.Header("Location", loc)
	if res.Outcome == services.Replayed {
		c.Header(HeaderReplayed, "true")
	}
	ok(c, http.StatusSeeOther, PurchaseCreatedResponse{
		PurchaseID: res.PurchaseID,
		Outcome:    string(res.Outcome),
		Location:   loc,
	})
}

// GetPurchase godoc
// @ID          getPurchase
// @Summary     Purchase confirmation
// @Description Returns one purchase to its buyer, referrer, owning company or an admin.
// @Tags        Purchases
// @Produce     json
//
// @Param       X-User-ID  header  string  false  "Caller id (dev identity header)"
// @Param       id         path    int     true   "Purchase ID"
//
// @Success     200  {object}  handlers.PurchaseViewResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /purchases/{id} [get]
func (h *Handlers) GetPurchase(c *gin.Context) {
	viewer, found := requireUser(c)
	if !found {
		return
	}
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	v, err := h.reports.PurchaseView(c.Request.Context(), viewer, id)
	if err != nil {
		serviceError(c, err)
		return
	}
	middleware.NoStore(c)
	ok(c, http.StatusOK, newPurchaseView(v))
}
