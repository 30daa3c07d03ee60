// Package services – ListingService
//
// This file implements ListingService, which manages the catalogue side of
// the ledger: companies create listings and restock them, and influencers
// obtain purchase tokens (a fresh idempotency key bound to a listing and a
// referrer) to hand to buyers.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/affiliate-ledger/internal/domain"
)

// ListingRepo defines the repository contract required by ListingService.
type ListingRepo interface {
	// CreateListing inserts a new listing and fills its ID.
	CreateListing(ctx context.Context, db *gorm.DB, l *domain.Listing) error

	// GetListing fetches a listing by ID.
	GetListing(ctx context.Context, db *gorm.DB, id int64) (*domain.Listing, error)

	// CountListings counts listings, optionally for one company (companyID > 0).
	CountListings(ctx context.Context, db *gorm.DB, companyID int64) (int64, error)

	// ListListingsPage returns a page of listings, newest first.
	ListListingsPage(ctx context.Context, db *gorm.DB, companyID int64, offset, limit int) ([]domain.Listing, error)

	// SetStock overwrites stock on a listing owned by companyID.
	SetStock(ctx context.Context, db *gorm.DB, id, companyID int64, stock *int64) error

	// GetUser fetches a user by ID (company or referrer checks).
	GetUser(ctx context.Context, db *gorm.DB, id int64) (*domain.User, error)
}

// ListingInput carries the fields a company supplies for a new listing.
type ListingInput struct {
	Title       string
	ProductName string
	UnitPrice   int64
	Stock       *int64 // nil = unlimited
	Deadline    *time.Time
}

// PurchaseToken is what a buyer needs to submit a purchase for a listing
// through a referrer's link.
type PurchaseToken struct {
	IdempotencyKey string          `json:"idempotency_key"`
	Listing        *domain.Listing `json:"listing"`
	ReferrerID     int64           `json:"referrer_id"`
	ReferrerName   string          `json:"referrer_name"`
}

// ListingService provides listing-level operations.
type ListingService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the listing repository used by this service.
	Repo ListingRepo

	// TextMaxLen caps title and product name by rune length.
	TextMaxLen int

	// MaxQuantity is the purchase quantity cap; unit prices are bounded so
	// that a full-size order total fits in an int64.
	MaxQuantity int64
}

// NewListingService constructs a ListingService with default limits.
func NewListingService(db *gorm.DB, r ListingRepo) *ListingService {
	return &ListingService{DB: db, Repo: r, TextMaxLen: 255, MaxQuantity: DefaultMaxQuantity}
}

// Create validates in and inserts a listing owned by companyID.
// Only company (or admin) users may create listings.
func (s *ListingService) Create(ctx context.Context, companyID int64, in ListingInput) (*domain.Listing, error) {
	if err := s.requireCompany(ctx, companyID); err != nil {
		return nil, err
	}

	in.Title = normalizeText(in.Title)
	in.ProductName = normalizeText(in.ProductName)
	verr := &ValidationError{}
	if in.Title == "" {
		verr.add("title", "is required")
	} else if s.TextMaxLen > 0 && utf8.RuneCountInString(in.Title) > s.TextMaxLen {
		verr.add("title", "is too long")
	}
	if in.ProductName == "" {
		verr.add("product_name", "is required")
	} else if s.TextMaxLen > 0 && utf8.RuneCountInString(in.ProductName) > s.TextMaxLen {
		verr.add("product_name", "is too long")
	}
	if in.UnitPrice < 1 {
		verr.add("unit_price", "must be a positive integer")
	} else if limit := MaxUnitPrice(s.MaxQuantity); in.UnitPrice > limit {
		verr.add("unit_price", fmt.Sprintf("must be at most %d", limit))
	}
	if in.Stock != nil && *in.Stock < 0 {
		verr.add("stock", "must be zero or more, or omitted for unlimited")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	l := &domain.Listing{
		CompanyID:   companyID,
		Title:       in.Title,
		ProductName: in.ProductName,
		UnitPrice:   in.UnitPrice,
		Stock:       in.Stock,
		Deadline:    in.Deadline,
	}
	if err := s.Repo.CreateListing(ctx, s.DB, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Get returns a listing or ErrListingNotFound.
func (s *ListingService) Get(ctx context.Context, id int64) (*domain.Listing, error) {
	l, err := s.Repo.GetListing(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return l, nil
}

// ListPage returns a page of listings (all companies when companyID is 0)
// and the total count. Invalid page/pageSize fall back to defaults.
func (s *ListingService) ListPage(ctx context.Context, companyID int64, page, pageSize int) ([]domain.Listing, int64, error) {
	offset, limit := pageWindow(page, pageSize)

	total, err := s.Repo.CountListings(ctx, s.DB, companyID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Listing{}, 0, nil
	}
	items, err := s.Repo.ListListingsPage(ctx, s.DB, companyID, offset, limit)
	return items, total, err
}

// SetStock restocks a listing owned by companyID (nil = unlimited) and
// returns the updated listing.
func (s *ListingService) SetStock(ctx context.Context, companyID, listingID int64, stock *int64) (*domain.Listing, error) {
	if stock != nil && *stock < 0 {
		return nil, &ValidationError{Fields: map[string]string{"stock": "must be zero or more, or null for unlimited"}}
	}
	l, err := s.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l.CompanyID != companyID {
		return nil, ErrForbidden
	}
	if err := s.Repo.SetStock(ctx, s.DB, listingID, companyID, stock); err != nil {
		if isNotFound(err) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	l.Stock = stock
	return l, nil
}

// PurchaseToken issues a fresh idempotency key for buying listingID via
// referrerID. The key is not stored; it only becomes meaningful when a
// purchase is recorded under it.
func (s *ListingService) PurchaseToken(ctx context.Context, listingID, referrerID int64) (*PurchaseToken, error) {
	l, err := s.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}
	ref, err := s.Repo.GetUser(ctx, s.DB, referrerID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrReferrerNotFound
		}
		return nil, err
	}
	return &PurchaseToken{
		IdempotencyKey: uuid.NewString(),
		Listing:        l,
		ReferrerID:     ref.ID,
		ReferrerName:   ref.Name,
	}, nil
}

func (s *ListingService) requireCompany(ctx context.Context, userID int64) error {
	u, err := s.Repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if u.Role != domain.RoleCompany && u.Role != domain.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// pageWindow converts a 1-based page into offset/limit, applying defaults
// for invalid input.
func pageWindow(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}

// normalizeText trims whitespace and collapses multiple spaces to one.
func normalizeText(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
