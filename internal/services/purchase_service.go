// Package services – PurchaseService
//
// This file implements PurchaseService, the orchestrator of one purchase
// attempt: validate, resolve the idempotency key, load the listing, reserve
// stock with a conditional update, split the revenue, insert the ledger row,
// and hand the new purchase to the notifier.
//
// Steps 2–6 run in a single database transaction, so a reserved decrement
// and its purchase row commit or roll back together. A unique-key collision
// on insert rolls the decrement back and resolves to the purchase that won.
//
// Observability: Purchase is OpenTelemetry-instrumented and every call is
// counted by outcome in ledger_purchase_outcomes_total.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/affiliate-ledger/internal/domain"
	"github.com/tbourn/affiliate-ledger/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxQuantity caps a single purchase when MaxQuantity is unset.
const DefaultMaxQuantity = 1000

// Notifier receives committed purchases for out-of-band delivery.
// Enqueue must not block; it reports whether the task was accepted.
type Notifier interface {
	Enqueue(purchaseID int64) bool
}

// PurchaseRequest is one purchase attempt.
type PurchaseRequest struct {
	ListingID      int64
	ReferrerID     int64
	BuyerID        int64
	Quantity       int64
	IdempotencyKey string
}

// Outcome is the successful terminal state of a purchase attempt.
type Outcome string

const (
	// Committed means a new purchase row was written.
	Committed Outcome = "committed"
	// Replayed means the key was already recorded; nothing was written.
	Replayed Outcome = "replayed"
)

// PurchaseResult identifies the purchase an attempt resolved to.
type PurchaseResult struct {
	PurchaseID int64
	Outcome    Outcome
}

// PurchaseService coordinates the purchase ledger.
type PurchaseService struct {
	// DB is the ledger handle. Every attempt opens its own transaction on it.
	DB *gorm.DB

	// Split divides the gross amount; the zero value means DefaultSplitPolicy.
	Split SplitPolicy

	// Notifier is optional; nil disables notifications.
	Notifier Notifier

	// MaxQuantity caps quantity per purchase (0 = DefaultMaxQuantity).
	MaxQuantity int64

	// KeyMinLen is the shortest accepted idempotency key (0 = domain default).
	KeyMinLen int
}

// Purchase runs one attempt. On success it returns the purchase the
// attempt resolved to, either newly committed or replayed. Errors:
//   - *ValidationError: malformed input, nothing touched.
//   - ErrListingNotFound / ErrReferrerNotFound: nothing written.
//   - *InsufficientStockError: nothing written.
//   - ErrConflictWithoutRecord: duplicate key reported but no row found.
//   - any other error: storage failure; the transaction was rolled back.
func (s *PurchaseService) Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error) {
	tr := otel.Tracer("services/PurchaseService")
	ctx, span := tr.Start(ctx, "Purchase",
		trace.WithAttributes(
			attribute.Int64("listing.id", req.ListingID),
			attribute.Int64("referrer.id", req.ReferrerID),
			attribute.Int64("buyer.id", req.BuyerID),
			attribute.Int64("quantity", req.Quantity),
		),
	)
	defer span.End()

	res, err := s.purchase(ctx, req)
	outcome := outcomeOf(res, err)
	purchaseOutcomes.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.String("purchase.outcome", outcome))
	if err != nil {
		if outcome == outcomeInternalFailed || outcome == outcomeConflictNoRec {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		return nil, err
	}
	span.SetAttributes(attribute.Int64("purchase.id", res.PurchaseID))

	if res.Outcome == Committed && s.Notifier != nil {
		s.Notifier.Enqueue(res.PurchaseID)
	}
	return res, nil
}

func (s *PurchaseService) purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	var result *PurchaseResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) Replay if this key already produced a purchase.
		existing, err := repo.FindPurchaseByKey(ctx, tx, req.IdempotencyKey)
		switch {
		case err == nil:
			result = &PurchaseResult{PurchaseID: existing.ID, Outcome: Replayed}
			return nil
		case !errors.Is(err, repo.ErrNotFound):
			return err
		}

		// 2) Load the listing (price snapshot) and the referrer.
		listing, err := repo.GetListing(ctx, tx, req.ListingID)
		if err != nil {
			if isNotFound(err) {
				return ErrListingNotFound
			}
			return err
		}
		if !TotalFits(listing.UnitPrice, req.Quantity) {
			verr := &ValidationError{}
			verr.add("quantity", "order total exceeds the largest supported amount")
			return verr
		}
		if _, err := repo.GetUser(ctx, tx, req.ReferrerID); err != nil {
			if isNotFound(err) {
				return ErrReferrerNotFound
			}
			return err
		}

		// 3) Reserve stock; one conditional UPDATE.
		applied, err := repo.TryDecrementStock(ctx, tx, listing.ID, req.Quantity)
		if err != nil {
			return err
		}
		if !applied {
			remaining, _ := repo.GetStock(ctx, tx, listing.ID)
			return &InsufficientStockError{Requested: req.Quantity, Remaining: remaining}
		}

		// 4) Split and record.
		split := s.policy().Split(listing.UnitPrice, req.Quantity)
		p := &domain.Purchase{
			ListingID:        listing.ID,
			ReferrerID:       req.ReferrerID,
			BuyerID:          req.BuyerID,
			Quantity:         req.Quantity,
			UnitPrice:        listing.UnitPrice,
			CompanyAmount:    split.Company,
			InfluencerAmount: split.Influencer,
			PlatformAmount:   split.Platform,
			IdempotencyKey:   req.IdempotencyKey,
		}
		if err := repo.CreatePurchase(ctx, tx, p); err != nil {
			return err
		}
		result = &PurchaseResult{PurchaseID: p.ID, Outcome: Committed}
		return nil
	})

	if errors.Is(err, repo.ErrDuplicate) {
		// A concurrent attempt with the same key committed first. Our
		// decrement was rolled back with the transaction.
		existing, lerr := repo.FindPurchaseByKey(ctx, s.DB, req.IdempotencyKey)
		if lerr == nil {
			return &PurchaseResult{PurchaseID: existing.ID, Outcome: Replayed}, nil
		}
		log.Error().
			Err(lerr).
			Str("component", "purchase").
			Int64("listing_id", req.ListingID).
			Int64("buyer_id", req.BuyerID).
			Msg("duplicate idempotency key but no purchase recorded under it")
		return nil, fmt.Errorf("%w: %v", ErrConflictWithoutRecord, lerr)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PurchaseService) validate(req PurchaseRequest) error {
	verr := &ValidationError{}
	if req.ListingID < 1 {
		verr.add("listing_id", "must be a positive id")
	}
	if req.ReferrerID < 1 {
		verr.add("referrer_id", "must be a positive id")
	}
	if req.BuyerID < 1 {
		verr.add("buyer_id", "must be a positive id")
	}
	maxQty := s.MaxQuantity
	if maxQty <= 0 {
		maxQty = DefaultMaxQuantity
	}
	if req.Quantity < 1 {
		verr.add("quantity", "must be at least 1")
	} else if req.Quantity > maxQty {
		verr.add("quantity", fmt.Sprintf("must be at most %d", maxQty))
	}
	if req.IdempotencyKey == "" {
		verr.add("idempotency_key", "is required")
	} else if !domain.ValidIdempotencyKey(req.IdempotencyKey, s.KeyMinLen) {
		minLen := s.KeyMinLen
		if minLen < 1 {
			minLen = domain.IdempotencyKeyMinLen
		}
		verr.add("idempotency_key", fmt.Sprintf("must be %d-%d characters of A-Z a-z 0-9 . _ ~ : -", minLen, domain.IdempotencyKeyMaxLen))
	}
	return verr.orNil()
}

func (s *PurchaseService) policy() SplitPolicy {
	if !s.Split.explicit && s.Split.InfluencerRate.IsZero() && s.Split.PlatformRate.IsZero() {
		return DefaultSplitPolicy()
	}
	return s.Split
}

func outcomeOf(res *PurchaseResult, err error) string {
	var verr *ValidationError
	switch {
	case err == nil && res != nil && res.Outcome == Replayed:
		return outcomeReplayed
	case err == nil:
		return outcomeCommitted
	case errors.As(err, &verr):
		return outcomeValidation
	case errors.Is(err, ErrListingNotFound), errors.Is(err, ErrReferrerNotFound):
		return outcomeNotFound
	case errors.Is(err, ErrInsufficientStock):
		return outcomeInsufficient
	case errors.Is(err, ErrConflictWithoutRecord):
		return outcomeConflictNoRec
	default:
		return outcomeInternalFailed
	}
}

// isNotFound treats repo-level not found sentinels as "not found" in a
// driver-agnostic way.
func isNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
