// Package services defines the business logic of the affiliate ledger:
// purchases and their revenue split, listings, users, and reporting.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed
// at the handler layer.
package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Purchase-related errors.
var (
	// ErrListingNotFound indicates that the referenced listing does not exist.
	ErrListingNotFound = errors.New("listing not found")

	// ErrReferrerNotFound indicates that the referring user does not exist.
	ErrReferrerNotFound = errors.New("referrer not found")

	// ErrInsufficientStock is matched by every *InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrConflictWithoutRecord is returned when an insert reported a
	// duplicate idempotency key but no purchase can be found under it.
	// It signals a store fault and is never retried here; a client may
	// resubmit the same key once the store is healthy.
	ErrConflictWithoutRecord = errors.New("idempotency conflict without a recorded purchase")

	// ErrPurchaseNotFound indicates that the purchase does not exist or is
	// not visible to the caller.
	ErrPurchaseNotFound = errors.New("purchase not found")
)

// Listing/user errors.
var (
	// ErrUserNotFound indicates that the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when registering an email twice.
	ErrEmailTaken = errors.New("email already registered")

	// ErrForbidden is returned when the caller's role does not allow the operation.
	ErrForbidden = errors.New("operation not allowed for this user")
)

// ValidationError reports malformed input, keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// add records a field problem, keeping the first message per field.
func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// orNil returns e when it holds at least one field problem.
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// InsufficientStockError is returned when a listing has fewer units than
// requested. Remaining is nil only if the listing became unlimited or
// vanished between the check and the lookup.
type InsufficientStockError struct {
	Requested int64
	Remaining *int64
}

func (e *InsufficientStockError) Error() string {
	if e.Remaining == nil {
		return fmt.Sprintf("insufficient stock: requested %d", e.Requested)
	}
	return fmt.Sprintf("insufficient stock: requested %d, remaining %d", e.Requested, *e.Remaining)
}

// Is lets errors.Is(err, ErrInsufficientStock) match.
func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }
