package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/tbourn/affiliate-ledger/internal/domain"
)

// ErrDuplicate indicates that an insert collided with a unique index,
// typically a purchase whose idempotency key is already recorded.
var ErrDuplicate = errors.New("duplicate")

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// FindPurchaseByKey returns the purchase recorded under key, or ErrNotFound.
// Keys are matched exactly (case-sensitive).
func FindPurchaseByKey(ctx context.Context, db *gorm.DB, key string) (*domain.Purchase, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var p domain.Purchase
	err := db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// IsDuplicate reports whether err is a unique-constraint violation from
// either supported driver.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}
