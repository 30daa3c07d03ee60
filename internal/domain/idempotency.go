package domain

import "regexp"

// Idempotency key bounds. The lower bound is configurable per deployment
// but never below 1; the upper bound matches the column width.
const (
	IdempotencyKeyMinLen = 10
	IdempotencyKeyMaxLen = 200
)

// IdempotencyKeyPattern is the accepted key alphabet (URL-safe, no spaces).
var IdempotencyKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~:-]+$`)

// ValidIdempotencyKey reports whether key is between minLen and
// IdempotencyKeyMaxLen characters and uses only the accepted alphabet.
// A minLen below 1 falls back to IdempotencyKeyMinLen.
func ValidIdempotencyKey(key string, minLen int) bool {
	if minLen < 1 {
		minLen = IdempotencyKeyMinLen
	}
	if len(key) < minLen || len(key) > IdempotencyKeyMaxLen {
		return false
	}
	return IdempotencyKeyPattern.MatchString(key)
}
