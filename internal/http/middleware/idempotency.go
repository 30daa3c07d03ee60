// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file screens the Idempotency-Key header on purchase submissions. A
// malformed key is rejected before any handler work; a well-formed key is
// stashed for the handler and, when a purchase is already recorded under it,
// the request is flagged as a replay so the rate limiter lets it through.
// The flag is advisory: the purchase orchestrator makes the binding decision
// inside its transaction.
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/affiliate-ledger/internal/domain"
)

// HeaderIdempotencyKey is the request header carrying a purchase key.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

// GetIdempotencyKey returns the validated key stashed by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether a purchase was already recorded under the key.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	// MinLen is the shortest accepted key; <= 0 uses domain.IdempotencyKeyMinLen.
	MinLen int
}

// IdempotencyLookup reports whether a purchase is recorded under key.
// Errors are treated as "not recorded".
type IdempotencyLookup func(ctx context.Context, key string) (bool, error)

// IdempotencyValidator checks the Idempotency-Key header on POST requests.
// Requests without the header pass through; keys may also arrive in the
// request body, which the handler validates.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if !domain.ValidIdempotencyKey(key, opts.MinLen) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			if exists, err := lookup(c.Request.Context(), key); err == nil && exists {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}
