// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller's identity. The ledger stores no credentials;
// callers are identified either by a signed bearer token (HS256, user id in
// the "sub" claim) or, in development and tests, by the X-User-ID header.
// Routes that need a caller check for it themselves; anonymous requests pass
// through untouched.
package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// HeaderUserID carries a numeric user id when header identity is allowed.
const HeaderUserID = "X-User-ID"

// ctxKeyUserID holds the caller id as a decimal string so that loggers and
// the rate limiter can read it without knowing its type.
const ctxKeyUserID = "userID"

// IdentityOptions configures Identity.
type IdentityOptions struct {
	// JWTSecret verifies bearer tokens. Empty disables bearer identity.
	JWTSecret []byte
	// AllowHeader accepts X-User-ID as identity.
	AllowHeader bool
}

var errBadSubject = errors.New("token subject is not a user id")

// Identity sets the caller id in the Gin context. A presented credential
// that fails verification is rejected with 401 rather than ignored.
func Identity(opts IdentityOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok, ok := bearerToken(c.GetHeader("Authorization")); ok && len(opts.JWTSecret) > 0 {
			id, err := parseSubject(tok, opts.JWTSecret)
			if err != nil {
				abortUnauthorized(c, "invalid bearer token")
				return
			}
			c.Set(ctxKeyUserID, strconv.FormatInt(id, 10))
			c.Next()
			return
		}

		if opts.AllowHeader {
			if raw := strings.TrimSpace(c.GetHeader(HeaderUserID)); raw != "" {
				id, err := strconv.ParseInt(raw, 10, 64)
				if err != nil || id < 1 {
					abortUnauthorized(c, "X-User-ID must be a positive integer")
					return
				}
				c.Set(ctxKeyUserID, strconv.FormatInt(id, 10))
			}
		}
		c.Next()
	}
}

// UserID returns the caller id set by Identity.
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ctxKeyUserID)
	if !ok {
		return 0, false
	}
	s, _ := v.(string)
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// SignUserToken issues an HS256 token for userID. Used by tooling and tests.
func SignUserToken(secret []byte, userID int64, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = strconv.FormatInt(userID, 10)
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func bearerToken(h string) (string, bool) {
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}

func parseSubject(tok string, secret []byte) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tok, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id < 1 {
		return 0, errBadSubject
	}
	return id, nil
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "unauthorized",
		"message":    msg,
	})
}
