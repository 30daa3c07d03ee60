package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func envelopeRouter(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	logger := zerolog.New(buf)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-1")
		c.Set("logger", &logger)
		c.Next()
	})
	return r
}

func TestFailWith_StockEnvelope(t *testing.T) {
	var buf bytes.Buffer
	r := envelopeRouter(&buf)
	r.POST("/buy", func(c *gin.Context) {
		failWith(c, http.StatusConflict, ErrorResponse{
			Code:      ErrCodeInsufficientStock,
			Message:   "insufficient stock",
			Remaining: i64(0),
		})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/buy", nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	// remaining 0 must be present, details absent
	if body["remaining"] != float64(0) || body["request_id"] != "rid-1" {
		t.Fatalf("unexpected body: %v", body)
	}
	if _, has := body["details"]; has {
		t.Fatalf("empty details must be omitted: %v", body)
	}
	if buf.Len() != 0 {
		t.Fatalf("4xx must not be logged as api error: %s", buf.String())
	}
}

func TestFail_ServerErrorsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	r := envelopeRouter(&buf)
	r.GET("/boom", func(c *gin.Context) { Fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error") })
	r.DELETE("/gone", func(c *gin.Context) { noContent(c) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if w.Code != http.StatusInternalServerError || resp.Code != ErrCodeInternal || resp.RequestID != "rid-1" {
		t.Fatalf("unexpected response %d %+v", w.Code, resp)
	}
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected error log, got: %s", buf.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/gone", nil))
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("noContent: %d %q", w.Code, w.Body.String())
	}
}
