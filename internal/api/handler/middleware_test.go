package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/reportledger/internal/api/handler"
)

func TestRateLimiter_429(t *testing.T) {
	done := make(chan struct{})
	defer close(done)

	r, _ := newRouter()
	r.Use(handler.RateLimiter(1, 2, done))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = do(t, r, http.MethodGet, "/ping", nil, nil).Code
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent {
		t.Fatalf("burst requests rejected: %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected 429 after burst, got %d", codes[2])
	}
}

func TestRateLimiter_disabled(t *testing.T) {
	r, _ := newRouter()
	r.Use(handler.RateLimiter(0, 0, nil))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 10; i++ {
		if w := do(t, r, http.MethodGet, "/ping", nil, nil); w.Code != http.StatusNoContent {
			t.Fatalf("request %d: got %d", i, w.Code)
		}
	}
}

func TestRequestID(t *testing.T) {
	r, _ := newRouter()
	r.Use(handler.RequestID())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := do(t, r, http.MethodGet, "/ping", nil, nil)
	id := w.Header().Get(handler.RequestIDHeader)
	if len(id) != 36 || w.Body.String() != id {
		t.Errorf("generated id %q, body %q", id, w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/ping", nil, map[string]string{handler.RequestIDHeader: "abc-123"})
	if got := w.Header().Get(handler.RequestIDHeader); got != "abc-123" {
		t.Errorf("incoming id not echoed: %q", got)
	}
}

func TestMetricsHandler(t *testing.T) {
	r, _ := newRouter()
	r.Use(handler.PrometheusMiddleware())
	r.GET("/metrics", handler.MetricsHandler())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do(t, r, http.MethodGet, "/ping", nil, nil)
	handler.RecordLedgerAppend()
	handler.RecordIntegrityCheck(true)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	for _, name := range []string{
		"reportledger_requests_total",
		"reportledger_blocks_appended_total",
		"reportledger_integrity_checks_total",
		"reportledger_chain_length",
	} {
		if !strings.Contains(w.Body.String(), name) {
			t.Errorf("metric %s not exported", name)
		}
	}
}
