package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/reportledger/internal/ledger"
	"github.com/jmerrifield20/reportledger/internal/reportcard"
	"go.uber.org/zap"
)

var ctx = context.Background()

func fixedClock() func() time.Time {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func newService(t *testing.T, store *ledger.MemoryStore) *reportcard.Service {
	t.Helper()
	l, err := ledger.Open(ctx, store, zap.NewNop(), ledger.WithClock(fixedClock()))
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	return reportcard.NewService(l, zap.NewNop())
}

func newRouter() (*gin.Engine, *gin.RouterGroup) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	return r, r.Group("/api/v1")
}

func do(t *testing.T, r http.Handler, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return resp
}

func anaCard() map[string]any {
	return map[string]any{
		"student_name": "Ana",
		"grades":       map[string]string{"Math": "A", "Science": "B", "English": "A"},
	}
}
