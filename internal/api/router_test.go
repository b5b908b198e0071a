package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/reportledger/internal/api"
	"github.com/jmerrifield20/reportledger/internal/identity"
	"github.com/jmerrifield20/reportledger/internal/ledger"
	"github.com/jmerrifield20/reportledger/internal/reportcard"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T, cfg api.Config) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	l, err := ledger.Open(context.Background(), ledger.NewMemoryStore(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	return api.NewRouter(cfg, reportcard.NewService(l, zap.NewNop()), zap.NewNop(), done)
}

func TestRouter_healthz(t *testing.T) {
	r := newTestRouter(t, api.Config{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("request id missing")
	}
}

func TestRouter_tokenFlow(t *testing.T) {
	tokens, err := identity.NewRegistrarTokenIssuer("signing-key", "reportledger", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	hash, err := identity.HashSecret("open-sesame")
	if err != nil {
		t.Fatal(err)
	}
	r := newTestRouter(t, api.Config{Tokens: tokens, SecretHash: hash})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/token",
		strings.NewReader(`{"secret":"open-sesame"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("token: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var tok struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &tok); err != nil {
		t.Fatal(err)
	}

	body := `{"student_name":"Ana","grades":{"Math":"A","Science":"B","English":"A"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reportcards", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRouter_bodyTooLarge(t *testing.T) {
	r := newTestRouter(t, api.Config{})

	huge := `{"student_name":"` + strings.Repeat("x", 2<<20) + `","grades":{"Math":"A","Science":"A","English":"A"}}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/reportcards", strings.NewReader(huge)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
