package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmerrifield20/reportledger/pkg/client"
)

var ctx = context.Background()

// ── Stub server ─────────────────────────────────────────────────────────

func stubLedgerServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/ledger", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"blocks": 2, "tip": "bbb"})
	})

	mux.HandleFunc("/api/v1/ledger/blocks", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"blocks": []map[string]any{
				{"index": 0, "timestamp": "2025-03-14 09:00:00", "data": map[string]string{"message": "Genesis Block"}, "hash": "aaa", "previous_hash": "0"},
				{"index": 1, "timestamp": "2025-03-14 09:00:01", "data": map[string]string{"student_name": "Ana"}, "hash": "bbb", "previous_hash": "aaa"},
			},
		})
	})

	mux.HandleFunc("/api/v1/ledger/blocks/1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"index": 1, "hash": "bbb", "previous_hash": "aaa"})
	})

	mux.HandleFunc("/api/v1/ledger/blocks/7", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "block not found"})
	})

	mux.HandleFunc("/api/v1/ledger/verify", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"valid": false, "index": 1, "reason": "hash_mismatch"})
	})

	mux.HandleFunc("/api/v1/reportcards", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Bearer registrar token required"})
			return
		}
		var req struct {
			StudentName string `json:"student_name"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.StudentName == "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "please enter a valid student name"})
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"message": "Report card for " + req.StudentName + " added.",
			"block":   map[string]any{"index": 2, "hash": "ccc", "previous_hash": "bbb"},
		})
	})

	mux.HandleFunc("/api/v1/auth/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("token exchange must not carry a bearer token")
		}
		var req struct {
			Secret string `json:"secret"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Secret != "open-sesame" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid credentials"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"token": "good-token"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_emptyURL(t *testing.T) {
	if _, err := client.New(""); err == nil {
		t.Error("expected error for empty server URL")
	}
}

func TestListBlocks(t *testing.T) {
	srv := stubLedgerServer(t)
	c, _ := client.New(srv.URL + "/")

	blocks, err := c.ListBlocks(ctx)
	if err != nil {
		t.Fatalf("ListBlocks: %v", err)
	}
	if len(blocks) != 2 || blocks[1].PreviousHash != blocks[0].Hash {
		t.Errorf("unexpected blocks: %+v", blocks)
	}
}

func TestGetBlock(t *testing.T) {
	srv := stubLedgerServer(t)
	c, _ := client.New(srv.URL)

	b, err := c.GetBlock(ctx, 1)
	if err != nil || b.Hash != "bbb" {
		t.Fatalf("GetBlock(1) = %+v, %v", b, err)
	}

	_, err = c.GetBlock(ctx, 7)
	if !errors.Is(err, client.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOverview(t *testing.T) {
	srv := stubLedgerServer(t)
	c, _ := client.New(srv.URL)

	o, err := c.Overview(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if o.Blocks != 2 || o.Tip != "bbb" {
		t.Errorf("unexpected overview: %+v", o)
	}
}

func TestCheckIntegrity_tampered(t *testing.T) {
	srv := stubLedgerServer(t)
	c, _ := client.New(srv.URL)

	v, err := c.CheckIntegrity(ctx)
	if err != nil {
		t.Fatalf("tampering must not be an error: %v", err)
	}
	if v.Valid || v.Index != 1 || v.Reason != "hash_mismatch" {
		t.Errorf("unexpected verdict: %+v", v)
	}
}

func TestAddReportCard(t *testing.T) {
	srv := stubLedgerServer(t)
	grades := map[string]string{"Math": "A", "Science": "B", "English": "A"}

	anon, _ := client.New(srv.URL)
	if _, err := anon.AddReportCard(ctx, "Ana", grades); !errors.Is(err, client.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	tok, err := anon.IssueToken(ctx, "open-sesame", "front-office")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	c, _ := client.New(srv.URL, client.WithBearerToken(tok))

	res, err := c.AddReportCard(ctx, "Ana", grades)
	if err != nil {
		t.Fatalf("AddReportCard: %v", err)
	}
	if res.Message != "Report card for Ana added." || res.Block.Index != 2 {
		t.Errorf("unexpected result: %+v", res)
	}

	_, err = c.AddReportCard(ctx, "", grades)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 APIError, got %v", err)
	}
	if apiErr.Message != "please enter a valid student name" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestIssueToken_wrongSecret(t *testing.T) {
	srv := stubLedgerServer(t)
	c, _ := client.New(srv.URL, client.WithBearerToken("stale"))

	if _, err := c.IssueToken(ctx, "guess", ""); !errors.Is(err, client.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}
