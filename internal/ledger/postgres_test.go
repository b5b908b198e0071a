//go:build integration

package ledger_test

import (
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmerrifield20/reportledger/internal/ledger"
	"go.uber.org/zap"
)

func setupPostgres(t *testing.T) *ledger.PostgresStore {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect to postgres: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping postgres: %v", err)
	}
	t.Cleanup(pool.Close)

	store := ledger.NewPostgresStore(pool, zap.NewNop())
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	pool.Exec(ctx, "DELETE FROM report_ledger")
	return store
}

func TestPostgresStore_roundTrip(t *testing.T) {
	store := setupPostgres(t)

	l, err := ledger.Open(ctx, store, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"Ana", "Ben"} {
		if _, err := l.Append(ctx, reportCard(name)); err != nil {
			t.Fatal(err)
		}
	}

	reopened, err := ledger.Open(ctx, store, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Len() != 3 {
		t.Fatalf("expected 3 blocks, got %d", reopened.Len())
	}
	if res := reopened.Verify(); !res.Valid {
		t.Errorf("Verify() = %+v", res)
	}
}
