package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// advisoryLockKey serialises Save calls from every process sharing the
// database. The value is arbitrary but must be the same everywhere.
const advisoryLockKey = int64(1_702_436_119)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS report_ledger (
	idx           INTEGER PRIMARY KEY,
	data          JSON    NOT NULL,
	ts            TEXT    NOT NULL,
	previous_hash TEXT    NOT NULL,
	hash          TEXT    NOT NULL
)`

// PostgresStore persists the chain as rows of the report_ledger table.
// Each Save replaces every row inside one transaction.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates a PostgresStore backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

// EnsureSchema creates the report_ledger table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("%w: create report_ledger: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Load implements Store.
func (s *PostgresStore) Load(ctx context.Context) ([]*Block, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT idx, data::text, ts, previous_hash, hash
		 FROM report_ledger ORDER BY idx ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query ledger: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var blocks []*Block
	for rows.Next() {
		var (
			idx                int
			data, ts, prev, hh string
		)
		if err := rows.Scan(&idx, &data, &ts, &prev, &hh); err != nil {
			return nil, fmt.Errorf("%w: scan ledger row: %v", ErrStorageUnavailable, err)
		}
		parsed, err := ParseTimestamp(ts)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedRecord, idx, err)
		}
		blocks = append(blocks, RestoreBlock(idx, []byte(data), parsed, prev, hh))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read ledger rows: %v", ErrStorageUnavailable, err)
	}
	if len(blocks) == 0 {
		return nil, ErrNoLedger
	}
	return blocks, nil
}

// Save implements Store. It takes a transaction-scoped advisory lock, deletes
// the stored rows and copies the full sequence back in.
func (s *PostgresStore) Save(ctx context.Context, blocks []*Block) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ErrStorageUnavailable, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
		return fmt.Errorf("%w: acquire advisory lock: %v", ErrStorageUnavailable, err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM report_ledger"); err != nil {
		return fmt.Errorf("%w: clear ledger rows: %v", ErrStorageUnavailable, err)
	}

	rows := make([][]any, len(blocks))
	for i, b := range blocks {
		rows[i] = []any{b.Index, string(b.Data), b.Timestamp.String(), b.PreviousHash, b.Hash}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"report_ledger"},
		[]string{"idx", "data", "ts", "previous_hash", "hash"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("%w: copy ledger rows: %v", ErrStorageUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit ledger tx: %v", ErrStorageUnavailable, err)
	}

	s.logger.Debug("ledger rows written", zap.Int("blocks", len(blocks)))
	return nil
}
