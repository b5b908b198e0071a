// Package ledger implements an append-only, hash-linked chain of report card
// records.
//
// The chain begins with a genesis block whose previous_hash is "0". Every
// later block records the SHA-256 of its predecessor, so editing any stored
// block is detectable via Verify. The whole sequence is persisted through a
// Store after every append:
//   - FileStore: a single JSON file, the default.
//   - MemoryStore: in-process, for tests and throwaway ledgers.
//   - PostgresStore: rows in a PostgreSQL table.
//   - BadgerStore: keys in an embedded Badger database.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Reason names why a chain failed verification.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonHashMismatch  Reason = "hash_mismatch"
	ReasonLinkBroken    Reason = "link_broken"
	ReasonIndexMismatch Reason = "index_mismatch"
	ReasonBadGenesis    Reason = "bad_genesis"
)

// VerifyResult is the outcome of walking the chain. Index and Reason are set
// only when Valid is false and point at the first offending block.
type VerifyResult struct {
	Valid  bool   `json:"valid"`
	Index  int    `json:"index,omitempty"`
	Reason Reason `json:"reason,omitempty"`
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the clock used to stamp new blocks.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithStrictGenesis makes Verify also check the genesis block: index 0,
// previous_hash "0" and a self-consistent hash. Off by default, matching
// ledgers that never checked block 0.
func WithStrictGenesis() Option {
	return func(l *Ledger) { l.strictGenesis = true }
}

// Ledger owns an ordered block sequence and its Store. It is safe for use by
// multiple goroutines of one process; it does not coordinate with other
// processes writing the same Store.
type Ledger struct {
	mu            sync.RWMutex
	store         Store
	blocks        []*Block
	now           func() time.Time
	strictGenesis bool
	logger        *zap.Logger
}

// Open loads the chain from store. When the store reports ErrNoLedger a
// genesis block is created and saved. Any other load failure is returned;
// there is no partial-chain fallback.
func Open(ctx context.Context, store Store, logger *zap.Logger, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		store:  store,
		now:    time.Now,
		logger: logger,
	}
	for _, o := range opts {
		o(l)
	}

	blocks, err := store.Load(ctx)
	switch {
	case errors.Is(err, ErrNoLedger):
		genesis := newGenesisBlock(NewTimestamp(l.now()))
		if err := store.Save(ctx, []*Block{genesis}); err != nil {
			return nil, fmt.Errorf("save genesis block: %w", err)
		}
		l.blocks = []*Block{genesis}
		logger.Info("ledger created", zap.String("genesis_hash", genesis.Hash))
	case err != nil:
		return nil, fmt.Errorf("load ledger: %w", err)
	case len(blocks) == 0:
		return nil, fmt.Errorf("load ledger: %w", ErrEmptyChain)
	default:
		l.blocks = blocks
		logger.Info("ledger loaded",
			zap.Int("blocks", len(blocks)),
			zap.String("tip", blocks[len(blocks)-1].Hash),
		)
	}
	return l, nil
}

// Append adds a block carrying payload, chained to the current tail.
// payload is JSON-marshalled; a json.RawMessage is used as is. The full
// sequence is saved before the block becomes visible, so a failed save leaves
// the ledger unchanged.
func (l *Ledger) Append(ctx context.Context, payload any) (*Block, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnserializablePayload, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.blocks) == 0 {
		return nil, ErrEmptyChain
	}
	tail := l.blocks[len(l.blocks)-1]

	block, err := NewBlock(len(l.blocks), data, NewTimestamp(l.now()), tail.Hash)
	if err != nil {
		return nil, err
	}

	next := make([]*Block, len(l.blocks), len(l.blocks)+1)
	copy(next, l.blocks)
	next = append(next, block)
	if err := l.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("persist block %d: %w", block.Index, err)
	}
	l.blocks = next

	l.logger.Debug("ledger block appended",
		zap.Int("index", block.Index),
		zap.String("hash", block.Hash),
	)
	return block.Clone(), nil
}

// Tail returns the most recent block.
func (l *Ledger) Tail() (*Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.blocks) == 0 {
		return nil, ErrEmptyChain
	}
	return l.blocks[len(l.blocks)-1].Clone(), nil
}

// Get returns the block at the given zero-based index.
func (l *Ledger) Get(index int) (*Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.blocks) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return l.blocks[index].Clone(), nil
}

// Len returns the number of blocks including genesis.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.blocks)
}

// Blocks returns a copy of the chain in order.
func (l *Ledger) Blocks() []*Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Block, len(l.blocks))
	for i, b := range l.blocks {
		out[i] = b.Clone()
	}
	return out
}

// Verify walks the chain from block 1 and reports the first block whose index,
// hash or link to its predecessor does not hold. It has no side effects.
func (l *Ledger) Verify() VerifyResult {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return VerifyChain(l.blocks, l.strictGenesis)
}

// IsValid reports whether Verify found no problem.
func (l *Ledger) IsValid() bool {
	return l.Verify().Valid
}

// VerifyChain checks blocks as Ledger.Verify does. strictGenesis adds the
// genesis checks described on WithStrictGenesis.
func VerifyChain(blocks []*Block, strictGenesis bool) VerifyResult {
	if strictGenesis && len(blocks) > 0 {
		g := blocks[0]
		if g.Index != 0 || g.PreviousHash != GenesisPreviousHash || g.Hash != g.ComputeHash() {
			return VerifyResult{Index: 0, Reason: ReasonBadGenesis}
		}
	}
	for i := 1; i < len(blocks); i++ {
		curr, prev := blocks[i], blocks[i-1]
		if curr.Index != i {
			return VerifyResult{Index: i, Reason: ReasonIndexMismatch}
		}
		if curr.Hash != curr.ComputeHash() {
			return VerifyResult{Index: i, Reason: ReasonHashMismatch}
		}
		if curr.PreviousHash != prev.Hash {
			return VerifyResult{Index: i, Reason: ReasonLinkBroken}
		}
	}
	return VerifyResult{Valid: true}
}
