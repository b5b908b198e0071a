package ledger

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory, thread-safe Store. It keeps the encoded form
// of the chain, so a ledger reopened on the same store goes through the same
// decoding path as one backed by a file. Nothing survives a restart.
type MemoryStore struct {
	mu  sync.RWMutex
	raw []byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context) ([]*Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.raw == nil {
		return nil, ErrNoLedger
	}
	return DecodeChain(s.raw)
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, blocks []*Block) error {
	raw, err := EncodeChain(blocks)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = raw
	return nil
}

// Snapshot returns a copy of the persisted document.
func (s *MemoryStore) Snapshot() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.raw...)
}

// Replace overwrites the persisted document, bypassing any ledger.
func (s *MemoryStore) Replace(raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = append([]byte(nil), raw...)
}
