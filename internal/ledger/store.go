package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Store persists the full block sequence of a ledger.
// FileStore, MemoryStore, PostgresStore and BadgerStore implement it.
type Store interface {
	// Load returns the persisted blocks in chain order, or ErrNoLedger when
	// nothing has been persisted yet.
	Load(ctx context.Context) ([]*Block, error)

	// Save replaces the persisted sequence with blocks.
	Save(ctx context.Context, blocks []*Block) error
}

// EncodeChain renders blocks in the persisted layout: a JSON array indented
// with four spaces, one object per block.
func EncodeChain(blocks []*Block) ([]byte, error) {
	if blocks == nil {
		blocks = []*Block{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(blocks); err != nil {
		return nil, fmt.Errorf("encode chain: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeChain parses the persisted layout. A document that is not a JSON
// array yields ErrStorageUnavailable; a bad entry yields ErrMalformedRecord.
func DecodeChain(raw []byte) ([]*Block, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode chain: %v", ErrStorageUnavailable, err)
	}
	blocks := make([]*Block, 0, len(entries))
	for i, entry := range entries {
		b := &Block{}
		if err := b.UnmarshalJSON(entry); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}
