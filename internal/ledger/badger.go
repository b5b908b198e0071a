package ledger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// blockPrefix namespaces block keys; the suffix is the big-endian index so
// prefix iteration yields chain order.
var blockPrefix = []byte("block/")

func blockKey(index int) []byte {
	key := make([]byte, len(blockPrefix)+8)
	copy(key, blockPrefix)
	binary.BigEndian.PutUint64(key[len(blockPrefix):], uint64(index))
	return key
}

// BadgerStore persists the chain in an embedded Badger database, one key per
// block. The directory lock keeps a second process from opening it.
type BadgerStore struct {
	db     *badger.DB
	logger *zap.Logger
}

// NewBadgerStore opens (or creates) a Badger database in dir.
func NewBadgerStore(dir string, logger *zap.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "Cannot acquire directory lock") ||
			strings.Contains(msg, "resource temporarily unavailable") {
			return nil, fmt.Errorf("%w: database at %s is locked by another process: %v", ErrStorageUnavailable, dir, err)
		}
		return nil, fmt.Errorf("%w: open database at %s: %v", ErrStorageUnavailable, dir, err)
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

// Load implements Store.
func (s *BadgerStore) Load(_ context.Context) ([]*Block, error) {
	var blocks []*Block
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = blockPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(blockPrefix); it.ValidForPrefix(blockPrefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				b := &Block{}
				if err := b.UnmarshalJSON(val); err != nil {
					return fmt.Errorf("key %x: %w", item.Key(), err)
				}
				blocks = append(blocks, b)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, ErrMalformedRecord) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: badger load: %v", ErrStorageUnavailable, err)
	}
	if len(blocks) == 0 {
		return nil, ErrNoLedger
	}
	return blocks, nil
}

// Save implements Store. Every block key is rewritten and keys past the end
// of blocks are dropped, all in one transaction.
func (s *BadgerStore) Save(_ context.Context, blocks []*Block) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for i, b := range blocks {
			val, err := b.MarshalJSON()
			if err != nil {
				return fmt.Errorf("encode block %d: %w", i, err)
			}
			if err := txn.Set(blockKey(i), val); err != nil {
				return err
			}
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = blockPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		var stale [][]byte
		for it.Seek(blockKey(len(blocks))); it.ValidForPrefix(blockPrefix); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: badger save: %v", ErrStorageUnavailable, err)
	}

	s.logger.Debug("ledger keys written", zap.Int("blocks", len(blocks)))
	return nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
