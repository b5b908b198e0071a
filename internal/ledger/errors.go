package ledger

import "errors"

var (
	// ErrMalformedRecord is returned when a persisted block is missing a field
	// or a field has the wrong shape. The chain cannot be reconstructed.
	ErrMalformedRecord = errors.New("malformed ledger record")

	// ErrStorageUnavailable is returned when the persistence sink cannot be
	// read, parsed at the top level, or written.
	ErrStorageUnavailable = errors.New("ledger storage unavailable")

	// ErrEmptyChain is returned when a block sequence has no genesis block.
	ErrEmptyChain = errors.New("ledger chain is empty")

	// ErrNoLedger is returned by a Store when nothing has been persisted yet.
	ErrNoLedger = errors.New("no persisted ledger")

	// ErrIndexOutOfRange is returned by Get for an index outside the chain.
	ErrIndexOutOfRange = errors.New("block index out of range")

	// ErrUnserializablePayload is returned when a payload cannot be encoded as JSON.
	ErrUnserializablePayload = errors.New("payload is not serializable")
)
