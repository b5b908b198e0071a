package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
)

// GenesisPreviousHash is the previous_hash sentinel of the first block.
const GenesisPreviousHash = "0"

// GenesisMessage is the payload marker stored in the genesis block.
const GenesisMessage = "Genesis Block"

// Block is a single entry of the ledger. Fields are not modified after
// construction by anything in this package.
type Block struct {
	Index        int
	Data         json.RawMessage
	Timestamp    Timestamp
	PreviousHash string
	Hash         string
}

// blockRecord is the persisted shape of a Block. Field order matches the
// on-disk layout.
type blockRecord struct {
	Index        int             `json:"index"`
	Data         json.RawMessage `json:"data"`
	Timestamp    Timestamp       `json:"timestamp"`
	PreviousHash string          `json:"previous_hash"`
	Hash         string          `json:"hash"`
}

// NewBlock builds a block and computes its hash. data must be valid JSON.
func NewBlock(index int, data json.RawMessage, ts Timestamp, previousHash string) (*Block, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("block %d: %w", index, ErrUnserializablePayload)
	}
	b := &Block{
		Index:        index,
		Data:         append(json.RawMessage(nil), data...),
		Timestamp:    ts,
		PreviousHash: previousHash,
	}
	b.Hash = b.ComputeHash()
	return b, nil
}

// RestoreBlock rebuilds a block from persisted fields. The hash is kept as
// given; callers validate it through Ledger.Verify.
func RestoreBlock(index int, data json.RawMessage, ts Timestamp, previousHash, hash string) *Block {
	return &Block{
		Index:        index,
		Data:         append(json.RawMessage(nil), data...),
		Timestamp:    ts,
		PreviousHash: previousHash,
		Hash:         hash,
	}
}

// newGenesisBlock returns the fixed first block stamped at ts.
func newGenesisBlock(ts Timestamp) *Block {
	data, _ := json.Marshal(map[string]string{"message": GenesisMessage})
	b, _ := NewBlock(0, data, ts, GenesisPreviousHash)
	return b
}

// ComputeHash returns the hex SHA-256 of the block's canonical encoding
// {"data", "index", "previous_hash", "timestamp"}. It depends only on the
// stored field values.
func (b *Block) ComputeHash() string {
	sum := sha256.Sum256(b.canonicalBytes())
	return hex.EncodeToString(sum[:])
}

func (b *Block) canonicalBytes() []byte {
	data, err := canonicalJSON(b.Data)
	if err != nil {
		// Undecodable data is hashed as stored; it can never match a hash
		// produced over a canonical encoding.
		data = b.Data
	}
	var buf bytes.Buffer
	buf.WriteString(`{"data": `)
	buf.Write(data)
	buf.WriteString(`, "index": `)
	buf.WriteString(strconv.Itoa(b.Index))
	buf.WriteString(`, "previous_hash": `)
	writeCanonicalString(&buf, b.PreviousHash)
	buf.WriteString(`, "timestamp": `)
	writeCanonicalString(&buf, b.Timestamp.String())
	buf.WriteByte('}')
	return buf.Bytes()
}

// Clone returns a deep copy of the block.
func (b *Block) Clone() *Block {
	cp := *b
	cp.Data = append(json.RawMessage(nil), b.Data...)
	return &cp
}

// MarshalJSON implements json.Marshaler using the persisted record layout.
func (b *Block) MarshalJSON() ([]byte, error) {
	data := b.Data
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(blockRecord{
		Index:        b.Index,
		Data:         data,
		Timestamp:    b.Timestamp,
		PreviousHash: b.PreviousHash,
		Hash:         b.Hash,
	}); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

var requiredFields = []string{"index", "data", "timestamp", "previous_hash", "hash"}

// UnmarshalJSON implements json.Unmarshaler. Every field of the persisted
// record is required; the stored hash is preserved verbatim.
func (b *Block) UnmarshalJSON(raw []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("%w: record is not an object: %v", ErrMalformedRecord, err)
	}
	for _, name := range requiredFields {
		v, ok := fields[name]
		if !ok {
			return fmt.Errorf("%w: missing field %q", ErrMalformedRecord, name)
		}
		if name != "data" && bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return fmt.Errorf("%w: field %q is null", ErrMalformedRecord, name)
		}
	}

	var rec blockRecord
	if err := json.Unmarshal(fields["index"], &rec.Index); err != nil || rec.Index < 0 {
		return fmt.Errorf("%w: index must be a non-negative integer", ErrMalformedRecord)
	}
	if err := json.Unmarshal(fields["timestamp"], &rec.Timestamp); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if err := json.Unmarshal(fields["previous_hash"], &rec.PreviousHash); err != nil {
		return fmt.Errorf("%w: previous_hash must be a string", ErrMalformedRecord)
	}
	if err := json.Unmarshal(fields["hash"], &rec.Hash); err != nil {
		return fmt.Errorf("%w: hash must be a string", ErrMalformedRecord)
	}

	*b = *RestoreBlock(rec.Index, fields["data"], rec.Timestamp, rec.PreviousHash, rec.Hash)
	return nil
}
