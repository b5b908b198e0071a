package ledger

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	tsDateTime = "2006-01-02 15:04:05"
	tsOffset   = "-07:00"
)

// Timestamp is the creation time of a block. Its String form is the exact text
// that is persisted and hashed: "YYYY-MM-DD HH:MM:SS[.ffffff][+HH:MM]".
// Naive timestamps (no offset) are wall-clock readings, as written by ledgers
// created before zone-aware timestamps existed.
type Timestamp struct {
	t     time.Time
	zoned bool
}

// NewTimestamp returns a naive timestamp for t, truncated to microseconds.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t: t.Truncate(time.Microsecond)}
}

// NewZonedTimestamp returns a timestamp for t that carries its UTC offset.
func NewZonedTimestamp(t time.Time) Timestamp {
	return Timestamp{t: t.Truncate(time.Microsecond), zoned: true}
}

// ParseTimestamp parses ISO-8601 text with either a 'T' or a space between
// date and time, an optional fraction and an optional "Z" or numeric offset.
// Digits beyond microseconds are dropped.
func ParseTimestamp(s string) (Timestamp, error) {
	if len(s) < len(tsDateTime) {
		return Timestamp{}, fmt.Errorf("parse timestamp %q: too short", s)
	}
	norm := s
	if norm[10] == ' ' {
		norm = norm[:10] + "T" + norm[11:]
	}
	if t, err := time.Parse("2006-01-02T15:04:05.999999999Z07:00", norm); err == nil {
		return NewZonedTimestamp(t), nil
	}
	// Naive wall-clock values are held in UTC so no DST normalisation can
	// shift them.
	t, err := time.Parse("2006-01-02T15:04:05.999999999", norm)
	if err != nil {
		return Timestamp{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return NewTimestamp(t), nil
}

// Time returns the underlying time value.
func (ts Timestamp) Time() time.Time { return ts.t }

// Zoned reports whether the timestamp carries a UTC offset.
func (ts Timestamp) Zoned() bool { return ts.zoned }

// IsZero reports whether the timestamp is unset.
func (ts Timestamp) IsZero() bool { return ts.t.IsZero() }

// Equal reports whether both timestamps render to the same text.
func (ts Timestamp) Equal(other Timestamp) bool { return ts.String() == other.String() }

// String renders the canonical text used for persistence and hashing.
// The fraction is omitted when the microsecond component is zero.
func (ts Timestamp) String() string {
	var b strings.Builder
	b.WriteString(ts.t.Format(tsDateTime))
	if us := ts.t.Nanosecond() / 1000; us != 0 {
		fmt.Fprintf(&b, ".%06d", us)
	}
	if ts.zoned {
		b.WriteString(ts.t.Format(tsOffset))
	}
	return b.String()
}

// MarshalJSON implements json.Marshaler.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}
