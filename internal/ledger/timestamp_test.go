package ledger_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jmerrifield20/reportledger/internal/ledger"
)

func TestParseTimestamp_canonicalText(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"2025-03-14 09:26:53.589793", "2025-03-14 09:26:53.589793"},
		{"2025-03-14T09:26:53.589793", "2025-03-14 09:26:53.589793"},
		{"2025-03-14 09:30:00", "2025-03-14 09:30:00"},
		{"2025-03-14 09:30:00.000000", "2025-03-14 09:30:00"},
		{"2025-03-14 09:30:00.1", "2025-03-14 09:30:00.100000"},
		{"2025-03-14 09:30:00.123456789", "2025-03-14 09:30:00.123456"},
		{"2025-03-14T10:00:00.120000+00:00", "2025-03-14 10:00:00.120000+00:00"},
		{"2025-03-14T10:00:00Z", "2025-03-14 10:00:00+00:00"},
		{"2025-03-14 10:00:00+05:30", "2025-03-14 10:00:00+05:30"},
		{"2024-03-10 02:30:00", "2024-03-10 02:30:00"},
	}
	for _, tc := range cases {
		ts, err := ledger.ParseTimestamp(tc.in)
		if err != nil {
			t.Errorf("ParseTimestamp(%q): %v", tc.in, err)
			continue
		}
		if got := ts.String(); got != tc.want {
			t.Errorf("ParseTimestamp(%q).String() = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseTimestamp_rejects(t *testing.T) {
	for _, in := range []string{"", "2025-03-14", "14/03/2025 09:30:00", "2025-03-14 25:00:00"} {
		if _, err := ledger.ParseTimestamp(in); err == nil {
			t.Errorf("ParseTimestamp(%q): expected error", in)
		}
	}
}

func TestNewTimestamp_truncatesToMicroseconds(t *testing.T) {
	ts := ledger.NewTimestamp(time.Date(2025, 1, 2, 3, 4, 5, 123456789, time.UTC))
	if got := ts.String(); got != "2025-01-02 03:04:05.123456" {
		t.Errorf("String() = %q", got)
	}
	if ts.Zoned() {
		t.Error("NewTimestamp should be naive")
	}
}

func TestTimestampJSON_roundTrip(t *testing.T) {
	ts := ledger.NewTimestamp(time.Date(2025, 1, 2, 3, 4, 5, 6000, time.Local))
	raw, err := json.Marshal(ts)
	if err != nil {
		t.Fatal(err)
	}
	var got ledger.Timestamp
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if !got.Equal(ts) {
		t.Errorf("round trip: got %s, want %s", got, ts)
	}
}
