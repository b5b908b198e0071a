package audit

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/jmerrifield20/reportledger/internal/ledger"
	"go.uber.org/zap"
)

// ── Stubs ────────────────────────────────────────────────────────────────

type failingStore struct{}

func (failingStore) Load(context.Context) ([]*ledger.Block, error) {
	return nil, ledger.ErrStorageUnavailable
}

func (failingStore) Save(context.Context, []*ledger.Block) error { return nil }

func openLedger(t *testing.T, store ledger.Store) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(context.Background(), store, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func tipOf(l *ledger.Ledger) TipFunc {
	return func() string {
		b, _ := l.Tail()
		return b.Hash
	}
}

// ── Tests ────────────────────────────────────────────────────────────────

func TestCheck_healthy(t *testing.T) {
	store := ledger.NewMemoryStore()
	l := openLedger(t, store)
	if _, err := l.Append(context.Background(), map[string]string{"student_name": "Ana"}); err != nil {
		t.Fatal(err)
	}

	var recorded []bool
	a := New(store, tipOf(l), Config{}, zap.NewNop())
	a.SetMetricsRecord(func(ok bool) { recorded = append(recorded, ok) })

	if _, ok := a.Last(); ok {
		t.Fatal("Last() before first pass should report false")
	}
	rep := a.Check(context.Background())
	if !rep.Healthy() || rep.Blocks != 2 {
		t.Errorf("unexpected report: %+v", rep)
	}
	if len(recorded) != 1 || !recorded[0] {
		t.Errorf("metrics callback: %v", recorded)
	}
	if last, ok := a.Last(); !ok || last.CheckedAt != rep.CheckedAt {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
}

func TestCheck_detectsStoreTampering(t *testing.T) {
	store := ledger.NewMemoryStore()
	l := openLedger(t, store)
	if _, err := l.Append(context.Background(), map[string]string{"student_name": "Ana"}); err != nil {
		t.Fatal(err)
	}

	store.Replace(bytes.Replace(store.Snapshot(), []byte(`"Ana"`), []byte(`"Bob"`), 1))

	rep := New(store, tipOf(l), Config{}, zap.NewNop()).Check(context.Background())
	if rep.Healthy() {
		t.Fatal("tampered store reported healthy")
	}
	if rep.Result.Valid || rep.Result.Index != 1 || rep.Result.Reason != ledger.ReasonHashMismatch {
		t.Errorf("unexpected verdict: %+v", rep.Result)
	}
	if rep.Diverged {
		t.Error("tip hash unchanged, should not be diverged")
	}
}

func TestCheck_detectsDivergence(t *testing.T) {
	store := ledger.NewMemoryStore()
	l := openLedger(t, store)

	// A second writer appends behind the first one's back.
	other := openLedger(t, store)
	if _, err := other.Append(context.Background(), map[string]string{"student_name": "Eve"}); err != nil {
		t.Fatal(err)
	}

	rep := New(store, tipOf(l), Config{}, zap.NewNop()).Check(context.Background())
	if !rep.Result.Valid {
		t.Fatalf("chain itself is valid: %+v", rep.Result)
	}
	if !rep.Diverged || rep.Healthy() {
		t.Errorf("expected divergence: %+v", rep)
	}
}

func TestCheck_storeErrors(t *testing.T) {
	rep := New(failingStore{}, nil, Config{}, zap.NewNop()).Check(context.Background())
	if rep.Healthy() || rep.Error == "" {
		t.Errorf("expected error report, got %+v", rep)
	}

	rep = New(ledger.NewMemoryStore(), nil, Config{}, zap.NewNop()).Check(context.Background())
	if rep.Error != "persisted ledger is missing" {
		t.Errorf("missing ledger: %+v", rep)
	}
}

func TestStart_stopsOnDone(t *testing.T) {
	a := New(ledger.NewMemoryStore(), nil, Config{Interval: 10 * time.Millisecond}, zap.NewNop())
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		a.Start(done)
		close(finished)
	}()

	time.Sleep(50 * time.Millisecond)
	close(done)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after done was closed")
	}
	if _, ok := a.Last(); !ok {
		t.Error("expected at least one pass")
	}
}
