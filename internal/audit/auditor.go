// Package audit periodically re-reads the persisted chain and verifies it.
//
// The in-memory Ledger only ever sees its own appends, so edits made to the
// backing store by another process go unnoticed until the next Open. The
// Auditor closes that gap for long-running servers.
package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jmerrifield20/reportledger/internal/ledger"
	"go.uber.org/zap"
)

// Config holds audit loop settings.
type Config struct {
	Interval      time.Duration
	Timeout       time.Duration
	StrictGenesis bool
}

// TipFunc returns the hash of the last block the server holds in memory.
type TipFunc func() string

// MetricsRecordFunc is an optional callback for recording audit results.
type MetricsRecordFunc func(valid bool)

// Report is the outcome of one audit pass.
type Report struct {
	CheckedAt time.Time           `json:"checked_at"`
	Blocks    int                 `json:"blocks"`
	Result    ledger.VerifyResult `json:"result"`
	// Diverged is set when the stored tip differs from the in-memory tip,
	// i.e. someone else wrote to the store.
	Diverged bool   `json:"diverged"`
	Error    string `json:"error,omitempty"`
}

// Healthy reports whether the pass found a readable, valid, undiverged chain.
func (r Report) Healthy() bool {
	return r.Error == "" && r.Result.Valid && !r.Diverged
}

// Auditor runs periodic store audits.
type Auditor struct {
	store     ledger.Store
	tip       TipFunc
	cfg       Config
	onMetrics MetricsRecordFunc
	logger    *zap.Logger

	mu   sync.Mutex
	last *Report
}

// New creates an Auditor. tip may be nil to skip the divergence check.
func New(store ledger.Store, tip TipFunc, cfg Config, logger *zap.Logger) *Auditor {
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Auditor{store: store, tip: tip, cfg: cfg, logger: logger}
}

// SetMetricsRecord configures the metrics recording callback.
func (a *Auditor) SetMetricsRecord(fn MetricsRecordFunc) {
	a.onMetrics = fn
}

// Start runs the audit loop until done is closed.
func (a *Auditor) Start(done <-chan struct{}) {
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Timeout)
			a.Check(ctx)
			cancel()
		case <-done:
			return
		}
	}
}

// Check performs one audit pass and records it as the latest report.
func (a *Auditor) Check(ctx context.Context) Report {
	rep := Report{CheckedAt: time.Now().UTC(), Result: ledger.VerifyResult{Valid: true}}

	blocks, err := a.store.Load(ctx)
	switch {
	case errors.Is(err, ledger.ErrNoLedger):
		rep.Error = "persisted ledger is missing"
	case err != nil:
		rep.Error = err.Error()
	case len(blocks) == 0:
		rep.Error = ledger.ErrEmptyChain.Error()
	default:
		rep.Blocks = len(blocks)
		rep.Result = ledger.VerifyChain(blocks, a.cfg.StrictGenesis)
		if a.tip != nil {
			rep.Diverged = blocks[len(blocks)-1].Hash != a.tip()
		}
	}

	if a.onMetrics != nil {
		a.onMetrics(rep.Healthy())
	}

	a.mu.Lock()
	prev := a.last
	a.last = &rep
	a.mu.Unlock()

	wasHealthy := prev == nil || prev.Healthy()
	switch {
	case !rep.Healthy() && wasHealthy:
		a.logger.Warn("audit: persisted ledger failed verification",
			zap.Int("blocks", rep.Blocks),
			zap.Bool("valid", rep.Result.Valid),
			zap.Int("index", rep.Result.Index),
			zap.String("reason", string(rep.Result.Reason)),
			zap.Bool("diverged", rep.Diverged),
			zap.String("error", rep.Error),
		)
	case rep.Healthy() && !wasHealthy:
		a.logger.Info("audit: persisted ledger recovered", zap.Int("blocks", rep.Blocks))
	default:
		a.logger.Debug("audit: pass complete", zap.Bool("healthy", rep.Healthy()))
	}
	return rep
}

// Last returns the most recent report, or false before the first pass.
func (a *Auditor) Last() (Report, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == nil {
		return Report{}, false
	}
	return *a.last, true
}
