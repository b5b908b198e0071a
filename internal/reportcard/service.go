// Package reportcard records student report cards in the ledger and exposes
// read access for display and integrity checks.
package reportcard

import (
	"context"
	"encoding/json"

	"github.com/jmerrifield20/reportledger/internal/ledger"
	"go.uber.org/zap"
)

// chainLedger is the ledger surface the service needs. *ledger.Ledger
// satisfies it.
type chainLedger interface {
	Append(ctx context.Context, payload any) (*ledger.Block, error)
	Get(index int) (*ledger.Block, error)
	Blocks() []*ledger.Block
	Verify() ledger.VerifyResult
}

// BlockView is the read-only form of a block used for display.
type BlockView struct {
	Index        int             `json:"index"`
	Timestamp    string          `json:"timestamp"`
	Data         json.RawMessage `json:"data"`
	Hash         string          `json:"hash"`
	PreviousHash string          `json:"previous_hash"`
}

// Service adds report cards to a ledger. The ledger is passed in once and
// shared by every caller.
type Service struct {
	ledger chainLedger
	logger *zap.Logger
}

// NewService creates a Service over l.
func NewService(l chainLedger, logger *zap.Logger) *Service {
	return &Service{ledger: l, logger: logger}
}

// AddReportCard validates the input and appends it as a new block. Invalid
// input never reaches the ledger.
func (s *Service) AddReportCard(ctx context.Context, studentName string, grades map[string]Grade) (*ledger.Block, error) {
	rc := ReportCard{StudentName: studentName, Grades: grades}
	if err := rc.Validate(); err != nil {
		return nil, err
	}

	block, err := s.ledger.Append(ctx, rc)
	if err != nil {
		s.logger.Error("append report card", zap.Error(err))
		return nil, err
	}

	s.logger.Info("report card added",
		zap.String("student_name", studentName),
		zap.Int("index", block.Index),
	)
	return block, nil
}

// ListBlocks returns every block in chain order.
func (s *Service) ListBlocks() []BlockView {
	blocks := s.ledger.Blocks()
	views := make([]BlockView, len(blocks))
	for i, b := range blocks {
		views[i] = viewOf(b)
	}
	return views
}

// GetBlock returns the block at index.
func (s *Service) GetBlock(index int) (BlockView, error) {
	b, err := s.ledger.Get(index)
	if err != nil {
		return BlockView{}, err
	}
	return viewOf(b), nil
}

func viewOf(b *ledger.Block) BlockView {
	return BlockView{
		Index:        b.Index,
		Timestamp:    b.Timestamp.String(),
		Data:         b.Data,
		Hash:         b.Hash,
		PreviousHash: b.PreviousHash,
	}
}

// CheckIntegrity verifies the chain. A tampered chain is reported in the
// result, never as an error.
func (s *Service) CheckIntegrity() ledger.VerifyResult {
	res := s.ledger.Verify()
	if !res.Valid {
		s.logger.Warn("ledger integrity check failed",
			zap.Int("index", res.Index),
			zap.String("reason", string(res.Reason)),
		)
	}
	return res
}
