package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/reportledger/internal/ledger"
	"github.com/jmerrifield20/reportledger/internal/reportcard"
	"go.uber.org/zap"
)

// chainSvc is the read side expected by LedgerHandler, satisfied by
// *reportcard.Service.
type chainSvc interface {
	ListBlocks() []reportcard.BlockView
	GetBlock(index int) (reportcard.BlockView, error)
	CheckIntegrity() ledger.VerifyResult
}

// LedgerHandler exposes read-only HTTP endpoints for the report card ledger.
type LedgerHandler struct {
	svc    chainSvc
	logger *zap.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(svc chainSvc, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{svc: svc, logger: logger}
}

// Register mounts the ledger routes on the given router group.
func (h *LedgerHandler) Register(rg *gin.RouterGroup) {
	l := rg.Group("/ledger")
	{
		l.GET("", h.Overview)
		l.GET("/blocks", h.ListBlocks)
		l.GET("/blocks/:idx", h.GetBlock)
		l.GET("/verify", h.Verify)
	}
}

// Overview handles GET /ledger and returns the chain length and tip hash.
func (h *LedgerHandler) Overview(c *gin.Context) {
	blocks := h.svc.ListBlocks()
	SetChainLength(len(blocks))

	tip := ""
	if len(blocks) > 0 {
		tip = blocks[len(blocks)-1].Hash
	}
	c.JSON(http.StatusOK, gin.H{
		"blocks": len(blocks),
		"tip":    tip,
	})
}

// ListBlocks handles GET /ledger/blocks.
func (h *LedgerHandler) ListBlocks(c *gin.Context) {
	blocks := h.svc.ListBlocks()
	c.JSON(http.StatusOK, gin.H{"blocks": blocks})
}

// GetBlock handles GET /ledger/blocks/:idx.
func (h *LedgerHandler) GetBlock(c *gin.Context) {
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil || idx < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "idx must be a non-negative integer"})
		return
	}

	b, err := h.svc.GetBlock(idx)
	if errors.Is(err, ledger.ErrIndexOutOfRange) {
		c.JSON(http.StatusNotFound, gin.H{"error": "block not found"})
		return
	}
	if err != nil {
		h.logger.Error("get block", zap.Int("index", idx), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query ledger"})
		return
	}

	c.JSON(http.StatusOK, b)
}

// Verify handles GET /ledger/verify. A broken chain is still a 200; the
// body carries the verdict.
func (h *LedgerHandler) Verify(c *gin.Context) {
	res := h.svc.CheckIntegrity()
	RecordIntegrityCheck(res.Valid)
	c.JSON(http.StatusOK, res)
}
