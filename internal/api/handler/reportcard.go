package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/reportledger/internal/identity"
	"github.com/jmerrifield20/reportledger/internal/ledger"
	"github.com/jmerrifield20/reportledger/internal/reportcard"
	"go.uber.org/zap"
)

// reportCardSvc is the interface expected by ReportCardHandler, satisfied by
// *reportcard.Service.
type reportCardSvc interface {
	AddReportCard(ctx context.Context, studentName string, grades map[string]reportcard.Grade) (*ledger.Block, error)
}

// ReportCardHandler accepts new report cards.
type ReportCardHandler struct {
	svc    reportCardSvc
	tokens *identity.RegistrarTokenIssuer
	logger *zap.Logger
}

// NewReportCardHandler creates a ReportCardHandler. tokens may be nil to
// accept unauthenticated writes.
func NewReportCardHandler(svc reportCardSvc, tokens *identity.RegistrarTokenIssuer, logger *zap.Logger) *ReportCardHandler {
	return &ReportCardHandler{svc: svc, tokens: tokens, logger: logger}
}

// Register mounts the report card routes on the given router group.
func (h *ReportCardHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/reportcards", identity.RequireRegistrar(h.tokens), h.Create)
}

type createReportCardRequest struct {
	StudentName string            `json:"student_name"`
	Grades      map[string]string `json:"grades" binding:"required"`
}

// Create handles POST /reportcards.
func (h *ReportCardHandler) Create(c *gin.Context) {
	var req createReportCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	grades := make(map[string]reportcard.Grade, len(req.Grades))
	for subject, raw := range req.Grades {
		g, err := reportcard.ParseGrade(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s: %v", subject, err)})
			return
		}
		grades[subject] = g
	}

	block, err := h.svc.AddReportCard(c.Request.Context(), req.StudentName, grades)
	switch {
	case errors.Is(err, reportcard.ErrInvalidStudentName), errors.Is(err, reportcard.ErrInvalidGrades):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("add report card", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record report card"})
		return
	}

	RecordLedgerAppend()
	if claims := identity.RegistrarFromCtx(c); claims != nil {
		h.logger.Info("report card recorded",
			zap.String("registrar", claims.Subject),
			zap.Int("index", block.Index),
		)
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": fmt.Sprintf("Report card for %s added.", req.StudentName),
		"block":   block,
	})
}
