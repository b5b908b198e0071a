package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/reportledger/internal/audit"
)

// auditReporter is satisfied by *audit.Auditor.
type auditReporter interface {
	Last() (audit.Report, bool)
}

// AuditHandler serves the latest background store audit.
type AuditHandler struct {
	auditor auditReporter
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(auditor auditReporter) *AuditHandler {
	return &AuditHandler{auditor: auditor}
}

// Register mounts the audit routes on the given router group.
func (h *AuditHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/ledger/audit", h.Last)
}

// Last handles GET /ledger/audit.
func (h *AuditHandler) Last(c *gin.Context) {
	rep, ok := h.auditor.Last()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no audit has run yet"})
		return
	}
	c.JSON(http.StatusOK, rep)
}

// Ready handles GET /readyz. It fails once an audit finds the persisted
// chain unreadable, tampered or diverged.
func (h *AuditHandler) Ready(c *gin.Context) {
	rep, ok := h.auditor.Last()
	if ok && !rep.Healthy() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "audit": rep})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
