package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/reportledger/internal/identity"
	"go.uber.org/zap"
)

// AuthHandler exchanges the shared registrar secret for a registrar token.
type AuthHandler struct {
	secretHash string
	tokens     *identity.RegistrarTokenIssuer
	logger     *zap.Logger
}

// NewAuthHandler creates an AuthHandler. secretHash is the bcrypt hash
// produced by identity.HashSecret.
func NewAuthHandler(secretHash string, tokens *identity.RegistrarTokenIssuer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{secretHash: secretHash, tokens: tokens, logger: logger}
}

// Register mounts the auth routes on the given router group.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	{
		auth.POST("/token", h.IssueToken)
	}
}

type tokenRequest struct {
	Secret  string `json:"secret" binding:"required"`
	Subject string `json:"subject"`
}

// IssueToken handles POST /auth/token.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	if h.tokens == nil || h.secretHash == "" {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "registrar authentication is not configured"})
		return
	}

	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := identity.CheckSecret(h.secretHash, req.Secret); err != nil {
		if !errors.Is(err, identity.ErrInvalidSecret) {
			h.logger.Error("check registrar secret", zap.Error(err))
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	subject := req.Subject
	if subject == "" {
		subject = "registrar"
	}
	tok, err := h.tokens.Issue(subject)
	if err != nil {
		h.logger.Error("issue registrar token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": tok})
}
