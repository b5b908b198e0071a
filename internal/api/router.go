// Package api assembles the HTTP surface of the report card ledger.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/reportledger/internal/api/handler"
	"github.com/jmerrifield20/reportledger/internal/audit"
	"github.com/jmerrifield20/reportledger/internal/identity"
	"github.com/jmerrifield20/reportledger/internal/reportcard"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Config holds the router settings read from viper.
type Config struct {
	CORSOrigins  []string
	RateLimitRPS float64

	// Tokens guards POST /reportcards when non-nil.
	Tokens *identity.RegistrarTokenIssuer
	// SecretHash is the bcrypt hash accepted by POST /auth/token.
	SecretHash string
	// Auditor backs /readyz and GET /ledger/audit when non-nil.
	Auditor *audit.Auditor
}

// NewRouter builds the gin engine. done stops background goroutines owned
// by middleware.
func NewRouter(cfg Config, svc *reportcard.Service, logger *zap.Logger, done <-chan struct{}) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handler.RequestID())

	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", handler.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", handler.RequestIDHeader},
			AllowCredentials: !containsWildcard(cfg.CORSOrigins),
			MaxAge:           12 * time.Hour,
		}))
	}

	router.Use(handler.SecurityHeaders())
	router.Use(handler.MaxBodyBytes(maxBodyBytes))
	router.Use(handler.RateLimiter(cfg.RateLimitRPS, int(cfg.RateLimitRPS*2), done))
	router.Use(handler.PrometheusMiddleware())
	router.Use(handler.RequestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", handler.MetricsHandler())

	v1 := router.Group("/api/v1")
	handler.NewLedgerHandler(svc, logger).Register(v1)
	handler.NewReportCardHandler(svc, cfg.Tokens, logger).Register(v1)
	handler.NewAuthHandler(cfg.SecretHash, cfg.Tokens, logger).Register(v1)

	if cfg.Auditor != nil {
		ah := handler.NewAuditHandler(cfg.Auditor)
		router.GET("/readyz", ah.Ready)
		ah.Register(v1)
	}

	return router
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}
