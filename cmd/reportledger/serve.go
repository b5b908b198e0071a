package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/reportledger/internal/api"
	"github.com/jmerrifield20/reportledger/internal/api/handler"
	"github.com/jmerrifield20/reportledger/internal/audit"
	"github.com/jmerrifield20/reportledger/internal/identity"
	"github.com/jmerrifield20/reportledger/internal/reportcard"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the report card HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	l, store, closeStore, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if res := l.Verify(); !res.Valid {
		logger.Warn("ledger integrity check FAILED at startup",
			zap.Int("index", res.Index),
			zap.String("reason", string(res.Reason)),
		)
	} else {
		tip, _ := l.Tail()
		logger.Info("ledger verified",
			zap.Int("blocks", l.Len()),
			zap.String("tip", tip.Hash),
		)
	}
	handler.SetChainLength(l.Len())

	tokens, err := registrarTokens()
	if err != nil {
		return err
	}
	if tokens == nil {
		logger.Warn("auth.signing_secret is empty; POST /reportcards accepts unauthenticated writes")
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	done := make(chan struct{})
	defer close(done)

	var auditor *audit.Auditor
	if interval := viper.GetDuration("audit.interval"); interval > 0 {
		auditor = audit.New(store, func() string {
			tip, _ := l.Tail()
			return tip.Hash
		}, audit.Config{
			Interval:      interval,
			StrictGenesis: viper.GetBool("ledger.strict_genesis"),
		}, logger)
		auditor.SetMetricsRecord(handler.RecordStoreAudit)
		go auditor.Start(done)
		logger.Info("store audit enabled", zap.Duration("interval", interval))
	}

	svc := reportcard.NewService(l, logger)
	router := api.NewRouter(api.Config{
		CORSOrigins:  viper.GetStringSlice("server.cors_origins"),
		RateLimitRPS: viper.GetFloat64("server.rate_limit_rps"),
		Tokens:       tokens,
		SecretHash:   viper.GetString("auth.registrar_secret_hash"),
		Auditor:      auditor,
	}, svc, logger, done)

	port := servePort
	if port == 0 {
		port = viper.GetInt("server.port")
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("reportledger HTTP listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP listen: %w", err)
	case <-quit:
	}
	logger.Info("shutting down reportledger...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("reportledger stopped")
	return nil
}

// registrarTokens returns nil when no signing secret is configured.
func registrarTokens() (*identity.RegistrarTokenIssuer, error) {
	secret := viper.GetString("auth.signing_secret")
	if secret == "" {
		return nil, nil
	}
	ttl := viper.GetDuration("auth.token_ttl")
	return identity.NewRegistrarTokenIssuer(secret, viper.GetString("auth.issuer"), ttl)
}
