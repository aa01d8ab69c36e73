package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/attune/internal/alerts"
	"github.com/BradenHooton/attune/internal/auth"
	"github.com/BradenHooton/attune/internal/background"
	"github.com/BradenHooton/attune/internal/behavior"
	"github.com/BradenHooton/attune/internal/config"
	"github.com/BradenHooton/attune/internal/database"
	"github.com/BradenHooton/attune/internal/fusion"
	"github.com/BradenHooton/attune/internal/handlers"
	"github.com/BradenHooton/attune/internal/metrics"
	"github.com/BradenHooton/attune/internal/repositories"
	"github.com/BradenHooton/attune/internal/routes"
	"github.com/BradenHooton/attune/internal/services"
	pkghttp "github.com/BradenHooton/attune/pkg/http"
	pkglogger "github.com/BradenHooton/attune/pkg/logger"
)

func main() {
	issueToken := flag.String("issue-admin-token", "", "print an admin bearer token for the given subject and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	tokenManager := auth.NewTokenManager(cfg.Auth.AdminJWTSecret, cfg.Auth.TokenExpiry)
	if *issueToken != "" {
		token, err := tokenManager.GenerateAdminToken(*issueToken)
		if err != nil {
			logger.Error("failed to issue admin token", slog.Any("error", err))
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.NewConnection(startupCtx, &cfg.Database, logger)
	if err != nil {
		startupCancel()
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Behavioral models
	estimator, err := behavior.NewKernelDensityEstimator(behavior.Params{Nu: cfg.Engine.Nu, Gamma: cfg.Engine.Gamma})
	if err != nil {
		startupCancel()
		logger.Error("invalid model parameters", slog.Any("error", err))
		os.Exit(1)
	}
	codec, err := behavior.NewCodec([]byte(cfg.Engine.ModelIntegrityKey), estimator)
	if err != nil {
		startupCancel()
		logger.Error("invalid model integrity key", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.Engine.ModelIntegrityKey == "" {
		logger.Warn("MODEL_INTEGRITY_KEY not set; stored models use an unkeyed digest")
	}

	// Initialize repositories
	modelRepo := repositories.NewModelRepository(db, codec)
	attemptRepo := repositories.NewAttemptRepository(db)
	alertRepo := repositories.NewAlertRepository(db)

	registry := behavior.NewRegistry(estimator, modelRepo, logger)

	// Alert ledger, restored from the last flushed window
	ledger := alerts.NewLedger(cfg.Engine.AlertCap)
	ledger.UseReserver(alertRepo, alerts.DefaultIDBlock)
	restored, err := alertRepo.LoadRecent(startupCtx, cfg.Engine.AlertCap)
	if err != nil {
		startupCancel()
		logger.Error("failed to restore alert ledger", slog.Any("error", err))
		os.Exit(1)
	}
	ledger.Restore(restored)
	logger.Info("alert ledger restored", slog.Int("alerts", ledger.Len()))

	m := metrics.New()
	m.LedgerSize.Set(float64(ledger.Len()))

	notifiers, redisPublisher := buildNotifiers(startupCtx, cfg.Notify, logger)
	startupCancel()

	// Initialize services
	audit := pkglogger.NewDecisionLogger(logger, cfg.Server.Env)
	decisionService := services.NewDecisionService(registry, fusion.NewPolicy(), ledger, attemptRepo, notifiers, m, audit, logger)
	enrollmentService := services.NewEnrollmentService(registry, m, audit, logger)
	adminService := services.NewAdminService(attemptRepo, modelRepo, ledger, audit, logger)

	ips, invalid := pkghttp.NewIPResolver(cfg.Server.TrustedProxies)
	for _, cidr := range invalid {
		logger.Warn("ignoring invalid trusted proxy range", slog.String("cidr", cidr))
	}

	router := routes.NewRouter(routes.Dependencies{
		Engine:           handlers.NewEngineHandler(decisionService, enrollmentService, ips),
		Admin:            handlers.NewAdminHandler(adminService),
		TokenManager:     tokenManager,
		IPs:              ips,
		Metrics:          m.Handler(),
		Health:           db,
		Env:              cfg.Server.Env,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AttemptRateLimit: cfg.Server.AttemptRateLimit,
	}, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Background tasks
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	flusher := background.NewLedgerFlusher(ledger, alertRepo, logger, cfg.Engine.LedgerFlushInterval)
	cleanupManager := background.NewCleanupManager(attemptRepo, cfg.Engine.AttemptRetention, logger, cfg.Engine.CleanupInterval)
	go flusher.Start(bgCtx)
	go cleanupManager.Start(bgCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	flusher.Stop()
	cleanupManager.Stop()
	bgCancel()

	// attempt writes and notifications still in flight
	decisionService.Wait()

	if err := flusher.Flush(shutdownCtx); err != nil {
		logger.Error("final ledger flush failed", slog.Any("error", err))
	}
	if redisPublisher != nil {
		if err := redisPublisher.Close(); err != nil {
			logger.Error("failed to close redis client", slog.Any("error", err))
		}
	}

	logger.Info("server stopped")
}

// buildNotifiers wires the configured critical alert channels. A channel that
// fails to initialise is logged and skipped.
func buildNotifiers(ctx context.Context, cfg config.NotifyConfig, logger *slog.Logger) ([]services.AlertNotifier, *services.RedisAlertPublisher) {
	var notifiers []services.AlertNotifier

	if cfg.Enabled && cfg.FromAddress != "" {
		ses, err := services.NewSESAlertNotifier(ctx, cfg.AWSRegion, cfg.FromAddress, cfg.Recipients, logger)
		if err != nil {
			logger.Error("failed to initialize SES alert notifier", slog.Any("error", err))
		} else {
			notifiers = append(notifiers, ses)
		}
	}

	var publisher *services.RedisAlertPublisher
	if cfg.RedisURL != "" {
		p, err := services.NewRedisAlertPublisher(ctx, cfg.RedisURL, cfg.RedisChannel, logger)
		if err != nil {
			logger.Error("failed to initialize redis alert publisher", slog.Any("error", err))
		} else {
			publisher = p
			notifiers = append(notifiers, p)
		}
	}

	return notifiers, publisher
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}
