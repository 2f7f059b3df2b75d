package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spamwarden/internal/analytics"
	"spamwarden/internal/antispam"
	"spamwarden/internal/audit"
	"spamwarden/internal/bot"
	"spamwarden/internal/config"
	"spamwarden/internal/executor"
	"spamwarden/internal/metrics"
	"spamwarden/internal/storage"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	ctx := context.Background()
	auditLogger := audit.NewLogger(store, logger)
	engine := antispam.New(ctx, store, logger)
	analyticsService, err := analytics.New(store)
	if err != nil {
		logger.Fatal("analytics init failed", zap.Error(err))
	}
	defer analyticsService.Close()
	m := metrics.New()

	botSvc, err := bot.New(cfg, logger, store, engine, nil, auditLogger, analyticsService, m)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}
	exec := executor.New(botSvc.Session(), logger)
	botSvc.SetExecutor(exec)

	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started")

	if days := cfg.AuditRetentionDays; days > 0 {
		go func() {
			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()
			for range ticker.C {
				if err := store.CleanupAuditLogs(context.Background(), days); err != nil {
					logger.Warn("audit cleanup failed", zap.Error(err))
				}
			}
		}()
	}

	var server *http.Server
	if cfg.Health.Enabled {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		mux.Handle("/metrics", m.Handler())
		server = &http.Server{Addr: cfg.Health.Addr, Handler: mux}
		go func() {
			logger.Info("health endpoint enabled", zap.String("addr", cfg.Health.Addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if server != nil {
		_ = server.Shutdown(shutdownCtx)
	}
	botSvc.Close(shutdownCtx)
}
