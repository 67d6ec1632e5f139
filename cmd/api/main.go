package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/safar/store-mcp/internal/api"
	"github.com/safar/store-mcp/internal/app"
	"github.com/safar/store-mcp/internal/config"
	"github.com/safar/store-mcp/internal/health"
	"github.com/safar/store-mcp/internal/logger"
	"github.com/safar/store-mcp/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		log.Fatalf("Create logger: %v", err)
	}
	defer zl.Sync()

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, zl)
	if err != nil {
		zl.Fatal("setup tracing", zap.Error(err))
	}

	a, err := app.New(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("initialize application", zap.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			zl.Warn("close application", zap.Error(err))
		}
	}()

	h, err := health.NewHealthHandler(cfg, a.Store)
	if err != nil {
		zl.Fatal("create health checks", zap.Error(err))
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(a.Dispatcher, h, zl)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      otelhttp.NewHandler(router, "store-api"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		zl.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	<-done
	zl.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("server shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zl.Warn("flush traces", zap.Error(err))
	}
	zl.Info("server stopped")
}
