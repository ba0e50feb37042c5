package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx as database/sql driver
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/clarity-ai/beacon/internal/api"
	"github.com/clarity-ai/beacon/internal/chread"
	"github.com/clarity-ai/beacon/internal/export"
	"github.com/clarity-ai/beacon/internal/storage"
	"github.com/clarity-ai/beacon/internal/store"
	"github.com/clarity-ai/beacon/internal/telemetry"
)

func main() {
	// Logger
	logger := mustBuildLogger(envOrDefault("BEACON_LOG_LEVEL", "info"))
	defer logger.Sync() //nolint:errcheck // best-effort flush

	// Config from env
	httpPort := envOrDefault("BEACON_HTTP_PORT", "8080")
	dataDir := envOrDefault("BEACON_DATA_DIR", "./data")
	clickhouseDSN := os.Getenv("CLICKHOUSE_DSN")
	postgresDSN := os.Getenv("POSTGRES_DSN")
	staticKey := os.Getenv("BEACON_API_KEY")
	cacheTTL := envOrDefaultInt("BEACON_AUTH_CACHE_TTL_S", 30)

	logger.Info("starting beacon server",
		zap.String("http_port", httpPort),
		zap.String("data_dir", dataDir),
	)

	// Durable stores — one file per namespace key under the data dir
	logStore, err := storage.NewLogStore(dataDir, logger)
	if err != nil {
		logger.Fatal("failed to open interaction log store", zap.Error(err))
	}
	legacyStore, err := storage.NewLegacyStore(dataDir, logger)
	if err != nil {
		logger.Fatal("failed to open legacy log store", zap.Error(err))
	}

	// Warehouse mirror — ClickHouse or LogWriter fallback
	var writer storage.EventWriter
	if clickhouseDSN != "" {
		chWriter, err := storage.NewClickHouseWriter(clickhouseDSN, logger)
		if err != nil {
			logger.Warn("clickhouse connection failed, falling back to log writer",
				zap.Error(err),
			)
			writer = storage.NewLogWriter(logger)
		} else {
			writer = chWriter
			logger.Info("clickhouse writer connected")
		}
	} else {
		writer = storage.NewLogWriter(logger)
		logger.Info("no CLICKHOUSE_DSN set, using log writer")
	}
	defer writer.Close()

	// Live session — ambient state, recorder, hover registry
	ambient := telemetry.NewAmbient()
	newSession := func() (*telemetry.Recorder, *telemetry.HoverRegistry) {
		rec := telemetry.NewRecorder(ambient, telemetry.RecorderOptions{
			Durable: logStore,
			Sink:    writer,
			Logger:  logger,
		})
		return rec, telemetry.NewHoverRegistry(rec)
	}
	recorder, hovers := newSession()
	logger.Info("session started", zap.String("session_id", recorder.SessionID()))

	// Postgres study registry (optional)
	var pgStore *store.Store
	if postgresDSN != "" {
		db, err := sql.Open("pgx", postgresDSN)
		if err != nil {
			logger.Fatal("failed to open postgres", zap.Error(err))
		}
		defer func() { _ = db.Close() }()
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(context.Background()); err != nil {
			logger.Fatal("failed to ping postgres", zap.Error(err))
		}
		pgStore = store.NewStore(db)
		logger.Info("postgres connected")
	} else {
		logger.Info("no POSTGRES_DSN set, study registry disabled")
	}

	// ClickHouse reader (for archive/global analytics endpoints)
	var chReader *chread.Reader
	if clickhouseDSN != "" {
		chReader, err = chread.NewReader(clickhouseDSN, logger)
		if err != nil {
			logger.Warn("clickhouse reader connection failed", zap.Error(err))
			chReader = nil
		} else {
			defer func() { _ = chReader.Close() }()
			logger.Info("clickhouse reader connected")
		}
	}

	// HTTP API server
	deps := &api.Dependencies{
		Ambient:    ambient,
		Log:        logStore,
		Legacy:     legacyStore,
		Export:     export.NewService(logStore, legacyStore, logger),
		Store:      pgStore,
		Reader:     chReader,
		StaticKey:  staticKey,
		Logger:     logger,
		CacheTTL:   time.Duration(cacheTTL) * time.Second,
		NewSession: newSession,
	}
	deps.SetSession(recorder, hovers)

	httpServer := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Block until shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", zap.String("signal", sig.String()))

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	// Best-effort session_end before the writer drains
	deps.Recorder().Close()

	logger.Info("beacon server stopped")
}

func mustBuildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	return logger
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
