// Package main is the entry point for the inspectview filter server.
//
// The server always exposes the operator catalog and the value codec. Table
// queries run against PostgreSQL when DATABASE_URL is set, or are forwarded to
// a remote engine when ENGINE_URL is set.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inspectview/internal/domain/auth"
	"inspectview/internal/domain/filteredit"
	"inspectview/internal/infrastructure/celeval"
	"inspectview/internal/infrastructure/compression"
	v1 "inspectview/internal/infrastructure/http/v1"
	"inspectview/internal/infrastructure/http/v1/handlers"
	"inspectview/internal/infrastructure/queryclient"
	"inspectview/internal/infrastructure/storage/postgres"
	"inspectview/pkg/logger"
)

var version = "dev"

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Infow("starting inspectview server", "version", version)

	// --- Codec ---
	loc, err := time.LoadLocation(getEnv("DISPLAY_TIMEZONE", "UTC"))
	if err != nil {
		log.Fatalw("invalid DISPLAY_TIMEZONE", "error", err)
	}
	codec := filteredit.Codec{Location: loc}

	evaluator, err := celeval.NewEvaluator(getEnvInt("CEL_PROGRAM_CACHE", celeval.DefaultProgramCacheSize))
	if err != nil {
		log.Fatalw("failed to create evaluator", "error", err)
	}

	// --- JWT Service ---
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(getEnv("JWT_SECRET", "")))
	if !jwtService.Enabled() {
		log.Warn("JWT_SECRET not set, /api/v1 is unauthenticated")
	}

	routerCfg := v1.RouterConfig{
		Logger:       log,
		JWT:          jwtService,
		Codec:        codec,
		Evaluator:    evaluator,
		HealthChecks: map[string]handlers.Pinger{},
		Version:      version,
	}

	// --- Query engine ---
	if dsn := getEnv("DATABASE_URL", ""); dsn != "" {
		tables, err := parseTables(getEnv("QUERY_TABLES", ""))
		if err != nil {
			log.Fatalw("invalid QUERY_TABLES", "error", err)
		}

		poolCfg := postgres.DefaultPoolConfig(dsn)
		if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
			poolCfg.MaxConns = int32(maxConns)
		}
		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			log.Fatalw("failed to connect to database", "error", err)
		}
		defer pool.Close()
		postgres.LogPoolStats(ctx, pool.Pool)

		txOpts := postgres.DefaultTxOptions()
		txOpts.StatementTimeout = getEnvDuration("DB_STATEMENT_TIMEOUT", txOpts.StatementTimeout)
		repo := postgres.NewRowsRepository(postgres.NewTxManager(pool, txOpts), tables...)

		routerCfg.Engine = repo
		routerCfg.Planners = repo
		routerCfg.HealthChecks["database"] = pool
		log.Infow("postgres engine ready", "tables", repo.Tables())
	} else if engineURL := getEnv("ENGINE_URL", ""); engineURL != "" {
		clientCfg := queryclient.DefaultClientConfig(engineURL)
		clientCfg.Timeout = getEnvDuration("ENGINE_TIMEOUT", clientCfg.Timeout)
		clientCfg.CacheTTL = getEnvDuration("ENGINE_CACHE_TTL", clientCfg.CacheTTL)
		clientCfg.CacheSize = getEnvInt("ENGINE_CACHE_SIZE", clientCfg.CacheSize)
		algo, err := compression.ParseAlgo(getEnv("ENGINE_COMPRESSION", string(clientCfg.Compression)))
		if err != nil {
			log.Fatalw("invalid ENGINE_COMPRESSION", "error", err)
		}
		clientCfg.Compression = algo

		opts := []queryclient.Option{queryclient.WithLogger(log)}
		if secret := getEnv("ENGINE_JWT_SECRET", ""); secret != "" {
			tokens := auth.NewTokenSource(auth.NewJWTService(auth.DefaultJWTConfig(secret)), "inspectview-server", auth.ScopeQuery)
			opts = append(opts, queryclient.WithTokenProvider(tokens))
		}
		client, err := queryclient.New(clientCfg, opts...)
		if err != nil {
			log.Fatalw("failed to create engine client", "error", err)
		}
		routerCfg.Engine = client
		log.Infow("forwarding queries to remote engine", "url", engineURL)
	} else {
		log.Warn("neither DATABASE_URL nor ENGINE_URL set, table queries disabled")
	}

	router := v1.NewRouter(routerCfg)

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
