// Package main provides the entry point for the oracle HTTP server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/grandline/oracle/internal/config"
	"github.com/grandline/oracle/internal/db"
	"github.com/grandline/oracle/internal/llm"
	"github.com/grandline/oracle/internal/metrics"
	"github.com/grandline/oracle/internal/ratelimit"
	"github.com/grandline/oracle/internal/server"
	"github.com/grandline/oracle/internal/service"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	logger.Info("oracle-server starting",
		"version", version,
		"port", cfg.ServerPort,
		"surrealdb_url", cfg.SurrealDBURL,
		"embed_model", cfg.EmbedModel,
		"llm_model", cfg.LLMModel,
	)

	// Create context cancelled on shutdown signals
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	collector := metrics.NewCollector()

	// Connect to database
	dbCfg := db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}

	dbClient, err := db.NewClient(ctx, dbCfg, logger, collector)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		logger.Info("closing database connection")
		_ = dbClient.Close(context.Background())
	}()

	// Initialize database schema
	if err := dbClient.InitSchema(ctx, cfg.EmbedDimension); err != nil {
		logger.Error("failed to initialize database schema", "error", err)
		os.Exit(1)
	}

	// Wipe corpus if requested (testing only)
	if os.Getenv("ORACLE_WIPE_DB") == "true" {
		if err := dbClient.Wipe(ctx); err != nil {
			logger.Error("failed to wipe corpus", "error", err)
			os.Exit(1)
		}
		logger.Warn("corpus wiped")
	}

	// Create embedding and generation clients
	embedder, err := llm.NewEmbedder(cfg, collector)
	if err != nil {
		logger.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}
	logger.Info("embedder initialized", "model", embedder.Model(), "dimension", embedder.Dimension())

	model, err := llm.NewModel(ctx, cfg, collector)
	if err != nil {
		logger.Error("failed to create model", "error", err)
		os.Exit(1)
	}
	logger.Info("model initialized", "model", model.Model())

	// Assemble the pipeline and serve
	askSvc := service.NewAskService(dbClient, embedder, model, cfg, logger)
	searchSvc := service.NewSearchService(dbClient, embedder, cfg, logger)

	srv := server.New(cfg, askSvc, searchSvc, ratelimit.New(), collector, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
