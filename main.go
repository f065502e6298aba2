package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nlquery/nlq-engine/pkg/config"
	"github.com/nlquery/nlq-engine/pkg/cube"
	"github.com/nlquery/nlq-engine/pkg/glossary"
	"github.com/nlquery/nlq-engine/pkg/handlers"
	"github.com/nlquery/nlq-engine/pkg/llm"
	"github.com/nlquery/nlq-engine/pkg/logging"
	"github.com/nlquery/nlq-engine/pkg/metrics"
	"github.com/nlquery/nlq-engine/pkg/middleware"
	"github.com/nlquery/nlq-engine/pkg/records"
	"github.com/nlquery/nlq-engine/pkg/retry"
	"github.com/nlquery/nlq-engine/pkg/schema"
	"github.com/nlquery/nlq-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("metrics_service", cfg.Metrics.BaseURL),
		zap.String("record_service", cfg.Records.BaseURL),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("embedding_model", cfg.Embedding.Model))

	completionClient, err := llm.NewCompletionClient(&cfg.LLM, logger)
	if err != nil {
		logger.Fatal("Failed to create completion client", zap.Error(err))
	}
	embedder, err := llm.NewEmbeddingClient(&cfg.Embedding, logger)
	if err != nil {
		logger.Fatal("Failed to create embedding client", zap.Error(err))
	}

	cubeClient := cube.NewClient(&cfg.Metrics, logger)
	recordClient := records.NewClient(&cfg.Records, logger)
	projectCache := records.NewProjectCache(recordClient, logger)

	index := schema.NewIndex(cubeClient, embedder, cfg.Embedding.Model, cfg.Retrieval, logger)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	// The metrics service may still be booting; transient fetch errors
	// are retried, an empty catalog is fatal immediately.
	if err := retry.DoIfRetryable(ctx, nil, func() error { return index.Load(ctx) }); err != nil {
		cancel()
		logger.Fatal("Failed to load schema catalog", zap.Error(err))
	}
	cancel()
	// A reloaded catalog may rename projects; drop the id cache with it.
	index.OnReload(projectCache.Invalidate)
	logger.Info("Schema catalog loaded", zap.Int("fields", len(index.Fields())))

	gloss, err := glossary.Load(cfg.SemanticConfigDir, logger)
	if err != nil {
		logger.Fatal("Failed to load semantic configuration", zap.Error(err))
	}
	logger.Info("Semantic configuration loaded",
		zap.Int("terms", gloss.TermCount()),
		zap.Int("examples", gloss.ExampleCount()))

	metrics.RegisterPipelineMetrics()

	synth := services.NewPromptSynthesizer(gloss)
	pipeline := services.NewPipeline(services.PipelineDeps{
		Index:     index,
		Glossary:  gloss,
		Gate:      services.NewConfidenceGate(cfg.Gate, logger),
		Synth:     synth,
		Generator: services.NewQueryGenerator(completionClient, synth.SystemMessage(), cfg.LLM.Temperature, logger),
		Validator: services.NewValidator(cfg.Validator, logger),
		Executor:  cubeClient,
		Records:   recordClient,
		Projects:  projectCache,
		Retrieval: cfg.Retrieval,
	}, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, index, logger).RegisterRoutes(mux)
	handlers.NewAskHandler(pipeline, logger).RegisterRoutes(mux)
	handlers.NewSchemaHandler(index, logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	handler := middleware.Recover(logger)(middleware.RequestLogger(logger)(mux))

	addr := cfg.BindAddr + ":" + cfg.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Starting nlq-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
