package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/anduriroshan/MedScraper/internal/cli"
	"github.com/anduriroshan/MedScraper/internal/config"
	"github.com/anduriroshan/MedScraper/internal/index/milvus"
	logpkg "github.com/anduriroshan/MedScraper/internal/logger"
	"github.com/anduriroshan/MedScraper/internal/metrics"
	"github.com/anduriroshan/MedScraper/internal/store/postgres"
	"github.com/anduriroshan/MedScraper/internal/temporal"
	openaiEmb "github.com/anduriroshan/MedScraper/internal/transport/openai"
	searchuc "github.com/anduriroshan/MedScraper/internal/usecase/search"
	"github.com/anduriroshan/MedScraper/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting medsearch",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("store_host", cfg.Store.Host),
		zap.String("index_addr", cfg.Index.Address()),
		zap.String("collection", cfg.Index.CollectionName),
		zap.String("embedding_model", cfg.Embedding.ModelID),
	)

	metrics.Register()

	store, err := postgres.New(postgres.Config{
		DSN:             cfg.Store.DSN(),
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		logger.Fatal("Failed to connect to record store", zap.Error(err))
	}
	defer func() { _ = store.Close() }()
	logger.Info("Connected to record store")

	ctx := context.Background()

	index, err := milvus.New(ctx, milvus.Config{
		Address:        cfg.Index.Address(),
		CollectionName: cfg.Index.CollectionName,
		Metric:         cfg.Index.Metric,
		SearchBreadth:  cfg.Index.SearchBreadth,
		Dimension:      cfg.Index.Dimension,
	})
	if err != nil {
		logger.Fatal("Failed to connect to vector index", zap.Error(err))
	}
	defer func() { _ = index.Close() }()

	if err := index.Load(ctx); err != nil {
		logger.Fatal("Failed to load vector collection", zap.Error(err))
	}
	logger.Info("Vector collection loaded")

	embedder := openaiEmb.NewEmbedder(openaiEmb.Config{
		APIKey:   cfg.Embedding.APIKey,
		BaseURL:  cfg.Embedding.BaseURL,
		ModelID:  cfg.Embedding.ModelID,
		Provider: cfg.Embedding.Provider,
	})

	svc := searchuc.New(
		temporal.New(cfg.Search.DefaultWindowDays),
		embedder,
		index,
		store,
		searchuc.Options{
			TopK:      cfg.Search.TopK,
			Dimension: cfg.Index.Dimension,
			Timeout:   time.Duration(cfg.Search.TimeoutSec) * time.Second,
		},
	)

	if cfg.HTTP.MetricsPort > 0 {
		go serveMetrics(logger, cfg.HTTP.MetricsPort, store)
	}

	loop := cli.New(svc, os.Stdin, os.Stdout, time.Now)
	if err := loop.Run(logpkg.ContextWithLogger(ctx, logger)); err != nil {
		logger.Fatal("Interactive loop failed", zap.Error(err))
	}
}

// serveMetrics exposes /metrics and /healthz on a side listener. Failures
// here never take down the interactive loop.
func serveMetrics(logger *zap.Logger, port int, store *postgres.Store) {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := store.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Metrics listener started", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Error("Metrics listener stopped", zap.Error(err))
	}
}
