package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"

	"github.com/anduriroshan/MedScraper/internal/config"
	"github.com/anduriroshan/MedScraper/internal/index/milvus"
	logpkg "github.com/anduriroshan/MedScraper/internal/logger"
	"github.com/anduriroshan/MedScraper/internal/metrics"
	"github.com/anduriroshan/MedScraper/internal/store/postgres"
	openaiEmb "github.com/anduriroshan/MedScraper/internal/transport/openai"
	"github.com/anduriroshan/MedScraper/internal/version"
)

// indexer walks the articles table in id order, embeds each title and
// upserts the vectors into the Milvus collection. Safe to re-run: inserts
// against an existing primary key overwrite the previous vector.
func main() {
	var (
		batchSize = flag.Int("batch", 64, "articles per embedding batch")
		recreate  = flag.Bool("recreate", false, "drop and recreate the collection before indexing")
	)
	flag.Parse()

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

	logger.Info("Starting indexer",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.String("collection", cfg.Index.CollectionName),
		zap.Int("dimension", cfg.Index.Dimension),
		zap.Int("batch_size", *batchSize),
	)

	metrics.Register()

	store, err := postgres.New(postgres.Config{
		DSN:             cfg.Store.DSN(),
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		logger.Fatal("Failed to connect to record store", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

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

	if *recreate {
		if err := index.DropCollection(ctx); err != nil {
			logger.Fatal("Failed to drop collection", zap.Error(err))
		}
		logger.Info("Dropped existing collection")
	}

	if err := index.EnsureCollection(ctx); err != nil {
		logger.Fatal("Failed to ensure collection", zap.Error(err))
	}

	embedder := openaiEmb.NewEmbedder(openaiEmb.Config{
		APIKey:   cfg.Embedding.APIKey,
		BaseURL:  cfg.Embedding.BaseURL,
		ModelID:  cfg.Embedding.ModelID,
		Provider: cfg.Embedding.Provider,
	})

	total, err := run(ctx, logger, store, index, embedder, *batchSize)
	if err != nil {
		logger.Fatal("Indexing failed", zap.Error(err), zap.Int("indexed", total))
	}
	logger.Info("Indexing complete", zap.Int("indexed", total))
}

func run(ctx context.Context, logger *zap.Logger, store *postgres.Store, index *milvus.Index, embedder *openaiEmb.Embedder, batchSize int) (int, error) {
	var (
		afterID int64
		total   int
	)
	for {
		records, err := store.ListArticles(ctx, afterID, batchSize)
		if err != nil {
			return total, err
		}
		if len(records) == 0 {
			return total, nil
		}

		ids := make([]int64, len(records))
		titles := make([]string, len(records))
		for i, rec := range records {
			ids[i] = rec.ID
			titles[i] = rec.Title
		}

		batch, err := embedder.BatchEmbed(ctx, titles)
		if err != nil {
			return total, err
		}

		if err := index.Insert(ctx, ids, batch.Embeddings); err != nil {
			return total, err
		}

		total += len(records)
		afterID = records[len(records)-1].ID
		logger.Info("Indexed batch",
			zap.Int("count", len(records)),
			zap.Int64("last_id", afterID),
			zap.Int("total", total),
		)
	}
}
