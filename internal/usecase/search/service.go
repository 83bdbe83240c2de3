// Package search composes the two-stage temporal-semantic retrieval
// pipeline: date-range inference and query embedding feed a
// nearest-neighbor candidate lookup, whose ids are then filtered and
// ordered by the authoritative record store.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anduriroshan/MedScraper/internal/domain"
	"github.com/anduriroshan/MedScraper/internal/logger"
	"github.com/anduriroshan/MedScraper/internal/metrics"
)

// Options holds the per-instance pipeline settings.
type Options struct {
	// TopK bounds the candidate set from the vector index. Date filtering
	// can shrink the final result further; no minimum-result guarantee
	// exists or is implied.
	TopK int
	// Dimension is the index's embedding dimension; vectors of any other
	// length are rejected before they reach the index.
	Dimension int
	// Timeout bounds each external call (embed, index, store)
	// individually. Zero disables the bound.
	Timeout time.Duration
}

// Service is the per-call stateless search orchestrator. All collaborators
// are injected; concurrent Search calls share only this read-only state.
type Service struct {
	parser DateParser
	embed  Embedder
	index  VectorIndex
	store  RecordStore
	opts   Options
}

// New creates a search service.
func New(parser DateParser, embed Embedder, index VectorIndex, store RecordStore, opts Options) *Service {
	return &Service{parser: parser, embed: embed, index: index, store: store, opts: opts}
}

// Search runs one query through the pipeline. now is the explicit
// reference date for time-phrase resolution, injected for reproducibility.
//
// An empty result with nil error means the query genuinely matched
// nothing; infrastructure failures surface as typed errors
// (domain.ErrIndexUnavailable, domain.ErrStoreUnavailable,
// domain.ErrEmbeddingProvider, domain.ErrTimeout) and never degrade into
// an empty result. No stage is retried; a result set is either the full
// filtered-and-ordered sequence or nothing.
func (s *Service) Search(ctx context.Context, query string, now time.Time) ([]domain.Record, error) {
	log := logger.FromContext(ctx)
	started := time.Now()

	// Date parsing and embedding have no ordering dependency; the parse
	// is pure and cannot fail.
	var (
		dateRange domain.DateRange
		rule      string
		embedded  domain.EmbeddingResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dateRange, rule = s.parser.Resolve(query, now)
		return nil
	})
	g.Go(func() error {
		ectx, cancel := s.bound(gctx)
		defer cancel()
		res, err := s.embed.Embed(ectx, query)
		if err != nil {
			return withTimeoutKind(fmt.Errorf("embed query: %w", err))
		}
		embedded = res
		return nil
	})
	if err := g.Wait(); err != nil {
		return s.fail(log, started, err)
	}

	if got := len(embedded.Embedding); got != s.opts.Dimension {
		err := fmt.Errorf("embedding has %d dimensions, index expects %d: %w",
			got, s.opts.Dimension, domain.ErrVectorDimMismatch)
		return s.fail(log, started, err)
	}

	log.Debug("resolved date range",
		zap.String("rule", rule),
		zap.Time("start", dateRange.Start),
		zap.Time("end", dateRange.End),
	)

	ictx, cancel := s.bound(ctx)
	defer cancel()
	hits, err := s.index.Search(ictx, embedded.Embedding, s.opts.TopK)
	if err != nil {
		return s.fail(log, started, withTimeoutKind(fmt.Errorf("index search: %w", err)))
	}
	metrics.CandidateHits.Observe(float64(len(hits)))

	if len(hits) == 0 {
		log.Info("no candidates from vector index")
		s.done(started, "no_candidates")
		return nil, nil
	}

	// Similarity rank is discarded here; final ordering is purely by
	// publication date.
	ids := domain.DistinctIDs(hits)

	fctx, cancel := s.bound(ctx)
	defer cancel()
	records, err := s.store.FetchByIDsInRange(fctx, ids, dateRange)
	if err != nil {
		return s.fail(log, started, withTimeoutKind(fmt.Errorf("fetch records: %w", err)))
	}

	outcome := "ok"
	if len(records) == 0 {
		outcome = "empty"
	}
	log.Info("search complete",
		zap.Int("candidates", len(ids)),
		zap.Int("results", len(records)),
	)
	s.done(started, outcome)
	return records, nil
}

// bound derives a per-call context when a timeout is configured.
func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opts.Timeout)
}

func (s *Service) fail(log *zap.Logger, started time.Time, err error) ([]domain.Record, error) {
	log.Error("search failed", zap.Error(err))
	s.done(started, "error")
	return nil, err
}

func (s *Service) done(started time.Time, outcome string) {
	metrics.SearchesTotal.WithLabelValues(outcome).Inc()
	metrics.SearchDuration.Observe(time.Since(started).Seconds())
}

// withTimeoutKind tags deadline failures so callers can treat a stalled
// dependency distinctly from one that answered with an error.
func withTimeoutKind(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	return err
}
