package search

import (
	"context"
	"time"

	"github.com/anduriroshan/MedScraper/internal/domain"
)

// DateParser resolves a query's time phrase into a date range, tagged
// with the rule that matched.
type DateParser interface {
	Resolve(text string, now time.Time) (domain.DateRange, string)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// VectorIndex runs nearest-neighbor queries against the similarity index.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, topK int) ([]domain.CandidateHit, error)
}

// RecordStore fetches authoritative article records filtered by id set
// and publication date range.
type RecordStore interface {
	FetchByIDsInRange(ctx context.Context, ids []int64, r domain.DateRange) ([]domain.Record, error)
}
