// Package milvus adapts a Milvus collection to the VectorIndexClient
// contract: nearest-neighbor search at query time, collection management
// and inserts for the offline index builder.
package milvus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/anduriroshan/MedScraper/internal/domain"
)

// Field names of the vector collection. The id matches Record.ID in the
// record store; that correspondence is the whole point of the schema.
const (
	FieldID        = "id"
	FieldEmbedding = "embedding"
)

// HNSW build parameters for EnsureCollection.
const (
	hnswM           = 16
	hnswEfConstruct = 200
)

// Config holds index connection and search settings.
type Config struct {
	Address        string
	CollectionName string
	Metric         string // L2, IP, COSINE
	SearchBreadth  int    // HNSW ef at query time
	Dimension      int
}

// Index is a client of an external Milvus collection. Search never mutates
// the index; writes happen only through Insert, used by the builder binary.
type Index struct {
	milvus     client.Client
	collection string
	metric     entity.MetricType
	breadth    int
	dim        int
}

// New connects to Milvus. The connection is pooled inside the SDK client
// and safe for concurrent searches.
func New(ctx context.Context, cfg Config) (*Index, error) {
	metric, err := metricType(cfg.Metric)
	if err != nil {
		return nil, err
	}

	c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
	if err != nil {
		return nil, unavailable("connect to milvus", err)
	}

	return &Index{
		milvus:     c,
		collection: cfg.CollectionName,
		metric:     metric,
		breadth:    cfg.SearchBreadth,
		dim:        cfg.Dimension,
	}, nil
}

// Close releases the connection.
func (i *Index) Close() error {
	return i.milvus.Close()
}

// Load brings the collection into memory so searches can run. Call once
// at startup; a missing collection is reported as unavailable.
func (i *Index) Load(ctx context.Context) error {
	has, err := i.milvus.HasCollection(ctx, i.collection)
	if err != nil {
		return unavailable("check collection", err)
	}
	if !has {
		return fmt.Errorf("collection %q does not exist: %w", i.collection, domain.ErrIndexUnavailable)
	}
	if err := i.milvus.LoadCollection(ctx, i.collection, false); err != nil {
		return unavailable("load collection", err)
	}
	return nil
}

// Search runs a nearest-neighbor query and returns up to topK candidate
// hits ordered ascending by distance. Zero matches produce an empty slice
// and nil error; only transport failures produce an error.
func (i *Index) Search(ctx context.Context, vector []float32, topK int) ([]domain.CandidateHit, error) {
	sp, err := entity.NewIndexHNSWSearchParam(i.breadth)
	if err != nil {
		return nil, fmt.Errorf("search param: %w", err)
	}

	results, err := i.milvus.Search(ctx,
		i.collection,
		nil,
		"",
		[]string{FieldID},
		[]entity.Vector{entity.FloatVector(vector)},
		FieldEmbedding,
		i.metric,
		topK,
		sp,
	)
	if err != nil {
		return nil, unavailable("search", err)
	}

	return hitsFromResults(results), nil
}

// EnsureCollection creates the collection and its HNSW index when absent.
// Used by the index builder only.
func (i *Index) EnsureCollection(ctx context.Context) error {
	has, err := i.milvus.HasCollection(ctx, i.collection)
	if err != nil {
		return unavailable("check collection", err)
	}
	if has {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: i.collection,
		Description:    "Article title embeddings",
		Fields: []*entity.Field{
			{
				Name:       FieldID,
				DataType:   entity.FieldTypeInt64,
				PrimaryKey: true,
				AutoID:     false,
			},
			{
				Name:     FieldEmbedding,
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(i.dim),
				},
			},
		},
	}

	if err := i.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return unavailable("create collection", err)
	}

	idx, err := entity.NewIndexHNSW(i.metric, hnswM, hnswEfConstruct)
	if err != nil {
		return fmt.Errorf("build hnsw index: %w", err)
	}
	if err := i.milvus.CreateIndex(ctx, i.collection, FieldEmbedding, idx, false); err != nil {
		return unavailable("create index", err)
	}
	return nil
}

// DropCollection removes the collection if it exists. Used by the index
// builder's -recreate flag.
func (i *Index) DropCollection(ctx context.Context) error {
	has, err := i.milvus.HasCollection(ctx, i.collection)
	if err != nil {
		return unavailable("check collection", err)
	}
	if !has {
		return nil
	}
	if err := i.milvus.DropCollection(ctx, i.collection); err != nil {
		return unavailable("drop collection", err)
	}
	return nil
}

// Insert writes id/embedding pairs into the collection and flushes them.
// Used by the index builder only.
func (i *Index) Insert(ctx context.Context, ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("insert: %d ids for %d vectors", len(ids), len(vectors))
	}
	if len(ids) == 0 {
		return nil
	}

	idCol := entity.NewColumnInt64(FieldID, ids)
	vecCol := entity.NewColumnFloatVector(FieldEmbedding, i.dim, vectors)

	if _, err := i.milvus.Insert(ctx, i.collection, "", idCol, vecCol); err != nil {
		return unavailable("insert", err)
	}
	if err := i.milvus.Flush(ctx, i.collection, false); err != nil {
		return unavailable("flush", err)
	}
	return nil
}

// hitsFromResults flattens SDK search results into candidate hits ordered
// ascending by distance. Score semantics follow the configured metric;
// the sort keeps the "lower is more similar" contract explicit rather
// than trusting server-side ordering.
func hitsFromResults(results []client.SearchResult) []domain.CandidateHit {
	var hits []domain.CandidateHit
	for _, res := range results {
		ids, ok := res.IDs.(*entity.ColumnInt64)
		if !ok {
			continue
		}
		for j := 0; j < res.ResultCount && j < len(ids.Data()); j++ {
			hits = append(hits, domain.CandidateHit{
				RecordID: ids.Data()[j],
				Distance: res.Scores[j],
			})
		}
	}
	sort.Slice(hits, func(a, b int) bool { return hits[a].Distance < hits[b].Distance })
	return hits
}

func metricType(s string) (entity.MetricType, error) {
	switch s {
	case "L2":
		return entity.L2, nil
	case "IP":
		return entity.IP, nil
	case "COSINE":
		return entity.COSINE, nil
	default:
		return "", fmt.Errorf("unsupported metric %q", s)
	}
}

// unavailable classifies a transport failure, keeping timeouts
// distinguishable from other index faults.
func unavailable(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTimeout, domain.ErrIndexUnavailable)
	}
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrIndexUnavailable)
}
