package search

import (
	"context"
	"errors"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/anduriroshan/MedScraper/internal/domain"
	"github.com/anduriroshan/MedScraper/internal/metrics"
	"github.com/anduriroshan/MedScraper/internal/temporal"
)

func TestMain(m *testing.M) {
	metrics.Register()
	os.Exit(m.Run())
}

// --- Mocks ---

type mockEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 7}, nil
}

type mockIndex struct {
	hits     []domain.CandidateHit
	err      error
	called   bool
	gotTopK  int
	gotVec   []float32
}

func (m *mockIndex) Search(_ context.Context, vec []float32, topK int) ([]domain.CandidateHit, error) {
	m.called = true
	m.gotVec = vec
	m.gotTopK = topK
	return m.hits, m.err
}

type mockStore struct {
	records  []domain.Record
	err      error
	called   bool
	gotIDs   []int64
	gotRange domain.DateRange
	fetchFn  func(ids []int64, r domain.DateRange) ([]domain.Record, error)
}

func (m *mockStore) FetchByIDsInRange(_ context.Context, ids []int64, r domain.DateRange) ([]domain.Record, error) {
	m.called = true
	m.gotIDs = ids
	m.gotRange = r
	if m.fetchFn != nil {
		return m.fetchFn(ids, r)
	}
	return m.records, m.err
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var testNow = date(2024, time.January, 10)

func testVector(dim int) []float32 {
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = 0.1
	}
	return vec
}

func newService(embed *mockEmbedder, index *mockIndex, store *mockStore) *Service {
	return New(temporal.New(temporal.DefaultWindowDays), embed, index, store, Options{
		TopK:      50,
		Dimension: 4,
		Timeout:   time.Second,
	})
}

// recencyStore emulates the record store contract: filter by id set and
// date range, order by publication date descending.
func recencyStore(recs map[int64]domain.Record) *mockStore {
	s := &mockStore{}
	s.fetchFn = func(ids []int64, r domain.DateRange) ([]domain.Record, error) {
		var out []domain.Record
		for _, id := range ids {
			rec, ok := recs[id]
			if ok && r.Contains(rec.PubDate) {
				out = append(out, rec)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].PubDate.After(out[j].PubDate) })
		return out, nil
	}
	return s
}

// --- Tests ---

func TestSearch_EndToEndYearQuery(t *testing.T) {
	embed := &mockEmbedder{vec: testVector(4)}
	index := &mockIndex{hits: []domain.CandidateHit{
		{RecordID: 10, Distance: 0.2},
		{RecordID: 11, Distance: 0.4},
		{RecordID: 12, Distance: 0.6},
	}}
	store := recencyStore(map[int64]domain.Record{
		10: {ID: 10, Title: "a", PubDate: date(2022, time.January, 1)},
		11: {ID: 11, Title: "b", PubDate: date(2023, time.May, 1)},
		12: {ID: 12, Title: "c", PubDate: date(2021, time.January, 1)},
	})

	svc := newService(embed, index, store)
	records, err := svc.Search(context.Background(), "Give me journals published in 2023", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].ID != 11 {
		t.Errorf("record id = %d, want 11", records[0].ID)
	}
	if !store.gotRange.Start.Equal(date(2023, time.January, 1)) ||
		!store.gotRange.End.Equal(date(2023, time.December, 31)) {
		t.Errorf("store range = %v..%v, want calendar year 2023", store.gotRange.Start, store.gotRange.End)
	}
	if embed.calls != 1 {
		t.Errorf("embed called %d times, want exactly 1", embed.calls)
	}
	if index.gotTopK != 50 {
		t.Errorf("topK = %d, want 50", index.gotTopK)
	}
}

func TestSearch_ResultsOrderedByRecency(t *testing.T) {
	embed := &mockEmbedder{vec: testVector(4)}
	// Most similar hit is the oldest record; recency must win.
	index := &mockIndex{hits: []domain.CandidateHit{
		{RecordID: 12, Distance: 0.1},
		{RecordID: 10, Distance: 0.5},
		{RecordID: 11, Distance: 0.9},
	}}
	store := recencyStore(map[int64]domain.Record{
		10: {ID: 10, PubDate: date(2023, time.March, 5)},
		11: {ID: 11, PubDate: date(2023, time.November, 20)},
		12: {ID: 12, PubDate: date(2023, time.January, 2)},
	})

	svc := newService(embed, index, store)
	records, err := svc.Search(context.Background(), "oncology papers in 2023", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantOrder := []int64{11, 10, 12}
	if len(records) != len(wantOrder) {
		t.Fatalf("got %d records, want %d", len(records), len(wantOrder))
	}
	for i, want := range wantOrder {
		if records[i].ID != want {
			t.Errorf("records[%d].ID = %d, want %d", i, records[i].ID, want)
		}
	}
}

func TestSearch_NoCandidatesSkipsStore(t *testing.T) {
	embed := &mockEmbedder{vec: testVector(4)}
	index := &mockIndex{hits: nil}
	store := &mockStore{}

	svc := newService(embed, index, store)
	records, err := svc.Search(context.Background(), "anything at all", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("got %d records, want 0", len(records))
	}
	if store.called {
		t.Fatal("store must not be queried when the index returns no candidates")
	}
}

func TestSearch_DeduplicatesCandidateIDs(t *testing.T) {
	embed := &mockEmbedder{vec: testVector(4)}
	index := &mockIndex{hits: []domain.CandidateHit{
		{RecordID: 10, Distance: 0.1},
		{RecordID: 11, Distance: 0.2},
		{RecordID: 10, Distance: 0.3},
		{RecordID: 11, Distance: 0.4},
	}}
	store := &mockStore{}

	svc := newService(embed, index, store)
	if _, err := svc.Search(context.Background(), "query", testNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.gotIDs) != 2 {
		t.Fatalf("store got ids %v, want 2 distinct ids", store.gotIDs)
	}
	if store.gotIDs[0] != 10 || store.gotIDs[1] != 11 {
		t.Errorf("store got ids %v, want [10 11]", store.gotIDs)
	}
}

func TestSearch_DimensionMismatchRejected(t *testing.T) {
	embed := &mockEmbedder{vec: testVector(3)} // index expects 4
	index := &mockIndex{}
	store := &mockStore{}

	svc := newService(embed, index, store)
	_, err := svc.Search(context.Background(), "query", testNow)
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("error = %v, want ErrVectorDimMismatch", err)
	}
	if index.called {
		t.Fatal("index must not be queried with a mismatched vector")
	}
}

func TestSearch_IndexFailurePropagates(t *testing.T) {
	embed := &mockEmbedder{vec: testVector(4)}
	index := &mockIndex{err: domain.ErrIndexUnavailable}
	store := &mockStore{}

	svc := newService(embed, index, store)
	records, err := svc.Search(context.Background(), "query", testNow)
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("error = %v, want ErrIndexUnavailable", err)
	}
	if records != nil {
		t.Fatal("a failed search must not masquerade as an empty result")
	}
	if store.called {
		t.Fatal("store must not be queried after an index failure")
	}
}

func TestSearch_StoreFailurePropagates(t *testing.T) {
	embed := &mockEmbedder{vec: testVector(4)}
	index := &mockIndex{hits: []domain.CandidateHit{{RecordID: 10, Distance: 0.1}}}
	store := &mockStore{err: domain.ErrStoreUnavailable}

	svc := newService(embed, index, store)
	_, err := svc.Search(context.Background(), "query", testNow)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("error = %v, want ErrStoreUnavailable", err)
	}
}

func TestSearch_EmbedFailurePropagates(t *testing.T) {
	embed := &mockEmbedder{err: domain.ErrEmbeddingProvider}
	index := &mockIndex{}
	store := &mockStore{}

	svc := newService(embed, index, store)
	_, err := svc.Search(context.Background(), "query", testNow)
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("error = %v, want ErrEmbeddingProvider", err)
	}
	if index.called {
		t.Fatal("index must not be queried after an embedding failure")
	}
}

func TestSearch_EmbedTimeoutTagged(t *testing.T) {
	embed := &mockEmbedder{err: context.DeadlineExceeded}
	svc := newService(embed, &mockIndex{}, &mockStore{})

	_, err := svc.Search(context.Background(), "query", testNow)
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
}

func TestSearch_EmptyFilteredResultIsNotAnError(t *testing.T) {
	embed := &mockEmbedder{vec: testVector(4)}
	index := &mockIndex{hits: []domain.CandidateHit{{RecordID: 10, Distance: 0.1}}}
	store := recencyStore(map[int64]domain.Record{
		10: {ID: 10, PubDate: date(2019, time.June, 1)}, // outside every recent range
	})

	svc := newService(embed, index, store)
	records, err := svc.Search(context.Background(), "in 2023 breakthroughs", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("got %d records, want 0", len(records))
	}
	if !store.called {
		t.Fatal("store should have been queried")
	}
}

func TestDistinctIDs(t *testing.T) {
	hits := []domain.CandidateHit{
		{RecordID: 3, Distance: 0.1},
		{RecordID: 1, Distance: 0.2},
		{RecordID: 3, Distance: 0.3},
		{RecordID: 2, Distance: 0.4},
		{RecordID: 1, Distance: 0.5},
	}
	ids := domain.DistinctIDs(hits)
	want := []int64{3, 1, 2}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("got %v, want %v", ids, want)
		}
	}
}
