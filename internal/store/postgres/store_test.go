package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anduriroshan/MedScraper/internal/domain"
)

func TestFetchByIDsInRange_EmptyIDsSkipsQuery(t *testing.T) {
	// A nil db would panic on any query; the empty-id short circuit must
	// return before reaching it.
	s := &Store{}

	r := domain.NewDateRange(
		time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC),
	)

	records, err := s.FetchByIDsInRange(context.Background(), nil, r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("got %d records, want 0", len(records))
	}

	records, err = s.FetchByIDsInRange(context.Background(), []int64{}, r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("got %d records, want 0", len(records))
	}
}

func TestArticleRow_Record(t *testing.T) {
	pub := time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC)
	row := articleRow{
		ID:       11,
		Title:    "CAR-T therapy in refractory lymphoma",
		PubDate:  pub,
		Abstract: "abstract text",
		Link:     "https://www.nature.com/articles/xyz",
		Summary:  "short summary",
		Keywords: "car-t, lymphoma",
	}

	rec := row.record()
	if rec.ID != 11 || rec.Title != row.Title || !rec.PubDate.Equal(pub) {
		t.Fatalf("record mapping mismatch: %+v", rec)
	}
	if rec.Abstract != row.Abstract || rec.Link != row.Link || rec.Summary != row.Summary || rec.Keywords != row.Keywords {
		t.Fatalf("record mapping mismatch: %+v", rec)
	}
}

func TestUnavailable_Classification(t *testing.T) {
	err := unavailable("fetch", errors.New("connection refused"))
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("error = %v, want ErrStoreUnavailable", err)
	}
	if errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("plain transport error should not be a timeout: %v", err)
	}

	err = unavailable("fetch", context.DeadlineExceeded)
	if !errors.Is(err, domain.ErrStoreUnavailable) || !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("deadline error should carry both kinds: %v", err)
	}
}
