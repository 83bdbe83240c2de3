// Package cli implements the interactive read-query loop.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/anduriroshan/MedScraper/internal/domain"
)

// Searcher runs one query through the search pipeline.
type Searcher interface {
	Search(ctx context.Context, query string, now time.Time) ([]domain.Record, error)
}

// Loop reads queries from in and writes results to out until the user
// exits. The reference date for each search is taken from now at the
// moment the query is submitted.
type Loop struct {
	searcher Searcher
	in       *bufio.Scanner
	out      io.Writer
	now      func() time.Time
}

// New creates an interactive loop.
func New(searcher Searcher, in io.Reader, out io.Writer, now func() time.Time) *Loop {
	return &Loop{
		searcher: searcher,
		in:       bufio.NewScanner(in),
		out:      out,
		now:      now,
	}
}

// Run prompts until the user types "exit", declines to continue, or input
// ends. It always returns nil: per-query failures are reported to the
// user, not to the process exit code.
func (l *Loop) Run(ctx context.Context) error {
	for {
		fmt.Fprint(l.out, "Enter a search query (e.g. 'Give me the journals published last week'): ")
		line, ok := l.readLine()
		if !ok {
			return nil
		}

		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}
		if strings.EqualFold(query, "exit") {
			fmt.Fprintln(l.out, "Exiting.")
			return nil
		}

		l.runSearch(ctx, query)

		fmt.Fprint(l.out, "\nDo you want to search again? (yes/no): ")
		answer, ok := l.readLine()
		if !ok || strings.ToLower(strings.TrimSpace(answer)) != "yes" {
			fmt.Fprintln(l.out, "Exiting.")
			return nil
		}
	}
}

func (l *Loop) readLine() (string, bool) {
	if !l.in.Scan() {
		return "", false
	}
	return l.in.Text(), true
}

func (l *Loop) runSearch(ctx context.Context, query string) {
	records, err := l.searcher.Search(ctx, query, l.now())
	switch {
	case errors.Is(err, domain.ErrIndexUnavailable),
		errors.Is(err, domain.ErrStoreUnavailable),
		errors.Is(err, domain.ErrTimeout):
		fmt.Fprintln(l.out, "Search is unavailable right now, please try again later.")
	case err != nil:
		fmt.Fprintf(l.out, "Search failed: %v\n", err)
	case len(records) == 0:
		fmt.Fprintln(l.out, "No articles match your query.")
	default:
		fmt.Fprintln(l.out, "\nSearch Results:")
		for _, rec := range records {
			fmt.Fprintf(l.out, "ID: %d, Title: %s, Date: %s\n",
				rec.ID, rec.Title, rec.PubDate.Format("2006-01-02"))
		}
	}
}
