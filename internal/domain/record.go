// Package domain holds the core search types and errors shared between layers.
package domain

import "time"

// Record is a read-only projection of a crawled article. The crawler and
// summarization jobs own the underlying table; the search core never writes it.
type Record struct {
	ID       int64
	Title    string
	PubDate  time.Time
	Abstract string
	Link     string
	Summary  string
	Keywords string
}
