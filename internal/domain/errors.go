package domain

import "errors"

var (
	// ErrIndexUnavailable signals a transport failure talking to the vector index.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrStoreUnavailable signals a transport failure talking to the record store.
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrTimeout signals an external call that exceeded its deadline.
	ErrTimeout = errors.New("deadline exceeded")
	// ErrVectorDimMismatch signals an embedding whose length does not match
	// the configured index dimension.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
)
