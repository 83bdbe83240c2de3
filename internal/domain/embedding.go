package domain

// EmbeddingResult carries a query embedding and its token usage. Embeddings
// live for a single search invocation and are never persisted.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate
// token usage, used by the offline index builder.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}
