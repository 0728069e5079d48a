package vectorstore

import "context"

// Store returns passages ordered by similarity to query, most similar first
type Store interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]string, error)
}

// Embedder turns a query into the vector a Store searches with
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}
