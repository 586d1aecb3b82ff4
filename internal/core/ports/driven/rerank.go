package driven

import "context"

// Reranker scores (query, passage) pairs with a cross-encoder.
// Higher scores mean more relevant. Scores are comparable within one call.
type Reranker interface {
	// Score returns one score per passage, in passage order.
	Score(ctx context.Context, query string, passages []string) ([]float64, error)

	// ModelName returns the name of the reranking model.
	ModelName() string

	// Close releases resources.
	Close() error
}
