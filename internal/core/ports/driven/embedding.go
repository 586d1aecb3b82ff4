package driven

import "context"

// EmbeddingService turns passages and questions into vectors.
//
// A knowledge base records the model that built it and is only queried
// with vectors from that same model.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector size. Models with no published size report
	// a default until the first vector arrives.
	Dimensions() int

	ModelName() string
	Ping(ctx context.Context) error
	Close() error
}
