package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
)

// Embedder converts text into a fixed-dimension vector. All implementations
// wrap provider failures with model.ErrEmbeddingUnavailable so callers can
// distinguish them from storage failures.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// BatchEmbedder is implemented by providers that can embed multiple texts in
// a single request.
type BatchEmbedder interface {
	Embedder
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedAll embeds texts in batches of batchSize, using EmbedBatch when the
// provider supports it and falling back to one request per text otherwise.
func EmbedAll(ctx context.Context, embedder Embedder, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "batch size must be positive", goerr.V("batchSize", batchSize))
	}

	batcher, ok := embedder.(BatchEmbedder)
	if !ok {
		vectors := make([][]float32, 0, len(texts))
		for _, text := range texts {
			vec, err := embedder.Embed(ctx, text)
			if err != nil {
				return nil, err
			}
			vectors = append(vectors, vec)
		}
		return vectors, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		batch, err := batcher.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
