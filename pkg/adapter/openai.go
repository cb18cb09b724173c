package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIModel = openai.EmbeddingModelTextEmbedding3Small

// OpenAIEmbedder embeds text with the OpenAI embeddings API. It supports
// batch requests, which the reconciliation path uses to re-embed many
// memories at once.
type OpenAIEmbedder struct {
	client openai.Client
	model  openai.EmbeddingModel
	dims   int
}

type OpenAIOption func(*OpenAIEmbedder)

func WithOpenAIModel(model string) OpenAIOption {
	return func(o *OpenAIEmbedder) {
		o.model = openai.EmbeddingModel(model)
	}
}

func WithOpenAIDimensions(dims int) OpenAIOption {
	return func(o *OpenAIEmbedder) {
		o.dims = dims
	}
}

func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAIEmbedder {
	o := &OpenAIEmbedder{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  defaultOpenAIModel,
		dims:   768,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model:      o.model,
		Dimensions: openai.Int(int64(o.dims)),
	})
	if err != nil {
		return nil, goerr.Wrap(model.ErrEmbeddingUnavailable, "openai embedding request failed", goerr.V("cause", err.Error()))
	}
	if len(resp.Data) == 0 {
		return nil, goerr.Wrap(model.ErrEmbeddingUnavailable, "openai returned no embeddings")
	}
	return toFloat32(resp.Data[0].Embedding), nil
}

func (o *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:      o.model,
		Dimensions: openai.Int(int64(o.dims)),
	})
	if err != nil {
		return nil, goerr.Wrap(model.ErrEmbeddingUnavailable, "openai batch embedding request failed", goerr.V("cause", err.Error()))
	}
	if len(resp.Data) != len(texts) {
		return nil, goerr.Wrap(model.ErrEmbeddingUnavailable, "openai returned an unexpected number of embeddings",
			goerr.V("want", len(texts)), goerr.V("got", len(resp.Data)))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		vectors[item.Index] = toFloat32(item.Embedding)
	}
	return vectors, nil
}

func (o *OpenAIEmbedder) Dimensions() int {
	return o.dims
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
