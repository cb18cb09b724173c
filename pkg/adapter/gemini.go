package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-embedding-001"

// GeminiEmbedder embeds text with the Gemini embedding API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
	dims   int
}

type GeminiOption func(*GeminiEmbedder)

func WithGeminiModel(model string) GeminiOption {
	return func(g *GeminiEmbedder) {
		g.model = model
	}
}

func WithGeminiDimensions(dims int) GeminiOption {
	return func(g *GeminiEmbedder) {
		g.dims = dims
	}
}

func NewGemini(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	g := &GeminiEmbedder{
		client: client,
		model:  defaultGeminiModel,
		dims:   768,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.client.Models.EmbedContent(ctx, g.model, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(int32(g.dims)),
	})
	if err != nil {
		return nil, goerr.Wrap(model.ErrEmbeddingUnavailable, "gemini embedding request failed", goerr.V("cause", err.Error()))
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, goerr.Wrap(model.ErrEmbeddingUnavailable, "gemini returned an empty embedding")
	}
	return resp.Embeddings[0].Values, nil
}

func (g *GeminiEmbedder) Dimensions() int {
	return g.dims
}
