package adapter_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kioku/pkg/adapter"
)

func TestGeminiEmbed(t *testing.T) {
	apiKey := os.Getenv("TEST_GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("TEST_GEMINI_API_KEY is not set")
	}

	ctx := context.Background()
	embedder, err := adapter.NewGemini(ctx, apiKey, adapter.WithGeminiDimensions(256))
	gt.NoError(t, err)
	gt.Equal(t, embedder.Dimensions(), 256)

	vec, err := embedder.Embed(ctx, "How do I tune PostgreSQL connection pooling?")
	gt.NoError(t, err)
	gt.A(t, vec).Length(256)
}
