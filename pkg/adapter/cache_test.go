package adapter_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kioku/pkg/adapter"
)

type countingEmbedder struct {
	inner adapter.Embedder
	calls atomic.Int64
}

func (x *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	x.calls.Add(1)
	return x.inner.Embed(ctx, text)
}

func (x *countingEmbedder) Dimensions() int {
	return x.inner.Dimensions()
}

func TestCachedEmbedder(t *testing.T) {
	ctx := context.Background()
	counting := &countingEmbedder{inner: adapter.NewMockEmbedder()}

	cached, err := adapter.NewCachedEmbedder(counting, 128)
	gt.NoError(t, err)
	gt.Equal(t, cached.Dimensions(), counting.Dimensions())

	first, err := cached.Embed(ctx, "repeated query")
	gt.NoError(t, err)
	gt.Equal(t, counting.calls.Load(), int64(1))
	cached.Wait()

	second, err := cached.Embed(ctx, "repeated query")
	gt.NoError(t, err)
	gt.Equal(t, first, second)
	gt.Equal(t, counting.calls.Load(), int64(1))

	_, err = cached.Embed(ctx, "different query")
	gt.NoError(t, err)
	gt.Equal(t, counting.calls.Load(), int64(2))
}

func TestEmbedAll(t *testing.T) {
	ctx := context.Background()
	embedder := adapter.NewMockEmbedder()

	texts := []string{"first", "second", "third", "fourth", "fifth"}
	vectors, err := adapter.EmbedAll(ctx, embedder, texts, 2)
	gt.NoError(t, err)
	gt.A(t, vectors).Length(len(texts))

	for i, text := range texts {
		want, err := embedder.Embed(ctx, text)
		gt.NoError(t, err)
		gt.Equal(t, vectors[i], want)
	}
}

func TestEmbedAllInvalidBatchSize(t *testing.T) {
	ctx := context.Background()
	_, err := adapter.EmbedAll(ctx, adapter.NewMockEmbedder(), []string{"x"}, 0)
	gt.Error(t, err)
}
