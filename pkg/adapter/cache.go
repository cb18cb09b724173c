package adapter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/dgraph-io/ristretto"
	"github.com/m-mizutani/goerr/v2"
)

// CachedEmbedder wraps another Embedder with an in-process ristretto cache
// keyed by the SHA-256 of the input text. Repeated searches for the same
// query skip the provider round-trip.
type CachedEmbedder struct {
	inner Embedder
	cache *ristretto.Cache
}

func NewCachedEmbedder(inner Embedder, maxEntries int64) (*CachedEmbedder, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create embedding cache")
	}
	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

func (x *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if v, ok := x.cache.Get(key); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}

	vec, err := x.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	x.cache.Set(key, vec, 1)
	return vec, nil
}

func (x *CachedEmbedder) Dimensions() int {
	return x.inner.Dimensions()
}

// Wait blocks until pending cache writes are applied. Only tests need this.
func (x *CachedEmbedder) Wait() {
	x.cache.Wait()
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
