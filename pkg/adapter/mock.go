package adapter

import (
	"context"
	"hash/fnv"
	"math"
	"unicode"
)

const mockDimensions = 384

// MockEmbedder produces deterministic embeddings without any external
// service. Tokens are hashed into a fixed number of buckets, so texts that
// share words end up closer in the vector space than unrelated texts. Meant
// for tests and offline development, not for real retrieval quality.
type MockEmbedder struct {
	dims int
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{dims: mockDimensions}
}

func (x *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, x.dims)

	tokens := tokenize(text)
	for _, token := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[h.Sum32()%uint32(x.dims)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func (x *MockEmbedder) Dimensions() int {
	return x.dims
}

func tokenize(text string) []string {
	var tokens []string
	var current []rune
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current = append(current, unicode.ToLower(r))
			continue
		}
		if len(current) > 0 {
			tokens = append(tokens, string(current))
			current = current[:0]
		}
	}
	if len(current) > 0 {
		tokens = append(tokens, string(current))
	}
	return tokens
}
