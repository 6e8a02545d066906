package semantic

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder turns text into a fixed-size vector. The default implementation
// is the local token-hash embedder; an OpenAI-backed one is available when
// an API key is configured.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// tokenDim is the vector size of the local embedder. Large enough that
// hash collisions barely move cosine scores on source-code vocabularies.
const tokenDim = 256

// TokenEmbedder is a dependency-free bag-of-words embedder: each token is
// hashed into a bucket and the resulting histogram is L2-normalized. Cosine
// similarity of two such vectors approximates token overlap.
type TokenEmbedder struct{}

func NewTokenEmbedder() *TokenEmbedder { return &TokenEmbedder{} }

func (e *TokenEmbedder) Model() string { return "token-hash-v1" }

func (e *TokenEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, tokenDim)
	for _, tok := range Tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%tokenDim]++
	}
	normalize(vec)
	return vec, nil
}

// Tokenize splits text into lowercased identifier-ish tokens, dropping
// single characters and pure punctuation.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		tokens = append(tokens, strings.ToLower(f))
	}
	return tokens
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}

// Cosine returns the cosine similarity of two vectors, 0 when either is
// empty or they differ in length.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0.0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
