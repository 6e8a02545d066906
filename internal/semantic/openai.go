package semantic

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	enginerr "github.com/gitintel/gitintel-go/internal/errors"
)

// OpenAIEmbedder calls the OpenAI embeddings API. Callers are expected to
// wrap it in a Cache; every Embed call here is a network round trip.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder builds an embedder for the given model, defaulting to
// text-embedding-3-small.
func NewOpenAIEmbedder(apiKey, model string) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, enginerr.New(enginerr.KindInput, "openai embedder requires an API key")
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIEmbedder{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

func (e *OpenAIEmbedder) Model() string { return e.model }

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, enginerr.Wrap(err, enginerr.KindCollaborator, "openai embeddings request")
	}
	if len(resp.Data) == 0 {
		return nil, enginerr.New(enginerr.KindCollaborator, "openai returned no embedding data")
	}
	return resp.Data[0].Embedding, nil
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// String implements fmt.Stringer for log fields.
func (e *OpenAIEmbedder) String() string {
	return fmt.Sprintf("openai/%s", e.model)
}
