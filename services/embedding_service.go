package services

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

// Embedder turns a text into a fixed-length vector by calling a remote model.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEmbedder calls the embeddings deployment of a hosted OpenAI-compatible
// service. The client carries the endpoint, credentials, per-request timeout
// and bounded retries, so a single failure here is already past the transient
// cases.
type OpenAIEmbedder struct {
	client     openai.Client
	deployment string
}

func NewOpenAIEmbedder(client openai.Client, deployment string) *OpenAIEmbedder {
	return &OpenAIEmbedder{client: client, deployment: deployment}
}

// Embed implements Embedder. Failures wrap ErrEmbedding; callers decide
// whether to skip the unit (ingestion) or abort (query).
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.deployment),
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding in response", ErrEmbedding)
	}

	vector := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}
