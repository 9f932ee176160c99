// Package openai provides an embeddings.Embedder backed by an
// OpenAI-compatible embeddings endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"

	"github.com/paperqa/paperqa/embeddings"
)

type Embedder struct {
	client    *openai.Client
	model     string
	dimension int
}

var _ embeddings.Embedder = (*Embedder)(nil)

// New creates an embedder for the given model. baseURL may be empty for the
// public OpenAI API or point at any compatible gateway.
func New(apiKey, baseURL, model string) (*Embedder, error) {
	if apiKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	dimension := 1536
	if model == string(openai.LargeEmbedding3) {
		dimension = 3072
	}

	return &Embedder{
		client:    openai.NewClientWithConfig(config),
		model:     model,
		dimension: dimension,
	}, nil
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: embeddings request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai: requested %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		vec := make([]float32, len(item.Embedding))
		copy(vec, item.Embedding)
		l2normalize(vec)
		vectors[i] = vec
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, embeddings.ErrEmptyText
	}
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) GetDimension(_ context.Context) (int, error) {
	return e.dimension, nil
}

// l2normalize scales the vector to unit length so that squared Euclidean
// distance becomes a monotonic function of cosine distance.
func l2normalize(v []float32) {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range v {
		v[i] *= inv
	}
}
