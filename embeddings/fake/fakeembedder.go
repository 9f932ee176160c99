// Package fake provides a deterministic embedder for tests.
package fake

import (
	"context"
	"sync"

	"github.com/paperqa/paperqa/embeddings"
)

// Embedder returns pre-configured vectors per exact input text and a shared
// default for everything else. It records the texts it was asked to embed.
type Embedder struct {
	dimension int

	mu        sync.Mutex
	vectors   map[string][]float32
	defaults  []float32
	requested []string
}

var _ embeddings.Embedder = (*Embedder)(nil)

func New(dimension int) *Embedder {
	return &Embedder{
		dimension: dimension,
		vectors:   make(map[string][]float32),
	}
}

// SetVector fixes the embedding returned for an exact text.
func (e *Embedder) SetVector(text string, vector []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors[text] = vector
}

// SetDefault fixes the embedding returned for texts without a SetVector entry.
func (e *Embedder) SetDefault(vector []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.defaults = vector
}

// Requested returns every text passed to the embedder, in call order.
func (e *Embedder) Requested() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.requested))
	copy(out, e.requested)
	return out
}

func (e *Embedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		e.requested = append(e.requested, text)
		vectors[i] = e.vectorFor(text)
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requested = append(e.requested, text)
	return e.vectorFor(text), nil
}

func (e *Embedder) GetDimension(_ context.Context) (int, error) {
	return e.dimension, nil
}

// vectorFor must be called with the mutex held.
func (e *Embedder) vectorFor(text string) []float32 {
	if vec, ok := e.vectors[text]; ok {
		return vec
	}
	if e.defaults != nil {
		return e.defaults
	}
	vec := make([]float32, e.dimension)
	if e.dimension > 0 {
		vec[0] = 1
	}
	return vec
}
