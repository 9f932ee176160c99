// Package stapi talks to a sentence-transformers HTTP embedding server
// (all-MiniLM-L6-v2 by default, dimension 384). The server normalizes
// embeddings before returning them.
package stapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/paperqa/paperqa/embeddings"
)

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embedder is an HTTP client for the /embed endpoint of the embedding server.
type Embedder struct {
	serverURL  string
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string

	// Cached dimension
	dimension int
	dimErr    error
	dimOnce   sync.Once
}

var _ embeddings.Embedder = (*Embedder)(nil)

// New creates a new embedding server client.
func New(serverURL string, opts ...Option) (embeddings.Embedder, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("server URL cannot be empty")
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &Embedder{
		serverURL:  serverURL,
		httpClient: options.httpClient,
		logger:     options.logger.With("component", "stapi_embedder"),
		apiKey:     options.apiKey,
	}, nil
}

// EmbedDocuments sends a batch of texts to the server for embedding.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		e.logger.WarnContext(ctx, "No texts provided for embedding")
		return [][]float32{}, nil
	}

	payloadBytes, err := json.Marshal(embedRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.serverURL+"/embed", bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if e.apiKey != "" {
		req.Header.Set("X-Api-Key", e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding server returned non-200 status: %d", resp.StatusCode)
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(embedResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("mismatch between requested texts (%d) and received embeddings (%d)",
			len(texts), len(embedResp.Embeddings))
	}

	return embedResp.Embeddings, nil
}

// EmbedQuery embeds a single query.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, embeddings.ErrEmptyText
	}

	results, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no embeddings returned for query")
	}
	return results[0], nil
}

// GetDimension lazily fetches the embedding dimension with a test query.
func (e *Embedder) GetDimension(ctx context.Context) (int, error) {
	e.dimOnce.Do(func() {
		sample, err := e.EmbedQuery(ctx, "dimension_check")
		if err != nil {
			e.dimErr = fmt.Errorf("failed to get dimension: %w", err)
			return
		}
		e.dimension = len(sample)
	})
	return e.dimension, e.dimErr
}
