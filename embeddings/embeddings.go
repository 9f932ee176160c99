package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Embedder maps texts to fixed-width L2-normalized vectors. Output is
// one-to-one and order-preserving with input.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	GetDimension(ctx context.Context) (int, error)
}

var ErrEmptyText = errors.New("text cannot be empty")

// EmbedderImpl wraps a provider client with text preprocessing and
// concurrent batching.
type EmbedderImpl struct {
	client Embedder
	opts   options
}

func NewEmbedder(client Embedder, opts ...Option) (Embedder, error) {
	embedderOpts := options{
		StripNewLines: true,
		BatchSize:     defaultBatchSize,
		MaxConcurrent: defaultMaxConcurrent,
	}
	for _, opt := range opts {
		opt(&embedderOpts)
	}
	if embedderOpts.BatchSize <= 0 {
		embedderOpts.BatchSize = defaultBatchSize
	}
	if embedderOpts.MaxConcurrent <= 0 {
		embedderOpts.MaxConcurrent = defaultMaxConcurrent
	}

	if _, ok := client.(*EmbedderImpl); ok {
		return nil, errors.New("cannot wrap an already-wrapped EmbedderImpl")
	}

	return &EmbedderImpl{
		client: client,
		opts:   embedderOpts,
	}, nil
}

func (e *EmbedderImpl) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	return e.client.EmbedQuery(ctx, e.preprocessText(text))
}

func (e *EmbedderImpl) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	processed := make([]string, len(texts))
	for i, text := range texts {
		processed[i] = e.preprocessText(text)
	}

	batches := batchTexts(processed, e.opts.BatchSize)
	batchResults := make([][][]float32, len(batches))
	errCh := make(chan error, len(batches))

	semaphore := make(chan struct{}, e.opts.MaxConcurrent)

	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		go func(i int, batch []string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if ctx.Err() != nil {
				return
			}

			vectors, err := e.client.EmbedDocuments(ctx, batch)
			if err != nil {
				errCh <- fmt.Errorf("error embedding batch %d: %w", i, err)
				return
			}
			batchResults[i] = vectors
		}(i, batch)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	all := make([][]float32, 0, len(texts))
	for _, batch := range batchResults {
		all = append(all, batch...)
	}
	return all, nil
}

func (e *EmbedderImpl) GetDimension(ctx context.Context) (int, error) {
	return e.client.GetDimension(ctx)
}

func (e *EmbedderImpl) preprocessText(text string) string {
	if e.opts.StripNewLines {
		return strings.ReplaceAll(text, "\n", " ")
	}
	return text
}

func batchTexts(texts []string, batchSize int) [][]string {
	if batchSize <= 0 {
		return [][]string{texts}
	}
	batches := make([][]string, 0, (len(texts)+batchSize-1)/batchSize)
	for i := 0; i < len(texts); i += batchSize {
		end := min(i+batchSize, len(texts))
		batches = append(batches, texts[i:end])
	}
	return batches
}
