package vectorstores

import (
	"context"
	"errors"

	"github.com/paperqa/paperqa/schema"
)

var (
	ErrCountMismatch     = errors.New("vectorstores: vector and chunk counts differ")
	ErrDimensionMismatch = errors.New("vectorstores: vector dimension mismatch")
	ErrInvalidK          = errors.New("vectorstores: k must be at least 1")
)

// Index stores embedded chunks and answers nearest-neighbour queries over
// them. Implementations must keep vectors and chunk metadata index-aligned at
// all times: entry i of the vector storage corresponds exactly to chunk i,
// insertion order is preserved, and mutation happens only through bulk Add or
// a full Reset.
type Index interface {
	// Add appends vectors with their chunks. It fails with ErrCountMismatch
	// or ErrDimensionMismatch before any mutation when the input is malformed.
	Add(ctx context.Context, vectors [][]float32, chunks []schema.Chunk) error

	// Search returns up to k results sorted by ascending distance. An empty
	// result is not an error; fallback behaviour belongs to the caller.
	Search(ctx context.Context, queryVector []float32, k int, opts ...SearchOption) ([]schema.SearchResult, error)

	// Chunks returns stored chunks in insertion order, restricted to the
	// named document when it is non-empty. limit <= 0 returns all matches.
	Chunks(ctx context.Context, document string, limit int) ([]schema.Chunk, error)

	// Len reports the number of stored chunks.
	Len(ctx context.Context) (int, error)

	// Reset clears the index and removes any persisted artifacts. It is
	// idempotent; in-memory state is cleared even when artifact removal fails.
	Reset(ctx context.Context) error
}

type SearchOptions struct {
	// Document restricts results to a single source document when non-empty.
	Document string
}

type SearchOption func(*SearchOptions)

func WithDocument(name string) SearchOption {
	return func(opts *SearchOptions) {
		opts.Document = name
	}
}

func ParseSearchOptions(opts ...SearchOption) SearchOptions {
	var o SearchOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
