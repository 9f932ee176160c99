// Package flat implements an in-process, exact nearest-neighbour index over
// squared Euclidean distance, with the chunk metadata held in arrays parallel
// to the vectors. It is the default backend: a single service process owns the
// whole index and rebuilds it on every upload batch.
package flat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/paperqa/paperqa/schema"
	"github.com/paperqa/paperqa/vectorstores"
)

// ErrPersistence marks disk read/write failures. Persistence errors are
// non-fatal: the in-memory index stays valid and usable.
var ErrPersistence = errors.New("flat: persistence failure")

// overfetchFactor is how many extra neighbours Search retrieves before
// applying the document filter, compensating for candidates the filter
// discards.
const overfetchFactor = 3

type Index struct {
	dimension int
	indexPath string
	metaPath  string
	logger    *slog.Logger

	mu        sync.RWMutex
	vectors   [][]float32
	texts     []string
	pages     []int
	documents []string
}

var _ vectorstores.Index = (*Index)(nil)

type Option func(*Index)

// WithPath enables persistence under the given base path. The vectors are
// written to the path itself and the metadata to a JSON sidecar next to it.
func WithPath(path string) Option {
	return func(idx *Index) {
		if path != "" {
			idx.indexPath = path
			idx.metaPath = path + "_meta.json"
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(idx *Index) {
		if logger != nil {
			idx.logger = logger
		}
	}
}

// New creates an index for vectors of the given dimension. When persistence
// is configured and both artifacts of a previous run exist, they are loaded;
// any read or parse failure falls back to an empty index instead of failing.
func New(dimension int, opts ...Option) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("flat: dimension must be positive, got %d", dimension)
	}

	idx := &Index{
		dimension: dimension,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(idx)
		}
	}
	idx.logger = idx.logger.With("component", "flat_index")

	if idx.indexPath != "" {
		if err := idx.loadExisting(); err != nil {
			idx.logger.Error("Failed to load persisted index, starting empty", "error", err)
			if resetErr := idx.Reset(context.Background()); resetErr != nil {
				idx.logger.Error("Cleanup of unreadable index artifacts failed", "error", resetErr)
			}
		}
	}

	return idx, nil
}

// Dimension returns the fixed embedding width of the index.
func (idx *Index) Dimension() int {
	return idx.dimension
}

// Add appends vectors and chunks to the parallel arrays and persists the full
// index before returning. Validation failures abort without mutation. A save
// failure is reported but the appended in-memory state is kept.
func (idx *Index) Add(_ context.Context, vectors [][]float32, chunks []schema.Chunk) error {
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: %d vectors, %d chunks", vectorstores.ErrCountMismatch, len(vectors), len(chunks))
	}
	if len(vectors) == 0 {
		return nil
	}
	for i, vec := range vectors {
		if len(vec) != idx.dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d",
				vectorstores.ErrDimensionMismatch, i, len(vec), idx.dimension)
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for i, vec := range vectors {
		idx.vectors = append(idx.vectors, vec)
		idx.texts = append(idx.texts, chunks[i].Text)
		idx.pages = append(idx.pages, chunks[i].Page)
		idx.documents = append(idx.documents, chunks[i].Document)
	}

	if err := idx.save(); err != nil {
		idx.logger.Error("Failed to persist index after add", "error", err, "size", len(idx.vectors))
		return err
	}

	idx.logger.Info("Added vectors to index", "added", len(vectors), "size", len(idx.vectors))
	return nil
}

// Search retrieves 3k nearest neighbours, drops candidates with invalid
// positions or a non-matching document, and returns the k closest survivors
// in ascending distance order. No match yields an empty result, not an error.
func (idx *Index) Search(_ context.Context, queryVector []float32, k int, opts ...vectorstores.SearchOption) ([]schema.SearchResult, error) {
	if k < 1 {
		return nil, vectorstores.ErrInvalidK
	}
	if len(queryVector) != idx.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, want %d",
			vectorstores.ErrDimensionMismatch, len(queryVector), idx.dimension)
	}
	options := vectorstores.ParseSearchOptions(opts...)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	candidates := idx.nearest(queryVector, k*overfetchFactor)

	results := make([]schema.SearchResult, 0, k)
	for _, c := range candidates {
		if c.position < 0 || c.position >= len(idx.texts) {
			continue
		}
		if options.Document != "" && idx.documents[c.position] != options.Document {
			continue
		}
		results = append(results, schema.SearchResult{
			Text:     idx.texts[c.position],
			Distance: c.distance,
			Page:     idx.pages[c.position],
			Document: idx.documents[c.position],
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

type candidate struct {
	position int
	distance float32
}

// nearest scans every stored vector and returns the n closest positions.
// Callers must hold at least the read lock.
func (idx *Index) nearest(query []float32, n int) []candidate {
	candidates := make([]candidate, 0, len(idx.vectors))
	for i, vec := range idx.vectors {
		candidates = append(candidates, candidate{position: i, distance: squaredL2(query, vec)})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].distance < candidates[j].distance })
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Chunks returns stored chunks in insertion order, filtered by document when
// one is named. limit <= 0 returns every match.
func (idx *Index) Chunks(_ context.Context, document string, limit int) ([]schema.Chunk, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var chunks []schema.Chunk
	for i := range idx.texts {
		if document != "" && idx.documents[i] != document {
			continue
		}
		chunks = append(chunks, schema.Chunk{
			Text:     idx.texts[i],
			Page:     idx.pages[i],
			Document: idx.documents[i],
		})
		if limit > 0 && len(chunks) >= limit {
			break
		}
	}
	return chunks, nil
}

func (idx *Index) Len(_ context.Context) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.texts), nil
}

// Reset clears the in-memory arrays and removes persisted artifacts. The
// in-memory state is cleared even when artifact removal fails.
func (idx *Index) Reset(_ context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.vectors = nil
	idx.texts = nil
	idx.pages = nil
	idx.documents = nil

	if err := idx.removeArtifacts(); err != nil {
		idx.logger.Error("Failed to remove index artifacts", "error", err)
		return err
	}

	idx.logger.Info("Index reset complete")
	return nil
}
