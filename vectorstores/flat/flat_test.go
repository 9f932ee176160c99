package flat_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperqa/paperqa/schema"
	"github.com/paperqa/paperqa/vectorstores"
	"github.com/paperqa/paperqa/vectorstores/flat"
)

const dim = 4

func vec(values ...float32) []float32 {
	v := make([]float32, dim)
	copy(v, values)
	return v
}

func testChunks() ([][]float32, []schema.Chunk) {
	vectors := [][]float32{
		vec(1, 0, 0, 0),
		vec(0, 1, 0, 0),
		vec(0, 0, 1, 0),
	}
	chunks := []schema.Chunk{
		{Text: "intro text", Page: 1, Document: "A.pdf"},
		{Text: "the theorem states that convergence holds", Page: 2, Document: "A.pdf"},
		{Text: "experimental setup", Page: 1, Document: "B.pdf"},
	}
	return vectors, chunks
}

func TestIndex_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps parallel arrays aligned", func(t *testing.T) {
		idx, err := flat.New(dim)
		require.NoError(t, err)

		vectors, chunks := testChunks()
		require.NoError(t, idx.Add(ctx, vectors, chunks))

		n, err := idx.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		stored, err := idx.Chunks(ctx, "", 0)
		require.NoError(t, err)
		assert.Equal(t, chunks, stored, "insertion order must equal index order")
	})

	t.Run("count mismatch aborts without mutation", func(t *testing.T) {
		idx, err := flat.New(dim)
		require.NoError(t, err)

		err = idx.Add(ctx, [][]float32{vec(1, 0, 0, 0)}, nil)
		require.ErrorIs(t, err, vectorstores.ErrCountMismatch)

		n, err := idx.Len(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("dimension mismatch aborts without mutation", func(t *testing.T) {
		idx, err := flat.New(dim)
		require.NoError(t, err)

		err = idx.Add(ctx, [][]float32{{1, 0}}, []schema.Chunk{{Text: "x", Page: 1, Document: "A.pdf"}})
		require.ErrorIs(t, err, vectorstores.ErrDimensionMismatch)

		n, err := idx.Len(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestIndex_Search(t *testing.T) {
	ctx := context.Background()

	newPopulated := func(t *testing.T) *flat.Index {
		t.Helper()
		idx, err := flat.New(dim)
		require.NoError(t, err)
		vectors, chunks := testChunks()
		require.NoError(t, idx.Add(ctx, vectors, chunks))
		return idx
	}

	t.Run("distances are non-decreasing", func(t *testing.T) {
		idx := newPopulated(t)

		results, err := idx.Search(ctx, vec(1, 0.1, 0, 0), 3)
		require.NoError(t, err)
		require.Len(t, results, 3)
		for i := 1; i < len(results); i++ {
			assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
		}
		assert.Equal(t, "intro text", results[0].Text)
	})

	t.Run("document filter is absolute", func(t *testing.T) {
		idx := newPopulated(t)

		results, err := idx.Search(ctx, vec(0, 0, 1, 0), 3, vectorstores.WithDocument("A.pdf"))
		require.NoError(t, err)
		require.NotEmpty(t, results)
		for _, r := range results {
			assert.Equal(t, "A.pdf", r.Document, "filtered search must never leak other documents")
		}
	})

	t.Run("filter matching nothing returns empty, not an error", func(t *testing.T) {
		idx := newPopulated(t)

		results, err := idx.Search(ctx, vec(1, 0, 0, 0), 3, vectorstores.WithDocument("missing.pdf"))
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("empty index returns empty", func(t *testing.T) {
		idx, err := flat.New(dim)
		require.NoError(t, err)

		results, err := idx.Search(ctx, vec(1, 0, 0, 0), 5)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("k must be positive", func(t *testing.T) {
		idx := newPopulated(t)

		_, err := idx.Search(ctx, vec(1, 0, 0, 0), 0)
		require.ErrorIs(t, err, vectorstores.ErrInvalidK)
	})

	t.Run("query dimension is validated", func(t *testing.T) {
		idx := newPopulated(t)

		_, err := idx.Search(ctx, []float32{1, 0}, 1)
		require.ErrorIs(t, err, vectorstores.ErrDimensionMismatch)
	})

	t.Run("overfetch keeps filtered matches beyond the first k neighbours", func(t *testing.T) {
		idx, err := flat.New(dim)
		require.NoError(t, err)

		// Two near chunks belong to B.pdf, the far one to A.pdf. Filtering on
		// A.pdf must still surface it because 3k candidates are considered.
		vectors := [][]float32{
			vec(1, 0, 0, 0),
			vec(0.9, 0.1, 0, 0),
			vec(0, 0, 0, 1),
		}
		chunks := []schema.Chunk{
			{Text: "near one", Page: 1, Document: "B.pdf"},
			{Text: "near two", Page: 2, Document: "B.pdf"},
			{Text: "far away", Page: 3, Document: "A.pdf"},
		}
		require.NoError(t, idx.Add(ctx, vectors, chunks))

		results, err := idx.Search(ctx, vec(1, 0, 0, 0), 1, vectorstores.WithDocument("A.pdf"))
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "far away", results[0].Text)
	})
}

func TestIndex_Chunks(t *testing.T) {
	ctx := context.Background()

	idx, err := flat.New(dim)
	require.NoError(t, err)
	vectors, chunks := testChunks()
	require.NoError(t, idx.Add(ctx, vectors, chunks))

	t.Run("filters by document", func(t *testing.T) {
		got, err := idx.Chunks(ctx, "B.pdf", 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "experimental setup", got[0].Text)
	})

	t.Run("limit truncates in insertion order", func(t *testing.T) {
		got, err := idx.Chunks(ctx, "", 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "intro text", got[0].Text)
		assert.Equal(t, "the theorem states that convergence holds", got[1].Text)
	})
}

func TestIndex_Reset(t *testing.T) {
	ctx := context.Background()

	t.Run("clears state and artifacts, idempotent", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "index")
		idx, err := flat.New(dim, flat.WithPath(base))
		require.NoError(t, err)

		vectors, chunks := testChunks()
		require.NoError(t, idx.Add(ctx, vectors, chunks))
		require.FileExists(t, base)
		require.FileExists(t, base+"_meta.json")

		require.NoError(t, idx.Reset(ctx))
		n, err := idx.Len(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.NoFileExists(t, base)
		assert.NoFileExists(t, base+"_meta.json")

		require.NoError(t, idx.Reset(ctx), "second reset must not fail")
	})
}

func TestIndex_Persistence(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "index")

		idx, err := flat.New(dim, flat.WithPath(base))
		require.NoError(t, err)
		vectors, chunks := testChunks()
		require.NoError(t, idx.Add(ctx, vectors, chunks))

		reloaded, err := flat.New(dim, flat.WithPath(base))
		require.NoError(t, err)

		n, err := reloaded.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		results, err := reloaded.Search(ctx, vec(0, 1, 0, 0), 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "the theorem states that convergence holds", results[0].Text)
		assert.Equal(t, 2, results[0].Page)
	})

	t.Run("corrupt sidecar falls back to empty", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "index")

		idx, err := flat.New(dim, flat.WithPath(base))
		require.NoError(t, err)
		vectors, chunks := testChunks()
		require.NoError(t, idx.Add(ctx, vectors, chunks))

		require.NoError(t, os.WriteFile(base+"_meta.json", []byte("{not json"), 0o644))

		reloaded, err := flat.New(dim, flat.WithPath(base))
		require.NoError(t, err)
		n, err := reloaded.Len(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("partial artifacts are treated as no index", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "index")

		idx, err := flat.New(dim, flat.WithPath(base))
		require.NoError(t, err)
		vectors, chunks := testChunks()
		require.NoError(t, idx.Add(ctx, vectors, chunks))

		require.NoError(t, os.Remove(base+"_meta.json"))

		reloaded, err := flat.New(dim, flat.WithPath(base))
		require.NoError(t, err)
		n, err := reloaded.Len(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
