package chains_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperqa/paperqa/chains"
	embedfake "github.com/paperqa/paperqa/embeddings/fake"
	llmfake "github.com/paperqa/paperqa/llms/fake"
	"github.com/paperqa/paperqa/schema"
	"github.com/paperqa/paperqa/vectorstores/flat"
)

const testDim = 4

func vec(values ...float32) []float32 {
	v := make([]float32, testDim)
	copy(v, values)
	return v
}

func seedIndex(t *testing.T, chunks []schema.Chunk, vectors [][]float32) *flat.Index {
	t.Helper()
	idx, err := flat.New(testDim)
	require.NoError(t, err)
	require.NoError(t, idx.Add(context.Background(), vectors, chunks))
	return idx
}

func TestQueryVariationsViaEmbedder(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "plain query has no variations",
			query: "How does attention scale?",
			want:  []string{"How does attention scale?"},
		},
		{
			name:  "definition query",
			query: "What is entropy?",
			want: []string{
				"What is entropy?",
				"Explain: What is entropy?",
				"Provide detailed explanation of: What is entropy?",
			},
		},
		{
			name:  "technical query",
			query: "Derive the loss formula",
			want: []string{
				"Derive the loss formula",
				"Mathematical formulation of: Derive the loss formula",
				"Explain the derivation of: Derive the loss formula",
			},
		},
		{
			name:  "comparison query",
			query: "Compare CNN and RNN",
			want: []string{
				"Compare CNN and RNN",
				"Key differences and similarities: Compare CNN and RNN",
			},
		},
		{
			name:  "definition and technical triggers stack",
			query: "What is the softmax equation?",
			want: []string{
				"What is the softmax equation?",
				"Explain: What is the softmax equation?",
				"Provide detailed explanation of: What is the softmax equation?",
				"Mathematical formulation of: What is the softmax equation?",
				"Explain the derivation of: What is the softmax equation?",
			},
		},
		{
			name:  "triggers are case-insensitive",
			query: "DEFINE gradient descent",
			want: []string{
				"DEFINE gradient descent",
				"Explain: DEFINE gradient descent",
				"Provide detailed explanation of: DEFINE gradient descent",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			embedder := embedfake.New(testDim)
			idx := seedIndex(t,
				[]schema.Chunk{schema.NewChunk("some text", 1, "A.pdf")},
				[][]float32{vec(1)},
			)
			llm := llmfake.NewFakeLLM([]string{"answer"})
			qa := chains.NewDocumentQA(embedder, idx, llm)

			_, err := qa.GenerateAnswer(context.Background(), tc.query, "")
			require.NoError(t, err)
			assert.Equal(t, tc.want, embedder.Requested())
		})
	}
}

func TestGenerateAnswerPicksBestVariation(t *testing.T) {
	embedder := embedfake.New(testDim)
	// The original phrasing lands far from everything; the "Explain:"
	// variation lands exactly on the second chunk.
	embedder.SetDefault(vec(0, 0, 0, 1))
	embedder.SetVector("Explain: What is X?", vec(0, 1))

	idx := seedIndex(t,
		[]schema.Chunk{
			schema.NewChunk("first chunk", 1, "A.pdf"),
			schema.NewChunk("second chunk", 2, "A.pdf"),
		},
		[][]float32{vec(1), vec(0, 1)},
	)
	llm := llmfake.NewFakeLLM([]string{"answer"})
	qa := chains.NewDocumentQA(embedder, idx, llm)

	answer, err := qa.GenerateAnswer(context.Background(), "What is X?", "")
	require.NoError(t, err)
	require.NotEmpty(t, answer.Chunks)
	assert.Equal(t, "second chunk", answer.Chunks[0].Text)
	assert.Equal(t, float32(0), answer.Chunks[0].Distance)
	assert.Equal(t, []int{2, 1}, answer.Pages)
	assert.False(t, answer.Degraded)
}

func TestGenerateAnswerDocumentFilter(t *testing.T) {
	embedder := embedfake.New(testDim)
	idx := seedIndex(t,
		[]schema.Chunk{
			schema.NewChunk("alpha content", 1, "A.pdf"),
			schema.NewChunk("beta content", 3, "B.pdf"),
		},
		[][]float32{vec(1), vec(1)},
	)
	llm := llmfake.NewFakeLLM([]string{"answer"})
	qa := chains.NewDocumentQA(embedder, idx, llm)

	answer, err := qa.GenerateAnswer(context.Background(), "anything", "B.pdf")
	require.NoError(t, err)
	require.Len(t, answer.Chunks, 1)
	assert.Equal(t, "B.pdf", answer.Chunks[0].Document)
	assert.Equal(t, []int{3}, answer.Pages)
}

func TestGenerateAnswerFallbackChunks(t *testing.T) {
	embedder := embedfake.New(testDim)
	idx := seedIndex(t,
		[]schema.Chunk{
			schema.NewChunk("only in A", 1, "A.pdf"),
		},
		[][]float32{vec(1)},
	)
	llm := llmfake.NewFakeLLM([]string{"answer"})
	qa := chains.NewDocumentQA(embedder, idx, llm)

	// Filter matches nothing, so search is empty and the fallback yields
	// no chunks either; the model is still called with an empty context.
	answer, err := qa.GenerateAnswer(context.Background(), "anything", "C.pdf")
	require.NoError(t, err)
	assert.Empty(t, answer.Chunks)
	assert.Equal(t, "answer", answer.Text)
	assert.Equal(t, 1, llm.GetCallCount())
}

func TestGenerateAnswerFallbackOnEmptyIndex(t *testing.T) {
	embedder := embedfake.New(testDim)
	idx, err := flat.New(testDim)
	require.NoError(t, err)
	llm := llmfake.NewFakeLLM([]string{"answer"})
	qa := chains.NewDocumentQA(embedder, idx, llm)

	answer, err := qa.GenerateAnswer(context.Background(), "anything", "")
	require.NoError(t, err)
	assert.Empty(t, answer.Chunks)
	assert.Empty(t, answer.Pages)
}

func TestGenerateAnswerDegradedOnModelFailure(t *testing.T) {
	embedder := embedfake.New(testDim)
	idx := seedIndex(t,
		[]schema.Chunk{schema.NewChunk("some text", 1, "A.pdf")},
		[][]float32{vec(1)},
	)
	llm := llmfake.NewFakeLLM(nil)
	llm.SetError(errors.New("upstream timeout"))
	qa := chains.NewDocumentQA(embedder, idx, llm)

	answer, err := qa.GenerateAnswer(context.Background(), "anything", "")
	require.NoError(t, err)
	assert.True(t, answer.Degraded)
	assert.Equal(t, "Error generating response: upstream timeout", answer.Text)
	assert.Len(t, answer.Chunks, 1)
}

func TestGenerateAnswerPromptContainsContext(t *testing.T) {
	embedder := embedfake.New(testDim)
	idx := seedIndex(t,
		[]schema.Chunk{schema.NewChunk("the capital is Paris", 7, "geo.pdf")},
		[][]float32{vec(1)},
	)
	llm := llmfake.NewFakeLLM([]string{"Paris"})
	qa := chains.NewDocumentQA(embedder, idx, llm)

	_, err := qa.GenerateAnswer(context.Background(), "capital of France", "")
	require.NoError(t, err)

	prompt, ok := llm.LastPrompt()
	require.True(t, ok)
	assert.Contains(t, prompt, "Question: capital of France")
	assert.Contains(t, prompt, "From geo.pdf, page 7:\nthe capital is Paris")
	assert.Contains(t, prompt, "based EXCLUSIVELY on the provided context")
}

func TestGenerateAnswerTechnicalContextFirst(t *testing.T) {
	embedder := embedfake.New(testDim)
	embedder.SetDefault(vec(1))

	// The general chunk is the nearer hit, but the chunk mentioning an
	// equation must still lead the assembled context.
	idx := seedIndex(t,
		[]schema.Chunk{
			schema.NewChunk("general discussion of results", 1, "A.pdf"),
			schema.NewChunk("the master equation governs the system", 2, "A.pdf"),
		},
		[][]float32{vec(1), vec(0.9, 0.1)},
	)
	llm := llmfake.NewFakeLLM([]string{"answer"})
	qa := chains.NewDocumentQA(embedder, idx, llm)

	_, err := qa.GenerateAnswer(context.Background(), "anything", "")
	require.NoError(t, err)

	prompt, ok := llm.LastPrompt()
	require.True(t, ok)
	technicalAt := strings.Index(prompt, "the master equation")
	generalAt := strings.Index(prompt, "general discussion")
	require.GreaterOrEqual(t, technicalAt, 0)
	require.GreaterOrEqual(t, generalAt, 0)
	assert.Less(t, technicalAt, generalAt)
}

func TestFullContext(t *testing.T) {
	embedder := embedfake.New(testDim)
	idx := seedIndex(t,
		[]schema.Chunk{
			schema.NewChunk("chunk one", 1, "A.pdf"),
			schema.NewChunk("chunk two", 2, "A.pdf"),
			schema.NewChunk("other doc", 1, "B.pdf"),
		},
		[][]float32{vec(1), vec(0, 1), vec(0, 0, 1)},
	)
	qa := chains.NewDocumentQA(embedder, idx, llmfake.NewFakeLLM([]string{"x"}))

	t.Run("filters by document", func(t *testing.T) {
		text, pages, err := qa.FullContext(context.Background(), "A.pdf")
		require.NoError(t, err)
		assert.Equal(t, "chunk one\nchunk two", text)
		assert.Equal(t, []int{1, 2}, pages)
	})

	t.Run("empty filter returns everything", func(t *testing.T) {
		text, pages, err := qa.FullContext(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, "chunk one\nchunk two\nother doc", text)
		assert.Equal(t, []int{1, 2, 1}, pages)
	})

	t.Run("unknown document falls back to whole index", func(t *testing.T) {
		text, _, err := qa.FullContext(context.Background(), "missing.pdf")
		require.NoError(t, err)
		assert.Contains(t, text, "chunk one")
		assert.Contains(t, text, "other doc")
	})
}

func TestFullContextStrictFilter(t *testing.T) {
	embedder := embedfake.New(testDim)
	idx := seedIndex(t,
		[]schema.Chunk{schema.NewChunk("chunk one", 1, "A.pdf")},
		[][]float32{vec(1)},
	)
	qa := chains.NewDocumentQA(embedder, idx, llmfake.NewFakeLLM([]string{"x"}),
		chains.WithStrictFilter(true))

	text, pages, err := qa.FullContext(context.Background(), "missing.pdf")
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Empty(t, pages)
}

func TestFullContextTruncation(t *testing.T) {
	embedder := embedfake.New(testDim)

	var chunks []schema.Chunk
	var vectors [][]float32
	for i := 0; i < 10; i++ {
		chunks = append(chunks, schema.NewChunk(strings.Repeat("x", 900), i+1, "A.pdf"))
		vectors = append(vectors, vec(float32(i+1)))
	}
	idx := seedIndex(t, chunks, vectors)

	qa := chains.NewDocumentQA(embedder, idx, llmfake.NewFakeLLM([]string{"x"}),
		chains.WithMaxContextChars(3000))

	text, pages, err := qa.FullContext(context.Background(), "A.pdf")
	require.NoError(t, err)
	assert.Len(t, text, 3000)
	assert.Equal(t, []int{1, 2, 3}, pages)
}

func TestNeedsRetry(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"The paper proposes a new architecture.", false},
		{"No relevant information was found in the context.", true},
		{"The context is INSUFFICIENT to answer this.", true},
		{"The term was not found in the document.", true},
		{"", false},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%.30q", tc.answer), func(t *testing.T) {
			assert.Equal(t, tc.want, chains.NeedsRetry(tc.answer))
		})
	}
}

func TestRetryQuery(t *testing.T) {
	assert.Equal(t, "Explain in detail about: transformers", chains.RetryQuery("transformers"))
}

func TestCleanResponse(t *testing.T) {
	in := "# Heading\n**Bold** and *italic* text.\n\n\n\nNext paragraph."
	want := "Bold and italic text.\n\nNext paragraph."
	assert.Equal(t, want, chains.CleanResponse(in))
}
