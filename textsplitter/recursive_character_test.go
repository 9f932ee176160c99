package textsplitter_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperqa/paperqa/textsplitter"
)

func TestNewRecursiveCharacterRejectsBadOverlap(t *testing.T) {
	_, err := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(100),
		textsplitter.WithChunkOverlap(100),
	)
	require.Error(t, err)
}

func TestSplitTextShortInput(t *testing.T) {
	s, err := textsplitter.NewRecursiveCharacter()
	require.NoError(t, err)

	chunks, err := s.SplitText(context.Background(), "a short paragraph")
	require.NoError(t, err)
	assert.Equal(t, []string{"a short paragraph"}, chunks)
}

func TestSplitTextEmptyInput(t *testing.T) {
	s, err := textsplitter.NewRecursiveCharacter()
	require.NoError(t, err)

	for _, input := range []string{"", "   ", "\n\n\t"} {
		chunks, err := s.SplitText(context.Background(), input)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	}
}

func TestSplitTextRespectsChunkSize(t *testing.T) {
	s, err := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(100),
		textsplitter.WithChunkOverlap(20),
	)
	require.NoError(t, err)

	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("The quick brown fox jumps over the lazy dog. ")
	}

	chunks, err := s.SplitText(context.Background(), b.String())
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 100)
	}
}

func TestSplitTextPrefersParagraphBoundaries(t *testing.T) {
	s, err := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(60),
		textsplitter.WithChunkOverlap(0),
	)
	require.NoError(t, err)

	text := "First paragraph stands alone here.\n\nSecond paragraph also stands alone."
	chunks, err := s.SplitText(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "First paragraph stands alone here.", chunks[0])
	assert.Equal(t, "Second paragraph also stands alone.", chunks[1])
}

func TestSplitTextUnbrokenRun(t *testing.T) {
	s, err := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(50),
		textsplitter.WithChunkOverlap(10),
	)
	require.NoError(t, err)

	chunks, err := s.SplitText(context.Background(), strings.Repeat("x", 200))
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 50)
	}
	// Consecutive fixed windows share the configured overlap.
	assert.Equal(t, chunks[0][len(chunks[0])-10:], chunks[1][:10])
}

func TestSplitTextOverlapCarriesContext(t *testing.T) {
	s, err := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(80),
		textsplitter.WithChunkOverlap(30),
	)
	require.NoError(t, err)

	text := "Sentence one talks about methods. Sentence two covers results. Sentence three concludes the paper with remarks."
	chunks, err := s.SplitText(context.Background(), text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	// The second chunk starts with the tail of the first.
	tail := chunks[0]
	if len(tail) > 30 {
		tail = tail[len(tail)-30:]
	}
	assert.True(t, strings.HasPrefix(chunks[1], tail), "chunk %q should start with overlap %q", chunks[1], tail)
}
