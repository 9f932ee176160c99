package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperqa/paperqa/llms/fake"
)

func TestLookup(t *testing.T) {
	for _, name := range []string{Summarize, Abstract, KeyFindings, Challenges} {
		tool, err := Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, name, tool.Name)
		assert.NotEmpty(t, tool.Description)
		assert.NotEmpty(t, tool.Instructions)
	}

	_, err := Lookup("translate")
	require.ErrorIs(t, err, ErrUnknownTool)
}

func TestRunUnknownTool(t *testing.T) {
	runner := NewRunner(fake.NewFakeLLM([]string{"x"}), nil)
	_, err := runner.Run(context.Background(), "translate", "some context")
	require.ErrorIs(t, err, ErrUnknownTool)
}

func TestRunPromptContents(t *testing.T) {
	llm := fake.NewFakeLLM([]string{"A summary."})
	runner := NewRunner(llm, nil)

	result, err := runner.Run(context.Background(), Summarize, "the document context")
	require.NoError(t, err)
	assert.Equal(t, "A summary.", result)

	prompt, ok := llm.LastPrompt()
	require.True(t, ok)
	assert.Contains(t, prompt, "summarize: Generate a comprehensive summary")
	assert.Contains(t, prompt, "the document context")
	assert.Contains(t, prompt, "Research Objectives")
	assert.Contains(t, prompt, "EXCLUSIVELY on the provided context")
}

func TestRunCleansOutput(t *testing.T) {
	llm := fake.NewFakeLLM([]string{"# Title\n**Strong** claim [Page 3] with *emphasis*.\n\n\n\nMore."})
	runner := NewRunner(llm, nil)

	result, err := runner.Run(context.Background(), Summarize, "ctx")
	require.NoError(t, err)
	assert.Equal(t, "Strong claim  with emphasis.\n\nMore.", result)
}

func TestRunModelFailure(t *testing.T) {
	llm := fake.NewFakeLLM(nil)
	llm.SetError(errors.New("gateway unavailable"))
	runner := NewRunner(llm, nil)

	result, err := runner.Run(context.Background(), Challenges, "ctx")
	require.NoError(t, err)
	assert.Equal(t, "Error generating response: gateway unavailable", result)
}

func TestRunEmptyResponse(t *testing.T) {
	llm := fake.NewFakeLLM([]string{"   "})
	runner := NewRunner(llm, nil)

	result, err := runner.Run(context.Background(), Abstract, "ctx")
	require.NoError(t, err)
	assert.Equal(t, "Error: No response generated by the assistant", result)
}

func TestNormalizeKeyFindings(t *testing.T) {
	t.Run("groups and deduplicates bullets", func(t *testing.T) {
		in := strings.Join([]string{
			"- **Qualitative Insights**:",
			"- The method scales linearly.",
			"- The method scales linearly.",
			"- Not mentioned",
			"- **Novel Contributions**:",
			"- A new caching layer. [Page 2]",
		}, "\n")

		got := normalizeKeyFindings(in)
		want := strings.Join([]string{
			"- **Qualitative Insights**:",
			"- The method scales linearly.",
			"- **Novel Contributions**:",
			"- A new caching layer.",
		}, "\n")
		assert.Equal(t, want, got)
	})

	t.Run("missing section gets inferred placeholder", func(t *testing.T) {
		in := "- **Qualitative Insights**:\n- Observed consistent gains."
		got := normalizeKeyFindings(in)
		assert.Contains(t, got, "- Observed consistent gains.")
		assert.Contains(t, got, "- **Novel Contributions**:")
		assert.Contains(t, got, "Inferred contributions suggest")
	})

	t.Run("markdown headers become section markers", func(t *testing.T) {
		in := "## Qualitative Insights\n- Something notable."
		got := normalizeKeyFindings(in)
		assert.True(t, strings.HasPrefix(got, "- **Qualitative Insights**:"))
		assert.Contains(t, got, "- Something notable.")
	})
}
