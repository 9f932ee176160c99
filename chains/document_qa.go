// Package chains wires embedders, vector indexes and language models into
// the retrieval flows the service exposes: grounded question answering and
// whole-document context extraction.
package chains

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/paperqa/paperqa/embeddings"
	"github.com/paperqa/paperqa/llms"
	"github.com/paperqa/paperqa/prompts"
	"github.com/paperqa/paperqa/schema"
	"github.com/paperqa/paperqa/vectorstores"
)

// Answer is the outcome of a question-answering run.
type Answer struct {
	// Text is the cleaned model response.
	Text string
	// Pages lists the page number of every chunk that backed the answer,
	// in retrieval order, duplicates included.
	Pages []int
	// Chunks are the retrieved results the context was assembled from.
	Chunks []schema.SearchResult
	// Degraded is set when the model call failed and Text carries an
	// error message instead of an answer.
	Degraded bool
}

// DocumentQA answers questions over an indexed document corpus. A query is
// expanded into several phrasings, each phrasing is searched independently
// and the result set with best top-1 distance wins.
type DocumentQA struct {
	embedder embeddings.Embedder
	index    vectorstores.Index
	llm      llms.Model
	logger   *slog.Logger

	topK            int
	maxContextChars int
	strictFilter    bool
}

// NewDocumentQA builds a chain over the given embedder, index and model.
func NewDocumentQA(embedder embeddings.Embedder, index vectorstores.Index, llm llms.Model, opts ...Option) *DocumentQA {
	o := applyOptions(opts...)
	return &DocumentQA{
		embedder:        embedder,
		index:           index,
		llm:             llm,
		logger:          o.logger.With("component", "chains.document_qa"),
		topK:            o.topK,
		maxContextChars: o.maxContextChars,
		strictFilter:    o.strictFilter,
	}
}

// GenerateAnswer retrieves context for query and asks the model. When
// document is non-empty, retrieval is restricted to chunks from that
// document. A model failure does not abort the call: the returned Answer
// carries the error text and the Degraded flag instead.
func (c *DocumentQA) GenerateAnswer(ctx context.Context, query, document string) (*Answer, error) {
	c.logger.Info("processing query", "query", query, "document", document)

	best, err := c.retrieve(ctx, query, document)
	if err != nil {
		return nil, err
	}

	if len(best) == 0 {
		best, err = c.fallbackChunks(ctx, document)
		if err != nil {
			return nil, err
		}
	}

	answer := &Answer{Chunks: best}
	for _, r := range best {
		answer.Pages = append(answer.Pages, r.Page)
	}

	prompt := prompts.FormatAnswer(query, assembleContext(best))
	text, err := c.llm.Call(ctx, prompt)
	if err != nil {
		c.logger.Error("model call failed", "error", err)
		answer.Text = fmt.Sprintf("Error generating response: %v", err)
		answer.Degraded = true
		return answer, nil
	}

	answer.Text = CleanResponse(text)
	return answer, nil
}

// retrieve searches the index once per query variation and keeps the result
// set whose closest hit is strictly nearer than the current best.
func (c *DocumentQA) retrieve(ctx context.Context, query, document string) ([]schema.SearchResult, error) {
	var best []schema.SearchResult

	for _, variation := range queryVariations(query) {
		vector, err := c.embedder.EmbedQuery(ctx, variation)
		if err != nil {
			return nil, fmt.Errorf("embedding query variation: %w", err)
		}

		results, err := c.index.Search(ctx, vector, c.topK, vectorstores.WithDocument(document))
		if err != nil {
			return nil, fmt.Errorf("searching index: %w", err)
		}

		if len(results) > 0 && (len(best) == 0 || results[0].Distance < best[0].Distance) {
			best = results
		}
	}
	return best, nil
}

// fallbackChunks returns the first topK indexed chunks in insertion order,
// reported at distance zero, so the model still sees some context when
// vector search comes back empty.
func (c *DocumentQA) fallbackChunks(ctx context.Context, document string) ([]schema.SearchResult, error) {
	c.logger.Warn("no relevant results found, using fallback chunks", "document", document)

	chunks, err := c.index.Chunks(ctx, document, c.topK)
	if err != nil {
		return nil, fmt.Errorf("loading fallback chunks: %w", err)
	}

	results := make([]schema.SearchResult, 0, len(chunks))
	for _, chunk := range chunks {
		results = append(results, schema.SearchResult{
			Text:     chunk.Text,
			Distance: 0.0,
			Page:     chunk.Page,
			Document: chunk.Document,
		})
	}
	return results, nil
}

// FullContext concatenates every chunk of a document for the content tools.
// When the document filter matches nothing, the chain falls back to the whole
// index unless strict filtering is enabled. The context is truncated to the
// configured character limit and the page list is cut down proportionally,
// roughly one page per thousand characters.
func (c *DocumentQA) FullContext(ctx context.Context, document string) (string, []int, error) {
	chunks, err := c.index.Chunks(ctx, document, 0)
	if err != nil {
		return "", nil, fmt.Errorf("loading document chunks: %w", err)
	}

	if len(chunks) == 0 && document != "" && !c.strictFilter {
		c.logger.Warn("no chunks found, falling back to all available chunks", "document", document)
		chunks, err = c.index.Chunks(ctx, "", 0)
		if err != nil {
			return "", nil, fmt.Errorf("loading fallback chunks: %w", err)
		}
	}

	texts := make([]string, len(chunks))
	pages := make([]int, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
		pages[i] = chunk.Page
	}

	context := strings.Join(texts, "\n")
	if len(context) > c.maxContextChars {
		context = context[:c.maxContextChars]
		if keep := c.maxContextChars / 1000; keep < len(pages) {
			pages = pages[:keep]
		}
	}
	return context, pages, nil
}

// NeedsRetry reports whether answer looks like the model declined to answer
// and the query is worth one rephrased attempt.
func NeedsRetry(answer string) bool {
	lowered := strings.ToLower(answer)
	for _, phrase := range []string{"no relevant", "insufficient", "not found"} {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// RetryQuery rephrases a declined query for a second retrieval attempt.
func RetryQuery(query string) string {
	return "Explain in detail about: " + query
}

// queryVariations expands a query into alternative phrasings based on the
// kind of question it looks like. The original query always comes first and
// the categories stack, so a query can trigger several of them.
func queryVariations(query string) []string {
	variations := []string{query}
	lowered := strings.ToLower(query)

	if containsAny(lowered, "what is", "define", "definition") {
		variations = append(variations,
			"Explain: "+query,
			"Provide detailed explanation of: "+query,
		)
	}
	if containsAny(lowered, "formula", "equation", "calculate", "derive") {
		variations = append(variations,
			"Mathematical formulation of: "+query,
			"Explain the derivation of: "+query,
		)
	}
	if containsAny(lowered, "compare", "difference", "similar") {
		variations = append(variations, "Key differences and similarities: "+query)
	}
	return variations
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// assembleContext formats retrieved chunks into the prompt context. Chunks
// mentioning mathematical content are moved to the front so the model sees
// them before the limit of its attention window; within each group the
// retrieval order is preserved.
func assembleContext(results []schema.SearchResult) string {
	var technical, general []string

	for _, r := range results {
		entry := fmt.Sprintf("From %s, page %d:\n%s", r.Document, r.Page, r.Text)
		if containsAny(strings.ToLower(r.Text), "formula", "equation", "theorem", "proof") {
			technical = append(technical, entry)
		} else {
			general = append(general, entry)
		}
	}
	return strings.Join(append(technical, general...), "\n\n")
}

var (
	boldRE     = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRE   = regexp.MustCompile(`\*([^*]+)\*`)
	headerRE   = regexp.MustCompile(`(?m)^#+.*\n`)
	newlinesRE = regexp.MustCompile(`\n{3,}`)
)

// CleanResponse strips markdown emphasis and headers from a model response
// and collapses runs of blank lines.
func CleanResponse(response string) string {
	response = boldRE.ReplaceAllString(response, "$1")
	response = italicRE.ReplaceAllString(response, "$1")
	response = headerRE.ReplaceAllString(response, "")
	response = newlinesRE.ReplaceAllString(response, "\n\n")
	return strings.TrimSpace(response)
}
