package schema

import "fmt"

// Chunk is the atomic retrieval unit: a piece of text extracted from a source
// document together with its provenance. Chunks are produced once at ingestion
// time and are immutable afterwards; the index only appends them in bulk or
// discards them all on reset.
type Chunk struct {
	Text     string `json:"text"`
	Page     int    `json:"page"`     // 1-based source page number
	Document string `json:"document"` // source document name (filename)
}

func NewChunk(text string, page int, document string) Chunk {
	return Chunk{
		Text:     text,
		Page:     page,
		Document: document,
	}
}

// SearchResult is a single similarity-search hit. Distance is squared
// Euclidean; embeddings are L2-normalized, so lower means more similar.
type SearchResult struct {
	Text     string
	Distance float32
	Page     int
	Document string
}

func (r SearchResult) String() string {
	return fmt.Sprintf("%s, page %d (distance %.4f)", r.Document, r.Page, r.Distance)
}

// Chunk converts the result back into its source chunk form.
func (r SearchResult) Chunk() Chunk {
	return Chunk{Text: r.Text, Page: r.Page, Document: r.Document}
}
