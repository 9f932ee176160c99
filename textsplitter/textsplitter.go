// Package textsplitter breaks extracted document text into chunks sized for
// embedding.
package textsplitter

import "context"

// Splitter splits a text into chunks.
type Splitter interface {
	SplitText(ctx context.Context, text string) ([]string, error)
}
