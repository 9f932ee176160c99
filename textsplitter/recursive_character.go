package textsplitter

import (
	"context"
	"fmt"
	"strings"
)

// defaultSeparators are tried largest-first so paragraph and sentence
// boundaries survive splitting whenever possible. The empty separator is the
// terminal fallback that cuts mid-word.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// RecursiveCharacter splits text by recursively descending through a list of
// separators, keeping semantically related runs together as long as they fit
// the chunk size.
type RecursiveCharacter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

var _ Splitter = (*RecursiveCharacter)(nil)

// NewRecursiveCharacter builds a splitter with a 1000-character chunk size
// and a 200-character overlap unless configured otherwise.
func NewRecursiveCharacter(opts ...Option) (*RecursiveCharacter, error) {
	o := options{
		chunkSize:    defaultChunkSize,
		chunkOverlap: defaultChunkOverlap,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.chunkOverlap >= o.chunkSize {
		return nil, fmt.Errorf("textsplitter: chunk overlap (%d) must be smaller than chunk size (%d)",
			o.chunkOverlap, o.chunkSize)
	}

	return &RecursiveCharacter{
		chunkSize:    o.chunkSize,
		chunkOverlap: o.chunkOverlap,
		separators:   defaultSeparators,
	}, nil
}

// SplitText splits text into chunks of at most the configured size. Whitespace-
// only input yields no chunks.
func (s *RecursiveCharacter) SplitText(_ context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	chunks := s.split(text, s.separators)

	out := chunks[:0]
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk) != "" {
			out = append(out, chunk)
		}
	}
	return out, nil
}

func (s *RecursiveCharacter) split(text string, separators []string) []string {
	if len(text) <= s.chunkSize || len(separators) == 0 {
		return []string{text}
	}

	separator := separators[0]
	rest := separators[1:]
	if separator == "" {
		return s.splitFixed(text)
	}

	var merged []string
	current := ""
	for _, part := range strings.Split(text, separator) {
		if part == "" {
			continue
		}
		switch {
		case current == "":
			current = part
		case len(current)+len(separator)+len(part) <= s.chunkSize:
			current += separator + part
		default:
			merged = append(merged, current)
			current = s.overlapTail(current) + part
		}
	}
	if current != "" {
		merged = append(merged, current)
	}

	var chunks []string
	for _, piece := range merged {
		if len(piece) <= s.chunkSize {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, rest)...)
		}
	}
	return chunks
}

// splitFixed cuts text into fixed windows, stepping by chunkSize minus the
// overlap. Last resort for text without any usable separator.
func (s *RecursiveCharacter) splitFixed(text string) []string {
	step := s.chunkSize - s.chunkOverlap

	var chunks []string
	for start := 0; start < len(text); start += step {
		end := start + s.chunkSize
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}
		chunks = append(chunks, text[start:end])
	}
	return chunks
}

// overlapTail returns the trailing overlap of a finished chunk, carried into
// the start of the next one for continuity across chunk boundaries.
func (s *RecursiveCharacter) overlapTail(chunk string) string {
	if s.chunkOverlap <= 0 {
		return ""
	}
	if len(chunk) <= s.chunkOverlap {
		return chunk + " "
	}
	return chunk[len(chunk)-s.chunkOverlap:] + " "
}
