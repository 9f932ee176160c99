// Package documentloaders turns uploaded files into indexable chunks.
package documentloaders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/paperqa/paperqa/schema"
	"github.com/paperqa/paperqa/textsplitter"
)

// ErrNoText is returned when no chunk could be extracted from any input.
var ErrNoText = errors.New("documentloaders: no text extracted from the provided PDFs")

// PDFLoader extracts text from PDF files page by page and splits each page
// into chunks carrying the page number and file name.
type PDFLoader struct {
	splitter textsplitter.Splitter
	logger   *slog.Logger
}

func NewPDFLoader(splitter textsplitter.Splitter, opts ...Option) *PDFLoader {
	o := applyOptions(opts...)
	return &PDFLoader{
		splitter: splitter,
		logger:   o.logger.With("component", "pdf_loader"),
	}
}

// LoadAll processes every path and concatenates the resulting chunks. A file
// that cannot be read is logged and skipped; the call fails with ErrNoText
// only when nothing usable came out of the whole batch.
func (l *PDFLoader) LoadAll(ctx context.Context, paths []string) ([]schema.Chunk, error) {
	var all []schema.Chunk
	for _, path := range paths {
		chunks, err := l.Load(ctx, path)
		if err != nil {
			l.logger.Error("Failed to process PDF", "path", path, "error", err)
			continue
		}
		all = append(all, chunks...)
	}
	if len(all) == 0 {
		return nil, ErrNoText
	}
	return all, nil
}

// Load extracts and chunks a single PDF. Pages without extractable text are
// skipped.
func (l *PDFLoader) Load(ctx context.Context, path string) ([]schema.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("reading PDF %s: %w", path, err)
	}

	name := filepath.Base(path)
	numPages := reader.NumPage()

	var chunks []schema.Chunk
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			l.logger.Warn("Skipping null page", "page", i, "document", name)
			continue
		}

		text := l.pageText(page, i, name)
		if text == "" {
			continue
		}

		parts, err := l.splitter.SplitText(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("splitting page %d of %s: %w", i, name, err)
		}
		for _, part := range parts {
			chunks = append(chunks, schema.NewChunk(part, i, name))
		}
	}

	l.logger.Info("Processed PDF", "document", name, "pages", numPages, "chunks", len(chunks))
	return chunks, nil
}

// pageText extracts the plain text of one page, falling back to concatenating
// the raw content tokens when the structured extraction yields nothing.
func (l *PDFLoader) pageText(page pdf.Page, pageNum int, name string) string {
	if text, err := page.GetPlainText(nil); err == nil && strings.TrimSpace(text) != "" {
		return cleanExtractedText(text)
	}

	var b strings.Builder
	content := page.Content()
	for i, token := range content.Text {
		b.WriteString(token.S)
		if i < len(content.Text)-1 && !strings.HasSuffix(token.S, " ") && !strings.HasSuffix(token.S, "\n") {
			b.WriteString(" ")
		}
	}

	if text := b.String(); strings.TrimSpace(text) != "" {
		return cleanExtractedText(text)
	}

	l.logger.Debug("No text extracted from page", "page", pageNum, "document", name)
	return ""
}

var (
	runSpacesRE  = regexp.MustCompile(`[ \t]+`)
	blankLineRE  = regexp.MustCompile(`\n[ \t]*\n`)
	blankLinesRE = regexp.MustCompile(`\n{3,}`)
)

// cleanExtractedText normalizes whitespace and the ligatures that commonly
// survive PDF extraction.
func cleanExtractedText(text string) string {
	text = runSpacesRE.ReplaceAllString(text, " ")
	text = blankLineRE.ReplaceAllString(text, "\n\n")
	text = blankLinesRE.ReplaceAllString(text, "\n\n")

	replacer := strings.NewReplacer(
		"ﬀ", "ff",
		"ﬁ", "fi",
		"ﬂ", "fl",
		"ﬃ", "ffi",
		"ﬄ", "ffl",
	)
	return strings.TrimSpace(replacer.Replace(text))
}
