package server

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/emicklei/go-restful/v3"

	"github.com/paperqa/paperqa/chains"
	"github.com/paperqa/paperqa/documentloaders"
	"github.com/paperqa/paperqa/embeddings"
	"github.com/paperqa/paperqa/schema"
	"github.com/paperqa/paperqa/tools"
	"github.com/paperqa/paperqa/vectorstores"
)

// Handler serves the document question-answering API.
type Handler struct {
	qa        *chains.DocumentQA
	index     vectorstores.Index
	embedder  embeddings.Embedder
	loader    *documentloaders.PDFLoader
	runner    *tools.Runner
	uploadDir string
	logger    *slog.Logger
}

func NewHandler(
	qa *chains.DocumentQA,
	index vectorstores.Index,
	embedder embeddings.Embedder,
	loader *documentloaders.PDFLoader,
	runner *tools.Runner,
	uploadDir string,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		qa:        qa,
		index:     index,
		embedder:  embedder,
		loader:    loader,
		runner:    runner,
		uploadDir: uploadDir,
		logger:    logger.With("component", "server"),
	}
}

// UploadPDFs handles POST /api/upload_pdfs. Each upload batch replaces the
// whole index: reset, save the files, extract and chunk them, embed and add.
func (h *Handler) UploadPDFs(req *restful.Request, resp *restful.Response) {
	ctx := req.Request.Context()

	if err := req.Request.ParseMultipartForm(128 << 20); err != nil {
		writeError(resp, http.StatusBadRequest, fmt.Sprintf("Invalid multipart request: %v", err))
		return
	}
	form := req.Request.MultipartForm
	if form == nil || len(form.File["files"]) == 0 {
		writeError(resp, http.StatusBadRequest, "No files provided")
		return
	}

	if err := h.index.Reset(ctx); err != nil {
		h.logger.Error("Failed to reset index before upload", "error", err)
		writeError(resp, http.StatusInternalServerError, fmt.Sprintf("Error processing PDFs: %v", err))
		return
	}
	h.logger.Info("Reset vector index before processing new PDFs")

	var paths, names []string
	for _, header := range form.File["files"] {
		name := filepath.Base(header.Filename)
		if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
			writeError(resp, http.StatusBadRequest, fmt.Sprintf("File %s is not a PDF", name))
			return
		}
		path, err := h.saveUpload(header, name)
		if err != nil {
			h.logger.Error("Failed to save upload", "file", name, "error", err)
			writeError(resp, http.StatusInternalServerError, fmt.Sprintf("Error processing PDFs: %v", err))
			return
		}
		paths = append(paths, path)
		names = append(names, name)
		h.logger.Info("Saved file", "path", path)
	}

	chunks, err := h.loader.LoadAll(ctx, paths)
	if err != nil {
		writeError(resp, http.StatusBadRequest, "No text extracted from the provided PDFs")
		return
	}
	h.logger.Info("Extracted chunks from PDFs", "chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := h.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		h.logger.Error("Failed to embed chunks", "error", err)
		writeError(resp, http.StatusInternalServerError, fmt.Sprintf("Error processing PDFs: %v", err))
		return
	}
	if err := h.index.Add(ctx, vectors, chunks); err != nil {
		h.logger.Error("Failed to index chunks", "error", err)
		writeError(resp, http.StatusInternalServerError, fmt.Sprintf("Error processing PDFs: %v", err))
		return
	}

	resp.WriteHeaderAndEntity(http.StatusOK, UploadResponse{
		Message: fmt.Sprintf("Successfully processed %d PDFs with %d chunks", len(names), len(chunks)),
		Files:   names,
	})
}

func (h *Handler) saveUpload(header *multipart.FileHeader, name string) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(h.uploadDir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return path, nil
}

// Query handles POST /api/query. When the first answer declines, the query is
// rephrased once and retried. Failures never surface as HTTP errors; the
// client always receives an answer-shaped body.
func (h *Handler) Query(req *restful.Request, resp *restful.Response) {
	ctx := req.Request.Context()

	var request QueryRequest
	if err := req.ReadEntity(&request); err != nil || strings.TrimSpace(request.Query) == "" {
		writeError(resp, http.StatusBadRequest, "Request body must contain a query")
		return
	}

	answer, err := h.qa.GenerateAnswer(ctx, request.Query, request.Document)
	if err == nil && chains.NeedsRetry(answer.Text) {
		answer, err = h.qa.GenerateAnswer(ctx, chains.RetryQuery(request.Query), request.Document)
	}
	if err != nil {
		h.logger.Error("Error processing query", "error", err)
		resp.WriteHeaderAndEntity(http.StatusOK, QueryResponse{
			Answer:    "Error processing your query. Please try again or rephrase your question.",
			Citations: "None",
		})
		return
	}

	resp.WriteHeaderAndEntity(http.StatusOK, QueryResponse{
		Answer:    answer.Text,
		Citations: formatCitations(answer.Chunks),
	})
}

// formatCitations links each distinct page of the first cited document, in
// ascending page order.
func formatCitations(chunks []schema.SearchResult) string {
	if len(chunks) == 0 {
		return "No specific citations found"
	}

	seen := make(map[int]struct{})
	var pages []int
	for _, chunk := range chunks {
		if _, ok := seen[chunk.Page]; !ok {
			seen[chunk.Page] = struct{}{}
			pages = append(pages, chunk.Page)
		}
	}
	sort.Ints(pages)

	document := chunks[0].Document
	links := make([]string, len(pages))
	for i, page := range pages {
		links[i] = fmt.Sprintf(`<a href="/pdf?page=%d&pdf_name=%s">Page %d</a>`, page, document, page)
	}
	return strings.Join(links, ", ")
}

// toolHandler builds the handler for one content tool endpoint. The response
// body keys the result by the tool's own name.
func (h *Handler) toolHandler(toolName, emptyMessage string) restful.RouteFunction {
	return func(req *restful.Request, resp *restful.Response) {
		ctx := req.Request.Context()
		document := req.QueryParameter("document")

		docContext, _, err := h.qa.FullContext(ctx, document)
		if err != nil {
			h.logger.Error("Failed to build document context", "tool", toolName, "error", err)
			resp.WriteHeaderAndEntity(http.StatusOK, map[string]string{
				toolName:    fmt.Sprintf("Error generating %s: %v", toolName, err),
				"citations": "None",
			})
			return
		}
		if docContext == "" {
			resp.WriteHeaderAndEntity(http.StatusOK, map[string]string{
				toolName:    emptyMessage,
				"citations": "None",
			})
			return
		}

		result, err := h.runner.Run(ctx, toolName, docContext)
		if err != nil {
			h.logger.Error("Tool execution failed", "tool", toolName, "error", err)
			result = fmt.Sprintf("Error generating %s: %v", toolName, err)
		}
		resp.WriteHeaderAndEntity(http.StatusOK, map[string]string{
			toolName:    result,
			"citations": "None",
		})
	}
}

// ResetIndex handles POST /api/reset_index.
func (h *Handler) ResetIndex(req *restful.Request, resp *restful.Response) {
	if err := h.index.Reset(req.Request.Context()); err != nil {
		h.logger.Error("Error resetting index", "error", err)
		writeError(resp, http.StatusInternalServerError, fmt.Sprintf("Error resetting index: %v", err))
		return
	}
	resp.WriteHeaderAndEntity(http.StatusOK, MessageResponse{Message: "Vector index reset successfully"})
}

// GetPDF handles GET /api/get_pdf, serving a previously uploaded file inline.
func (h *Handler) GetPDF(req *restful.Request, resp *restful.Response) {
	name := filepath.Base(req.QueryParameter("pdf_name"))
	if name == "." || name == string(filepath.Separator) {
		writeError(resp, http.StatusBadRequest, "pdf_name query parameter is required")
		return
	}

	path := filepath.Join(h.uploadDir, name)
	if _, err := os.Stat(path); err != nil {
		writeError(resp, http.StatusNotFound, fmt.Sprintf("PDF not found at %s", path))
		return
	}

	resp.AddHeader("Content-Type", "application/pdf")
	resp.AddHeader("Content-Disposition", fmt.Sprintf("inline; filename=%s", name))
	http.ServeFile(resp.ResponseWriter, req.Request, path)
}

// Health handles GET /.
func (h *Handler) Health(req *restful.Request, resp *restful.Response) {
	resp.WriteHeaderAndEntity(http.StatusOK, MessageResponse{Message: "PDF Reasoner API is running"})
}

func writeError(resp *restful.Response, status int, detail string) {
	resp.WriteHeaderAndEntity(status, ErrorResponse{Detail: detail})
}
