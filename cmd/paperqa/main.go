// Command paperqa runs the PDF question-answering service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/paperqa/paperqa/chains"
	"github.com/paperqa/paperqa/config"
	"github.com/paperqa/paperqa/documentloaders"
	"github.com/paperqa/paperqa/embeddings"
	openaiembed "github.com/paperqa/paperqa/embeddings/openai"
	"github.com/paperqa/paperqa/embeddings/stapi"
	"github.com/paperqa/paperqa/llms"
	"github.com/paperqa/paperqa/llms/gemini"
	"github.com/paperqa/paperqa/llms/ollama"
	"github.com/paperqa/paperqa/llms/openaichat"
	"github.com/paperqa/paperqa/server"
	"github.com/paperqa/paperqa/textsplitter"
	"github.com/paperqa/paperqa/tools"
	"github.com/paperqa/paperqa/vectorstores"
	"github.com/paperqa/paperqa/vectorstores/flat"
	"github.com/paperqa/paperqa/vectorstores/qdrant"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	embedder, err := buildEmbedder(cfg, logger)
	if err != nil {
		return fmt.Errorf("building embedder: %w", err)
	}

	index, err := buildIndex(cfg, logger)
	if err != nil {
		return fmt.Errorf("building index: %w", err)
	}

	llm, err := buildLLM(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("building llm: %w", err)
	}

	splitter, err := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(cfg.Chunking.Size),
		textsplitter.WithChunkOverlap(cfg.Chunking.Overlap),
	)
	if err != nil {
		return err
	}
	loader := documentloaders.NewPDFLoader(splitter, documentloaders.WithLogger(logger))

	qa := chains.NewDocumentQA(embedder, index, llm,
		chains.WithTopK(cfg.Retrieval.TopK),
		chains.WithMaxContextChars(cfg.Retrieval.MaxContextChars),
		chains.WithStrictFilter(cfg.Retrieval.StrictFilter),
		chains.WithLogger(logger),
	)

	handler := server.NewHandler(qa, index, embedder, loader, tools.NewRunner(llm, logger), cfg.Server.UploadDir, logger)
	srv := server.New(cfg.Server.Addr, cfg.Server.AllowedOrigins, handler, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildEmbedder(cfg *config.Config, logger *slog.Logger) (embeddings.Embedder, error) {
	switch cfg.Embedder.Provider {
	case "stapi":
		client, err := stapi.New(cfg.Embedder.BaseURL,
			stapi.WithAPIKey(cfg.Embedder.APIKey()),
			stapi.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return embeddings.NewEmbedder(client)
	case "openai":
		client, err := openaiembed.New(cfg.Embedder.APIKey(), cfg.Embedder.BaseURL, cfg.Embedder.Model)
		if err != nil {
			return nil, err
		}
		return embeddings.NewEmbedder(client)
	case "ollama":
		client, err := ollama.New(
			ollama.WithModel(cfg.Embedder.Model),
			ollama.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return embeddings.NewEmbedder(client)
	default:
		return nil, fmt.Errorf("unknown embedder provider %q", cfg.Embedder.Provider)
	}
}

func buildIndex(cfg *config.Config, logger *slog.Logger) (vectorstores.Index, error) {
	switch cfg.Index.Backend {
	case "flat":
		return flat.New(cfg.Index.Dimension,
			flat.WithPath(cfg.Index.Path),
			flat.WithLogger(logger),
		)
	case "qdrant":
		qc := cfg.Index.Qdrant
		if qc == nil {
			return nil, errors.New("qdrant backend selected without a qdrant section")
		}
		return qdrant.New(
			qdrant.WithHostAndPort(qc.Host, qc.Port),
			qdrant.WithAPIKey(qc.APIKey()),
			qdrant.WithCollectionName(qc.Collection),
			qdrant.WithDimension(cfg.Index.Dimension),
			qdrant.WithLogger(logger),
		)
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}
}

func buildLLM(ctx context.Context, cfg *config.Config, logger *slog.Logger) (llms.Model, error) {
	switch cfg.LLM.Provider {
	case "openaichat":
		return openaichat.New(
			openaichat.WithAPIKey(cfg.LLM.APIKey()),
			openaichat.WithBaseURL(cfg.LLM.BaseURL),
			openaichat.WithModel(cfg.LLM.Model),
			openaichat.WithTemperature(cfg.LLM.Temperature),
			openaichat.WithMaxTokens(cfg.LLM.MaxTokens),
			openaichat.WithTimeout(time.Duration(cfg.LLM.TimeoutSecs)*time.Second),
			openaichat.WithLogger(logger),
		)
	case "gemini":
		return gemini.New(ctx,
			gemini.WithAPIKey(cfg.LLM.APIKey()),
			gemini.WithModel(cfg.LLM.Model),
			gemini.WithLogger(logger),
		)
	case "ollama":
		return ollama.New(
			ollama.WithModel(cfg.LLM.Model),
			ollama.WithLogger(logger),
		)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}
