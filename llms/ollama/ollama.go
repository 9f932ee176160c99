// Package ollama implements llms.Model and embeddings.Embedder against a
// local Ollama server, for fully self-hosted deployments.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/paperqa/paperqa/embeddings"
	"github.com/paperqa/paperqa/llms"
	"github.com/paperqa/paperqa/schema"
)

var (
	ErrEmptyResponse       = errors.New("ollama: empty response received")
	ErrIncompleteEmbedding = errors.New("ollama: not all input texts were embedded")
	ErrNoMessages          = errors.New("ollama: no messages provided")
	ErrInvalidModel        = errors.New("ollama: invalid model specified")
)

type LLM struct {
	client  *api.Client
	options options
	logger  *slog.Logger

	dimOnce   sync.Once
	dimension int
	dimErr    error
}

var (
	_ llms.Model          = (*LLM)(nil)
	_ embeddings.Embedder = (*LLM)(nil)
)

// New creates an Ollama client from the environment (OLLAMA_HOST).
func New(opts ...Option) (*LLM, error) {
	o := applyOptions(opts...)
	if o.model == "" {
		return nil, ErrInvalidModel
	}

	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}

	llm := &LLM{
		client:  client,
		options: o,
		logger:  o.logger.With("component", "ollama_llm", "model", o.model),
	}
	llm.logger.Info("Ollama LLM initialized")
	return llm, nil
}

func (o *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	start := time.Now()
	o.logger.DebugContext(ctx, "Starting simple call", "prompt_length", len(prompt))

	result, err := llms.GenerateFromSinglePrompt(ctx, o, prompt, options...)

	duration := time.Since(start)
	if err != nil {
		o.logger.ErrorContext(ctx, "Call failed", "error", err, "duration", duration)
		return "", err
	}
	o.logger.DebugContext(ctx, "Call completed", "response_length", len(result), "duration", duration)
	return result, nil
}

func (o *LLM) GenerateContent(ctx context.Context, messages []schema.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}
	opts := llms.ParseCallOptions(options...)

	model := o.options.model
	if opts.Model != "" {
		model = opts.Model
	}

	chatMessages := make([]api.Message, 0, len(messages))
	for _, msg := range messages {
		var role string
		switch msg.Role {
		case schema.ChatMessageTypeSystem:
			role = "system"
		case schema.ChatMessageTypeAI:
			role = "assistant"
		default:
			role = "user"
		}
		chatMessages = append(chatMessages, api.Message{
			Role:    role,
			Content: msg.GetTextContent(),
		})
	}

	requestOptions := map[string]any{}
	if opts.Temperature > 0 {
		requestOptions["temperature"] = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		requestOptions["num_predict"] = opts.MaxTokens
	}

	stream := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: chatMessages,
		Stream:   &stream,
		Options:  requestOptions,
	}

	var content strings.Builder
	var stopReason string
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		if resp.Done {
			stopReason = resp.DoneReason
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama: chat request failed: %w", err)
	}
	if content.Len() == 0 {
		return nil, ErrEmptyResponse
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{Content: content.String(), StopReason: stopReason},
		},
	}, nil
}

// EmbedDocuments embeds a batch of texts with the configured embedding model.
func (o *LLM) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := o.client.Embed(ctx, &api.EmbedRequest{
		Model: o.options.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama: embed request failed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, ErrIncompleteEmbedding
	}
	return resp.Embeddings, nil
}

func (o *LLM) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, embeddings.ErrEmptyText
	}
	vectors, err := o.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, ErrEmptyResponse
	}
	return vectors[0], nil
}

// GetDimension lazily probes the embedding dimension.
func (o *LLM) GetDimension(ctx context.Context) (int, error) {
	o.dimOnce.Do(func() {
		sample, err := o.EmbedQuery(ctx, "dimension_check")
		if err != nil {
			o.dimErr = fmt.Errorf("failed to get dimension: %w", err)
			return
		}
		o.dimension = len(sample)
	})
	return o.dimension, o.dimErr
}
