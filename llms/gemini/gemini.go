// Package gemini implements llms.Model against the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/paperqa/paperqa/llms"
	"github.com/paperqa/paperqa/schema"
)

var (
	ErrMissingAPIKey = errors.New("gemini: api key is required")
	ErrEmptyResponse = errors.New("gemini: empty response received")
)

const defaultModel = "gemini-2.0-flash"

type LLM struct {
	client  *genai.Client
	options options
	logger  *slog.Logger
}

var _ llms.Model = (*LLM)(nil)

func New(ctx context.Context, opts ...Option) (*LLM, error) {
	o := applyOptions(opts...)
	if o.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: o.apiKey})
	if err != nil {
		return nil, fmt.Errorf("gemini: client creation failed: %w", err)
	}

	llm := &LLM{
		client:  client,
		options: o,
		logger:  o.logger.With("component", "gemini_llm", "model", o.model),
	}
	llm.logger.Info("Gemini LLM initialized")
	return llm, nil
}

func (g *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, g, prompt, options...)
}

func (g *LLM) GenerateContent(ctx context.Context, messages []schema.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if len(messages) == 0 {
		return nil, errors.New("gemini: no messages provided")
	}
	start := time.Now()
	opts := llms.ParseCallOptions(options...)

	genConfig := &genai.GenerateContentConfig{}
	if opts.Temperature > 0 {
		genConfig.Temperature = genai.Ptr(float32(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(opts.MaxTokens)
	}

	model := g.options.model
	if opts.Model != "" {
		model = opts.Model
	}

	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		role := genai.RoleUser
		if msg.Role == schema.ChatMessageTypeAI {
			role = genai.RoleModel
		}
		// Gemini has no separate system role; system prompts go in as user turns.
		contents = append(contents, genai.NewContentFromText(msg.GetTextContent(), genai.Role(role)))
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, genConfig)
	duration := time.Since(start)
	if err != nil {
		g.logger.ErrorContext(ctx, "Gemini request failed", "error", err, "duration", duration)
		return nil, fmt.Errorf("gemini: generation failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, ErrEmptyResponse
	}

	g.logger.DebugContext(ctx, "Gemini request completed", "response_length", len(text), "duration", duration)
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text}},
	}, nil
}
