// Package openaichat implements llms.Model against an OpenAI-compatible chat
// completions endpoint. This is the default answering model path: the service
// talks to a LiteLLM-style gateway in front of the actual model.
package openaichat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/paperqa/paperqa/llms"
	"github.com/paperqa/paperqa/schema"
)

var (
	ErrMissingAPIKey = errors.New("openaichat: api key is required")
	ErrMissingModel  = errors.New("openaichat: model is required")
	ErrEmptyResponse = errors.New("openaichat: empty response received")
)

const (
	defaultTemperature = 0.3
	defaultMaxTokens   = 1000
)

type LLM struct {
	client  *openai.Client
	options options
	logger  *slog.Logger
}

var _ llms.Model = (*LLM)(nil)

func New(opts ...Option) (*LLM, error) {
	o := applyOptions(opts...)
	if o.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if o.model == "" {
		return nil, ErrMissingModel
	}

	config := openai.DefaultConfig(o.apiKey)
	if o.baseURL != "" {
		config.BaseURL = o.baseURL
	}
	config.HTTPClient = &http.Client{Timeout: o.timeout}

	llm := &LLM{
		client:  openai.NewClientWithConfig(config),
		options: o,
		logger:  o.logger.With("component", "openaichat_llm", "model", o.model),
	}
	llm.logger.Info("Chat completions client initialized", "base_url", o.baseURL, "timeout", o.timeout)
	return llm, nil
}

// Call generates text for a bare prompt.
func (l *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	start := time.Now()
	l.logger.DebugContext(ctx, "Starting simple call", "prompt_length", len(prompt))

	result, err := llms.GenerateFromSinglePrompt(ctx, l, prompt, options...)

	duration := time.Since(start)
	if err != nil {
		l.logger.ErrorContext(ctx, "Call failed", "error", err, "duration", duration)
		return "", err
	}
	l.logger.DebugContext(ctx, "Call completed", "response_length", len(result), "duration", duration)
	return result, nil
}

func (l *LLM) GenerateContent(ctx context.Context, messages []schema.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.ParseCallOptions(options...)

	model := l.options.model
	if opts.Model != "" {
		model = opts.Model
	}
	temperature := l.options.temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}
	maxTokens := l.options.maxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	chatMessages, err := convertMessages(messages)
	if err != nil {
		return nil, err
	}

	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    chatMessages,
		Temperature: float32(temperature),
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("openaichat: chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choices := make([]*llms.ContentChoice, len(resp.Choices))
	for i, choice := range resp.Choices {
		choices[i] = &llms.ContentChoice{
			Content:    choice.Message.Content,
			StopReason: string(choice.FinishReason),
		}
	}
	return &llms.ContentResponse{Choices: choices}, nil
}

func convertMessages(messages []schema.MessageContent) ([]openai.ChatCompletionMessage, error) {
	if len(messages) == 0 {
		return nil, errors.New("openaichat: no messages provided")
	}

	converted := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		var role string
		switch msg.Role {
		case schema.ChatMessageTypeSystem:
			role = openai.ChatMessageRoleSystem
		case schema.ChatMessageTypeAI:
			role = openai.ChatMessageRoleAssistant
		default:
			role = openai.ChatMessageRoleUser
		}
		converted = append(converted, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.GetTextContent(),
		})
	}
	return converted, nil
}
