package llms

import (
	"context"
	"errors"

	"github.com/paperqa/paperqa/schema"
)

// Model is a text-generation model. Calls block on network I/O and honor the
// deadline carried by ctx; there is no built-in retry.
type Model interface {
	GenerateContent(ctx context.Context, messages []schema.MessageContent, options ...CallOption) (*ContentResponse, error)
	Call(ctx context.Context, prompt string, options ...CallOption) (string, error)
}

type ContentResponse struct {
	Choices []*ContentChoice
}

type ContentChoice struct {
	Content    string
	StopReason string
}

// GenerateFromSinglePrompt wraps a bare prompt into a single human message
// and returns the first choice's content.
func GenerateFromSinglePrompt(ctx context.Context, llm Model, prompt string, options ...CallOption) (string, error) {
	msg := schema.NewHumanMessage(prompt)

	resp, err := llm.GenerateContent(ctx, []schema.MessageContent{msg}, options...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) < 1 {
		return "", errors.New("empty response from model")
	}
	return resp.Choices[0].Content, nil
}
