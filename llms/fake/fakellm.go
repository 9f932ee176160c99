// Package fake provides a scripted LLM implementation for tests.
package fake

import (
	"context"
	"errors"
	"sync"

	"github.com/paperqa/paperqa/llms"
	"github.com/paperqa/paperqa/schema"
)

var _ llms.Model = (*LLM)(nil)

// LLM cycles through a fixed list of responses and records the prompts
// it was called with.
type LLM struct {
	mu         sync.Mutex
	responses  []string
	index      int
	lastPrompt string
	prompts    []string
	callCount  int
	err        error
}

func NewFakeLLM(responses []string) *LLM {
	return &LLM{
		responses: responses,
	}
}

// GenerateContent returns the next scripted response in the cycle.
func (f *LLM) GenerateContent(
	_ context.Context,
	messages []schema.MessageContent,
	_ ...llms.CallOption,
) (*llms.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return nil, errors.New("fake: no responses configured")
	}

	if len(messages) > 0 {
		prompt := messages[len(messages)-1].GetTextContent()
		f.lastPrompt = prompt
		f.prompts = append(f.prompts, prompt)
	}
	f.callCount++

	response := f.responses[f.index]
	f.index = (f.index + 1) % len(f.responses)

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{Content: response},
		},
	}, nil
}

// Call generates a response for a plain string prompt.
func (f *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := f.GenerateContent(ctx, []schema.MessageContent{schema.NewHumanMessage(prompt)}, options...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("fake: empty response from model")
	}
	return resp.Choices[0].Content, nil
}

// SetError makes every subsequent call fail with err until Reset.
func (f *LLM) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// AddResponse appends another scripted response.
func (f *LLM) AddResponse(response string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, response)
}

// Reset clears the cycle position, the recorded prompts and any injected error.
func (f *LLM) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index = 0
	f.callCount = 0
	f.lastPrompt = ""
	f.prompts = nil
	f.err = nil
}

// LastPrompt returns the most recent prompt sent to the model.
func (f *LLM) LastPrompt() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPrompt, f.lastPrompt != ""
}

// Prompts returns every prompt seen so far, in call order.
func (f *LLM) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.prompts))
	copy(out, f.prompts)
	return out
}

// GetCallCount returns the number of completed calls.
func (f *LLM) GetCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount
}
