package openaichat

import (
	"log/slog"
	"time"
)

type options struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	logger      *slog.Logger
}

type Option func(*options)

func WithAPIKey(key string) Option {
	return func(o *options) {
		o.apiKey = key
	}
}

// WithBaseURL points the client at an OpenAI-compatible gateway. Empty means
// the public OpenAI API.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

func WithModel(model string) Option {
	return func(o *options) {
		o.model = model
	}
}

func WithTemperature(temperature float64) Option {
	return func(o *options) {
		if temperature > 0 {
			o.temperature = temperature
		}
	}
}

func WithMaxTokens(maxTokens int) Option {
	return func(o *options) {
		if maxTokens > 0 {
			o.maxTokens = maxTokens
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func applyOptions(opts ...Option) options {
	o := options{
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
		timeout:     50 * time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
