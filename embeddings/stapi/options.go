package stapi

import (
	"log/slog"
	"net/http"
	"time"
)

type options struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
}

// Option defines a function type for configuring the embedder.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     slog.Default(),
	}
}

// WithHTTPClient allows providing a custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithAPIKey sets the API key sent with every request.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.apiKey = key
	}
}
