package qdrant

import (
	"errors"
	"log/slog"
	"strings"
)

const (
	defaultHost = "localhost"
	defaultPort = 6334
)

var ErrInvalidOptions = errors.New("qdrant: invalid options provided")

type options struct {
	collectionName string
	host           string
	port           int
	apiKey         string
	dimension      int
	logger         *slog.Logger
}

type Option func(*options)

// WithCollectionName sets the collection holding the chunk points.
func WithCollectionName(name string) Option {
	return func(opts *options) {
		opts.collectionName = strings.TrimSpace(name)
	}
}

// WithHostAndPort sets the Qdrant gRPC endpoint.
func WithHostAndPort(host string, port int) Option {
	return func(opts *options) {
		if host != "" {
			opts.host = host
		}
		if port > 0 {
			opts.port = port
		}
	}
}

// WithAPIKey sets the API key for Qdrant authentication.
func WithAPIKey(apiKey string) Option {
	return func(opts *options) {
		opts.apiKey = strings.TrimSpace(apiKey)
	}
}

// WithDimension sets the vector width used when the collection is created.
func WithDimension(dimension int) Option {
	return func(opts *options) {
		opts.dimension = dimension
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		if logger != nil {
			opts.logger = logger
		}
	}
}

func parseOptions(opts ...Option) (options, error) {
	o := options{
		host: defaultHost,
		port: defaultPort,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.collectionName == "" {
		return o, errors.New("qdrant: collection name is required")
	}
	if o.dimension <= 0 {
		return o, errors.New("qdrant: dimension must be positive")
	}
	return o, nil
}
