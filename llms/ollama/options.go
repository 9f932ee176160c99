package ollama

import "log/slog"

type options struct {
	model  string
	logger *slog.Logger
}

type Option func(*options)

// WithModel sets the Ollama model name used for both chat and embeddings.
func WithModel(model string) Option {
	return func(o *options) {
		o.model = model
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
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
