package gemini

import "log/slog"

type options struct {
	apiKey string
	model  string
	logger *slog.Logger
}

type Option func(*options)

func WithAPIKey(key string) Option {
	return func(o *options) {
		o.apiKey = key
	}
}

func WithModel(model string) Option {
	return func(o *options) {
		if model != "" {
			o.model = model
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
		model:  defaultModel,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
