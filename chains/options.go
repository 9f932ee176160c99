package chains

import "log/slog"

const (
	defaultTopK            = 5
	defaultMaxContextChars = 10000
)

type options struct {
	logger          *slog.Logger
	topK            int
	maxContextChars int
	strictFilter    bool
}

type Option func(*options)

// WithTopK sets how many chunks each retrieval returns.
func WithTopK(k int) Option {
	return func(o *options) {
		if k > 0 {
			o.topK = k
		}
	}
}

// WithMaxContextChars caps the length of the context built by FullContext.
func WithMaxContextChars(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxContextChars = n
		}
	}
}

// WithStrictFilter disables the whole-index fallback when a document filter
// matches no chunks.
func WithStrictFilter(strict bool) Option {
	return func(o *options) {
		o.strictFilter = strict
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
		logger:          slog.Default(),
		topK:            defaultTopK,
		maxContextChars: defaultMaxContextChars,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
