package embeddings

const (
	defaultBatchSize     = 32
	defaultMaxConcurrent = 8
)

type options struct {
	StripNewLines bool
	BatchSize     int
	MaxConcurrent int
}

type Option func(*options)

// WithBatchSize sets how many texts are sent to the provider per request.
func WithBatchSize(size int) Option {
	return func(opts *options) {
		opts.BatchSize = size
	}
}

// WithStripNewLines controls whether newlines are replaced with spaces
// before embedding. Enabled by default.
func WithStripNewLines(strip bool) Option {
	return func(opts *options) {
		opts.StripNewLines = strip
	}
}

// WithMaxConcurrent caps the number of embedding batches in flight at once.
func WithMaxConcurrent(n int) Option {
	return func(opts *options) {
		opts.MaxConcurrent = n
	}
}
