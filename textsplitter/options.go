package textsplitter

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

type options struct {
	chunkSize    int
	chunkOverlap int
}

type Option func(*options)

// WithChunkSize sets the target chunk size in characters.
func WithChunkSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.chunkSize = size
		}
	}
}

// WithChunkOverlap sets how many characters consecutive chunks share.
func WithChunkOverlap(overlap int) Option {
	return func(o *options) {
		if overlap >= 0 {
			o.chunkOverlap = overlap
		}
	}
}
