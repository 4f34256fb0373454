package dedupe

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize sets how many tokens are remembered.
// If maxSize > 0 the least recently seen token is evicted first.
// If maxSize <= 0 every token is kept.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}
