// Package dedupe remembers submit tokens so a replayed form is not accepted twice.
package dedupe

import (
	"context"
	"sync"

	"github.com/dboslee/lru"
)

const defaultMaxSize = 50_000

// Deduper records seen submit tokens.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so it may be retried. Use it only when a recorded
	// submission could not be handed off (e.g. queue backpressure).
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper keeps the most recently submitted tokens in an LRU when
// bounded, or in a plain set when maxSize <= 0.
type inMemoryDeduper struct {
	mu      sync.Mutex
	maxSize int
	recent  *lru.Cache[string, struct{}]
	all     map[string]struct{}
}

// NewInMemoryDeduper creates a deduper with the given options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}

	if d.maxSize > 0 {
		d.recent = lru.New[string, struct{}](lru.WithCapacity(d.maxSize))
	} else {
		d.all = make(map[string]struct{})
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.recent != nil {
		if _, ok := d.recent.Get(id); ok {
			return true
		}
		d.recent.Set(id, struct{}{})
		return false
	}

	if _, ok := d.all[id]; ok {
		return true
	}
	d.all[id] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.recent != nil {
		d.recent.Delete(id)
		return
	}
	delete(d.all, id)
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.recent != nil {
		return int64(d.recent.Len())
	}
	return int64(len(d.all))
}
