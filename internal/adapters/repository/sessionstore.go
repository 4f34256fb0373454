package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dboslee/lru"

	"github.com/okian/castform/internal/domain/session"
	"github.com/okian/castform/pkg/metrics"
)

const (
	defaultSessionCapacity = 10_000
	defaultShardCount      = 8
)

type shard struct {
	mu       sync.Mutex
	capacity int
	cache    *lru.Cache[string, *session.Session]
}

// ShardedSessionStore spreads sessions over LRU shards chosen by xxhash of
// the session id. Each shard evicts its least recently used session.
type ShardedSessionStore struct {
	shards   []*shard
	capacity int
}

// NewShardedSessionStore creates a session store.
func NewShardedSessionStore(_ context.Context, opts ...Option) *ShardedSessionStore {
	cfg := storeConfig{capacity: defaultSessionCapacity, shards: defaultShardCount}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.shards > cfg.capacity {
		cfg.shards = cfg.capacity
	}

	s := &ShardedSessionStore{
		shards:   make([]*shard, cfg.shards),
		capacity: cfg.capacity,
	}
	per := cfg.capacity / cfg.shards
	rem := cfg.capacity % cfg.shards
	for i := range s.shards {
		c := per
		if i < rem {
			c++
		}
		s.shards[i] = &shard{
			capacity: c,
			cache:    lru.New[string, *session.Session](lru.WithCapacity(c)),
		}
	}
	metrics.UpdateSessionsActive(0)
	return s
}

func (s *ShardedSessionStore) shardFor(id string) *shard {
	return s.shards[xxhash.Sum64String(id)%uint64(len(s.shards))]
}

// Get returns the session for id.
func (s *ShardedSessionStore) Get(_ context.Context, id string) (*session.Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidID
	}
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess, ok := sh.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Put stores sess, evicting the shard's least recently used session when full.
func (s *ShardedSessionStore) Put(ctx context.Context, sess *session.Session) error {
	if sess == nil || strings.TrimSpace(sess.ID()) == "" {
		return ErrInvalidID
	}
	sh := s.shardFor(sess.ID())
	sh.mu.Lock()
	_, exists := sh.cache.Get(sess.ID())
	full := sh.cache.Len() >= sh.capacity
	sh.cache.Set(sess.ID(), sess)
	sh.mu.Unlock()

	if !exists {
		metrics.RecordSessionCreated()
		if full {
			metrics.RecordSessionEvicted()
		}
	}
	metrics.UpdateSessionsActive(s.Count(ctx))
	return nil
}

// Delete forgets id.
func (s *ShardedSessionStore) Delete(ctx context.Context, id string) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	sh.cache.Delete(id)
	sh.mu.Unlock()
	metrics.UpdateSessionsActive(s.Count(ctx))
}

// Count returns the number of sessions across shards.
func (s *ShardedSessionStore) Count(_ context.Context) int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += sh.cache.Len()
		sh.mu.Unlock()
	}
	return n
}

// Capacity returns the configured session capacity.
func (s *ShardedSessionStore) Capacity() int {
	return s.capacity
}
