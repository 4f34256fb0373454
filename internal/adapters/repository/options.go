package repository

type storeConfig struct {
	capacity int
	shards   int
}

// Option configures a ShardedSessionStore.
type Option func(*storeConfig)

// WithCapacity bounds the total number of sessions held.
func WithCapacity(n int) Option {
	return func(c *storeConfig) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithShards sets how many independently locked shards sessions are spread over.
func WithShards(n int) Option {
	return func(c *storeConfig) {
		if n > 0 {
			c.shards = n
		}
	}
}

// JournalOption configures a MemoryJournal.
type JournalOption func(*MemoryJournal)

// WithJournalSize bounds how many submissions the journal keeps.
func WithJournalSize(n int) JournalOption {
	return func(j *MemoryJournal) {
		if n > 0 {
			j.size = n
		}
	}
}
