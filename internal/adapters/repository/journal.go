package repository

import (
	"context"
	"sync"

	"github.com/okian/castform/internal/domain/model"
	"github.com/okian/castform/pkg/metrics"
)

const defaultJournalSize = 500

// MemoryJournal is a fixed-size ring of accepted submissions.
// Once full, the oldest submission is overwritten.
type MemoryJournal struct {
	mu    sync.RWMutex
	size  int
	ring  []model.Submission
	next  int
	count int
}

// NewMemoryJournal creates an empty journal.
func NewMemoryJournal(opts ...JournalOption) *MemoryJournal {
	j := &MemoryJournal{size: defaultJournalSize}
	for _, opt := range opts {
		opt(j)
	}
	j.ring = make([]model.Submission, j.size)
	return j
}

// Append records s as the newest submission.
func (j *MemoryJournal) Append(_ context.Context, s model.Submission) error {
	j.mu.Lock()
	j.ring[j.next] = s
	j.next = (j.next + 1) % j.size
	if j.count < j.size {
		j.count++
	}
	n := j.count
	j.mu.Unlock()

	metrics.UpdateJournalSize(n)
	return nil
}

// Recent returns up to n submissions, newest first.
func (j *MemoryJournal) Recent(_ context.Context, n int) ([]model.Submission, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	j.mu.RLock()
	defer j.mu.RUnlock()

	if n > j.count {
		n = j.count
	}
	out := make([]model.Submission, 0, n)
	idx := j.next
	for i := 0; i < n; i++ {
		idx = (idx - 1 + j.size) % j.size
		out = append(out, j.ring[idx])
	}
	return out, nil
}

// Count returns how many submissions are held.
func (j *MemoryJournal) Count(_ context.Context) int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.count
}
