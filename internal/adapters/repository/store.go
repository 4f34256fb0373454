// Package repository holds form sessions and the submission journal in memory.
package repository

import (
	"context"

	"github.com/okian/castform/internal/domain/model"
	"github.com/okian/castform/internal/domain/session"
)

// SessionStore keeps live form sessions keyed by session id.
type SessionStore interface {
	// Get returns the session for id or ErrNotFound.
	Get(ctx context.Context, id string) (*session.Session, error)

	// Put inserts or replaces s. It may evict the least recently used session.
	Put(ctx context.Context, s *session.Session) error

	// Delete forgets id. Unknown ids are ignored.
	Delete(ctx context.Context, id string)

	// Count returns the number of sessions held.
	Count(ctx context.Context) int
}

// Journal records accepted submissions, newest first.
type Journal interface {
	Append(ctx context.Context, s model.Submission) error

	// Recent returns up to n submissions, newest first.
	Recent(ctx context.Context, n int) ([]model.Submission, error)

	Count(ctx context.Context) int
}
