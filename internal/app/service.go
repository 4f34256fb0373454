// Package service composes the session store, submission pipeline and
// double-submit guard behind the operations the HTTP adapters need.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	submissionqueue "github.com/okian/castform/internal/adapters/mq/queue"
	workerpool "github.com/okian/castform/internal/adapters/mq/worker"
	"github.com/okian/castform/internal/adapters/repository"
	"github.com/okian/castform/internal/domain/dedupe"
	"github.com/okian/castform/internal/domain/form"
	"github.com/okian/castform/internal/domain/model"
	"github.com/okian/castform/internal/domain/session"
	"github.com/okian/castform/internal/domain/validation"
	"github.com/okian/castform/pkg/logger"
	"github.com/okian/castform/pkg/metrics"
)

// Submit outcomes.
const (
	StatusAccepted  = "accepted"
	StatusDuplicate = "duplicate"
)

const shutdownTimeout = 10 * time.Second

// SubmitResult reports what happened to a submit request.
type SubmitResult struct {
	Status       string       `json:"status"`
	SubmissionID string       `json:"submission_id,omitempty"`
	View         session.View `json:"view"`
}

// Service implements the form operations used by the API and the site.
type Service struct {
	mu sync.RWMutex

	sessions *repository.ShardedSessionStore
	journal  *repository.MemoryJournal
	deduper  dedupe.Deduper
	queue    *submissionqueue.InMemoryQueue
	pool     *workerpool.Pool

	skills          []string
	sessionCapacity int
	sessionShards   int
	queueSize       int
	workerCount     int
	dedupeSize      int
	journalSize     int

	started bool
	logger  logger.Logger
	now     func() time.Time
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSkills replaces the allowed skills offered by every form.
func WithSkills(skills []string) Option {
	return func(s *Service) {
		if len(skills) > 0 {
			s.skills = slices.Clone(skills)
		}
	}
}

// WithSessionCapacity bounds how many sessions are kept.
func WithSessionCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sessionCapacity = n
		}
	}
}

// WithSessionShards sets the number of session store shards.
func WithSessionShards(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sessionShards = n
		}
	}
}

// WithQueueSize sets the capacity of the submission queue.
func WithQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithWorkerCount sets the number of recording workers.
func WithWorkerCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithDedupeSize bounds the number of remembered submit tokens.
func WithDedupeSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dedupeSize = n
		}
	}
}

// WithJournalSize bounds the number of submissions kept in the journal.
func WithJournalSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.journalSize = n
		}
	}
}

// New constructs a Service. Call Start before serving submissions.
func New(ctx context.Context, opts ...Option) *Service {
	s := &Service{
		skills:          slices.Clone(form.DefaultSkills),
		sessionCapacity: 10_000,
		sessionShards:   8,
		queueSize:       1_000,
		workerCount:     runtime.NumCPU(),
		dedupeSize:      50_000,
		journalSize:     500,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.sessions = repository.NewShardedSessionStore(ctx,
		repository.WithCapacity(s.sessionCapacity),
		repository.WithShards(s.sessionShards),
	)
	s.journal = repository.NewMemoryJournal(repository.WithJournalSize(s.journalSize))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start launches the submission pipeline.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.queue = submissionqueue.NewInMemoryQueue(submissionqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, workerpool.RecorderFunc(s.journal.Append))
	// Workers outlive the request that started them; Stop drains them.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "castform service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Int("session_capacity", s.sessionCapacity),
		logger.Int("dedupe_size", s.dedupeSize),
	)
	return nil
}

// Stop closes the queue and waits for queued submissions to be recorded.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping castform service")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	err := s.pool.Shutdown(shutdownCtx)

	s.started = false
	if err != nil {
		return fmt.Errorf("stop worker pool: %w", err)
	}
	s.logger.Info(ctx, "castform service stopped")
	return nil
}

// Open returns the session for id, creating a new one when id is empty or
// unknown. created reports whether a new session was issued.
func (s *Service) Open(ctx context.Context, id string) (*session.Session, bool, error) {
	if id != "" {
		sess, err := s.sessions.Get(ctx, id)
		if err == nil {
			return sess, false, nil
		}
		if !errors.Is(err, repository.ErrNotFound) && !errors.Is(err, repository.ErrInvalidID) {
			return nil, false, err
		}
	}

	sess := session.New(uuid.NewString(),
		form.WithSkills(s.skills),
		form.WithLogger(s.logger.Named("form")),
	)
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, false, fmt.Errorf("store session: %w", err)
	}
	s.logger.Debug(ctx, "session opened", logger.String("session_id", sess.ID()))
	return sess, true, nil
}

func (s *Service) lookup(ctx context.Context, id string) (*session.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidID) {
			return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
		}
		return nil, err
	}
	return sess, nil
}

// View renders the session.
func (s *Service) View(ctx context.Context, id string) (session.View, error) {
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return session.View{}, err
	}
	return sess.View(), nil
}

// Input writes value into the named field.
func (s *Service) Input(ctx context.Context, id, field, value string) (session.View, error) {
	f, err := validation.ParseField(field)
	if err != nil {
		return session.View{}, fmt.Errorf("%w: %q", err, field)
	}
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return session.View{}, err
	}
	if _, err := sess.Input(f, value); err != nil {
		return session.View{}, err
	}
	metrics.RecordFieldInput(field)

	v := sess.View()
	for _, st := range v.Fields {
		if st.Field == f && !st.Valid {
			metrics.RecordValidationFailure(field)
		}
	}
	return v, nil
}

// Blur marks the named field touched.
func (s *Service) Blur(ctx context.Context, id, field string) (session.View, error) {
	f, err := validation.ParseField(field)
	if err != nil {
		return session.View{}, fmt.Errorf("%w: %q", err, field)
	}
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return session.View{}, err
	}
	if err := sess.Blur(f); err != nil {
		return session.View{}, err
	}
	metrics.RecordFieldBlur(field)
	return sess.View(), nil
}

// NewActor replaces the record with a blank actor and resets field state.
func (s *Service) NewActor(ctx context.Context, id string) (session.View, error) {
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return session.View{}, err
	}
	sess.NewActor()
	metrics.RecordReset()
	return sess.View(), nil
}

// Edit returns the session to the edit view.
func (s *Service) Edit(ctx context.Context, id string) (session.View, error) {
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return session.View{}, err
	}
	sess.Edit()
	metrics.RecordEdit()
	return sess.View(), nil
}

// Sample builds the sample actor for the session without changing it.
func (s *Service) Sample(ctx context.Context, id string) (model.Actor, error) {
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return model.Actor{}, err
	}
	metrics.RecordSampleRecord()
	return sess.Sample(ctx), nil
}

// Submit accepts the session's form once per token. An empty token means the
// token of the form currently rendered. A stale or replayed token is reported
// as a duplicate and changes nothing. Invalid forms are refused with
// ErrFormInvalid, and a full queue with ErrBackpressure.
func (s *Service) Submit(ctx context.Context, id, token string) (SubmitResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return SubmitResult{}, ErrNotStarted
	}

	sess, err := s.lookup(ctx, id)
	if err != nil {
		return SubmitResult{}, err
	}

	sub := model.Submission{
		ID:          uuid.NewString(),
		SessionID:   id,
		SubmittedAt: s.now().UTC(),
	}
	actor, err := sess.SubmitIf(token, func(tok string, a model.Actor) error {
		if s.deduper.SeenAndRecord(ctx, tok) {
			return session.ErrStaleToken
		}
		sub.Actor = a
		if err := s.queue.Enqueue(ctx, sub); err != nil {
			s.deduper.Unrecord(ctx, tok)
			return err
		}
		return nil
	})
	switch {
	case errors.Is(err, session.ErrStaleToken):
		metrics.RecordSubmissionDuplicate()
		s.logger.Debug(ctx, "duplicate submit ignored", logger.String("session_id", id))
		return SubmitResult{Status: StatusDuplicate, View: sess.View()}, nil
	case errors.Is(err, session.ErrInvalid):
		return SubmitResult{}, ErrFormInvalid
	case errors.Is(err, submissionqueue.ErrFull):
		return SubmitResult{}, ErrBackpressure
	case err != nil:
		return SubmitResult{}, fmt.Errorf("enqueue submission: %w", err)
	}

	metrics.RecordSubmit()
	s.logger.Info(ctx, "form submitted",
		logger.String("session_id", id),
		logger.String("submission_id", sub.ID),
		logger.String("actor", actor.Name),
	)
	return SubmitResult{Status: StatusAccepted, SubmissionID: sub.ID, View: sess.View()}, nil
}

// Skills returns the allowed skills.
func (s *Service) Skills() []string {
	return slices.Clone(s.skills)
}

// Submissions returns up to n recorded submissions, newest first.
func (s *Service) Submissions(ctx context.Context, n int) ([]model.Submission, error) {
	return s.journal.Recent(ctx, n)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"sessionCapacity": s.sessionCapacity,
		"dedupeSize":      s.dedupeSize,
		"sessions":        s.sessions.Count(ctx),
		"submissions":     s.journal.Count(ctx),
		"seenTokens":      s.deduper.Size(),
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
	}
	return stats
}
