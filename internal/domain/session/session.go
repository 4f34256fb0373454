// Package session binds one form controller to its field tracker. A Session
// is the explicit two-way binding between rendered inputs and the record:
// inputs flow through setters into the controller, and View renders the
// controller back out.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/castform/internal/domain/form"
	"github.com/okian/castform/internal/domain/model"
	"github.com/okian/castform/internal/domain/validation"
)

// Session is safe for concurrent use.
type Session struct {
	id string

	mu        sync.Mutex
	ctrl      *form.Controller
	tracker   *validation.Tracker
	token     string
	updatedAt time.Time
}

// View is a consistent snapshot of a session.
type View struct {
	SessionID   string                  `json:"session_id"`
	Actor       model.Actor             `json:"actor"`
	Skills      []string                `json:"skills"`
	Submitted   bool                    `json:"submitted"`
	Valid       bool                    `json:"valid"`
	Pristine    bool                    `json:"pristine"`
	FormClasses string                  `json:"form_classes"`
	Fields      []validation.FieldState `json:"fields"`
	Token       string                  `json:"token"`
}

// New creates a session with a fresh controller and submit token.
func New(id string, opts ...form.Option) *Session {
	ctrl := form.New(opts...)
	return &Session{
		id:        id,
		ctrl:      ctrl,
		tracker:   validation.NewTracker(ctrl.Record()),
		token:     uuid.NewString(),
		updatedAt: time.Now(),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// UpdatedAt returns when the session last changed.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Input writes value into field f and tracks the change. It reports whether
// the displayed value changed.
func (s *Session) Input(f validation.Field, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch f {
	case validation.FieldName:
		s.ctrl.SetName(value)
	case validation.FieldSkill:
		s.ctrl.SetSkill(value)
	case validation.FieldStudio:
		if value == "" {
			s.ctrl.ClearStudio()
		} else {
			s.ctrl.SetStudio(value)
		}
	default:
		return false, validation.ErrUnknownField
	}
	s.touch()
	return s.tracker.Input(f, value), nil
}

// Blur marks f touched.
func (s *Session) Blur(f validation.Field) error {
	if _, err := validation.ParseField(string(f)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracker.Blur(f)
	s.touch()
	return nil
}

// NewActor replaces the record with a blank actor and resets field tracking.
func (s *Session) NewActor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.NewRecord()
	s.tracker.Reset(s.ctrl.Record())
	s.touch()
}

// Token returns the submit token of the form currently rendered.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Submit switches to the summary view and returns the submitted actor. A new
// token is issued so a replay of the old form is recognisable.
func (s *Session) Submit() model.Actor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.Submit()
	s.token = uuid.NewString()
	s.touch()
	return s.ctrl.Record()
}

// SubmitIf submits the form rendered with token, as one step against
// concurrent input. An empty token means the current one. It returns
// ErrStaleToken for any other token and ErrInvalid for an invalid record.
// Otherwise accept is called with the token and the record; when it returns
// nil the session switches to the summary view and rotates its token, and
// when it fails nothing changes and its error is returned.
func (s *Session) SubmitIf(token string, accept func(token string, a model.Actor) error) (model.Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" {
		token = s.token
	}
	if token != s.token {
		return model.Actor{}, ErrStaleToken
	}
	rec := s.ctrl.Record()
	if !validation.Validate(rec, s.ctrl.Skills()).Valid() {
		return model.Actor{}, ErrInvalid
	}
	if err := accept(token, rec); err != nil {
		return model.Actor{}, err
	}
	s.ctrl.Submit()
	s.token = uuid.NewString()
	s.touch()
	return rec, nil
}

// Edit switches back to the edit view.
func (s *Session) Edit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.Edit()
	s.touch()
}

// Sample builds and logs the sample actor.
func (s *Session) Sample(ctx context.Context) model.Actor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.SampleActor(ctx)
}

// Validate returns the validity of the current record.
func (s *Session) Validate() validation.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return validation.Validate(s.ctrl.Record(), s.ctrl.Skills())
}

// View renders the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.ctrl.Record()
	skills := s.ctrl.Skills()
	res := validation.Validate(rec, skills)
	return View{
		SessionID:   s.id,
		Actor:       rec,
		Skills:      skills,
		Submitted:   s.ctrl.Submitted(),
		Valid:       res.Valid(),
		Pristine:    s.tracker.FormPristine(),
		FormClasses: s.tracker.FormClasses(res),
		Fields:      s.tracker.States(res),
		Token:       s.token,
	}
}

func (s *Session) touch() {
	s.updatedAt = time.Now()
}
