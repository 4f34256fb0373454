// Package form holds the casting form controller: the one live actor record,
// the allowed skills and the submitted flag.
//
// The controller never validates. Gating submit on validity belongs to the
// presentation layer (see package validation).
package form

import (
	"context"

	"github.com/okian/castform/internal/domain/model"
	"github.com/okian/castform/pkg/logger"
)

// Identifiers used by the controller's fixed records.
const (
	InitialActorID = 18
	BlankActorID   = 42
	SampleActorID  = 42
)

// DefaultSkills is used when no skills option is supplied.
var DefaultSkills = []string{"Method Acting", "Singing", "Dancing", "Swordfighting"}

// Controller owns the record being edited. It is not safe for concurrent use;
// callers that share one serialize access themselves.
type Controller struct {
	record    model.Actor
	skills    []string
	submitted bool

	logger logger.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithSkills sets the allowed skills. Empty lists are ignored.
func WithSkills(skills []string) Option {
	return func(c *Controller) {
		if len(skills) > 0 {
			c.skills = append([]string(nil), skills...)
		}
	}
}

// WithLogger sets the logger used by SampleActor.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a controller holding the initial actor, not submitted.
func New(opts ...Option) *Controller {
	c := &Controller{
		record: model.NewActor(InitialActorID, "Tom Cruise", "Swordfighting", "CW Productions"),
		skills: append([]string(nil), DefaultSkills...),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Record returns a copy of the current actor.
func (c *Controller) Record() model.Actor {
	return copyActor(c.record)
}

// Skills returns a copy of the allowed skills in display order.
func (c *Controller) Skills() []string {
	return append([]string(nil), c.skills...)
}

// Submitted reports which view is shown.
func (c *Controller) Submitted() bool {
	return c.submitted
}

// Submit switches to the summary view.
func (c *Controller) Submit() {
	c.submitted = true
}

// Edit switches back to the edit view. The record is untouched.
func (c *Controller) Edit() {
	c.submitted = false
}

// NewRecord replaces the record with a blank actor. The submitted flag is kept.
func (c *Controller) NewRecord() {
	c.record = model.NewActor(BlankActorID, "", "")
}

// SetName writes the bound name field.
func (c *Controller) SetName(name string) {
	c.record.Name = name
}

// SetSkill writes the bound skill field.
func (c *Controller) SetSkill(skill string) {
	c.record.Skill = skill
}

// SetStudio writes the bound studio field.
func (c *Controller) SetStudio(studio string) {
	c.record.Studio = &studio
}

// ClearStudio makes the studio absent.
func (c *Controller) ClearStudio() {
	c.record.Studio = nil
}

// SampleActor builds the sample actor and logs its name. Controller state is
// not changed.
func (c *Controller) SampleActor(ctx context.Context) model.Actor {
	a := model.NewActor(SampleActorID, "Marilyn Monroe", "Singing")
	if c.logger != nil {
		c.logger.Info(ctx, "my actor is called "+a.Name, logger.Int("id", a.ID))
	}
	return a
}

func copyActor(a model.Actor) model.Actor {
	if a.Studio != nil {
		s := *a.Studio
		a.Studio = &s
	}
	return a
}
