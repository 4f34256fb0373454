// Package model contains domain models passed between layers.
package model

import "time"

// Actor is the record edited by the casting form.
// The zero Studio means the actor has no studio.
type Actor struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Skill  string  `json:"skill"`
	Studio *string `json:"studio,omitempty"`
}

// NewActor stores its arguments unchanged. Only the first studio, if any, is kept.
func NewActor(id int, name, skill string, studio ...string) Actor {
	a := Actor{ID: id, Name: name, Skill: skill}
	if len(studio) > 0 {
		s := studio[0]
		a.Studio = &s
	}
	return a
}

// Submission is an accepted actor on its way to the journal.
type Submission struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Actor       Actor     `json:"actor"`
	SubmittedAt time.Time `json:"submitted_at"`
}
