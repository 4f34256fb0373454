package api

import (
	"context"
	"net/http"

	"github.com/okian/castform/internal/domain/session"
)

const defaultCookieName = "castform_session"

// SessionOpener returns the session for id, issuing a new one when id is
// empty or unknown.
type SessionOpener interface {
	Open(ctx context.Context, id string) (*session.Session, bool, error)
}

// SessionCookie binds a browser to its form session.
type SessionCookie struct {
	Name   string
	Secure bool
}

// Resolve returns the caller's session and sets the cookie when a new
// session was issued.
func (c SessionCookie) Resolve(w http.ResponseWriter, r *http.Request, opener SessionOpener) (*session.Session, error) {
	name := c.name()
	id := ""
	if ck, err := r.Cookie(name); err == nil {
		id = ck.Value
	}

	sess, created, err := opener.Open(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    sess.ID(),
			Path:     "/",
			HttpOnly: true,
			Secure:   c.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess, nil
}

func (c SessionCookie) name() string {
	if c.Name == "" {
		return defaultCookieName
	}
	return c.Name
}
