// Package site renders the server-side actor form.
package site

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/okian/castform/internal/adapters/http/api"
	service "github.com/okian/castform/internal/app"
	"github.com/okian/castform/internal/domain/model"
	"github.com/okian/castform/internal/domain/session"
	"github.com/okian/castform/internal/domain/validation"
	"github.com/okian/castform/pkg/logger"
)

// Sentinel kinds for site errors.
var (
	ErrRender = errors.New("form render failed")
	ErrAction = errors.New("unknown form action")
)

// Form actions posted by the buttons of the page.
const (
	ActionSubmit = "submit"
	ActionApply  = "apply"
	ActionNew    = "new"
	ActionEdit   = "edit"
	ActionSample = "sample"
)

// Dependencies required by the site handlers.
type Dependencies interface {
	api.SessionOpener

	Input(ctx context.Context, id, field, value string) (session.View, error)
	Blur(ctx context.Context, id, field string) (session.View, error)
	NewActor(ctx context.Context, id string) (session.View, error)
	Edit(ctx context.Context, id string) (session.View, error)
	Submit(ctx context.Context, id, token string) (service.SubmitResult, error)
	Sample(ctx context.Context, id string) (model.Actor, error)
}

type pageData struct {
	View   session.View
	Fields map[string]validation.FieldState
	Studio string
	Sample *model.Actor
	Notice string
}

// Handler serves the form page and its post-back.
type Handler struct {
	deps   Dependencies
	cookie api.SessionCookie
	logger logger.Logger
}

// NewHandler creates a site handler.
func NewHandler(deps Dependencies, cookie api.SessionCookie) *Handler {
	return &Handler{deps: deps, cookie: cookie, logger: logger.Get().Named("site")}
}

// Register attaches the form page routes to mux.
//
//	GET  /      -> edit or summary view
//	POST /form  -> bind posted fields, run the action, redirect to /
//
// The apply action only binds, so the next render carries fresh validity.
func Register(_ context.Context, mux *http.ServeMux, h *Handler) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/", api.MetricsMiddleware(h.HandleRoot, "site_root"))
	mux.HandleFunc("/form", api.MetricsMiddleware(h.HandleForm, "site_form"))
}

// HandleRoot renders the page for the caller's session.
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" || r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	sess, err := h.cookie.Resolve(w, r, h.deps)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data := newPageData(sess.View())
	if r.URL.Query().Get("sample") == "1" {
		a, err := h.deps.Sample(r.Context(), sess.ID())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		data.Sample = &a
	}
	h.render(w, r, http.StatusOK, data)
}

// HandleForm applies the posted field values, then the chosen action.
func (h *Handler) HandleForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	sess, err := h.cookie.Resolve(w, r, h.deps)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id := sess.ID()
	action := r.PostForm.Get("action")

	if action != ActionEdit && action != ActionNew && !sess.View().Submitted {
		if err := h.bind(ctx, sess, r); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	target := "/"
	switch action {
	case ActionSubmit:
		res, err := h.deps.Submit(ctx, id, r.PostForm.Get("token"))
		switch {
		case errors.Is(err, service.ErrFormInvalid):
			// The edit view shows why.
		case errors.Is(err, service.ErrBackpressure):
			data := newPageData(sess.View())
			data.Notice = "Too many submissions right now, please try again."
			h.render(w, r, http.StatusTooManyRequests, data)
			return
		case err != nil:
			h.fail(w, r, err)
			return
		case res.Status == service.StatusDuplicate:
			h.logger.Debug(ctx, "duplicate form post", logger.String("session_id", id))
		}
	case ActionApply:
		// Bound above; the redirect renders fresh validity.
	case ActionNew:
		_, err = h.deps.NewActor(ctx, id)
	case ActionEdit:
		_, err = h.deps.Edit(ctx, id)
	case ActionSample:
		target = "/?sample=1"
	default:
		http.Error(w, ErrAction.Error(), http.StatusBadRequest)
		return
	}
	if err != nil && action != ActionSubmit {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// bind writes every posted field whose value differs from the rendered one
// and marks it touched, since the user left it to press a button.
func (h *Handler) bind(ctx context.Context, sess *session.Session, r *http.Request) error {
	current := validation.DisplayValues(sess.View().Actor)
	for _, f := range validation.Fields {
		values, ok := r.PostForm[string(f)]
		if !ok || len(values) == 0 || values[0] == current[f] {
			continue
		}
		if _, err := h.deps.Input(ctx, sess.ID(), string(f), values[0]); err != nil {
			return err
		}
		if _, err := h.deps.Blur(ctx, sess.ID(), string(f)); err != nil {
			return err
		}
	}
	return nil
}

func newPageData(v session.View) pageData {
	fields := make(map[string]validation.FieldState, len(v.Fields))
	for _, f := range v.Fields {
		fields[string(f.Field)] = f
	}
	d := pageData{View: v, Fields: fields}
	if v.Actor.Studio != nil {
		d.Studio = *v.Actor.Studio
	}
	return d
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "page", data); err != nil {
		h.logger.Error(r.Context(), "render form", logger.Error(err))
		http.Error(w, ErrRender.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error(r.Context(), "form request failed",
		logger.String("path", r.URL.Path),
		logger.Error(err),
	)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, validation.ErrUnknownField):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotStarted):
		status = http.StatusServiceUnavailable
	}
	http.Error(w, http.StatusText(status), status)
}
