// Package api serves the JSON form API and the operational endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/castform/internal/app"
	"github.com/okian/castform/internal/domain/model"
	"github.com/okian/castform/internal/domain/session"
	"github.com/okian/castform/internal/domain/validation"
	"github.com/okian/castform/pkg/logger"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	SessionOpener

	Input(ctx context.Context, id, field, value string) (session.View, error)
	Blur(ctx context.Context, id, field string) (session.View, error)
	NewActor(ctx context.Context, id string) (session.View, error)
	Edit(ctx context.Context, id string) (session.View, error)
	Submit(ctx context.Context, id, token string) (service.SubmitResult, error)
	Sample(ctx context.Context, id string) (model.Actor, error)

	Skills() []string
	Submissions(ctx context.Context, n int) ([]model.Submission, error)
}

// Server wires HTTP routes for the form API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	formHandler   *FormHandler
}

// Option configures a Server.
type Option func(*Server)

// WithSessionCookie sets the cookie that carries the session id.
func WithSessionCookie(c SessionCookie) Option {
	return func(s *Server) {
		s.formHandler.cookie = c
	}
}

// WithLogger sets the logger used by the form handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.formHandler.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		formHandler:   NewFormHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	f := s.formHandler
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/form", MetricsMiddleware(f.HandleGetForm, "form"))
	mux.HandleFunc("/api/form/input", MetricsMiddleware(f.HandleInput, "form_input"))
	mux.HandleFunc("/api/form/blur", MetricsMiddleware(f.HandleBlur, "form_blur"))
	mux.HandleFunc("/api/form/new", MetricsMiddleware(f.HandleNew, "form_new"))
	mux.HandleFunc("/api/form/edit", MetricsMiddleware(f.HandleEdit, "form_edit"))
	mux.HandleFunc("/api/form/submit", MetricsMiddleware(f.HandleSubmit, "form_submit"))
	mux.HandleFunc("/api/form/sample", MetricsMiddleware(f.HandleSample, "form_sample"))
	mux.HandleFunc("/api/skills", MetricsMiddleware(f.HandleSkills, "skills"))
	mux.HandleFunc("/api/submissions", MetricsMiddleware(f.HandleSubmissions, "submissions"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service and domain errors onto the API's error codes.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, validation.ErrUnknownField), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, service.ErrFormInvalid):
		writeError(w, http.StatusUnprocessableEntity, "invalid_form", WrapKind(op, ErrInvalidForm, err))
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
