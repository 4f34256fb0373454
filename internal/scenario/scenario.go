// Package scenario drives a running castform server through the reference
// actor form walkthrough and checks every step.
package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/okian/castform/internal/domain/model"
	"github.com/okian/castform/internal/domain/session"
	"github.com/okian/castform/pkg/logger"
)

// ErrStepFailed marks a walkthrough step whose observed state was wrong.
var ErrStepFailed = errors.New("scenario step failed")

const defaultTimeout = 10 * time.Second

// Step is the outcome of one walkthrough step.
type Step struct {
	Name     string        `json:"name"`
	Passed   bool          `json:"passed"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Runner talks to one server with its own session cookie.
type Runner struct {
	baseURL string
	client  *http.Client
	logger  logger.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithHTTPClient replaces the HTTP client. Its Jar must keep cookies.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Runner) {
		if c != nil {
			r.client = c
		}
	}
}

// WithLogger sets the logger used to report steps.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Runner against baseURL.
func New(baseURL string, opts ...Option) (*Runner, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	r := &Runner{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Jar: jar, Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("scenario")
	}
	return r, nil
}

type ack struct {
	Status       string       `json:"status"`
	Duplicate    bool         `json:"duplicate"`
	SubmissionID string       `json:"submission_id"`
	View         session.View `json:"view"`
}

// Run executes the walkthrough. It stops at the first failing step and
// returns every step attempted so far.
func (r *Runner) Run(ctx context.Context) ([]Step, error) {
	var (
		steps     []Step
		view      session.View
		submitted session.View
		token     string
	)

	plan := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"initial record", func(ctx context.Context) error {
			v, err := r.view(ctx, http.MethodGet, "/api/form", nil)
			if err != nil {
				return err
			}
			view = v
			want := model.NewActor(18, "Tom Cruise", "Swordfighting", "CW Productions")
			return expect(want, view.Actor, view.Submitted, false)
		}},
		{"new record", func(ctx context.Context) error {
			v, err := r.view(ctx, http.MethodPost, "/api/form/new", nil)
			if err != nil {
				return err
			}
			view = v
			if err := expect(model.Actor{ID: 42}, view.Actor, view.Submitted, false); err != nil {
				return err
			}
			if view.Valid {
				return fmt.Errorf("%w: blank record reported valid", ErrStepFailed)
			}
			return nil
		}},
		{"submit disabled while invalid", func(ctx context.Context) error {
			return r.call(ctx, http.MethodPost, "/api/form/submit", nil, http.StatusUnprocessableEntity, nil)
		}},
		{"fill in record", func(ctx context.Context) error {
			for _, in := range []map[string]string{
				{"field": "name", "value": "Marilyn Monroe"},
				{"field": "skill", "value": "Singing"},
			} {
				v, err := r.view(ctx, http.MethodPost, "/api/form/input", in)
				if err != nil {
					return err
				}
				view = v
			}
			if !view.Valid {
				return fmt.Errorf("%w: filled record reported invalid", ErrStepFailed)
			}
			token = view.Token
			return nil
		}},
		{"submit", func(ctx context.Context) error {
			var a ack
			if err := r.call(ctx, http.MethodPost, "/api/form/submit", map[string]string{"token": token}, http.StatusAccepted, &a); err != nil {
				return err
			}
			submitted = a.View
			return expect(view.Actor, a.View.Actor, a.View.Submitted, true)
		}},
		{"replayed submit is a duplicate", func(ctx context.Context) error {
			var a ack
			if err := r.call(ctx, http.MethodPost, "/api/form/submit", map[string]string{"token": token}, http.StatusOK, &a); err != nil {
				return err
			}
			if !a.Duplicate {
				return fmt.Errorf("%w: replay not reported as duplicate", ErrStepFailed)
			}
			return nil
		}},
		{"edit", func(ctx context.Context) error {
			v, err := r.view(ctx, http.MethodPost, "/api/form/edit", nil)
			if err != nil {
				return err
			}
			view = v
			return expect(submitted.Actor, view.Actor, view.Submitted, false)
		}},
	}

	for _, p := range plan {
		start := time.Now()
		err := p.fn(ctx)
		st := Step{Name: p.name, Passed: err == nil, Duration: time.Since(start)}
		if err != nil {
			st.Detail = err.Error()
		}
		steps = append(steps, st)

		if err != nil {
			r.logger.Error(ctx, "step failed", logger.String("step", p.name), logger.Error(err))
			return steps, fmt.Errorf("%s: %w", p.name, err)
		}
		r.logger.Info(ctx, "step passed", logger.String("step", p.name), logger.Duration("took", st.Duration))
	}
	return steps, nil
}

func expect(want, got model.Actor, submitted, wantSubmitted bool) error {
	if d := cmp.Diff(want, got); d != "" {
		return fmt.Errorf("%w: record mismatch (-want +got):\n%s", ErrStepFailed, d)
	}
	if submitted != wantSubmitted {
		return fmt.Errorf("%w: submitted=%t, want %t", ErrStepFailed, submitted, wantSubmitted)
	}
	return nil
}

// view decodes a form view into a fresh value so that omitted keys, such as
// an absent studio, never inherit an earlier step's state.
func (r *Runner) view(ctx context.Context, method, path string, body any) (session.View, error) {
	var v session.View
	err := r.call(ctx, method, path, body, http.StatusOK, &v)
	return v, err
}

func (r *Runner) call(ctx context.Context, method, path string, body any, wantStatus int, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != wantStatus {
		return fmt.Errorf("%w: %s %s returned %d, want %d: %s",
			ErrStepFailed, method, path, resp.StatusCode, wantStatus, strings.TrimSpace(string(data)))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}
