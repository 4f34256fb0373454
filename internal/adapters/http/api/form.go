package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/castform/internal/app"
	"github.com/okian/castform/internal/domain/model"
	"github.com/okian/castform/internal/domain/session"
	"github.com/okian/castform/pkg/logger"
)

const (
	defaultSubmissionsLimit = 20
	maxSubmissionsLimit     = 100
)

// inputRequest mirrors the OpenAPI schema for POST /api/form/input.
type inputRequest struct {
	Field string  `json:"field"`
	Value *string `json:"value"`
}

func (r inputRequest) validate() error {
	switch {
	case strings.TrimSpace(r.Field) == "":
		return errors.New("missing field")
	case r.Value == nil:
		return errors.New("missing value")
	}
	return nil
}

type blurRequest struct {
	Field string `json:"field"`
}

type submitRequest struct {
	Token string `json:"token"`
}

type ackResponse struct {
	Status       string       `json:"status"`
	Duplicate    bool         `json:"duplicate"`
	SubmissionID string       `json:"submission_id,omitempty"`
	View         session.View `json:"view"`
}

type skillsResponse struct {
	Skills []string `json:"skills"`
}

type submissionsResponse struct {
	Submissions []model.Submission `json:"submissions"`
}

// FormHandler serves the form session endpoints.
type FormHandler struct {
	deps   Dependencies
	cookie SessionCookie
	logger logger.Logger
}

// NewFormHandler creates a form handler.
func NewFormHandler(deps Dependencies) *FormHandler {
	return &FormHandler{deps: deps, logger: logger.Get().Named("api")}
}

// session resolves the caller's session or writes the error response.
func (h *FormHandler) session(w http.ResponseWriter, r *http.Request, op string) (*session.Session, bool) {
	sess, err := h.cookie.Resolve(w, r, h.deps)
	if err != nil {
		h.logger.Error(r.Context(), "resolve session", logger.String("op", op), logger.Error(err))
		writeServiceError(w, op, err)
		return nil, false
	}
	return sess, true
}

func decode(r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errors.New("empty body")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// decodeOptional is decode for bodies that may be absent, whatever the
// declared length. An empty body leaves v untouched.
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// HandleGetForm handles GET /api/form.
func (h *FormHandler) HandleGetForm(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_form"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	sess, ok := h.session(w, r, op)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// HandleInput handles POST /api/form/input.
func (h *FormHandler) HandleInput(w http.ResponseWriter, r *http.Request) {
	const op = "api.form_input"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req inputRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	sess, ok := h.session(w, r, op)
	if !ok {
		return
	}
	v, err := h.deps.Input(r.Context(), sess.ID(), req.Field, *req.Value)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleBlur handles POST /api/form/blur.
func (h *FormHandler) HandleBlur(w http.ResponseWriter, r *http.Request) {
	const op = "api.form_blur"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req blurRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	sess, ok := h.session(w, r, op)
	if !ok {
		return
	}
	v, err := h.deps.Blur(r.Context(), sess.ID(), req.Field)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleNew handles POST /api/form/new.
func (h *FormHandler) HandleNew(w http.ResponseWriter, r *http.Request) {
	const op = "api.form_new"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	sess, ok := h.session(w, r, op)
	if !ok {
		return
	}
	v, err := h.deps.NewActor(r.Context(), sess.ID())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleEdit handles POST /api/form/edit.
func (h *FormHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	const op = "api.form_edit"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	sess, ok := h.session(w, r, op)
	if !ok {
		return
	}
	v, err := h.deps.Edit(r.Context(), sess.ID())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleSubmit handles POST /api/form/submit. The body is optional; without a
// token the form currently rendered is submitted.
func (h *FormHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.form_submit"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req submitRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	sess, ok := h.session(w, r, op)
	if !ok {
		return
	}

	res, err := h.deps.Submit(r.Context(), sess.ID(), req.Token)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if res.Status == service.StatusDuplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: res.Status, Duplicate: true, View: res.View})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{
		Status:       res.Status,
		SubmissionID: res.SubmissionID,
		View:         res.View,
	})
}

// HandleSample handles GET /api/form/sample.
func (h *FormHandler) HandleSample(w http.ResponseWriter, r *http.Request) {
	const op = "api.form_sample"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	sess, ok := h.session(w, r, op)
	if !ok {
		return
	}
	a, err := h.deps.Sample(r.Context(), sess.ID())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleSkills handles GET /api/skills.
func (h *FormHandler) HandleSkills(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, skillsResponse{Skills: h.deps.Skills()})
}

// HandleSubmissions handles GET /api/submissions?limit=N.
func (h *FormHandler) HandleSubmissions(w http.ResponseWriter, r *http.Request) {
	const op = "api.submissions"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limit := defaultSubmissionsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if n > maxSubmissionsLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	subs, err := h.deps.Submissions(r.Context(), limit)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, submissionsResponse{Submissions: subs})
}
