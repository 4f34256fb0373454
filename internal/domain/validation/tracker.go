package validation

import (
	"strings"

	"github.com/okian/castform/internal/domain/model"
)

// Tracker records which fields the user changed (dirty) or visited (touched)
// since the last Reset. The zero Tracker has a blank baseline.
type Tracker struct {
	values  map[Field]string
	dirty   map[Field]bool
	touched map[Field]bool
}

// NewTracker returns a tracker whose baseline is a.
func NewTracker(a model.Actor) *Tracker {
	t := &Tracker{}
	t.Reset(a)
	return t
}

// Reset makes every field pristine and untouched with a as the displayed values.
func (t *Tracker) Reset(a model.Actor) {
	t.values = DisplayValues(a)
	t.dirty = make(map[Field]bool, len(Fields))
	t.touched = make(map[Field]bool, len(Fields))
}

// Input records a user write. A value that differs from the displayed one
// marks the field dirty; dirty stays set until Reset. It reports whether the
// value changed.
func (t *Tracker) Input(f Field, value string) bool {
	t.lazyInit()
	if t.values[f] == value {
		return false
	}
	t.values[f] = value
	t.dirty[f] = true
	return true
}

// Blur marks f touched.
func (t *Tracker) Blur(f Field) {
	t.lazyInit()
	t.touched[f] = true
}

func (t *Tracker) lazyInit() {
	if t.values == nil {
		t.values = make(map[Field]string, len(Fields))
	}
	if t.dirty == nil {
		t.dirty = make(map[Field]bool, len(Fields))
	}
	if t.touched == nil {
		t.touched = make(map[Field]bool, len(Fields))
	}
}

// Pristine reports whether the user has not changed f.
func (t *Tracker) Pristine(f Field) bool { return !t.dirty[f] }

// Touched reports whether the user visited f.
func (t *Tracker) Touched(f Field) bool { return t.touched[f] }

// FormPristine reports whether no field is dirty.
func (t *Tracker) FormPristine() bool {
	for _, f := range Fields {
		if t.dirty[f] {
			return false
		}
	}
	return true
}

// ShowError reports whether the error message for f is visible: the field is
// dirty and invalid.
func (t *Tracker) ShowError(f Field, r Result) bool {
	return t.dirty[f] && !r.FieldValid(f)
}

// Classes returns the form-state CSS classes of f.
func (t *Tracker) Classes(f Field, r Result) string {
	c := make([]string, 0, 3)
	if r.FieldValid(f) {
		c = append(c, "field-valid")
	} else {
		c = append(c, "field-invalid")
	}
	if t.dirty[f] {
		c = append(c, "field-dirty")
	} else {
		c = append(c, "field-pristine")
	}
	if t.touched[f] {
		c = append(c, "field-touched")
	} else {
		c = append(c, "field-untouched")
	}
	return strings.Join(c, " ")
}

// FormClasses returns the CSS classes of the form element.
func (t *Tracker) FormClasses(r Result) string {
	valid, pristine := "form-valid", "form-pristine"
	if !r.Valid() {
		valid = "form-invalid"
	}
	if !t.FormPristine() {
		pristine = "form-dirty"
	}
	return valid + " " + pristine
}

// FieldState is the rendered state of one field.
type FieldState struct {
	Field     Field  `json:"field"`
	Value     string `json:"value"`
	Valid     bool   `json:"valid"`
	Pristine  bool   `json:"pristine"`
	Touched   bool   `json:"touched"`
	ShowError bool   `json:"show_error"`
	Message   string `json:"message,omitempty"`
	Classes   string `json:"classes"`
}

// States returns the state of every field in display order.
func (t *Tracker) States(r Result) []FieldState {
	out := make([]FieldState, 0, len(Fields))
	for _, f := range Fields {
		s := FieldState{
			Field:     f,
			Value:     t.values[f],
			Valid:     r.FieldValid(f),
			Pristine:  t.Pristine(f),
			Touched:   t.Touched(f),
			ShowError: t.ShowError(f, r),
			Classes:   t.Classes(f, r),
		}
		if s.ShowError {
			s.Message = Message(r.Err(f))
		}
		out = append(out, s)
	}
	return out
}

// DisplayValues renders a as the strings bound to each input. An absent
// studio displays as empty.
func DisplayValues(a model.Actor) map[Field]string {
	studio := ""
	if a.Studio != nil {
		studio = *a.Studio
	}
	return map[Field]string{
		FieldName:   a.Name,
		FieldSkill:  a.Skill,
		FieldStudio: studio,
	}
}
