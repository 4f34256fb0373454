// Package validation implements the presentation-side policy of the casting
// form: per-field validity, pristine/dirty and touched tracking, error
// visibility and the CSS classes that expose that state.
package validation

import (
	"slices"

	"github.com/okian/castform/internal/domain/model"
)

// Field names one bound input.
type Field string

// Bound fields, in display order.
const (
	FieldName   Field = "name"
	FieldSkill  Field = "skill"
	FieldStudio Field = "studio"
)

// Fields lists every bound field in display order.
var Fields = []Field{FieldName, FieldSkill, FieldStudio}

// ParseField maps a wire name to a Field.
func ParseField(s string) (Field, error) {
	f := Field(s)
	if !slices.Contains(Fields, f) {
		return "", ErrUnknownField
	}
	return f, nil
}

// Result is the validity of one record.
type Result struct {
	errs map[Field]error
}

// Validate applies the field rules: name must be non-empty, skill must be one
// of skills, studio is always valid.
func Validate(a model.Actor, skills []string) Result {
	r := Result{errs: make(map[Field]error, 2)}
	if a.Name == "" {
		r.errs[FieldName] = ErrNameRequired
	}
	switch {
	case a.Skill == "":
		r.errs[FieldSkill] = ErrSkillRequired
	case !slices.Contains(skills, a.Skill):
		r.errs[FieldSkill] = ErrSkillNotAllowed
	}
	return r
}

// Valid reports whether every field is valid. Submit is enabled iff true.
func (r Result) Valid() bool {
	return len(r.errs) == 0
}

// FieldValid reports whether f passed its rule.
func (r Result) FieldValid(f Field) bool {
	_, bad := r.errs[f]
	return !bad
}

// Err returns the rule failure for f, or nil.
func (r Result) Err(f Field) error {
	return r.errs[f]
}

// Errors returns the failures keyed by field.
func (r Result) Errors() map[Field]error {
	out := make(map[Field]error, len(r.errs))
	for k, v := range r.errs {
		out[k] = v
	}
	return out
}
