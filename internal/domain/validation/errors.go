package validation

import "errors"

// Rule failures.
var (
	ErrNameRequired    = errors.New("name is required")
	ErrSkillRequired   = errors.New("skill is required")
	ErrSkillNotAllowed = errors.New("skill is not one of the allowed skills")
	ErrUnknownField    = errors.New("unknown field")
)

var messages = map[error]string{
	ErrNameRequired:    "Name is required",
	ErrSkillRequired:   "Skill is required",
	ErrSkillNotAllowed: "Choose one of the listed skills",
}

// Message returns the user-facing text for a rule failure.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if m, ok := messages[err]; ok {
		return m
	}
	return err.Error()
}
