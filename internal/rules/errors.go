package rules

import (
	"errors"
	"fmt"
)

// ErrorKind distinguishes caller-configuration faults from data faults.
type ErrorKind string

const (
	KindUnknownCriterion     ErrorKind = "unknown_criterion"
	KindUnknownProfile       ErrorKind = "unknown_profile"
	KindTemplateFieldMissing ErrorKind = "template_field_missing"
	KindInvalidCatalog       ErrorKind = "invalid_catalog"
)

// Error is the structured error returned by the registry and dispatcher.
type Error struct {
	Kind      ErrorKind
	Criterion string
	Profile   string
	Field     string
	Msg       string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUnknownCriterion:
		return fmt.Sprintf("rules: no rule logic found for %q", e.Criterion)
	case KindUnknownProfile:
		return fmt.Sprintf("rules: unknown profile %q", e.Profile)
	case KindTemplateFieldMissing:
		return fmt.Sprintf("rules: %s: template field %q missing from record", e.Criterion, e.Field)
	default:
		if e.Criterion != "" {
			return fmt.Sprintf("rules: invalid catalog: %s: %s", e.Criterion, e.Msg)
		}
		return "rules: invalid catalog: " + e.Msg
	}
}

// IsKind reports whether err (or anything it wraps) is a *Error of kind k.
func IsKind(err error, k ErrorKind) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind == k
	}
	return false
}

func catalogError(criterion, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidCatalog, Criterion: criterion, Msg: fmt.Sprintf(format, args...)}
}
