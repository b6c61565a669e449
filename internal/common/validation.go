package common

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// FieldError is one failed rule on one request field.
type FieldError struct {
	Field  string
	Value  any
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s (got %q)", e.Field, e.Reason, fmt.Sprint(e.Value))
}

// ValidationRule checks a single value; an empty return means it passed.
type ValidationRule func(value any) string

// Validator collects rule failures across the fields of a request.
//
//	err := common.NewValidator().
//		Field("tenant_id", tenantID, common.Required, common.MaxLength(64)).
//		Err()
type Validator struct {
	failures []FieldError
}

func NewValidator() *Validator { return &Validator{} }

// Field applies rules in order and records every failure.
func (v *Validator) Field(name string, value any, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if reason := rule(value); reason != "" {
			v.failures = append(v.failures, FieldError{Field: name, Value: value, Reason: reason})
		}
	}
	return v
}

func (v *Validator) HasErrors() bool { return len(v.failures) > 0 }

func (v *Validator) Errors() []FieldError { return slices.Clone(v.failures) }

// Err returns nil when every rule passed. Otherwise an INVALID_ARGUMENT AppError whose cause
// matches ErrInvalidInput and each FieldError.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	msgs := make([]string, len(v.failures))
	for i, f := range v.failures {
		msgs[i] = f.Error()
	}
	return NewAppError("INVALID_ARGUMENT", strings.Join(msgs, "; "), fieldErrors(slices.Clone(v.failures)))
}

// fieldErrors prints as ErrInvalidInput but also unwraps to each FieldError.
type fieldErrors []FieldError

func (fe fieldErrors) Error() string { return ErrInvalidInput.Error() }

func (fe fieldErrors) Unwrap() []error {
	out := make([]error, 0, len(fe)+1)
	out = append(out, ErrInvalidInput)
	for _, f := range fe {
		out = append(out, f)
	}
	return out
}

// Required rejects nil and blank strings.
func Required(value any) string {
	switch s := value.(type) {
	case nil:
		return "is required"
	case string:
		if strings.TrimSpace(s) == "" {
			return "is required"
		}
	case *string:
		if s == nil || strings.TrimSpace(*s) == "" {
			return "is required"
		}
	}
	return ""
}

// MaxLength caps the rune count of string values.
func MaxLength(max int) ValidationRule {
	return func(value any) string {
		if s, ok := value.(string); ok && utf8.RuneCountInString(s) > max {
			return fmt.Sprintf("must be at most %d characters", max)
		}
		return ""
	}
}

// UUID requires a parseable UUID string.
func UUID(value any) string {
	s, ok := value.(string)
	if !ok {
		return "must be a string"
	}
	if _, err := uuid.Parse(s); err != nil {
		return "must be a valid UUID"
	}
	return ""
}

// OneOf accepts the empty string or one of allowed.
func OneOf(allowed ...string) ValidationRule {
	return func(value any) string {
		s, ok := value.(string)
		if !ok || s == "" || slices.Contains(allowed, s) {
			return ""
		}
		return "must be one of " + strings.Join(allowed, ", ")
	}
}
