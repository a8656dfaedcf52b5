package chat

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound reports a missing conversation or message. Storage-level
// gorm.ErrRecordNotFound is translated to this at the service boundary.
var ErrNotFound = errors.New("not found")

// ForbiddenError rejects an actor that is not allowed to perform the
// operation. It is never retried and never swallowed.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return e.Reason }

func forbidden(reason string) *ForbiddenError {
	return &ForbiddenError{Reason: reason}
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries one entry per offending field or file.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: fmt.Sprintf(format, args...)}}}
}
