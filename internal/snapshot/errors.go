package snapshot

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Snapshot errors.
var (
	ErrMalformed         = errors.New("malformed snapshot")
	ErrTooLarge          = errors.New("snapshot exceeds maximum size")
	ErrIdentityCollision = errors.New("identity collision")
)

// FieldError names one failing field and the rule it failed.
type FieldError struct {
	Path string `json:"path"`
	Rule string `json:"rule"`
}

// ValidationError reports every field that failed boundary validation.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s (%s)", f.Path, f.Rule)
	}
	return fmt.Sprintf("%s: %s", ErrMalformed, strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrMalformed
}

// MapHTTPStatus maps snapshot errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	if errors.Is(err, ErrMalformed) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrIdentityCollision) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func malformed(segment string, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformed, segment, fmt.Sprintf(format, args...))
}
