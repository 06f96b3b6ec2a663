package runs

import (
	"errors"
	"net/http"
)

// Domain errors for import run operations.
var (
	ErrNotFound  = errors.New("import run not found")
	ErrDuplicate = errors.New("import run already exists")
	ErrFinished  = errors.New("import run already finished")
)

// MapHTTPStatus maps import run errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrFinished) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
