package lock

import (
	"errors"
	"net/http"
)

var (
	// ErrLocked indicates the key is held by another holder.
	ErrLocked = errors.New("lock held by another holder")
	// ErrNotHeld indicates a release for a lease that has expired or been taken over.
	ErrNotHeld = errors.New("lock not held")
	// ErrEmptyKey indicates an empty lock key was provided.
	ErrEmptyKey = errors.New("lock key must not be empty")
)

// MapHTTPStatus maps lock errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrLocked) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrEmptyKey) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
