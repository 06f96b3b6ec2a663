package reconcile

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/gradebook/internal/snapshot"
)

// Precondition errors. The merger performs no I/O, so every error it returns
// is a rejected input rather than a transient failure.
var (
	ErrMissingID      = errors.New("entity missing stable id")
	ErrDuplicateID    = errors.New("stable id appears more than once")
	ErrMultipleLatest = errors.New("submission lineage has more than one latest row")
	ErrUnknownRow     = errors.New("update targets a row that does not exist")
	ErrGradeLocked    = errors.New("grade is locked")
)

// MapHTTPStatus maps reconciliation errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, snapshot.ErrIdentityCollision),
		errors.Is(err, ErrMissingID),
		errors.Is(err, ErrDuplicateID):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrMultipleLatest),
		errors.Is(err, ErrUnknownRow),
		errors.Is(err, ErrGradeLocked):
		return http.StatusConflict
	}
	return snapshot.MapHTTPStatus(err)
}
