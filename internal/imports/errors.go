package imports

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/JaimeStill/gradebook/internal/reconcile"
	"github.com/JaimeStill/gradebook/internal/runs"
	"github.com/JaimeStill/gradebook/internal/snapshot"
	"github.com/JaimeStill/gradebook/internal/store"
	"github.com/JaimeStill/gradebook/pkg/formatting"
	"github.com/JaimeStill/gradebook/pkg/lock"
	"github.com/JaimeStill/gradebook/pkg/storage"
)

// Domain errors for import operations.
var (
	ErrTeacherNotFound = errors.New("teacher not found")
	ErrInvalidRequest  = errors.New("invalid import request")
)

// MapHTTPStatus maps errors raised anywhere in the import pipeline to HTTP
// status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrTeacherNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	}

	mappers := []func(error) int{
		reconcile.MapHTTPStatus,
		lock.MapHTTPStatus,
		store.MapHTTPStatus,
		runs.MapHTTPStatus,
		storage.MapHTTPStatus,
	}
	for _, m := range mappers {
		if status := m(err); status != http.StatusInternalServerError {
			return status
		}
	}
	return http.StatusInternalServerError
}

func tooLarge(limit int64) error {
	return fmt.Errorf("%w: limit is %s", snapshot.ErrTooLarge, formatting.FormatBytes(limit, 1))
}
