package storage

import (
	"io"
	"strconv"
	"strings"
	"time"
)

// MaxListCap bounds a single list page.
const MaxListCap int32 = 5000

// BlobMeta describes a stored blob without its content.
type BlobMeta struct {
	Key           string    `json:"key"`
	ContentType   string    `json:"content_type"`
	ContentLength int64     `json:"content_length"`
	LastModified  time.Time `json:"last_modified"`
}

// BlobResult is an open blob stream. The caller must close Body.
type BlobResult struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// ListResult is one page of blob metadata. NextMarker is empty on the last page.
type ListResult struct {
	Blobs      []BlobMeta `json:"blobs"`
	NextMarker string     `json:"next_marker,omitempty"`
}

// ParseMaxResults parses a list page size, returning fallback for empty input
// and clamping to MaxListCap.
func ParseMaxResults(raw string, fallback int32) (int32, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, ErrInvalidMaxResults
	}
	return int32(min(n, int(MaxListCap))), nil
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}
