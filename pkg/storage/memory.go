package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/JaimeStill/gradebook/pkg/lifecycle"
)

type memoryBlob struct {
	data        []byte
	contentType string
	modified    time.Time
}

// Memory is an in-process System. Blobs are lost when the process exits.
type Memory struct {
	mu     sync.RWMutex
	blobs  map[string]memoryBlob
	logger *slog.Logger
}

// NewMemory creates an empty in-memory storage system.
func NewMemory(logger *slog.Logger) *Memory {
	return &Memory{
		blobs:  make(map[string]memoryBlob),
		logger: logger.With("system", "storage", "provider", ProviderMemory),
	}
}

func (m *Memory) Start(lc *lifecycle.Coordinator) error {
	m.logger.Info("starting storage system")
	return nil
}

func (m *Memory) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("upload blob %s: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = memoryBlob{data: data, contentType: contentType, modified: time.Now().UTC()}
	return nil
}

func (m *Memory) Download(ctx context.Context, key string) (*BlobResult, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &BlobResult{
		Body:          io.NopCloser(bytes.NewReader(b.data)),
		ContentType:   b.contentType,
		ContentLength: int64(len(b.data)),
	}, nil
}

func (m *Memory) Find(ctx context.Context, key string) (*BlobMeta, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	meta := b.meta(key)
	return &meta, nil
}

// List pages through keys in lexical order. The marker is the last key of the
// previous page.
func (m *Memory) List(ctx context.Context, prefix, marker string, maxResults int32) (*ListResult, error) {
	if maxResults < 1 || maxResults > MaxListCap {
		maxResults = MaxListCap
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.blobs))
	for k := range m.blobs {
		if strings.HasPrefix(k, prefix) && k > marker {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	result := &ListResult{Blobs: []BlobMeta{}}
	for i, k := range keys {
		if int32(i) == maxResults {
			result.NextMarker = keys[i-1]
			break
		}
		result.Blobs = append(result.Blobs, m.blobs[k].meta(k))
	}
	return result, nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[key]; !ok {
		return ErrNotFound
	}
	delete(m.blobs, key)
	return nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.blobs[key]
	return ok, nil
}

func (b memoryBlob) meta(key string) BlobMeta {
	return BlobMeta{
		Key:           key,
		ContentType:   b.contentType,
		ContentLength: int64(len(b.data)),
		LastModified:  b.modified,
	}
}
