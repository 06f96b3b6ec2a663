package storage_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/JaimeStill/gradebook/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     storage.Config
		wantErr bool
	}{
		{"azure", storage.Config{Provider: storage.ProviderAzure, ContainerName: "snapshots", ConnectionString: azuriteConnString}, false},
		{"memory", storage.Config{Provider: storage.ProviderMemory, ContainerName: "snapshots"}, false},
		{"invalid connection string", storage.Config{Provider: storage.ProviderAzure, ConnectionString: "not-a-connection-string"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys, err := storage.New(&tt.cfg, discard())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if sys == nil {
				t.Fatal("New() returned nil system")
			}
		})
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", storage.ErrNotFound, http.StatusNotFound},
		{"empty key", storage.ErrEmptyKey, http.StatusBadRequest},
		{"invalid key", storage.ErrInvalidKey, http.StatusBadRequest},
		{"invalid max results", storage.ErrInvalidMaxResults, http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("operation failed: %w", storage.ErrNotFound), http.StatusNotFound},
		{"unknown", errors.New("unexpected failure"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := storage.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseMaxResults(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int32
		wantErr bool
	}{
		{"empty returns fallback", "", 50, false},
		{"valid value", "100", 100, false},
		{"clamped to cap", "9999", storage.MaxListCap, false},
		{"zero", "0", 0, true},
		{"negative", "-1", 0, true},
		{"non-numeric", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := storage.ParseMaxResults(tt.input, 50)
			if tt.wantErr {
				if !errors.Is(err, storage.ErrInvalidMaxResults) {
					t.Errorf("err = %v, want ErrInvalidMaxResults", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseMaxResults(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestKeyValidation(t *testing.T) {
	systems := map[string]storage.System{
		"memory": storage.NewMemory(discard()),
	}
	azure, err := storage.New(&storage.Config{
		Provider:         storage.ProviderAzure,
		ContainerName:    "snapshots",
		ConnectionString: azuriteConnString,
	}, discard())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	systems["azure"] = azure

	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"empty key", "", storage.ErrEmptyKey},
		{"path traversal", "snapshots/../secrets/key", storage.ErrInvalidKey},
		{"double dot in middle", "snapshots/..hidden/file.json", storage.ErrInvalidKey},
	}

	ctx := context.Background()

	for provider, sys := range systems {
		for _, tt := range tests {
			t.Run(provider+"/"+tt.name, func(t *testing.T) {
				if err := sys.Upload(ctx, tt.key, bytes.NewReader(nil), "application/json"); !errors.Is(err, tt.wantErr) {
					t.Errorf("Upload() error = %v, want %v", err, tt.wantErr)
				}
				if _, err := sys.Download(ctx, tt.key); !errors.Is(err, tt.wantErr) {
					t.Errorf("Download() error = %v, want %v", err, tt.wantErr)
				}
				if _, err := sys.Find(ctx, tt.key); !errors.Is(err, tt.wantErr) {
					t.Errorf("Find() error = %v, want %v", err, tt.wantErr)
				}
				if err := sys.Delete(ctx, tt.key); !errors.Is(err, tt.wantErr) {
					t.Errorf("Delete() error = %v, want %v", err, tt.wantErr)
				}
				if _, err := sys.Exists(ctx, tt.key); !errors.Is(err, tt.wantErr) {
					t.Errorf("Exists() error = %v, want %v", err, tt.wantErr)
				}
			})
		}
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory(discard())

	if err := m.Upload(ctx, "snapshots/t/1.json", strings.NewReader(`{"a":1}`), "application/json"); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	blob, err := m.Download(ctx, "snapshots/t/1.json")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer blob.Body.Close()

	data, _ := io.ReadAll(blob.Body)
	if string(data) != `{"a":1}` || blob.ContentType != "application/json" || blob.ContentLength != 7 {
		t.Errorf("blob = %q %s %d", data, blob.ContentType, blob.ContentLength)
	}

	if ok, _ := m.Exists(ctx, "snapshots/t/1.json"); !ok {
		t.Error("Exists = false, want true")
	}
	if err := m.Delete(ctx, "snapshots/t/1.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Find(ctx, "snapshots/t/1.json"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Find after delete err = %v, want ErrNotFound", err)
	}
	if err := m.Delete(ctx, "snapshots/t/1.json"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}
}

func TestMemoryList(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory(discard())

	for _, k := range []string{"a/3", "a/1", "a/2", "b/1"} {
		if err := m.Upload(ctx, k, strings.NewReader(k), "text/plain"); err != nil {
			t.Fatalf("Upload %s: %v", k, err)
		}
	}

	first, err := m.List(ctx, "a/", "", 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(first.Blobs) != 2 || first.Blobs[0].Key != "a/1" || first.NextMarker != "a/2" {
		t.Fatalf("first page = %+v", first)
	}

	second, err := m.List(ctx, "a/", first.NextMarker, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(second.Blobs) != 1 || second.Blobs[0].Key != "a/3" || second.NextMarker != "" {
		t.Errorf("second page = %+v", second)
	}
}
