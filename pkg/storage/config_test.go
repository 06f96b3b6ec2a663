package storage_test

import (
	"strings"
	"testing"

	"github.com/JaimeStill/gradebook/pkg/storage"
)

func TestFinalizeDefaults(t *testing.T) {
	cfg := storage.Config{ConnectionString: "test-connection"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.ContainerName != "snapshots" {
		t.Errorf("container_name: got %s, want snapshots", cfg.ContainerName)
	}
	if cfg.Provider != storage.ProviderAzure {
		t.Errorf("provider: got %s, want azure", cfg.Provider)
	}
	if cfg.MaxListSize != 50 {
		t.Errorf("max_list_size: got %d, want 50", cfg.MaxListSize)
	}
}

func TestFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_PROVIDER", "memory")
	t.Setenv("TEST_CONTAINER", "archive")
	t.Setenv("TEST_MAX_LIST", "99999")

	env := &storage.Env{
		Provider:      "TEST_PROVIDER",
		ContainerName: "TEST_CONTAINER",
		MaxListSize:   "TEST_MAX_LIST",
	}

	cfg := storage.Config{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.Provider != storage.ProviderMemory || cfg.ContainerName != "archive" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.MaxListSize != storage.MaxListCap {
		t.Errorf("max_list_size: got %d, want cap", cfg.MaxListSize)
	}
}

func TestFinalizeValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     storage.Config
		wantErr string
	}{
		{"azure missing connection_string", storage.Config{}, "connection_string required"},
		{"memory needs no connection_string", storage.Config{Provider: storage.ProviderMemory}, ""},
		{"unknown provider", storage.Config{Provider: "s3"}, "unknown provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := storage.Config{ContainerName: "snapshots", ConnectionString: "base"}
	base.Merge(&storage.Config{ConnectionString: "overlay", MaxListSize: 10})

	if base.ContainerName != "snapshots" || base.ConnectionString != "overlay" || base.MaxListSize != 10 {
		t.Errorf("merged = %+v", base)
	}
}
