package module_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/gradebook/pkg/module"
)

func TestNewPrefix(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		wantPanic bool
	}{
		{"api", "/api", false},
		{"admin", "/admin", false},
		{"empty", "", true},
		{"no leading slash", "api", true},
		{"nested path", "/api/v1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); (r != nil) != tt.wantPanic {
					t.Errorf("panic = %v, wantPanic %t", r, tt.wantPanic)
				}
			}()
			m := module.New(tt.prefix, http.NewServeMux())
			if m.Prefix() != tt.prefix {
				t.Errorf("prefix: got %s, want %s", m.Prefix(), tt.prefix)
			}
		})
	}
}

func TestServePrefixStripping(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		pattern  string
		wantPath string
	}{
		{"nested path", "/api/imports", "GET /imports", "/imports"},
		{"root path", "/api", "GET /", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var received string
			mux := http.NewServeMux()
			mux.HandleFunc(tt.pattern, func(w http.ResponseWriter, r *http.Request) {
				received = r.URL.Path
				w.WriteHeader(http.StatusOK)
			})

			m := module.New("/api", mux)
			rec := httptest.NewRecorder()
			m.Serve(rec, httptest.NewRequest("GET", tt.target, nil))

			if rec.Code != http.StatusOK {
				t.Errorf("status: got %d, want 200", rec.Code)
			}
			if received != tt.wantPath {
				t.Errorf("inner path: got %s, want %s", received, tt.wantPath)
			}
		})
	}
}

func TestModuleMiddleware(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	m := module.New("/api", mux)

	var called bool
	m.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			next.ServeHTTP(w, r)
		})
	})

	m.Serve(httptest.NewRecorder(), httptest.NewRequest("GET", "/api", nil))

	if !called {
		t.Error("module middleware was not called")
	}
}

func TestRouter(t *testing.T) {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /imports", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("runs"))
	})

	router := module.NewRouter()
	router.Mount(module.New("/api", apiMux))
	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{"module", "/api/imports", http.StatusOK, "runs"},
		{"trailing slash", "/api/imports/", http.StatusOK, "runs"},
		{"native fallback", "/healthz", http.StatusOK, "ok"},
		{"unmatched", "/metrics", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body: got %s, want %s", rec.Body.String(), tt.wantBody)
			}
		})
	}
}
