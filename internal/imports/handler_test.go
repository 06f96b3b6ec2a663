package imports_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/gradebook/internal/imports"
	"github.com/JaimeStill/gradebook/pkg/routes"
)

func newMux(f *fixture) *http.ServeMux {
	mux := http.NewServeMux()
	routes.Register(mux, imports.NewHandler(f.sys, discard(), 4096).Routes())
	return mux
}

func serve(mux *http.ServeMux, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandlerImport(t *testing.T) {
	f := newFixture()
	mux := newMux(f)

	tests := []struct {
		name       string
		path       string
		body       []byte
		wantStatus int
	}{
		{"import", "/imports", doc(teacherEmail, "essay"), http.StatusCreated},
		{"preview", "/imports/preview", doc(teacherEmail, "revised"), http.StatusOK},
		{"malformed", "/imports", []byte("{"), http.StatusBadRequest},
		{"too large", "/imports", bytes.Repeat([]byte(" "), 8192), http.StatusRequestEntityTooLarge},
		{"replay missing key", "/imports/replay", []byte(`{}`), http.StatusBadRequest},
		{"replay unknown key", "/imports/replay", []byte(`{"key": "snapshots/none.json"}`), http.StatusNotFound},
		{"batch empty", "/imports/batch", []byte(`[]`), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(mux, "POST", tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content-type = %s", ct)
			}
		})
	}
}

func TestHandlerBatch(t *testing.T) {
	f := newFixture()
	mux := newMux(f)

	body := "[" + string(doc("a@school.edu", "essay")) + "," + string(doc("b@school.edu", "essay")) + "]"
	rec := serve(mux, "POST", "/imports/batch", []byte(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var results []imports.BatchResult
	if err := json.NewDecoder(rec.Body).Decode(&results); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(results) != 2 || results[0].Error != "" || results[1].Error != "" {
		t.Errorf("results = %+v", results)
	}
}

func TestHandlerBatchTooLarge(t *testing.T) {
	f := newFixture()
	mux := http.NewServeMux()
	routes.Register(mux, imports.NewHandler(f.sys, discard(), 64).Routes())

	body := `["` + strings.Repeat("x", 4096) + `"]`
	rec := serve(mux, "POST", "/imports/batch", []byte(body))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusRequestEntityTooLarge, rec.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(resp["error"], "2.0 KB") {
		t.Errorf("error = %q, want batch limit named", resp["error"])
	}
}

func TestHandlerStatsAndHistory(t *testing.T) {
	f := newFixture()
	mux := newMux(f)

	rec := serve(mux, "POST", "/imports", doc(teacherEmail, "essay"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body.String())
	}

	var out imports.Outcome
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}

	submissionID := "classroom:100:assignment:7:student:arnold_40school.edu:submission"

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"stats", "/teachers/" + teacherEmail + "/stats", http.StatusOK, `"total_classrooms":1`},
		{"stats unknown teacher", "/teachers/nobody@school.edu/stats", http.StatusNotFound, `"error"`},
		{"history", "/submissions/" + submissionID + "/history", http.StatusOK, `"version":1`},
		{"history unknown", "/submissions/missing/history", http.StatusNotFound, `"error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(mux, "GET", tt.path, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want containing %s", rec.Body.String(), tt.wantBody)
			}
		})
	}
}
