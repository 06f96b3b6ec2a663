package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/gradebook/internal/core"
	"github.com/JaimeStill/gradebook/internal/reconcile"
	"github.com/JaimeStill/gradebook/internal/snapshot"
	"github.com/JaimeStill/gradebook/pkg/handlers"
)

func TestRespondJSON(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		data     any
		wantKeys []string
	}{
		{
			name:   "grade",
			status: http.StatusOK,
			data: core.Grade{
				SubmissionID: "classroom:1:assignment:7:student:s:submission", SubmissionVersion: 2,
				Score: 45, MaxScore: 50, GradedBy: core.GradedManual, IsLocked: true,
			},
			wantKeys: []string{"submission_id", "submission_version", "graded_by", "is_locked"},
		},
		{
			name:     "plan summary",
			status:   http.StatusCreated,
			data:     reconcile.Summary{Created: 3, Versioned: 1, Grades: 2},
			wantKeys: []string{"created", "updated", "versioned", "grades"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handlers.RespondJSON(rec, tt.status, tt.data)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content-type = %s", ct)
			}

			var parsed map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			for _, k := range tt.wantKeys {
				if _, ok := parsed[k]; !ok {
					t.Errorf("body %s missing %q", rec.Body.String(), k)
				}
			}
		})
	}
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    func(error) int
		want      int
		wantLevel string
	}{
		{
			name:      "malformed snapshot",
			err:       fmt.Errorf("%w: unexpected end of JSON input", snapshot.ErrMalformed),
			status:    snapshot.MapHTTPStatus,
			want:      http.StatusBadRequest,
			wantLevel: "WARN",
		},
		{
			name:      "locked grade",
			err:       fmt.Errorf("grade classroom:1@1: %w", reconcile.ErrGradeLocked),
			status:    reconcile.MapHTTPStatus,
			want:      http.StatusConflict,
			wantLevel: "WARN",
		},
		{
			name:      "store failure",
			err:       errors.New("connection reset"),
			status:    reconcile.MapHTTPStatus,
			want:      http.StatusInternalServerError,
			wantLevel: "ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, nil))
			rec := httptest.NewRecorder()

			handlers.RespondError(rec, logger, tt.status(tt.err), tt.err)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}

			body, _ := io.ReadAll(rec.Body)
			var parsed map[string]string
			if err := json.Unmarshal(body, &parsed); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if parsed["error"] != tt.err.Error() {
				t.Errorf("error = %q, want %q", parsed["error"], tt.err.Error())
			}
			if !strings.Contains(logs.String(), "level="+tt.wantLevel) {
				t.Errorf("log = %q, want level %s", logs.String(), tt.wantLevel)
			}
		})
	}
}
