package reconcile_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/JaimeStill/gradebook/internal/core"
	"github.com/JaimeStill/gradebook/internal/reconcile"
	"github.com/JaimeStill/gradebook/internal/snapshot"
)

func ptr[T any](v T) *T { return &v }

var fetched = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func baseSnapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Teacher: &snapshot.Teacher{Email: "teacher@school.edu", Name: "Ms. Frizzle"},
		Classrooms: []snapshot.Classroom{
			{
				ID:          "100",
				Name:        "Science",
				CourseState: "ACTIVE",
				Assignments: []snapshot.Assignment{
					{ID: "7", Title: "Lab report", Type: "written", MaxScore: ptr(50.0)},
				},
				Students: []snapshot.Student{
					{UserID: "s1", Email: "arnold@school.edu", Name: "Arnold"},
					{UserID: "s2", Email: "wanda@school.edu", Name: "Wanda"},
				},
			},
		},
		Metadata: &snapshot.Metadata{FetchedAt: fetched, Source: "classroom"},
	}
}

func withSubmission(snap *snapshot.Snapshot, sub snapshot.Submission) *snapshot.Snapshot {
	snap.Classrooms[0].Submissions = append(snap.Classrooms[0].Submissions, sub)
	return snap
}

func transform(t *testing.T, snap *snapshot.Snapshot) *snapshot.Result {
	t.Helper()
	result, err := snapshot.Transform(snap)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	return result
}

func merge(t *testing.T, snap *snapshot.Snapshot, state *reconcile.State) *reconcile.Plan {
	t.Helper()
	plan, err := reconcile.Merge(transform(t, snap), state)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	return plan
}

func apply(t *testing.T, state *reconcile.State, plan *reconcile.Plan) *reconcile.State {
	t.Helper()
	next, err := state.Apply(plan)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return next
}

func submission(content string) snapshot.Submission {
	return snapshot.Submission{
		ID:           "sub-1",
		AssignmentID: "7",
		StudentEmail: "arnold@school.edu",
		Status:       "submitted",
		Content:      ptr(content),
	}
}

func TestMergeFirstImport(t *testing.T) {
	plan := merge(t, baseSnapshot(), reconcile.Empty())

	if got := len(plan.Classrooms.Create); got != 1 {
		t.Errorf("classrooms created = %d, want 1", got)
	}
	if got := len(plan.Assignments.Create); got != 1 {
		t.Errorf("assignments created = %d, want 1", got)
	}
	if got := len(plan.Enrollments.Create); got != 2 {
		t.Errorf("enrollments created = %d, want 2", got)
	}
	if got := len(plan.Submissions.Create); got != 0 {
		t.Errorf("submissions created = %d, want 0", got)
	}
	if got := len(plan.Teachers.Create); got != 1 {
		t.Errorf("teachers created = %d, want 1", got)
	}

	s := plan.Summary()
	if s.Updated != 0 || s.Versioned != 0 {
		t.Errorf("Summary = %+v, want no updates or versions", s)
	}
	if plan.TeacherID != "teacher:teacher_40school.edu" {
		t.Errorf("TeacherID = %q", plan.TeacherID)
	}
}

func TestMergeUnchangedReimport(t *testing.T) {
	snap := withSubmission(baseSnapshot(), submission("Hello World"))
	state := apply(t, reconcile.Empty(), merge(t, snap, reconcile.Empty()))

	again := withSubmission(baseSnapshot(), submission("Hello World"))
	again.Metadata.FetchedAt = fetched.Add(24 * time.Hour)

	plan := merge(t, again, state)
	if !plan.Empty() {
		t.Errorf("plan not empty on unchanged re-import: %+v", plan.Summary())
	}
}

func TestMergeResubmissionVersions(t *testing.T) {
	state := apply(t, reconcile.Empty(), merge(t, withSubmission(baseSnapshot(), submission("Hello World")), reconcile.Empty()))

	plan := merge(t, withSubmission(baseSnapshot(), submission("Hello World v2")), state)

	if len(plan.Submissions.Create) != 1 {
		t.Fatalf("submissions created = %d, want 1", len(plan.Submissions.Create))
	}
	created := plan.Submissions.Create[0]
	if created.Version != 2 || !created.IsLatest {
		t.Errorf("created row = v%d latest=%t, want v2 latest", created.Version, created.IsLatest)
	}
	if created.Content == nil || created.Content.Text != "Hello World v2" {
		t.Errorf("created content = %+v, want Hello World v2", created.Content)
	}

	if len(plan.Submissions.Update) != 1 {
		t.Fatalf("submissions updated = %d, want 1", len(plan.Submissions.Update))
	}
	superseded := plan.Submissions.Update[0]
	if superseded.Version != 1 || superseded.IsLatest {
		t.Errorf("superseded row = v%d latest=%t, want v1 not latest", superseded.Version, superseded.IsLatest)
	}
	if superseded.Content == nil || superseded.Content.Text != "Hello World" {
		t.Errorf("superseded content = %+v, want original", superseded.Content)
	}

	want := reconcile.Version{
		Superseded: core.RowKey{ID: created.ID, Version: 1},
		Current:    core.RowKey{ID: created.ID, Version: 2},
	}
	if len(plan.Submissions.Versioned) != 1 || plan.Submissions.Versioned[0] != want {
		t.Errorf("Versioned = %+v, want [%+v]", plan.Submissions.Versioned, want)
	}

	next := apply(t, state, plan)
	history := next.History(created.ID)
	if len(history) != 2 {
		t.Fatalf("History len = %d, want 2", len(history))
	}
	latest, ok := next.Latest(created.ID)
	if !ok || latest.Version != 2 {
		t.Errorf("Latest = v%d (%t), want v2", latest.Version, ok)
	}
	if !history[0].CreatedAt.Equal(fetched) {
		t.Errorf("v1 CreatedAt = %v, want %v", history[0].CreatedAt, fetched)
	}
}

func TestMergeLockedGradeStatusFlip(t *testing.T) {
	graded := submission("Essay")
	graded.Grade = &snapshot.Grade{Score: ptr(45.0), GradedBy: "manual", Feedback: "Nice"}

	first := merge(t, withSubmission(baseSnapshot(), graded), reconcile.Empty())
	if len(first.Grades.Create) != 1 {
		t.Fatalf("grades created = %d, want 1", len(first.Grades.Create))
	}
	g := first.Grades.Create[0]
	if !g.IsLocked || g.GradedBy != core.GradedManual {
		t.Fatalf("grade = %+v, want locked manual", g)
	}
	if g.MaxScore != 50 {
		t.Errorf("grade MaxScore = %v, want assignment max 50", g.MaxScore)
	}
	state := apply(t, reconcile.Empty(), first)

	late := graded
	late.Status = "late"
	late.Grade = &snapshot.Grade{Score: ptr(10.0), GradedBy: "automated"}

	plan := merge(t, withSubmission(baseSnapshot(), late), state)

	if len(plan.Submissions.Update) != 1 || len(plan.Submissions.Create) != 0 {
		t.Fatalf("submissions = %d created %d updated, want 0 and 1",
			len(plan.Submissions.Create), len(plan.Submissions.Update))
	}
	updated := plan.Submissions.Update[0]
	if updated.Version != 1 || !updated.IsLatest || !updated.Late || updated.ProviderStatus != "late" {
		t.Errorf("updated row = %+v, want v1 latest late", updated)
	}
	if plan.Grades.Len() != 0 {
		t.Errorf("grade writes = %d, want 0", plan.Grades.Len())
	}

	next := apply(t, state, plan)
	kept, ok := next.Grade(updated.Key())
	if !ok || kept.Score != 45 || !kept.IsLocked {
		t.Errorf("grade after re-import = %+v, want untouched locked 45", kept)
	}
}

func TestMergeGradeOnNewVersion(t *testing.T) {
	state := apply(t, reconcile.Empty(), merge(t, withSubmission(baseSnapshot(), submission("draft")), reconcile.Empty()))

	resubmitted := submission("final")
	resubmitted.Grade = &snapshot.Grade{Score: ptr(40.0), GradedBy: "automated"}
	plan := merge(t, withSubmission(baseSnapshot(), resubmitted), state)

	if len(plan.Grades.Create) != 1 {
		t.Fatalf("grades created = %d, want 1", len(plan.Grades.Create))
	}
	g := plan.Grades.Create[0]
	if g.SubmissionVersion != 2 || g.IsLocked {
		t.Errorf("grade = v%d locked=%t, want v2 unlocked", g.SubmissionVersion, g.IsLocked)
	}
}

func TestMergeContentAmbiguity(t *testing.T) {
	tests := []struct {
		name    string
		first   snapshot.Submission
		second  snapshot.Submission
		version bool
	}{
		{
			name:    "both omitted",
			first:   snapshot.Submission{ID: "a", AssignmentID: "7", StudentEmail: "arnold@school.edu"},
			second:  snapshot.Submission{ID: "a", AssignmentID: "7", StudentEmail: "arnold@school.edu"},
			version: false,
		},
		{
			name:    "content dropped",
			first:   submission("text"),
			second:  snapshot.Submission{ID: "sub-1", AssignmentID: "7", StudentEmail: "arnold@school.edu", Status: "submitted"},
			version: true,
		},
		{
			name: "attachments reordered",
			first: snapshot.Submission{ID: "a", AssignmentID: "7", StudentEmail: "arnold@school.edu",
				Attachments: []snapshot.Attachment{{ID: "f1"}, {ID: "f2"}}},
			second: snapshot.Submission{ID: "a", AssignmentID: "7", StudentEmail: "arnold@school.edu",
				Attachments: []snapshot.Attachment{{ID: "f2"}, {ID: "f1"}}},
			version: false,
		},
		{
			name: "attachment without id or url",
			first: snapshot.Submission{ID: "a", AssignmentID: "7", StudentEmail: "arnold@school.edu",
				Attachments: []snapshot.Attachment{{Type: "driveFile", Title: "notes"}}},
			second: snapshot.Submission{ID: "a", AssignmentID: "7", StudentEmail: "arnold@school.edu",
				Attachments: []snapshot.Attachment{{Type: "driveFile", Title: "notes"}}},
			version: false,
		},
		{
			name: "attachment retitled",
			first: snapshot.Submission{ID: "a", AssignmentID: "7", StudentEmail: "arnold@school.edu",
				Attachments: []snapshot.Attachment{{Type: "driveFile", Title: "notes"}}},
			second: snapshot.Submission{ID: "a", AssignmentID: "7", StudentEmail: "arnold@school.edu",
				Attachments: []snapshot.Attachment{{Type: "driveFile", Title: "notes v2"}}},
			version: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := apply(t, reconcile.Empty(), merge(t, withSubmission(baseSnapshot(), tt.first), reconcile.Empty()))
			plan := merge(t, withSubmission(baseSnapshot(), tt.second), state)

			if got := len(plan.Submissions.Versioned) == 1; got != tt.version {
				t.Errorf("versioned = %t, want %t", got, tt.version)
			}
		})
	}
}

func TestMergeAtMostOneLatest(t *testing.T) {
	contents := []string{"a", "a", "b", "c", "c", "b", "d"}

	state := reconcile.Empty()
	for i, c := range contents {
		snap := withSubmission(baseSnapshot(), submission(c))
		snap.Metadata.FetchedAt = fetched.Add(time.Duration(i) * time.Hour)
		state = apply(t, state, merge(t, snap, state))
	}

	id := state.LatestSubmissions()[0].ID
	history := state.History(id)

	latest := 0
	for i, row := range history {
		if row.Version != i+1 {
			t.Errorf("history[%d].Version = %d, want %d", i, row.Version, i+1)
		}
		if row.IsLatest {
			latest++
		}
	}
	if latest != 1 {
		t.Errorf("latest rows = %d, want 1", latest)
	}
	if len(history) != 5 {
		t.Errorf("versions = %d, want 5", len(history))
	}
}

func TestMergeIdempotentAfterApply(t *testing.T) {
	snap := withSubmission(baseSnapshot(), submission("x"))
	snap.Classrooms[0].Submissions[0].Grade = &snapshot.Grade{Score: ptr(20.0), GradedBy: "teacher"}

	state := reconcile.Empty()
	for range 3 {
		state = apply(t, state, merge(t, snap, state))
	}

	plan, err := reconcile.Merge(transform(t, snap), state)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !plan.Empty() {
		t.Errorf("plan not empty: %+v", plan.Summary())
	}
}

func TestMergeRepeatedImportKeepsOneRow(t *testing.T) {
	sub := submission("notes attached")
	sub.Attachments = []snapshot.Attachment{{Type: "driveFile", Title: "notes"}}
	sub.Grade = &snapshot.Grade{Score: ptr(30.0), GradedBy: "automated"}

	state := reconcile.Empty()
	for pass := range 4 {
		plan := merge(t, withSubmission(baseSnapshot(), sub), state)
		if pass > 0 && !plan.Empty() {
			t.Errorf("pass %d: plan = %+v, want empty", pass+1, plan.Summary())
		}
		if pass > 0 && len(plan.GradingQueue()) != 0 {
			t.Errorf("pass %d: grading queue = %d, want 0", pass+1, len(plan.GradingQueue()))
		}
		state = apply(t, state, plan)
	}

	latest := state.LatestSubmissions()
	if len(latest) != 1 {
		t.Fatalf("latest rows = %d, want 1", len(latest))
	}
	if rows := state.History(latest[0].ID); len(rows) != 1 {
		t.Errorf("lineage rows = %d, want 1", len(rows))
	}
	if got := len(state.Entities().Grades); got != 1 {
		t.Errorf("grades = %d, want 1", got)
	}
}

func TestMergeGradeRatchet(t *testing.T) {
	tests := []struct {
		name     string
		stored   snapshot.Grade
		incoming snapshot.Grade
		update   bool
		score    float64
		locked   bool
	}{
		{
			name:     "automated regrade replaces automated",
			stored:   snapshot.Grade{Score: ptr(20.0), GradedBy: "automated"},
			incoming: snapshot.Grade{Score: ptr(35.0), GradedBy: "automated"},
			update:   true,
			score:    35,
		},
		{
			name:     "manual grade replaces automated and locks",
			stored:   snapshot.Grade{Score: ptr(20.0), GradedBy: "automated"},
			incoming: snapshot.Grade{Score: ptr(42.0), GradedBy: "teacher"},
			update:   true,
			score:    42,
			locked:   true,
		},
		{
			name:     "automated regrade never replaces manual",
			stored:   snapshot.Grade{Score: ptr(45.0), GradedBy: "manual"},
			incoming: snapshot.Grade{Score: ptr(10.0), GradedBy: "automated"},
			score:    45,
			locked:   true,
		},
		{
			name:     "second manual grade never replaces manual",
			stored:   snapshot.Grade{Score: ptr(45.0), GradedBy: "manual"},
			incoming: snapshot.Grade{Score: ptr(48.0), GradedBy: "manual"},
			score:    45,
			locked:   true,
		},
		{
			name:     "unchanged automated grade",
			stored:   snapshot.Grade{Score: ptr(20.0), GradedBy: "automated"},
			incoming: snapshot.Grade{Score: ptr(20.0), GradedBy: "automated"},
			score:    20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := submission("essay")
			first.Grade = &tt.stored
			state := apply(t, reconcile.Empty(), merge(t, withSubmission(baseSnapshot(), first), reconcile.Empty()))

			second := submission("essay")
			second.Grade = &tt.incoming
			plan := merge(t, withSubmission(baseSnapshot(), second), state)

			if len(plan.Grades.Create) != 0 {
				t.Errorf("grades created = %d, want 0", len(plan.Grades.Create))
			}
			if got := len(plan.Grades.Update) == 1; got != tt.update {
				t.Fatalf("grade updated = %t, want %t", got, tt.update)
			}
			if tt.update && !plan.Grades.Update[0].CreatedAt.Equal(fetched) {
				t.Errorf("updated grade CreatedAt = %v, want %v", plan.Grades.Update[0].CreatedAt, fetched)
			}

			next := apply(t, state, plan)
			g, ok := next.Grade(next.LatestSubmissions()[0].Key())
			if !ok || g.Score != tt.score || g.IsLocked != tt.locked {
				t.Errorf("grade = %+v, want score %v locked %t", g, tt.score, tt.locked)
			}
		})
	}
}

func TestMergeUpdatesCarryCreatedAt(t *testing.T) {
	state := apply(t, reconcile.Empty(), merge(t, baseSnapshot(), reconcile.Empty()))

	renamed := baseSnapshot()
	renamed.Classrooms[0].Name = "Physics"
	renamed.Metadata.FetchedAt = fetched.Add(48 * time.Hour)

	plan := merge(t, renamed, state)
	if len(plan.Classrooms.Update) != 1 {
		t.Fatalf("classrooms updated = %d, want 1", len(plan.Classrooms.Update))
	}
	c := plan.Classrooms.Update[0]
	if !c.CreatedAt.Equal(fetched) {
		t.Errorf("CreatedAt = %v, want %v", c.CreatedAt, fetched)
	}
	if !c.UpdatedAt.Equal(renamed.Metadata.FetchedAt) {
		t.Errorf("UpdatedAt = %v, want %v", c.UpdatedAt, renamed.Metadata.FetchedAt)
	}
}

func TestGradingQueue(t *testing.T) {
	snap := baseSnapshot()
	withSubmission(snap, submission("ready"))
	withSubmission(snap, snapshot.Submission{
		ID: "sub-2", AssignmentID: "7", StudentEmail: "wanda@school.edu", Status: "created",
	})

	plan := merge(t, snap, reconcile.Empty())
	queue := plan.GradingQueue()
	if len(queue) != 1 {
		t.Fatalf("GradingQueue len = %d, want 1", len(queue))
	}
	if queue[0].StudentID != "student:arnold_40school.edu" {
		t.Errorf("queued student = %q", queue[0].StudentID)
	}
}

func TestMergePreconditions(t *testing.T) {
	t.Run("nil incoming", func(t *testing.T) {
		if _, err := reconcile.Merge(nil, nil); !errors.Is(err, reconcile.ErrMissingID) {
			t.Errorf("err = %v, want ErrMissingID", err)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		result := transform(t, baseSnapshot())
		result.Assignments[0].ID = ""
		if _, err := reconcile.Merge(result, reconcile.Empty()); !errors.Is(err, reconcile.ErrMissingID) {
			t.Errorf("err = %v, want ErrMissingID", err)
		}
	})

	t.Run("duplicate incoming id", func(t *testing.T) {
		result := transform(t, baseSnapshot())
		result.Enrollments[1] = result.Enrollments[0]
		if _, err := reconcile.Merge(result, reconcile.Empty()); !errors.Is(err, snapshot.ErrIdentityCollision) {
			t.Errorf("err = %v, want ErrIdentityCollision", err)
		}
	})
}

func TestNewState(t *testing.T) {
	row := core.Submission{ID: "s", Version: 1, IsLatest: true}

	tests := []struct {
		name string
		e    reconcile.Entities
		want error
	}{
		{"empty", reconcile.Entities{}, nil},
		{"missing classroom id", reconcile.Entities{Classrooms: []core.Classroom{{}}}, reconcile.ErrMissingID},
		{"duplicate teacher", reconcile.Entities{Teachers: []core.Teacher{{ID: "t"}, {ID: "t"}}}, reconcile.ErrDuplicateID},
		{"duplicate row", reconcile.Entities{Submissions: []core.Submission{row, row}}, reconcile.ErrDuplicateID},
		{
			"two latest",
			reconcile.Entities{Submissions: []core.Submission{row, {ID: "s", Version: 2, IsLatest: true}}},
			reconcile.ErrMultipleLatest,
		},
		{"grade without submission id", reconcile.Entities{Grades: []core.Grade{{}}}, reconcile.ErrMissingID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reconcile.NewState(tt.e)
			if tt.want == nil && err != nil {
				t.Fatalf("NewState: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestApplyRejectsInconsistentPlans(t *testing.T) {
	t.Run("update unknown row", func(t *testing.T) {
		plan := &reconcile.Plan{}
		plan.Submissions.Update = []core.Submission{{ID: "s", Version: 1}}
		if _, err := reconcile.Empty().Apply(plan); !errors.Is(err, reconcile.ErrUnknownRow) {
			t.Errorf("err = %v, want ErrUnknownRow", err)
		}
	})

	t.Run("replace locked grade", func(t *testing.T) {
		locked := core.Grade{SubmissionID: "s", SubmissionVersion: 1, Score: 9, GradedBy: core.GradedManual, IsLocked: true}
		state, err := reconcile.NewState(reconcile.Entities{
			Submissions: []core.Submission{{ID: "s", Version: 1, IsLatest: true}},
			Grades:      []core.Grade{locked},
		})
		if err != nil {
			t.Fatalf("NewState: %v", err)
		}
		regrade := locked
		regrade.Score, regrade.GradedBy, regrade.IsLocked = 1, core.GradedAutomated, false
		plan := &reconcile.Plan{}
		plan.Grades.Update = []core.Grade{regrade}
		if _, err := state.Apply(plan); !errors.Is(err, reconcile.ErrGradeLocked) {
			t.Errorf("err = %v, want ErrGradeLocked", err)
		}
	})

	t.Run("update unknown grade", func(t *testing.T) {
		plan := &reconcile.Plan{}
		plan.Grades.Update = []core.Grade{{SubmissionID: "s", SubmissionVersion: 1}}
		if _, err := reconcile.Empty().Apply(plan); !errors.Is(err, reconcile.ErrUnknownRow) {
			t.Errorf("err = %v, want ErrUnknownRow", err)
		}
	})

	t.Run("second latest row", func(t *testing.T) {
		state, err := reconcile.NewState(reconcile.Entities{
			Submissions: []core.Submission{{ID: "s", Version: 1, IsLatest: true}},
		})
		if err != nil {
			t.Fatalf("NewState: %v", err)
		}
		plan := &reconcile.Plan{}
		plan.Submissions.Create = []core.Submission{{ID: "s", Version: 2, IsLatest: true}}
		if _, err := state.Apply(plan); !errors.Is(err, reconcile.ErrMultipleLatest) {
			t.Errorf("err = %v, want ErrMultipleLatest", err)
		}
	})
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing id", reconcile.ErrMissingID, http.StatusUnprocessableEntity},
		{"collision", snapshot.ErrIdentityCollision, http.StatusUnprocessableEntity},
		{"multiple latest", reconcile.ErrMultipleLatest, http.StatusConflict},
		{"locked grade", reconcile.ErrGradeLocked, http.StatusConflict},
		{"wrapped unknown row", fmt.Errorf("apply: %w", reconcile.ErrUnknownRow), http.StatusConflict},
		{"malformed", snapshot.ErrMalformed, http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reconcile.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
