// Package core defines the normalized entities persisted by the entity store.
// Every entity is addressed by a stable id derived through pkg/identity.
package core

import (
	"fmt"
	"slices"
	"time"
)

// Meta carries creation and update timestamps. It is never compared when
// deciding whether an entity changed.
type Meta struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Teacher owns a set of classrooms and is identified by email.
type Teacher struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	DisplayName  string   `json:"display_name"`
	Role         string   `json:"role"`
	ClassroomIDs []string `json:"classroom_ids"`
	Meta
}

// SameAs reports whether the mutable fields of t and o are equal.
func (t Teacher) SameAs(o Teacher) bool {
	return t.Email == o.Email &&
		t.DisplayName == o.DisplayName &&
		t.Role == o.Role &&
		slices.Equal(t.ClassroomIDs, o.ClassroomIDs)
}

// Classroom is a course owned by one teacher.
type Classroom struct {
	ID              string         `json:"id"`
	TeacherID       string         `json:"teacher_id"`
	ExternalID      string         `json:"external_id"`
	Name            string         `json:"name"`
	Section         string         `json:"section"`
	State           ClassroomState `json:"state"`
	StudentCount    int            `json:"student_count"`
	AssignmentCount int            `json:"assignment_count"`
	SubmissionCount int            `json:"submission_count"`
	UngradedCount   int            `json:"ungraded_count"`
	StudentIDs      []string       `json:"student_ids"`
	AssignmentIDs   []string       `json:"assignment_ids"`
	Meta
}

// SameAs reports whether the mutable fields of c and o are equal.
func (c Classroom) SameAs(o Classroom) bool {
	return c.TeacherID == o.TeacherID &&
		c.ExternalID == o.ExternalID &&
		c.Name == o.Name &&
		c.Section == o.Section &&
		c.State == o.State &&
		c.StudentCount == o.StudentCount &&
		c.AssignmentCount == o.AssignmentCount &&
		c.SubmissionCount == o.SubmissionCount &&
		c.UngradedCount == o.UngradedCount &&
		slices.Equal(c.StudentIDs, o.StudentIDs) &&
		slices.Equal(c.AssignmentIDs, o.AssignmentIDs)
}

// Assignment is a unit of coursework within a classroom.
type Assignment struct {
	ID              string          `json:"id"`
	ClassroomID     string          `json:"classroom_id"`
	ExternalID      string          `json:"external_id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Type            AssignmentType  `json:"type"`
	MaxScore        float64         `json:"max_score"`
	State           AssignmentState `json:"state"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
	SubmissionCount int             `json:"submission_count"`
	GradedCount     int             `json:"graded_count"`
	UngradedCount   int             `json:"ungraded_count"`
	Meta
}

// SameAs reports whether the mutable fields of a and o are equal.
func (a Assignment) SameAs(o Assignment) bool {
	return a.ClassroomID == o.ClassroomID &&
		a.ExternalID == o.ExternalID &&
		a.Title == o.Title &&
		a.Description == o.Description &&
		a.Type == o.Type &&
		a.MaxScore == o.MaxScore &&
		a.State == o.State &&
		sameTime(a.DueDate, o.DueDate) &&
		a.SubmissionCount == o.SubmissionCount &&
		a.GradedCount == o.GradedCount &&
		a.UngradedCount == o.UngradedCount
}

// Enrollment records a student's membership in a classroom.
type Enrollment struct {
	ID              string           `json:"id"`
	ClassroomID     string           `json:"classroom_id"`
	StudentID       string           `json:"student_id"`
	Email           string           `json:"email"`
	Name            string           `json:"name"`
	Status          EnrollmentStatus `json:"status"`
	SubmissionCount int              `json:"submission_count"`
	GradedCount     int              `json:"graded_count"`
	Meta
}

// SameAs reports whether the mutable fields of e and o are equal.
func (e Enrollment) SameAs(o Enrollment) bool {
	return e.ClassroomID == o.ClassroomID &&
		e.StudentID == o.StudentID &&
		e.Email == o.Email &&
		e.Name == o.Name &&
		e.Status == o.Status &&
		e.SubmissionCount == o.SubmissionCount &&
		e.GradedCount == o.GradedCount
}

// Submission is one versioned row of a submission lineage. ID names the
// lineage slot; ID plus Version names the row.
type Submission struct {
	ID             string           `json:"id"`
	Version        int              `json:"version"`
	IsLatest       bool             `json:"is_latest"`
	AssignmentID   string           `json:"assignment_id"`
	ClassroomID    string           `json:"classroom_id"`
	StudentID      string           `json:"student_id"`
	ExternalID     string           `json:"external_id"`
	Content        *Content         `json:"content,omitempty"`
	Status         SubmissionStatus `json:"status"`
	ProviderStatus string           `json:"provider_status"`
	Late           bool             `json:"late"`
	SubmittedAt    *time.Time       `json:"submitted_at,omitempty"`
	Source         string           `json:"source"`
	Embedded       *EmbeddedGrade   `json:"-"`
	Meta
}

// Key returns the row key of s.
func (s Submission) Key() RowKey {
	return RowKey{ID: s.ID, Version: s.Version}
}

// SameMetadata reports whether the non-content fields of s and o are equal.
// Version, IsLatest, and Source are row bookkeeping and are not compared.
func (s Submission) SameMetadata(o Submission) bool {
	return s.AssignmentID == o.AssignmentID &&
		s.ClassroomID == o.ClassroomID &&
		s.StudentID == o.StudentID &&
		s.ExternalID == o.ExternalID &&
		s.Status == o.Status &&
		s.ProviderStatus == o.ProviderStatus &&
		s.Late == o.Late &&
		sameTime(s.SubmittedAt, o.SubmittedAt)
}

// RowKey addresses one version of a submission lineage.
type RowKey struct {
	ID      string `json:"id"`
	Version int    `json:"version"`
}

func (k RowKey) String() string {
	return fmt.Sprintf("%s@v%d", k.ID, k.Version)
}

// Content is the student-authored payload of a submission.
type Content struct {
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment references a file, link, or form response attached to a submission.
type Attachment struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// EmbeddedGrade is a provider grade carried on a transformed submission
// until the grade extractor turns it into a Grade.
type EmbeddedGrade struct {
	Score    float64
	MaxScore float64
	Feedback string
	Origin   string
	GradedAt *time.Time
}

// Grade is a score attached to one submission row.
type Grade struct {
	SubmissionID      string     `json:"submission_id"`
	SubmissionVersion int        `json:"submission_version"`
	Score             float64    `json:"score"`
	MaxScore          float64    `json:"max_score"`
	Feedback          string     `json:"feedback"`
	GradedBy          GradedBy   `json:"graded_by"`
	GradedAt          *time.Time `json:"graded_at,omitempty"`
	IsLocked          bool       `json:"is_locked"`
	LockReason        string     `json:"lock_reason,omitempty"`
	Meta
}

// Key returns the row key of the submission the grade belongs to.
func (g Grade) Key() RowKey {
	return RowKey{ID: g.SubmissionID, Version: g.SubmissionVersion}
}

// SameAs reports whether g and o record the same grading decision. Timestamps
// of the grade record itself are ignored.
func (g Grade) SameAs(o Grade) bool {
	return g.Key() == o.Key() &&
		g.Score == o.Score &&
		g.MaxScore == o.MaxScore &&
		g.Feedback == o.Feedback &&
		g.GradedBy == o.GradedBy &&
		sameTime(g.GradedAt, o.GradedAt) &&
		g.IsLocked == o.IsLocked &&
		g.LockReason == o.LockReason
}

// Percentage returns Score as a percentage of MaxScore.
// The second result is false when MaxScore is not positive.
func (g Grade) Percentage() (float64, bool) {
	if g.MaxScore <= 0 {
		return 0, false
	}
	return g.Score / g.MaxScore * 100, true
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
