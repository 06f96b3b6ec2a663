package core

// ClassroomState is the internal lifecycle of a classroom.
type ClassroomState string

const (
	ClassroomActive      ClassroomState = "ACTIVE"
	ClassroomArchived    ClassroomState = "ARCHIVED"
	ClassroomProvisioned ClassroomState = "PROVISIONED"
	ClassroomSuspended   ClassroomState = "SUSPENDED"
)

// AssignmentType is the internal category of an assignment.
type AssignmentType string

const (
	AssignmentWritten AssignmentType = "assignment"
	AssignmentQuiz    AssignmentType = "quiz"
)

// AssignmentState is the internal lifecycle of an assignment.
type AssignmentState string

const (
	AssignmentPublished AssignmentState = "published"
	AssignmentDraft     AssignmentState = "draft"
	AssignmentArchived  AssignmentState = "archived"
)

// EnrollmentStatus is a student's membership state in a classroom.
type EnrollmentStatus string

const (
	EnrollmentActive  EnrollmentStatus = "active"
	EnrollmentRemoved EnrollmentStatus = "removed"
)

// SubmissionStatus is the internal processing state of a submission.
type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionGrading   SubmissionStatus = "grading"
	SubmissionGraded    SubmissionStatus = "graded"
	SubmissionError     SubmissionStatus = "error"
)

// Ungraded reports whether the status is non-terminal and still awaiting a grade.
func (s SubmissionStatus) Ungraded() bool {
	return s == SubmissionPending || s == SubmissionSubmitted
}

// GradedBy records the origin of a grade.
type GradedBy string

const (
	GradedAutomated GradedBy = "automated"
	GradedManual    GradedBy = "manual"
)
