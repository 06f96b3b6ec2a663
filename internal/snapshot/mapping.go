package snapshot

import (
	"strings"

	"github.com/JaimeStill/gradebook/internal/core"
)

const (
	defaultSource   = "snapshot"
	defaultRole     = "teacher"
	defaultMaxScore = 100
)

// ClassroomState maps a provider course state onto the internal lifecycle.
// A missing state means ACTIVE. DECLINED and anything unrecognized collapse
// to ARCHIVED since they are not actionable.
func ClassroomState(raw string) core.ClassroomState {
	switch normalize(raw) {
	case "", "active":
		return core.ClassroomActive
	case "provisioned":
		return core.ClassroomProvisioned
	case "suspended":
		return core.ClassroomSuspended
	default:
		return core.ClassroomArchived
	}
}

// AssignmentType maps provider and legacy coursework types onto the internal set.
// Quiz-like work is kept separate; every other type, including legacy coding and
// written work, is a generic assignment. Attached quiz data marks a quiz regardless
// of the declared type.
func AssignmentType(raw string, quiz *QuizData) core.AssignmentType {
	if quiz != nil && (quiz.IsQuiz || quiz.FormID != "") {
		return core.AssignmentQuiz
	}
	switch normalize(raw) {
	case "quiz", "test", "exam", "form",
		"multiple_choice_question", "short_answer_question":
		return core.AssignmentQuiz
	default:
		return core.AssignmentWritten
	}
}

// AssignmentState maps a provider coursework state onto the internal lifecycle.
func AssignmentState(raw string) core.AssignmentState {
	switch normalize(raw) {
	case "", "published":
		return core.AssignmentPublished
	case "draft":
		return core.AssignmentDraft
	default:
		return core.AssignmentArchived
	}
}

// EnrollmentStatus is active unless the roster entry is explicitly removed.
func EnrollmentStatus(s Student) core.EnrollmentStatus {
	if s.Removed || normalize(s.Status) == "removed" {
		return core.EnrollmentRemoved
	}
	return core.EnrollmentActive
}

// SubmissionStatus maps a provider submission state onto the internal status.
// A submission that carries a grade is graded unless the provider reports
// grading in progress or an error.
func SubmissionStatus(raw string, graded bool) core.SubmissionStatus {
	var status core.SubmissionStatus
	switch normalize(raw) {
	case "submitted", "turned_in", "late":
		status = core.SubmissionSubmitted
	case "grading":
		status = core.SubmissionGrading
	case "graded", "returned":
		status = core.SubmissionGraded
	case "error":
		status = core.SubmissionError
	default:
		status = core.SubmissionPending
	}

	if graded && status.Ungraded() {
		return core.SubmissionGraded
	}
	return status
}

func normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
