// Package identity derives deterministic internal identifiers from provider-assigned
// identifiers. Every function is pure: the same external input always yields the same id,
// so repeated imports of one external entity resolve to one internal entity.
//
// Ids are colon-separated segments. Literal namespace segments are fixed words and every
// external value is escaped so it never contains a colon, which keeps composition injective.
package identity

import (
	"errors"
	"fmt"
	"strings"
)

const (
	NamespaceTeacher    = "teacher"
	NamespaceClassroom  = "classroom"
	NamespaceAssignment = "assignment"
	NamespaceStudent    = "student"
	NamespaceEnrollment = "enrollment"
	NamespaceSubmission = "submission"

	separator = ":"
	escape    = '_'
	hexDigits = "0123456789abcdef"
)

var (
	// ErrEmptyExternalID indicates an identity component was empty.
	ErrEmptyExternalID = errors.New("external identifier must not be empty")
	// ErrScopeMismatch indicates a child id was composed with a parent it does not belong to.
	ErrScopeMismatch = errors.New("identifier not scoped under parent")
)

// Classroom derives a classroom id from the provider course id.
func Classroom(externalCourseID string) (string, error) {
	token, err := encodeToken(externalCourseID)
	if err != nil {
		return "", fmt.Errorf("classroom: %w", err)
	}
	return NamespaceClassroom + separator + token, nil
}

// Assignment derives an assignment id scoped within a classroom, so two classrooms
// may reuse the same provider assignment id without colliding.
func Assignment(classroomID, externalAssignmentID string) (string, error) {
	if !hasNamespace(classroomID, NamespaceClassroom) {
		return "", fmt.Errorf("assignment: %w: %q", ErrScopeMismatch, classroomID)
	}
	token, err := encodeToken(externalAssignmentID)
	if err != nil {
		return "", fmt.Errorf("assignment: %w", err)
	}
	return join(classroomID, NamespaceAssignment, token), nil
}

// Student derives a student id from an email address.
func Student(email string) (string, error) {
	token, err := NormalizeEmail(email)
	if err != nil {
		return "", fmt.Errorf("student: %w", err)
	}
	return NamespaceStudent + separator + token, nil
}

// Teacher derives a teacher id from an email address.
func Teacher(email string) (string, error) {
	token, err := NormalizeEmail(email)
	if err != nil {
		return "", fmt.Errorf("teacher: %w", err)
	}
	return NamespaceTeacher + separator + token, nil
}

// Enrollment derives the id of a student's membership in a classroom.
func Enrollment(classroomID, studentID string) (string, error) {
	if !hasNamespace(classroomID, NamespaceClassroom) {
		return "", fmt.Errorf("enrollment: %w: %q", ErrScopeMismatch, classroomID)
	}
	if !hasNamespace(studentID, NamespaceStudent) {
		return "", fmt.Errorf("enrollment: %w: %q", ErrScopeMismatch, studentID)
	}
	return join(classroomID, studentID, NamespaceEnrollment), nil
}

// Submission derives the submission slot for one student on one assignment.
// A resubmission reuses the slot; versioning captures the new content.
func Submission(classroomID, assignmentID, studentID string) (string, error) {
	if !hasNamespace(classroomID, NamespaceClassroom) {
		return "", fmt.Errorf("submission: %w: %q", ErrScopeMismatch, classroomID)
	}
	if !strings.HasPrefix(assignmentID, classroomID+separator+NamespaceAssignment+separator) {
		return "", fmt.Errorf("submission: %w: %q not in %q", ErrScopeMismatch, assignmentID, classroomID)
	}
	if !hasNamespace(studentID, NamespaceStudent) {
		return "", fmt.Errorf("submission: %w: %q", ErrScopeMismatch, studentID)
	}
	return join(assignmentID, studentID, NamespaceSubmission), nil
}

// NormalizeEmail lower-cases and trims an address, then escapes it.
// Distinct lower-cased addresses always produce distinct tokens.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return encodeToken(email)
}

func encodeToken(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyExternalID
	}

	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if safe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte(escape)
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0f])
	}
	return b.String(), nil
}

// safe reports bytes that pass through unescaped. The escape byte and the separator
// are excluded so decoding is unambiguous.
func safe(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '.' || c == '-':
		return true
	}
	return false
}

func hasNamespace(id, namespace string) bool {
	rest, ok := strings.CutPrefix(id, namespace+separator)
	return ok && rest != ""
}

func join(parts ...string) string {
	return strings.Join(parts, separator)
}
