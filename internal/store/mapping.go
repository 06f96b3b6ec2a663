package store

import (
	"encoding/json"
	"fmt"

	"github.com/JaimeStill/gradebook/internal/core"
	"github.com/JaimeStill/gradebook/pkg/query"
	"github.com/JaimeStill/gradebook/pkg/repository"
)

const scopeColumn = "c.teacher_id"

var teacherProjection = query.
	NewProjectionMap("public", "teachers", "t").
	Project("id", "ID").
	Project("email", "Email").
	Project("display_name", "DisplayName").
	Project("role", "Role").
	Project("classroom_ids", "ClassroomIDs").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var classroomProjection = query.
	NewProjectionMap("public", "classrooms", "c").
	Project("id", "ID").
	Project("teacher_id", "TeacherID").
	Project("external_id", "ExternalID").
	Project("name", "Name").
	Project("section", "Section").
	Project("state", "State").
	Project("student_count", "StudentCount").
	Project("assignment_count", "AssignmentCount").
	Project("submission_count", "SubmissionCount").
	Project("ungraded_count", "UngradedCount").
	Project("student_ids", "StudentIDs").
	Project("assignment_ids", "AssignmentIDs").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var assignmentProjection = query.
	NewProjectionMap("public", "assignments", "a").
	Project("id", "ID").
	Project("classroom_id", "ClassroomID").
	Project("external_id", "ExternalID").
	Project("title", "Title").
	Project("description", "Description").
	Project("type", "Type").
	Project("max_score", "MaxScore").
	Project("state", "State").
	Project("due_date", "DueDate").
	Project("submission_count", "SubmissionCount").
	Project("graded_count", "GradedCount").
	Project("ungraded_count", "UngradedCount").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt").
	Join("public", "classrooms", "c", "JOIN", "c.id = a.classroom_id")

var enrollmentProjection = query.
	NewProjectionMap("public", "enrollments", "e").
	Project("id", "ID").
	Project("classroom_id", "ClassroomID").
	Project("student_id", "StudentID").
	Project("email", "Email").
	Project("name", "Name").
	Project("status", "Status").
	Project("submission_count", "SubmissionCount").
	Project("graded_count", "GradedCount").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt").
	Join("public", "classrooms", "c", "JOIN", "c.id = e.classroom_id")

var submissionProjection = query.
	NewProjectionMap("public", "submissions", "s").
	Project("id", "ID").
	Project("version", "Version").
	Project("is_latest", "IsLatest").
	Project("assignment_id", "AssignmentID").
	Project("classroom_id", "ClassroomID").
	Project("student_id", "StudentID").
	Project("external_id", "ExternalID").
	Project("content", "Content").
	Project("status", "Status").
	Project("provider_status", "ProviderStatus").
	Project("late", "Late").
	Project("submitted_at", "SubmittedAt").
	Project("source", "Source").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt").
	Join("public", "classrooms", "c", "JOIN", "c.id = s.classroom_id")

var gradeProjection = query.
	NewProjectionMap("public", "grades", "g").
	Project("submission_id", "SubmissionID").
	Project("submission_version", "SubmissionVersion").
	Project("score", "Score").
	Project("max_score", "MaxScore").
	Project("feedback", "Feedback").
	Project("graded_by", "GradedBy").
	Project("graded_at", "GradedAt").
	Project("is_locked", "IsLocked").
	Project("lock_reason", "LockReason").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt").
	Join("public", "submissions", "s", "JOIN", "s.id = g.submission_id AND s.version = g.submission_version").
	Join("public", "classrooms", "c", "JOIN", "c.id = s.classroom_id")

var (
	byID      = query.SortField{Field: "ID"}
	byVersion = query.SortField{Field: "Version"}
	byRowKey  = []query.SortField{{Field: "SubmissionID"}, {Field: "SubmissionVersion"}}
)

func scanTeacher(s repository.Scanner) (core.Teacher, error) {
	var t core.Teacher
	var classroomIDs []byte

	err := s.Scan(
		&t.ID,
		&t.Email,
		&t.DisplayName,
		&t.Role,
		&classroomIDs,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return t, err
	}

	if err := unmarshalIDs(classroomIDs, &t.ClassroomIDs); err != nil {
		return t, fmt.Errorf("unmarshal classroom_ids: %w", err)
	}
	return t, nil
}

func scanClassroom(s repository.Scanner) (core.Classroom, error) {
	var c core.Classroom
	var studentIDs, assignmentIDs []byte

	err := s.Scan(
		&c.ID,
		&c.TeacherID,
		&c.ExternalID,
		&c.Name,
		&c.Section,
		&c.State,
		&c.StudentCount,
		&c.AssignmentCount,
		&c.SubmissionCount,
		&c.UngradedCount,
		&studentIDs,
		&assignmentIDs,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return c, err
	}

	if err := unmarshalIDs(studentIDs, &c.StudentIDs); err != nil {
		return c, fmt.Errorf("unmarshal student_ids: %w", err)
	}
	if err := unmarshalIDs(assignmentIDs, &c.AssignmentIDs); err != nil {
		return c, fmt.Errorf("unmarshal assignment_ids: %w", err)
	}
	return c, nil
}

func scanAssignment(s repository.Scanner) (core.Assignment, error) {
	var a core.Assignment
	err := s.Scan(
		&a.ID,
		&a.ClassroomID,
		&a.ExternalID,
		&a.Title,
		&a.Description,
		&a.Type,
		&a.MaxScore,
		&a.State,
		&a.DueDate,
		&a.SubmissionCount,
		&a.GradedCount,
		&a.UngradedCount,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

func scanEnrollment(s repository.Scanner) (core.Enrollment, error) {
	var e core.Enrollment
	err := s.Scan(
		&e.ID,
		&e.ClassroomID,
		&e.StudentID,
		&e.Email,
		&e.Name,
		&e.Status,
		&e.SubmissionCount,
		&e.GradedCount,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	return e, err
}

func scanSubmission(s repository.Scanner) (core.Submission, error) {
	var sub core.Submission
	var content []byte

	err := s.Scan(
		&sub.ID,
		&sub.Version,
		&sub.IsLatest,
		&sub.AssignmentID,
		&sub.ClassroomID,
		&sub.StudentID,
		&sub.ExternalID,
		&content,
		&sub.Status,
		&sub.ProviderStatus,
		&sub.Late,
		&sub.SubmittedAt,
		&sub.Source,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return sub, err
	}

	if len(content) > 0 {
		sub.Content = &core.Content{}
		if err := json.Unmarshal(content, sub.Content); err != nil {
			return sub, fmt.Errorf("unmarshal content: %w", err)
		}
	}
	return sub, nil
}

func scanGrade(s repository.Scanner) (core.Grade, error) {
	var g core.Grade
	err := s.Scan(
		&g.SubmissionID,
		&g.SubmissionVersion,
		&g.Score,
		&g.MaxScore,
		&g.Feedback,
		&g.GradedBy,
		&g.GradedAt,
		&g.IsLocked,
		&g.LockReason,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	return g, err
}

func unmarshalIDs(raw []byte, dst *[]string) error {
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, dst); err != nil {
			return err
		}
	}
	if *dst == nil {
		*dst = []string{}
	}
	return nil
}

func marshalIDs(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(ids)
}

func marshalContent(c *core.Content) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}
