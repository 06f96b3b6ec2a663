package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JaimeStill/gradebook/internal/core"
	"github.com/JaimeStill/gradebook/internal/reconcile"
)

const upsertTeacher = `
	INSERT INTO teachers(id, email, display_name, role, classroom_ids, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
		email = EXCLUDED.email,
		display_name = EXCLUDED.display_name,
		role = EXCLUDED.role,
		classroom_ids = EXCLUDED.classroom_ids,
		updated_at = EXCLUDED.updated_at`

const upsertClassroom = `
	INSERT INTO classrooms(
		id, teacher_id, external_id, name, section, state,
		student_count, assignment_count, submission_count, ungraded_count,
		student_ids, assignment_ids, created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (id) DO UPDATE SET
		teacher_id = EXCLUDED.teacher_id,
		external_id = EXCLUDED.external_id,
		name = EXCLUDED.name,
		section = EXCLUDED.section,
		state = EXCLUDED.state,
		student_count = EXCLUDED.student_count,
		assignment_count = EXCLUDED.assignment_count,
		submission_count = EXCLUDED.submission_count,
		ungraded_count = EXCLUDED.ungraded_count,
		student_ids = EXCLUDED.student_ids,
		assignment_ids = EXCLUDED.assignment_ids,
		updated_at = EXCLUDED.updated_at`

const upsertAssignment = `
	INSERT INTO assignments(
		id, classroom_id, external_id, title, description, type, max_score, state,
		due_date, submission_count, graded_count, ungraded_count, created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (id) DO UPDATE SET
		classroom_id = EXCLUDED.classroom_id,
		external_id = EXCLUDED.external_id,
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		type = EXCLUDED.type,
		max_score = EXCLUDED.max_score,
		state = EXCLUDED.state,
		due_date = EXCLUDED.due_date,
		submission_count = EXCLUDED.submission_count,
		graded_count = EXCLUDED.graded_count,
		ungraded_count = EXCLUDED.ungraded_count,
		updated_at = EXCLUDED.updated_at`

const upsertEnrollment = `
	INSERT INTO enrollments(
		id, classroom_id, student_id, email, name, status,
		submission_count, graded_count, created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (id) DO UPDATE SET
		classroom_id = EXCLUDED.classroom_id,
		student_id = EXCLUDED.student_id,
		email = EXCLUDED.email,
		name = EXCLUDED.name,
		status = EXCLUDED.status,
		submission_count = EXCLUDED.submission_count,
		graded_count = EXCLUDED.graded_count,
		updated_at = EXCLUDED.updated_at`

const upsertSubmission = `
	INSERT INTO submissions(
		id, version, is_latest, assignment_id, classroom_id, student_id, external_id,
		content, status, provider_status, late, submitted_at, source, created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (id, version) DO UPDATE SET
		is_latest = EXCLUDED.is_latest,
		assignment_id = EXCLUDED.assignment_id,
		classroom_id = EXCLUDED.classroom_id,
		student_id = EXCLUDED.student_id,
		external_id = EXCLUDED.external_id,
		content = EXCLUDED.content,
		status = EXCLUDED.status,
		provider_status = EXCLUDED.provider_status,
		late = EXCLUDED.late,
		submitted_at = EXCLUDED.submitted_at,
		source = EXCLUDED.source,
		updated_at = EXCLUDED.updated_at`

// A conflicting insert keeps the stored grade.
const insertGrade = `
	INSERT INTO grades(
		submission_id, submission_version, score, max_score, feedback,
		graded_by, graded_at, is_locked, lock_reason, created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (submission_id, submission_version) DO NOTHING`

// Locked grades are filtered here as well as in the merger.
const updateGrade = `
	UPDATE grades SET
		score = $3,
		max_score = $4,
		feedback = $5,
		graded_by = $6,
		graded_at = $7,
		is_locked = $8,
		lock_reason = $9,
		updated_at = $10
	WHERE submission_id = $1 AND submission_version = $2 AND NOT is_locked`

// applyPlan writes parents before children. Superseded submission rows are
// written before new rows so at most one row per lineage is latest at any
// statement boundary.
func applyPlan(ctx context.Context, tx *sql.Tx, p *reconcile.Plan) error {
	if err := execEach(ctx, tx, "teacher", upsertTeacher, concat(p.Teachers), teacherArgs); err != nil {
		return err
	}
	if err := execEach(ctx, tx, "classroom", upsertClassroom, concat(p.Classrooms), classroomArgs); err != nil {
		return err
	}
	if err := execEach(ctx, tx, "assignment", upsertAssignment, concat(p.Assignments), assignmentArgs); err != nil {
		return err
	}
	if err := execEach(ctx, tx, "enrollment", upsertEnrollment, concat(p.Enrollments), enrollmentArgs); err != nil {
		return err
	}
	if err := execEach(ctx, tx, "submission", upsertSubmission, p.Submissions.Update, submissionArgs); err != nil {
		return err
	}
	if err := execEach(ctx, tx, "submission", upsertSubmission, p.Submissions.Create, submissionArgs); err != nil {
		return err
	}
	if err := execEach(ctx, tx, "grade", updateGrade, p.Grades.Update, gradeUpdateArgs); err != nil {
		return err
	}
	return execEach(ctx, tx, "grade", insertGrade, p.Grades.Create, gradeArgs)
}

func execEach[T any](
	ctx context.Context,
	tx *sql.Tx,
	kind, stmt string,
	items []T,
	args func(T) ([]any, error),
) error {
	for _, item := range items {
		values, err := args(item)
		if err != nil {
			return fmt.Errorf("encode %s: %w", kind, err)
		}
		if _, err := tx.ExecContext(ctx, stmt, values...); err != nil {
			return fmt.Errorf("write %s: %w", kind, err)
		}
	}
	return nil
}

func concat[T any](c reconcile.Changes[T]) []T {
	out := make([]T, 0, c.Len())
	out = append(out, c.Update...)
	return append(out, c.Create...)
}

func teacherArgs(t core.Teacher) ([]any, error) {
	ids, err := marshalIDs(t.ClassroomIDs)
	if err != nil {
		return nil, err
	}
	return []any{t.ID, t.Email, t.DisplayName, t.Role, ids, t.CreatedAt, t.UpdatedAt}, nil
}

func classroomArgs(c core.Classroom) ([]any, error) {
	students, err := marshalIDs(c.StudentIDs)
	if err != nil {
		return nil, err
	}
	assignments, err := marshalIDs(c.AssignmentIDs)
	if err != nil {
		return nil, err
	}
	return []any{
		c.ID, c.TeacherID, c.ExternalID, c.Name, c.Section, string(c.State),
		c.StudentCount, c.AssignmentCount, c.SubmissionCount, c.UngradedCount,
		students, assignments, c.CreatedAt, c.UpdatedAt,
	}, nil
}

func assignmentArgs(a core.Assignment) ([]any, error) {
	return []any{
		a.ID, a.ClassroomID, a.ExternalID, a.Title, a.Description, string(a.Type),
		a.MaxScore, string(a.State), a.DueDate, a.SubmissionCount, a.GradedCount,
		a.UngradedCount, a.CreatedAt, a.UpdatedAt,
	}, nil
}

func enrollmentArgs(e core.Enrollment) ([]any, error) {
	return []any{
		e.ID, e.ClassroomID, e.StudentID, e.Email, e.Name, string(e.Status),
		e.SubmissionCount, e.GradedCount, e.CreatedAt, e.UpdatedAt,
	}, nil
}

func submissionArgs(s core.Submission) ([]any, error) {
	content, err := marshalContent(s.Content)
	if err != nil {
		return nil, err
	}
	return []any{
		s.ID, s.Version, s.IsLatest, s.AssignmentID, s.ClassroomID, s.StudentID,
		s.ExternalID, content, string(s.Status), s.ProviderStatus, s.Late,
		s.SubmittedAt, s.Source, s.CreatedAt, s.UpdatedAt,
	}, nil
}

func gradeArgs(g core.Grade) ([]any, error) {
	return []any{
		g.SubmissionID, g.SubmissionVersion, g.Score, g.MaxScore, g.Feedback,
		string(g.GradedBy), g.GradedAt, g.IsLocked, g.LockReason, g.CreatedAt, g.UpdatedAt,
	}, nil
}

func gradeUpdateArgs(g core.Grade) ([]any, error) {
	return []any{
		g.SubmissionID, g.SubmissionVersion, g.Score, g.MaxScore, g.Feedback,
		string(g.GradedBy), g.GradedAt, g.IsLocked, g.LockReason, g.UpdatedAt,
	}, nil
}
