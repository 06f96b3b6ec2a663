package snapshot

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/JaimeStill/gradebook/internal/core"
	"github.com/JaimeStill/gradebook/pkg/identity"
)

// Result holds the flat entity collections derived from one snapshot.
// Submissions are version 1 candidates; the merger assigns final versions.
type Result struct {
	Teacher     core.Teacher      `json:"teacher"`
	Classrooms  []core.Classroom  `json:"classrooms"`
	Assignments []core.Assignment `json:"assignments"`
	Enrollments []core.Enrollment `json:"enrollments"`
	Submissions []core.Submission `json:"submissions"`
	FetchedAt   time.Time         `json:"fetched_at"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
	Source      string            `json:"source"`
}

// Transform converts a validated snapshot into core entities. It is pure and total
// over optional fields, and rejects the whole snapshot when any identity cannot be
// derived or two distinct external entities derive the same id.
func Transform(snap *Snapshot) (*Result, error) {
	if err := Validate(snap); err != nil {
		return nil, err
	}

	fetchedAt := snap.Metadata.FetchedAt.UTC()
	t := &transformer{
		meta:   core.Meta{CreatedAt: fetchedAt, UpdatedAt: fetchedAt},
		source: cmp.Or(strings.TrimSpace(snap.Metadata.Source), defaultSource),
		claims: make(map[string]string),
	}

	teacher, err := t.teacher(snap.Teacher)
	if err != nil {
		return nil, err
	}

	result := &Result{
		FetchedAt: fetchedAt,
		ExpiresAt: utc(snap.Metadata.ExpiresAt),
		Source:    t.source,
	}

	for i, c := range snap.Classrooms {
		segment := fmt.Sprintf("classrooms[%d]", i)
		if err := t.classroom(result, teacher.ID, segment, c); err != nil {
			return nil, err
		}
		teacher.ClassroomIDs = append(teacher.ClassroomIDs, result.Classrooms[len(result.Classrooms)-1].ID)
	}
	slices.Sort(teacher.ClassroomIDs)

	result.Teacher = teacher
	return result, nil
}

type transformer struct {
	meta   core.Meta
	source string
	// claims maps every derived id to the external key that produced it.
	claims map[string]string
}

// claim registers id as derived from external. The same external entity appearing
// twice is malformed input; two different external entities deriving one id is a
// collision.
func (t *transformer) claim(segment, id, external string) error {
	prev, ok := t.claims[id]
	if !ok {
		t.claims[id] = external
		return nil
	}
	if prev == external {
		return malformed(segment, "duplicate entity %q", external)
	}
	return fmt.Errorf("%w: %s: %q and %q both derive %s", ErrIdentityCollision, segment, prev, external, id)
}

func (t *transformer) teacher(src *Teacher) (core.Teacher, error) {
	id, err := identity.Teacher(src.Email)
	if err != nil {
		return core.Teacher{}, malformed("teacher", "%v", err)
	}

	email := strings.ToLower(strings.TrimSpace(src.Email))
	return core.Teacher{
		ID:           id,
		Email:        email,
		DisplayName:  cmp.Or(src.DisplayName, src.Name, email),
		Role:         cmp.Or(strings.TrimSpace(src.Role), defaultRole),
		ClassroomIDs: []string{},
		Meta:         t.meta,
	}, nil
}

type classroomScope struct {
	id          string
	assignments map[string]float64
	byProvider  map[string]string
}

func (t *transformer) classroom(result *Result, teacherID, segment string, src Classroom) error {
	classroomID, err := identity.Classroom(src.ID)
	if err != nil {
		return malformed(segment, "%v", err)
	}
	if err := t.claim(segment, classroomID, "course/"+src.ID); err != nil {
		return err
	}

	scope := &classroomScope{
		id:          classroomID,
		assignments: make(map[string]float64),
		byProvider:  make(map[string]string),
	}

	assignmentStart := len(result.Assignments)
	for i, a := range src.Assignments {
		seg := fmt.Sprintf("%s.assignments[%d]", segment, i)
		assignment, err := t.assignment(classroomID, seg, a)
		if err != nil {
			return err
		}
		scope.assignments[a.ID] = assignment.MaxScore
		result.Assignments = append(result.Assignments, assignment)
	}

	enrollmentStart := len(result.Enrollments)
	for i, s := range src.Students {
		seg := fmt.Sprintf("%s.students[%d]", segment, i)
		enrollment, err := t.enrollment(scope, seg, s)
		if err != nil {
			return err
		}
		result.Enrollments = append(result.Enrollments, enrollment)
	}

	submissionStart := len(result.Submissions)
	for i, s := range src.Submissions {
		seg := fmt.Sprintf("%s.submissions[%d]", segment, i)
		submission, err := t.submission(scope, seg, s)
		if err != nil {
			return err
		}
		result.Submissions = append(result.Submissions, submission)
	}

	classroom := core.Classroom{
		ID:            classroomID,
		TeacherID:     teacherID,
		ExternalID:    src.ID,
		Name:          strings.TrimSpace(src.Name),
		Section:       strings.TrimSpace(src.Section),
		State:         ClassroomState(src.CourseState),
		StudentIDs:    []string{},
		AssignmentIDs: []string{},
		Meta:          t.meta,
	}

	assignments := result.Assignments[assignmentStart:]
	enrollments := result.Enrollments[enrollmentStart:]
	submissions := result.Submissions[submissionStart:]

	recount(&classroom, assignments, enrollments, submissions)
	result.Classrooms = append(result.Classrooms, classroom)
	return nil
}

func (t *transformer) assignment(classroomID, segment string, src Assignment) (core.Assignment, error) {
	id, err := identity.Assignment(classroomID, src.ID)
	if err != nil {
		return core.Assignment{}, malformed(segment, "%v", err)
	}
	if err := t.claim(segment, id, classroomID+"/coursework/"+src.ID); err != nil {
		return core.Assignment{}, err
	}

	return core.Assignment{
		ID:          id,
		ClassroomID: classroomID,
		ExternalID:  src.ID,
		Title:       strings.TrimSpace(src.Title),
		Description: src.Description,
		Type:        AssignmentType(cmp.Or(src.Type, src.WorkType), src.QuizData),
		MaxScore:    maxScore(src),
		State:       AssignmentState(src.State),
		DueDate:     utc(src.DueDate),
		Meta:        t.meta,
	}, nil
}

func (t *transformer) enrollment(scope *classroomScope, segment string, src Student) (core.Enrollment, error) {
	studentID, err := identity.Student(src.Email)
	if err != nil {
		return core.Enrollment{}, malformed(segment, "%v", err)
	}

	email := strings.ToLower(strings.TrimSpace(src.Email))
	external := scope.id + "/student/" + cmp.Or(src.ProviderID(), email)
	if err := t.claim(segment, scope.id+"/"+studentID, external); err != nil {
		return core.Enrollment{}, err
	}

	id, err := identity.Enrollment(scope.id, studentID)
	if err != nil {
		return core.Enrollment{}, malformed(segment, "%v", err)
	}

	if pid := src.ProviderID(); pid != "" {
		scope.byProvider[pid] = studentID
	}

	return core.Enrollment{
		ID:          id,
		ClassroomID: scope.id,
		StudentID:   studentID,
		Email:       email,
		Name:        studentName(src),
		Status:      EnrollmentStatus(src),
		Meta:        t.meta,
	}, nil
}

func (t *transformer) submission(scope *classroomScope, segment string, src Submission) (core.Submission, error) {
	maxPoints, ok := scope.assignments[src.AssignmentID]
	if !ok {
		return core.Submission{}, malformed(segment, "unknown assignment %q", src.AssignmentID)
	}

	assignmentID, err := identity.Assignment(scope.id, src.AssignmentID)
	if err != nil {
		return core.Submission{}, malformed(segment, "%v", err)
	}

	studentID, err := scope.resolveStudent(src)
	if err != nil {
		return core.Submission{}, malformed(segment, "%v", err)
	}

	id, err := identity.Submission(scope.id, assignmentID, studentID)
	if err != nil {
		return core.Submission{}, malformed(segment, "%v", err)
	}
	if err := t.claim(segment, id, assignmentID+"/submission/"+src.ID); err != nil {
		return core.Submission{}, err
	}

	embedded := embeddedGrade(src.Grade, maxPoints)

	return core.Submission{
		ID:             id,
		Version:        1,
		IsLatest:       true,
		AssignmentID:   assignmentID,
		ClassroomID:    scope.id,
		StudentID:      studentID,
		ExternalID:     src.ID,
		Content:        content(src),
		Status:         SubmissionStatus(src.Status, embedded != nil),
		ProviderStatus: normalize(src.Status),
		Late:           src.Late || normalize(src.Status) == "late",
		SubmittedAt:    utc(src.SubmittedAt),
		Source:         t.source,
		Embedded:       embedded,
		Meta:           t.meta,
	}, nil
}

func (s *classroomScope) resolveStudent(src Submission) (string, error) {
	if email := strings.TrimSpace(src.StudentEmail); email != "" {
		return identity.Student(email)
	}
	if src.StudentID != "" {
		if id, ok := s.byProvider[src.StudentID]; ok {
			return id, nil
		}
		return "", fmt.Errorf("student %q not on roster and no studentEmail", src.StudentID)
	}
	return "", fmt.Errorf("submission %q has no student identity", src.ID)
}

// recount derives every denormalized counter from the transformed entity sets.
// The slices alias the result collections, so counters are written in place.
func recount(
	classroom *core.Classroom,
	assignments []core.Assignment,
	enrollments []core.Enrollment,
	submissions []core.Submission,
) {
	byAssignment := make(map[string]*core.Assignment, len(assignments))
	for i := range assignments {
		byAssignment[assignments[i].ID] = &assignments[i]
	}
	byStudent := make(map[string]*core.Enrollment, len(enrollments))
	for i := range enrollments {
		byStudent[enrollments[i].StudentID] = &enrollments[i]
	}

	for _, s := range submissions {
		graded := s.Status == core.SubmissionGraded
		ungraded := s.Status.Ungraded()

		classroom.SubmissionCount++
		if ungraded {
			classroom.UngradedCount++
		}

		if a, ok := byAssignment[s.AssignmentID]; ok {
			a.SubmissionCount++
			if graded {
				a.GradedCount++
			}
			if ungraded {
				a.UngradedCount++
			}
		}

		if e, ok := byStudent[s.StudentID]; ok {
			e.SubmissionCount++
			if graded {
				e.GradedCount++
			}
		}
	}

	for _, e := range enrollments {
		if e.Status == core.EnrollmentActive {
			classroom.StudentIDs = append(classroom.StudentIDs, e.StudentID)
		}
	}
	for _, a := range assignments {
		classroom.AssignmentIDs = append(classroom.AssignmentIDs, a.ID)
	}

	slices.Sort(classroom.StudentIDs)
	slices.Sort(classroom.AssignmentIDs)
	classroom.StudentCount = len(classroom.StudentIDs)
	classroom.AssignmentCount = len(classroom.AssignmentIDs)
}
