// Package reconcile computes the write set that brings persisted entities in line
// with a transformed snapshot. The merger is pure: it reads a State supplied by the
// caller and returns a Plan, performing no I/O of its own.
package reconcile

import (
	"fmt"
	"slices"

	"github.com/JaimeStill/gradebook/internal/core"
	"github.com/JaimeStill/gradebook/internal/grades"
	"github.com/JaimeStill/gradebook/internal/snapshot"
)

type kind[T any] struct {
	name string
	id   func(T) string
	same func(T, T) bool
	meta func(*T) *core.Meta
}

var (
	teacherKind = kind[core.Teacher]{
		name: "teacher",
		id:   teacherID,
		same: core.Teacher.SameAs,
		meta: func(t *core.Teacher) *core.Meta { return &t.Meta },
	}
	classroomKind = kind[core.Classroom]{
		name: "classroom",
		id:   classroomID,
		same: core.Classroom.SameAs,
		meta: func(c *core.Classroom) *core.Meta { return &c.Meta },
	}
	assignmentKind = kind[core.Assignment]{
		name: "assignment",
		id:   assignmentID,
		same: core.Assignment.SameAs,
		meta: func(a *core.Assignment) *core.Meta { return &a.Meta },
	}
	enrollmentKind = kind[core.Enrollment]{
		name: "enrollment",
		id:   enrollmentID,
		same: core.Enrollment.SameAs,
		meta: func(e *core.Enrollment) *core.Meta { return &e.Meta },
	}
)

// Merge diffs a transformed snapshot against existing persisted state.
//
// Non-submission entities are created on first sight and updated when any mutable
// field differs. Submissions are updated in place when only metadata changed and
// versioned when content changed. A grade is created for a row that has none and
// replaces an existing grade only when grades.CanOverwrite allows it and the
// grading decision differs, so a locked grade never appears in the plan.
//
// existing must hold everything the teacher owns. Each classroom has a single
// owning teacher; a classroom that also appears under another teacher has its
// lineages outside existing and would be planned as new rows, which the store
// rejects on its one-latest-row constraint.
//
// Merge fails without a partial plan when an incoming entity has no id or an id
// appears more than once.
func Merge(in *snapshot.Result, existing *State) (*Plan, error) {
	if in == nil {
		return nil, fmt.Errorf("incoming snapshot: %w", ErrMissingID)
	}
	if existing == nil {
		existing = Empty()
	}

	p := &Plan{TeacherID: in.Teacher.ID}

	var err error
	if p.Teachers, err = diff(teacherKind, []core.Teacher{in.Teacher}, existing.teachers); err != nil {
		return nil, err
	}
	if p.Classrooms, err = diff(classroomKind, in.Classrooms, existing.classrooms); err != nil {
		return nil, err
	}
	if p.Assignments, err = diff(assignmentKind, in.Assignments, existing.assignments); err != nil {
		return nil, err
	}
	if p.Enrollments, err = diff(enrollmentKind, in.Enrollments, existing.enrollments); err != nil {
		return nil, err
	}
	if err := mergeSubmissions(p, in.Submissions, existing); err != nil {
		return nil, err
	}

	return p, nil
}

func diff[T any](k kind[T], incoming []T, existing map[string]T) (Changes[T], error) {
	var c Changes[T]
	seen := make(map[string]struct{}, len(incoming))

	for _, item := range incoming {
		id := k.id(item)
		if id == "" {
			return Changes[T]{}, fmt.Errorf("%s: %w", k.name, ErrMissingID)
		}
		if _, dup := seen[id]; dup {
			return Changes[T]{}, fmt.Errorf("%w: %s %s appears more than once", snapshot.ErrIdentityCollision, k.name, id)
		}
		seen[id] = struct{}{}

		prev, ok := existing[id]
		if !ok {
			c.Create = append(c.Create, item)
			continue
		}
		if k.same(item, prev) {
			continue
		}
		k.meta(&item).CreatedAt = k.meta(&prev).CreatedAt
		c.Update = append(c.Update, item)
	}

	return c, nil
}

func mergeSubmissions(p *Plan, incoming []core.Submission, existing *State) error {
	seen := make(map[string]struct{}, len(incoming))

	for _, sub := range incoming {
		if sub.ID == "" {
			return fmt.Errorf("submission: %w", ErrMissingID)
		}
		if _, dup := seen[sub.ID]; dup {
			return fmt.Errorf("%w: submission %s appears more than once", snapshot.ErrIdentityCollision, sub.ID)
		}
		seen[sub.ID] = struct{}{}

		embedded := sub.Embedded
		sub.Embedded = nil
		sub.IsLatest = true

		prev, ok := existing.Latest(sub.ID)
		switch {
		case !ok:
			sub.Version = existing.maxVersion(sub.ID) + 1
			p.Submissions.Create = append(p.Submissions.Create, sub)

		case sameContent(sub.Content, prev.Content):
			sub.Version = prev.Version
			sub.CreatedAt = prev.CreatedAt
			if !sub.SameMetadata(prev) {
				p.Submissions.Update = append(p.Submissions.Update, sub)
			}

		default:
			superseded := prev
			superseded.IsLatest = false
			superseded.UpdatedAt = sub.UpdatedAt

			sub.Version = existing.maxVersion(sub.ID) + 1
			p.Submissions.Update = append(p.Submissions.Update, superseded)
			p.Submissions.Create = append(p.Submissions.Create, sub)
			p.Submissions.Versioned = append(p.Submissions.Versioned, Version{
				Superseded: superseded.Key(),
				Current:    sub.Key(),
			})
		}

		sub.Embedded = embedded
		g := grades.Extract(sub)
		if g == nil {
			continue
		}

		prevGrade, graded := existing.Grade(g.Key())
		switch {
		case !graded:
			p.Grades.Create = append(p.Grades.Create, *g)
		case !grades.CanOverwrite(&prevGrade), g.SameAs(prevGrade):
			// locked or unchanged
		default:
			g.CreatedAt = prevGrade.CreatedAt
			p.Grades.Update = append(p.Grades.Update, *g)
		}
	}

	return nil
}

// sameContent compares submission payloads exactly. Attachments are already in
// canonical order. A payload present on only one side counts as changed so a new
// version is kept rather than content being lost.
func sameContent(a, b *core.Content) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Text == b.Text && slices.Equal(a.Attachments, b.Attachments)
}
