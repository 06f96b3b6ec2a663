package reconcile

import (
	"fmt"
	"maps"

	"github.com/JaimeStill/gradebook/internal/grades"
)

// Apply returns the state that results from writing p over s. s is left
// unchanged. Replacing a locked grade is rejected with ErrGradeLocked. Superseded rows are written before new versions, and the result is
// re-indexed so a plan that would leave two latest rows in a lineage is rejected.
func (s *State) Apply(p *Plan) (*State, error) {
	next := &State{
		teachers:    maps.Clone(s.teachers),
		classrooms:  maps.Clone(s.classrooms),
		assignments: maps.Clone(s.assignments),
		enrollments: maps.Clone(s.enrollments),
		rows:        maps.Clone(s.rows),
		grades:      maps.Clone(s.grades),
	}

	if err := applyChanges("teacher", next.teachers, p.Teachers, teacherID); err != nil {
		return nil, err
	}
	if err := applyChanges("classroom", next.classrooms, p.Classrooms, classroomID); err != nil {
		return nil, err
	}
	if err := applyChanges("assignment", next.assignments, p.Assignments, assignmentID); err != nil {
		return nil, err
	}
	if err := applyChanges("enrollment", next.enrollments, p.Enrollments, enrollmentID); err != nil {
		return nil, err
	}

	for _, row := range p.Submissions.Update {
		if _, ok := next.rows[row.Key()]; !ok {
			return nil, fmt.Errorf("submission %s: %w", row.Key(), ErrUnknownRow)
		}
		next.rows[row.Key()] = row
	}
	for _, row := range p.Submissions.Create {
		if _, ok := next.rows[row.Key()]; ok {
			return nil, fmt.Errorf("submission %s: %w", row.Key(), ErrDuplicateID)
		}
		next.rows[row.Key()] = row
	}

	for _, g := range p.Grades.Update {
		prev, ok := next.grades[g.Key()]
		if !ok {
			return nil, fmt.Errorf("grade %s: %w", g.Key(), ErrUnknownRow)
		}
		if !grades.CanOverwrite(&prev) {
			return nil, fmt.Errorf("grade %s: %w", g.Key(), ErrGradeLocked)
		}
		next.grades[g.Key()] = g
	}
	for _, g := range p.Grades.Create {
		if _, ok := next.grades[g.Key()]; ok {
			return nil, fmt.Errorf("grade %s: %w", g.Key(), ErrDuplicateID)
		}
		next.grades[g.Key()] = g
	}

	return NewState(next.Entities())
}

func applyChanges[T any](kind string, m map[string]T, c Changes[T], id func(T) string) error {
	for _, item := range c.Update {
		k := id(item)
		if _, ok := m[k]; !ok {
			return fmt.Errorf("%s %s: %w", kind, k, ErrUnknownRow)
		}
		m[k] = item
	}
	for _, item := range c.Create {
		k := id(item)
		if _, ok := m[k]; ok {
			return fmt.Errorf("%s %s: %w", kind, k, ErrDuplicateID)
		}
		m[k] = item
	}
	return nil
}
