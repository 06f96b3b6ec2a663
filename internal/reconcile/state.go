package reconcile

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/JaimeStill/gradebook/internal/core"
)

// Entities is a flat set of persisted entities as read from the entity store.
// Submissions may include every row of every lineage.
type Entities struct {
	Teachers    []core.Teacher    `json:"teachers"`
	Classrooms  []core.Classroom  `json:"classrooms"`
	Assignments []core.Assignment `json:"assignments"`
	Enrollments []core.Enrollment `json:"enrollments"`
	Submissions []core.Submission `json:"submissions"`
	Grades      []core.Grade      `json:"grades"`
}

// State indexes persisted entities by stable id for one reconciliation pass.
// A State is never mutated after construction.
type State struct {
	teachers    map[string]core.Teacher
	classrooms  map[string]core.Classroom
	assignments map[string]core.Assignment
	enrollments map[string]core.Enrollment
	rows        map[core.RowKey]core.Submission
	latest      map[string]core.RowKey
	versions    map[string]int
	grades      map[core.RowKey]core.Grade
}

// NewState indexes e. It rejects entities without ids, duplicate ids, and
// lineages with more than one latest row.
func NewState(e Entities) (*State, error) {
	s := &State{
		rows:     make(map[core.RowKey]core.Submission, len(e.Submissions)),
		latest:   make(map[string]core.RowKey),
		versions: make(map[string]int),
		grades:   make(map[core.RowKey]core.Grade, len(e.Grades)),
	}

	var err error
	if s.teachers, err = index("teacher", e.Teachers, teacherID); err != nil {
		return nil, err
	}
	if s.classrooms, err = index("classroom", e.Classrooms, classroomID); err != nil {
		return nil, err
	}
	if s.assignments, err = index("assignment", e.Assignments, assignmentID); err != nil {
		return nil, err
	}
	if s.enrollments, err = index("enrollment", e.Enrollments, enrollmentID); err != nil {
		return nil, err
	}

	for _, sub := range e.Submissions {
		if sub.ID == "" {
			return nil, fmt.Errorf("submission: %w", ErrMissingID)
		}
		key := sub.Key()
		if _, ok := s.rows[key]; ok {
			return nil, fmt.Errorf("submission %s: %w", key, ErrDuplicateID)
		}
		sub.Embedded = nil
		s.rows[key] = sub
		s.versions[sub.ID] = max(s.versions[sub.ID], sub.Version)

		if sub.IsLatest {
			if prev, ok := s.latest[sub.ID]; ok {
				return nil, fmt.Errorf("submission %s (v%d, v%d): %w", sub.ID, prev.Version, sub.Version, ErrMultipleLatest)
			}
			s.latest[sub.ID] = key
		}
	}

	for _, g := range e.Grades {
		if g.SubmissionID == "" {
			return nil, fmt.Errorf("grade: %w", ErrMissingID)
		}
		if _, ok := s.grades[g.Key()]; ok {
			return nil, fmt.Errorf("grade %s: %w", g.Key(), ErrDuplicateID)
		}
		s.grades[g.Key()] = g
	}

	return s, nil
}

// Empty returns a State with no persisted entities.
func Empty() *State {
	s, _ := NewState(Entities{})
	return s
}

// Latest returns the latest row of the lineage id.
func (s *State) Latest(id string) (core.Submission, bool) {
	key, ok := s.latest[id]
	if !ok {
		return core.Submission{}, false
	}
	return s.rows[key], true
}

// Grade returns the grade attached to the submission row key.
func (s *State) Grade(key core.RowKey) (core.Grade, bool) {
	g, ok := s.grades[key]
	return g, ok
}

// History returns every row of the lineage id ordered by version.
func (s *State) History(id string) []core.Submission {
	var rows []core.Submission
	for key, row := range s.rows {
		if key.ID == id {
			rows = append(rows, row)
		}
	}
	slices.SortFunc(rows, func(a, b core.Submission) int {
		return cmp.Compare(a.Version, b.Version)
	})
	return rows
}

// LatestSubmissions returns the latest row of every lineage ordered by id.
func (s *State) LatestSubmissions() []core.Submission {
	rows := make([]core.Submission, 0, len(s.latest))
	for _, key := range s.latest {
		rows = append(rows, s.rows[key])
	}
	slices.SortFunc(rows, func(a, b core.Submission) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return rows
}

// Entities returns every indexed entity ordered by id.
func (s *State) Entities() Entities {
	e := Entities{
		Teachers:    sortedValues(s.teachers),
		Classrooms:  sortedValues(s.classrooms),
		Assignments: sortedValues(s.assignments),
		Enrollments: sortedValues(s.enrollments),
	}

	keys := slices.SortedFunc(maps.Keys(s.rows), compareKeys)
	e.Submissions = make([]core.Submission, 0, len(keys))
	for _, k := range keys {
		e.Submissions = append(e.Submissions, s.rows[k])
	}

	gkeys := slices.SortedFunc(maps.Keys(s.grades), compareKeys)
	e.Grades = make([]core.Grade, 0, len(gkeys))
	for _, k := range gkeys {
		e.Grades = append(e.Grades, s.grades[k])
	}

	return e
}

// maxVersion returns the highest version recorded for the lineage id, or zero.
func (s *State) maxVersion(id string) int {
	return s.versions[id]
}

func index[T any](kind string, items []T, id func(T) string) (map[string]T, error) {
	m := make(map[string]T, len(items))
	for _, item := range items {
		k := id(item)
		if k == "" {
			return nil, fmt.Errorf("%s: %w", kind, ErrMissingID)
		}
		if _, ok := m[k]; ok {
			return nil, fmt.Errorf("%s %s: %w", kind, k, ErrDuplicateID)
		}
		m[k] = item
	}
	return m, nil
}

func sortedValues[T any](m map[string]T) []T {
	keys := slices.Sorted(maps.Keys(m))
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func compareKeys(a, b core.RowKey) int {
	return cmp.Or(cmp.Compare(a.ID, b.ID), cmp.Compare(a.Version, b.Version))
}

func teacherID(t core.Teacher) string       { return t.ID }
func classroomID(c core.Classroom) string   { return c.ID }
func assignmentID(a core.Assignment) string { return a.ID }
func enrollmentID(e core.Enrollment) string { return e.ID }
