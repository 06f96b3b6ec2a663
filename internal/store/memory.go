package store

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/JaimeStill/gradebook/internal/core"
	"github.com/JaimeStill/gradebook/internal/grades"
	"github.com/JaimeStill/gradebook/internal/reconcile"
)

// Memory is an in-process entity store with the same upsert semantics as the
// PostgreSQL store. Every apply is re-validated through reconcile.NewState.
type Memory struct {
	mu          sync.RWMutex
	teachers    map[string]core.Teacher
	classrooms  map[string]core.Classroom
	assignments map[string]core.Assignment
	enrollments map[string]core.Enrollment
	rows        map[core.RowKey]core.Submission
	grades      map[core.RowKey]core.Grade
}

// NewMemory creates an empty in-process entity store.
func NewMemory() *Memory {
	return &Memory{
		teachers:    make(map[string]core.Teacher),
		classrooms:  make(map[string]core.Classroom),
		assignments: make(map[string]core.Assignment),
		enrollments: make(map[string]core.Enrollment),
		rows:        make(map[core.RowKey]core.Submission),
		grades:      make(map[core.RowKey]core.Grade),
	}
}

func (m *Memory) Load(ctx context.Context, teacherID string) (reconcile.Entities, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var e reconcile.Entities
	if t, ok := m.teachers[teacherID]; ok {
		e.Teachers = append(e.Teachers, t)
	}

	owned := func(classroomID string) bool {
		c, ok := m.classrooms[classroomID]
		return ok && c.TeacherID == teacherID
	}

	e.Classrooms = collect(m.classrooms, func(c core.Classroom) bool { return c.TeacherID == teacherID })
	e.Assignments = collect(m.assignments, func(a core.Assignment) bool { return owned(a.ClassroomID) })
	e.Enrollments = collect(m.enrollments, func(en core.Enrollment) bool { return owned(en.ClassroomID) })
	e.Submissions = collect(m.rows, func(s core.Submission) bool { return owned(s.ClassroomID) })
	e.Grades = collect(m.grades, func(g core.Grade) bool {
		s, ok := m.rows[g.Key()]
		return ok && owned(s.ClassroomID)
	})

	slices.SortFunc(e.Classrooms, func(a, b core.Classroom) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(e.Assignments, func(a, b core.Assignment) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(e.Enrollments, func(a, b core.Enrollment) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(e.Submissions, func(a, b core.Submission) int { return compareRowKeys(a.Key(), b.Key()) })
	slices.SortFunc(e.Grades, func(a, b core.Grade) int { return compareRowKeys(a.Key(), b.Key()) })

	return e, nil
}

func (m *Memory) Apply(ctx context.Context, plan *reconcile.Plan) error {
	if plan == nil || plan.Empty() {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := &Memory{
		teachers:    maps.Clone(m.teachers),
		classrooms:  maps.Clone(m.classrooms),
		assignments: maps.Clone(m.assignments),
		enrollments: maps.Clone(m.enrollments),
		rows:        maps.Clone(m.rows),
		grades:      maps.Clone(m.grades),
	}

	upsert(next.teachers, concat(plan.Teachers), func(t core.Teacher) string { return t.ID })
	upsert(next.classrooms, concat(plan.Classrooms), func(c core.Classroom) string { return c.ID })
	upsert(next.assignments, concat(plan.Assignments), func(a core.Assignment) string { return a.ID })
	upsert(next.enrollments, concat(plan.Enrollments), func(e core.Enrollment) string { return e.ID })
	for _, rows := range [][]core.Submission{plan.Submissions.Update, plan.Submissions.Create} {
		for _, row := range rows {
			row.Embedded = nil
			next.rows[row.Key()] = row
		}
	}

	for _, g := range plan.Grades.Update {
		if prev, ok := next.grades[g.Key()]; ok && grades.CanOverwrite(&prev) {
			next.grades[g.Key()] = g
		}
	}
	for _, g := range plan.Grades.Create {
		if _, ok := next.grades[g.Key()]; !ok {
			next.grades[g.Key()] = g
		}
	}

	if _, err := reconcile.NewState(next.entities()); err != nil {
		return err
	}

	m.teachers = next.teachers
	m.classrooms = next.classrooms
	m.assignments = next.assignments
	m.enrollments = next.enrollments
	m.rows = next.rows
	m.grades = next.grades
	return nil
}

func (m *Memory) History(ctx context.Context, submissionID string) ([]core.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := collect(m.rows, func(s core.Submission) bool { return s.ID == submissionID })
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	slices.SortFunc(rows, func(a, b core.Submission) int { return cmp.Compare(a.Version, b.Version) })
	return rows, nil
}

func (m *Memory) entities() reconcile.Entities {
	return reconcile.Entities{
		Teachers:    slices.Collect(maps.Values(m.teachers)),
		Classrooms:  slices.Collect(maps.Values(m.classrooms)),
		Assignments: slices.Collect(maps.Values(m.assignments)),
		Enrollments: slices.Collect(maps.Values(m.enrollments)),
		Submissions: slices.Collect(maps.Values(m.rows)),
		Grades:      slices.Collect(maps.Values(m.grades)),
	}
}

func upsert[K comparable, T any](m map[K]T, items []T, key func(T) K) {
	for _, item := range items {
		m[key(item)] = item
	}
}

func collect[K comparable, T any](m map[K]T, keep func(T) bool) []T {
	var out []T
	for _, item := range m {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

func compareRowKeys(a, b core.RowKey) int {
	return cmp.Or(cmp.Compare(a.ID, b.ID), cmp.Compare(a.Version, b.Version))
}
