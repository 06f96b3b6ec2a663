// Package stats recomputes dashboard rollups from reconciled entities. Figures
// are always derived fresh from the entity sets, never maintained incrementally.
package stats

import (
	"cmp"
	"math"
	"slices"

	"github.com/JaimeStill/gradebook/internal/core"
)

// Input is the reconciled state of one teacher. Submissions should hold only
// latest rows; Grades may hold grades for any row and are matched by row key.
type Input struct {
	Classrooms  []core.Classroom
	Submissions []core.Submission
	Grades      []core.Grade
}

// Global is the dashboard rollup across every classroom of a teacher.
// AverageGrade is nil when no graded submission carries a grade.
type Global struct {
	TotalClassrooms     int         `json:"total_classrooms"`
	TotalStudents       int         `json:"total_students"`
	TotalAssignments    int         `json:"total_assignments"`
	TotalSubmissions    int         `json:"total_submissions"`
	UngradedSubmissions int         `json:"ungraded_submissions"`
	AverageGrade        *float64    `json:"average_grade,omitempty"`
	Classrooms          []Classroom `json:"classrooms"`
}

// Classroom is the rollup of one classroom.
type Classroom struct {
	ClassroomID         string              `json:"classroom_id"`
	Name                string              `json:"name"`
	State               core.ClassroomState `json:"state"`
	Students            int                 `json:"students"`
	Assignments         int                 `json:"assignments"`
	Submissions         int                 `json:"submissions"`
	UngradedSubmissions int                 `json:"ungraded_submissions"`
	AverageGrade        *float64            `json:"average_grade,omitempty"`
}

// Aggregate computes the global rollup of in. Students enrolled in several
// classrooms are counted once.
func Aggregate(in Input) Global {
	grades := make(map[core.RowKey]core.Grade, len(in.Grades))
	for _, g := range in.Grades {
		grades[g.Key()] = g
	}

	perClassroom := make(map[string]*mean)
	overall := &mean{}
	for _, s := range in.Submissions {
		if !s.IsLatest || s.Status != core.SubmissionGraded {
			continue
		}
		g, ok := grades[s.Key()]
		if !ok {
			continue
		}
		pct, ok := g.Percentage()
		if !ok {
			continue
		}
		overall.add(pct)
		m, ok := perClassroom[s.ClassroomID]
		if !ok {
			m = &mean{}
			perClassroom[s.ClassroomID] = m
		}
		m.add(pct)
	}

	out := Global{
		TotalClassrooms: len(in.Classrooms),
		AverageGrade:    overall.value(),
		Classrooms:      make([]Classroom, 0, len(in.Classrooms)),
	}

	students := make(map[string]struct{})
	for _, c := range in.Classrooms {
		for _, id := range c.StudentIDs {
			students[id] = struct{}{}
		}
		out.TotalAssignments += c.AssignmentCount
		out.TotalSubmissions += c.SubmissionCount
		out.UngradedSubmissions += c.UngradedCount

		out.Classrooms = append(out.Classrooms, Classroom{
			ClassroomID:         c.ID,
			Name:                c.Name,
			State:               c.State,
			Students:            c.StudentCount,
			Assignments:         c.AssignmentCount,
			Submissions:         c.SubmissionCount,
			UngradedSubmissions: c.UngradedCount,
			AverageGrade:        perClassroom[c.ID].value(),
		})
	}
	out.TotalStudents = len(students)

	slices.SortFunc(out.Classrooms, func(a, b Classroom) int {
		return cmp.Compare(a.ClassroomID, b.ClassroomID)
	})

	return out
}

type mean struct {
	sum   float64
	count int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.count++
}

// value returns the rounded mean, or nil for an empty or nil accumulator.
func (m *mean) value() *float64 {
	if m == nil || m.count == 0 {
		return nil
	}
	v := round(m.sum / float64(m.count))
	return &v
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}
