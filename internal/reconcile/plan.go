package reconcile

import (
	"github.com/JaimeStill/gradebook/internal/core"
)

// Changes partitions the write set for one entity kind.
type Changes[T any] struct {
	Create []T `json:"create"`
	Update []T `json:"update"`
}

// Len returns the number of writes in c.
func (c Changes[T]) Len() int {
	return len(c.Create) + len(c.Update)
}

// Version records one resubmission: Superseded lost IsLatest, Current took it.
type Version struct {
	Superseded core.RowKey `json:"superseded"`
	Current    core.RowKey `json:"current"`
}

// SubmissionChanges adds the versioning partition to the submission write set.
// Every Version has its new row in Create and its superseded row in Update.
type SubmissionChanges struct {
	Create    []core.Submission `json:"create"`
	Update    []core.Submission `json:"update"`
	Versioned []Version         `json:"versioned"`
}

// Len returns the number of writes in c.
func (c SubmissionChanges) Len() int {
	return len(c.Create) + len(c.Update)
}

// GradeChanges holds grade writes. Update only ever replaces an unlocked grade
// on the same submission row; a locked grade is never in either partition.
type GradeChanges struct {
	Create []core.Grade `json:"create"`
	Update []core.Grade `json:"update"`
}

// Len returns the number of writes in c.
func (c GradeChanges) Len() int {
	return len(c.Create) + len(c.Update)
}

// Plan is the complete write set of one reconciliation pass.
type Plan struct {
	TeacherID   string                   `json:"teacher_id"`
	Teachers    Changes[core.Teacher]    `json:"teachers"`
	Classrooms  Changes[core.Classroom]  `json:"classrooms"`
	Assignments Changes[core.Assignment] `json:"assignments"`
	Enrollments Changes[core.Enrollment] `json:"enrollments"`
	Submissions SubmissionChanges        `json:"submissions"`
	Grades      GradeChanges             `json:"grades"`
}

// Empty reports whether p schedules no writes.
func (p *Plan) Empty() bool {
	return p.Teachers.Len() == 0 &&
		p.Classrooms.Len() == 0 &&
		p.Assignments.Len() == 0 &&
		p.Enrollments.Len() == 0 &&
		p.Submissions.Len() == 0 &&
		p.Grades.Len() == 0
}

// Summary counts the writes of a plan. It is stored on the import run ledger.
type Summary struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Versioned int `json:"versioned"`
	Grades    int `json:"grades"`
}

// Summary returns the write counts of p. Grade writes of either kind are
// counted in Grades, never in Created or Updated.
func (p *Plan) Summary() Summary {
	return Summary{
		Created: len(p.Teachers.Create) +
			len(p.Classrooms.Create) +
			len(p.Assignments.Create) +
			len(p.Enrollments.Create) +
			len(p.Submissions.Create),
		Updated: len(p.Teachers.Update) +
			len(p.Classrooms.Update) +
			len(p.Assignments.Update) +
			len(p.Enrollments.Update) +
			len(p.Submissions.Update),
		Versioned: len(p.Submissions.Versioned),
		Grades:    p.Grades.Len(),
	}
}

// GradingQueue returns the created or updated latest submissions whose status is
// submitted. These are handed to the external grading oracle.
func (p *Plan) GradingQueue() []core.Submission {
	var queue []core.Submission
	for _, rows := range [][]core.Submission{p.Submissions.Create, p.Submissions.Update} {
		for _, s := range rows {
			if s.IsLatest && s.Status == core.SubmissionSubmitted {
				queue = append(queue, s)
			}
		}
	}
	return queue
}
