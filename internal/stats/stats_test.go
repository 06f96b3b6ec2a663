package stats_test

import (
	"testing"

	"github.com/JaimeStill/gradebook/internal/core"
	"github.com/JaimeStill/gradebook/internal/stats"
)

func TestAggregateUngraded(t *testing.T) {
	in := stats.Input{
		Classrooms: []core.Classroom{
			{ID: "classroom:1", UngradedCount: 10, SubmissionCount: 12},
			{ID: "classroom:2", UngradedCount: 0, SubmissionCount: 3},
			{ID: "classroom:3", UngradedCount: 5, SubmissionCount: 5},
		},
	}

	got := stats.Aggregate(in)

	if got.UngradedSubmissions != 15 {
		t.Errorf("UngradedSubmissions = %d, want 15", got.UngradedSubmissions)
	}
	if got.TotalSubmissions != 20 {
		t.Errorf("TotalSubmissions = %d, want 20", got.TotalSubmissions)
	}
	if got.TotalClassrooms != 3 {
		t.Errorf("TotalClassrooms = %d, want 3", got.TotalClassrooms)
	}
	if got.AverageGrade != nil {
		t.Errorf("AverageGrade = %v, want nil", *got.AverageGrade)
	}
}

func TestAggregateStudentsDeduplicated(t *testing.T) {
	in := stats.Input{
		Classrooms: []core.Classroom{
			{ID: "classroom:1", StudentIDs: []string{"student:a", "student:b"}, StudentCount: 2, AssignmentCount: 3},
			{ID: "classroom:2", StudentIDs: []string{"student:b", "student:c"}, StudentCount: 2, AssignmentCount: 1},
		},
	}

	got := stats.Aggregate(in)

	if got.TotalStudents != 3 {
		t.Errorf("TotalStudents = %d, want 3", got.TotalStudents)
	}
	if got.TotalAssignments != 4 {
		t.Errorf("TotalAssignments = %d, want 4", got.TotalAssignments)
	}
}

func TestAggregateAverageGrade(t *testing.T) {
	latest := func(id, classroom string, status core.SubmissionStatus) core.Submission {
		return core.Submission{ID: id, Version: 1, IsLatest: true, ClassroomID: classroom, Status: status}
	}

	in := stats.Input{
		Classrooms: []core.Classroom{{ID: "classroom:1"}, {ID: "classroom:2"}},
		Submissions: []core.Submission{
			latest("s1", "classroom:1", core.SubmissionGraded),
			latest("s2", "classroom:1", core.SubmissionGraded),
			latest("s3", "classroom:2", core.SubmissionGraded),
			latest("s4", "classroom:2", core.SubmissionSubmitted),
			latest("s5", "classroom:2", core.SubmissionGraded),
			{ID: "s6", Version: 1, ClassroomID: "classroom:2", Status: core.SubmissionGraded},
		},
		Grades: []core.Grade{
			{SubmissionID: "s1", SubmissionVersion: 1, Score: 9, MaxScore: 10},
			{SubmissionID: "s2", SubmissionVersion: 1, Score: 2, MaxScore: 3},
			{SubmissionID: "s3", SubmissionVersion: 1, Score: 50, MaxScore: 100},
			{SubmissionID: "s4", SubmissionVersion: 1, Score: 0, MaxScore: 100},
			{SubmissionID: "s5", SubmissionVersion: 1, Score: 5, MaxScore: 0},
			{SubmissionID: "s6", SubmissionVersion: 1, Score: 0, MaxScore: 10},
		},
	}

	got := stats.Aggregate(in)

	// (90 + 66.666 + 50) / 3
	if got.AverageGrade == nil || *got.AverageGrade != 68.89 {
		t.Errorf("AverageGrade = %v, want 68.89", got.AverageGrade)
	}

	if len(got.Classrooms) != 2 {
		t.Fatalf("Classrooms = %d, want 2", len(got.Classrooms))
	}
	if avg := got.Classrooms[0].AverageGrade; avg == nil || *avg != 78.33 {
		t.Errorf("classroom:1 AverageGrade = %v, want 78.33", avg)
	}
	if avg := got.Classrooms[1].AverageGrade; avg == nil || *avg != 50 {
		t.Errorf("classroom:2 AverageGrade = %v, want 50", avg)
	}
}

func TestAggregateEmpty(t *testing.T) {
	got := stats.Aggregate(stats.Input{})

	if got.AverageGrade != nil {
		t.Errorf("AverageGrade = %v, want nil", *got.AverageGrade)
	}
	if got.Classrooms == nil {
		t.Error("Classrooms = nil, want empty slice")
	}
}
