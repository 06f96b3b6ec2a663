// Package snapshot defines the provider-native snapshot document, validates it at the
// boundary, and transforms it into flat collections of core entities.
package snapshot

import "time"

// Snapshot is one point-in-time capture of a teacher's classroom data.
type Snapshot struct {
	Teacher     *Teacher     `json:"teacher" validate:"required"`
	Classrooms  []Classroom  `json:"classrooms" validate:"dive"`
	GlobalStats *GlobalStats `json:"globalStats,omitempty"`
	Metadata    *Metadata    `json:"snapshotMetadata" validate:"required"`
}

// Teacher is the provider profile of the snapshot owner.
type Teacher struct {
	Email       string `json:"email" validate:"required,email"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// Classroom is a provider course with its nested coursework, roster, and submissions.
type Classroom struct {
	ID                string       `json:"id" validate:"required"`
	Name              string       `json:"name"`
	Section           string       `json:"section"`
	CourseState       string       `json:"courseState"`
	EnrollmentCode    string       `json:"enrollmentCode"`
	AlternateLink     string       `json:"alternateLink"`
	CourseGroupEmail  string       `json:"courseGroupEmail"`
	TeacherGroupEmail string       `json:"teacherGroupEmail"`
	StudentCount      *int         `json:"studentCount,omitempty"`
	Assignments       []Assignment `json:"assignments" validate:"dive"`
	Students          []Student    `json:"students" validate:"dive"`
	Submissions       []Submission `json:"submissions" validate:"dive"`
}

// Assignment is provider coursework.
type Assignment struct {
	ID            string     `json:"id" validate:"required"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Type          string     `json:"type"`
	WorkType      string     `json:"workType"`
	MaxScore      *float64   `json:"maxScore,omitempty"`
	MaxPoints     *float64   `json:"maxPoints,omitempty"`
	State         string     `json:"state"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
	AlternateLink string     `json:"alternateLink"`
	QuizData      *QuizData  `json:"quizData,omitempty"`
}

// QuizData describes a form-backed quiz attached to an assignment.
type QuizData struct {
	FormID      string   `json:"formId"`
	FormURL     string   `json:"formUrl"`
	Title       string   `json:"title"`
	IsQuiz      bool     `json:"isQuiz"`
	TotalPoints *float64 `json:"totalPoints,omitempty"`
}

// Student is a roster entry.
type Student struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Email     string `json:"email" validate:"required,email"`
	Name      string `json:"name"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Status    string `json:"status"`
	Removed   bool   `json:"removed"`
}

// ProviderID returns the provider user id of the student, if any.
func (s Student) ProviderID() string {
	if s.UserID != "" {
		return s.UserID
	}
	return s.ID
}

// Submission is a student's work on one assignment.
// A nil Content and nil Attachments mean the provider omitted the payload.
type Submission struct {
	ID           string       `json:"id" validate:"required"`
	AssignmentID string       `json:"assignmentId" validate:"required"`
	StudentID    string       `json:"studentId"`
	StudentEmail string       `json:"studentEmail" validate:"omitempty,email"`
	StudentName  string       `json:"studentName"`
	Status       string       `json:"status"`
	Late         bool         `json:"late"`
	SubmittedAt  *time.Time   `json:"submittedAt,omitempty"`
	UpdatedAt    *time.Time   `json:"updatedAt,omitempty"`
	Content      *string      `json:"content,omitempty"`
	Attachments  []Attachment `json:"attachments"`
	Grade        *Grade       `json:"grade,omitempty"`
}

// Attachment is a provider attachment reference.
type Attachment struct {
	Type          string `json:"type"`
	ID            string `json:"id"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	AlternateLink string `json:"alternateLink"`
}

// Grade is a grade embedded in a provider submission.
type Grade struct {
	Score    *float64   `json:"score,omitempty"`
	MaxScore *float64   `json:"maxScore,omitempty"`
	Feedback string     `json:"feedback"`
	GradedBy string     `json:"gradedBy"`
	GradedAt *time.Time `json:"gradedAt,omitempty"`
}

// GlobalStats is the provider's own rollup. It is informational only; the
// statistics aggregator recomputes every figure from reconciled entities.
type GlobalStats struct {
	TotalStudents       int      `json:"totalStudents"`
	TotalAssignments    int      `json:"totalAssignments"`
	UngradedSubmissions int      `json:"ungradedSubmissions"`
	AverageGrade        *float64 `json:"averageGrade,omitempty"`
}

// Metadata records when and where the snapshot was captured.
type Metadata struct {
	FetchedAt time.Time  `json:"fetchedAt" validate:"required"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Source    string     `json:"source"`
	Version   string     `json:"version"`
}

// Expired reports whether the snapshot is past its expiry at the given instant.
func (m *Metadata) Expired(at time.Time) bool {
	return m.ExpiresAt != nil && at.After(*m.ExpiresAt)
}
