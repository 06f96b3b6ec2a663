package runs

import (
	"net/url"

	"github.com/JaimeStill/gradebook/pkg/query"
	"github.com/JaimeStill/gradebook/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "import_runs", "r").
	Project("id", "ID").
	Project("teacher_email", "TeacherEmail").
	Project("snapshot_key", "SnapshotKey").
	Project("source", "Source").
	Project("fetched_at", "FetchedAt").
	Project("status", "Status").
	Project("created", "Created").
	Project("updated", "Updated").
	Project("versioned", "Versioned").
	Project("grades", "Grades").
	Project("error", "Error").
	Project("started_at", "StartedAt").
	Project("finished_at", "FinishedAt")

const columns = `id, teacher_email, snapshot_key, source, fetched_at, status,
	created, updated, versioned, grades, error, started_at, finished_at`

var defaultSort = query.SortField{
	Field:      "StartedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for run queries.
// Nil fields are ignored. All fields use exact matching.
type Filters struct {
	TeacherEmail *string `json:"teacher_email,omitempty"`
	Status       *string `json:"status,omitempty"`
	Source       *string `json:"source,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("TeacherEmail", f.TeacherEmail).
		WhereEquals("Status", f.Status).
		WhereEquals("Source", f.Source)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if e := values.Get("teacher_email"); e != "" {
		f.TeacherEmail = &e
	}

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if s := values.Get("source"); s != "" {
		f.Source = &s
	}

	return f
}

func (f Filters) match(r Run) bool {
	return (f.TeacherEmail == nil || *f.TeacherEmail == r.TeacherEmail) &&
		(f.Status == nil || *f.Status == r.Status) &&
		(f.Source == nil || *f.Source == r.Source)
}

func scanRun(s repository.Scanner) (Run, error) {
	var r Run
	err := s.Scan(
		&r.ID,
		&r.TeacherEmail,
		&r.SnapshotKey,
		&r.Source,
		&r.FetchedAt,
		&r.Status,
		&r.Created,
		&r.Updated,
		&r.Versioned,
		&r.Grades,
		&r.Error,
		&r.StartedAt,
		&r.FinishedAt,
	)
	return r, err
}
