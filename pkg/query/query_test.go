package query_test

import (
	"testing"

	"github.com/JaimeStill/gradebook/pkg/query"
)

const selectRuns = "SELECT r.id, r.teacher_email, r.started_at FROM public.import_runs r"

func testProjection() *query.ProjectionMap {
	return query.NewProjectionMap("public", "import_runs", "r").
		Project("id", "ID").
		Project("teacher_email", "TeacherEmail").
		Project("started_at", "StartedAt")
}

func joinedProjection() *query.ProjectionMap {
	return query.NewProjectionMap("public", "submissions", "s").
		Project("id", "ID").
		Project("version", "Version").
		Join("public", "classrooms", "c", "JOIN", "c.id = s.classroom_id").
		Project("teacher_id", "TeacherID")
}

func ptr(s string) *string { return &s }

func TestProjectionMap(t *testing.T) {
	p := testProjection()

	if got, want := p.Table(), "public.import_runs r"; got != want {
		t.Errorf("Table() = %q, want %q", got, want)
	}
	if got := p.Alias(); got != "r" {
		t.Errorf("Alias() = %q, want r", got)
	}
	if got, want := p.Columns(), "r.id, r.teacher_email, r.started_at"; got != want {
		t.Errorf("Columns() = %q, want %q", got, want)
	}
	if got := p.From(); got != p.Table() {
		t.Errorf("From() without joins = %q, want %q", got, p.Table())
	}
}

func TestProjectionMapColumnLookup(t *testing.T) {
	p := testProjection()

	tests := []struct {
		name     string
		viewName string
		want     string
	}{
		{"mapped field", "TeacherEmail", "r.teacher_email"},
		{"mapped time", "StartedAt", "r.started_at"},
		{"unmapped passthrough", "unknown", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Column(tt.viewName); got != tt.want {
				t.Errorf("Column(%q) = %q, want %q", tt.viewName, got, tt.want)
			}
		})
	}
}

func TestProjectionMapJoin(t *testing.T) {
	p := joinedProjection()

	if got, want := p.Column("TeacherID"), "c.teacher_id"; got != want {
		t.Errorf("Column(TeacherID) = %q, want %q", got, want)
	}
	if got, want := p.Column("Version"), "s.version"; got != want {
		t.Errorf("Column(Version) = %q, want %q", got, want)
	}
	if got, want := p.From(), "public.submissions s JOIN public.classrooms c ON c.id = s.classroom_id"; got != want {
		t.Errorf("From() = %q, want %q", got, want)
	}

	sql, args := query.NewBuilder(p, query.SortField{Field: "Version"}).
		WhereEquals("TeacherID", "teacher:a@b.c").
		Build()

	wantSQL := "SELECT s.id, s.version, c.teacher_id FROM public.submissions s JOIN public.classrooms c ON c.id = s.classroom_id WHERE c.teacher_id = $1 ORDER BY s.version ASC"
	if sql != wantSQL {
		t.Errorf("Build() sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 1 || args[0] != "teacher:a@b.c" {
		t.Errorf("Build() args = %v, want [teacher:a@b.c]", args)
	}
}

func TestParseSortFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []query.SortField
	}{
		{"empty string", "", nil},
		{"single ascending", "TeacherEmail", []query.SortField{{Field: "TeacherEmail"}}},
		{"single descending", "-StartedAt", []query.SortField{{Field: "StartedAt", Descending: true}}},
		{
			"multiple mixed with spaces",
			" TeacherEmail , -StartedAt ",
			[]query.SortField{{Field: "TeacherEmail"}, {Field: "StartedAt", Descending: true}},
		},
		{
			"empty parts skipped",
			"TeacherEmail,,StartedAt",
			[]query.SortField{{Field: "TeacherEmail"}, {Field: "StartedAt"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := query.ParseSortFields(tt.input)
			if tt.want == nil {
				if got != nil {
					t.Errorf("ParseSortFields(%q) = %v, want nil", tt.input, got)
				}
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseSortFields(%q) length = %d, want %d", tt.input, len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseSortFields(%q)[%d] = %v, want %v", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuilder(t *testing.T) {
	startedDesc := query.SortField{Field: "StartedAt", Descending: true}

	tests := []struct {
		name     string
		build    func(*query.Builder) (string, []any)
		sort     []query.SortField
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "first page",
			build:   func(b *query.Builder) (string, []any) { return b.BuildPage(1, 10) },
			wantSQL: selectRuns + " LIMIT 10 OFFSET 0",
		},
		{
			name:    "count",
			build:   (*query.Builder).BuildCount,
			wantSQL: "SELECT COUNT(*) FROM public.import_runs r",
		},
		{
			name:    "default sort",
			build:   func(b *query.Builder) (string, []any) { return b.BuildPage(1, 10) },
			sort:    []query.SortField{startedDesc},
			wantSQL: selectRuns + " ORDER BY r.started_at DESC LIMIT 10 OFFSET 0",
		},
		{
			name:    "page",
			build:   func(b *query.Builder) (string, []any) { return b.BuildPage(2, 10) },
			sort:    []query.SortField{startedDesc},
			wantSQL: selectRuns + " ORDER BY r.started_at DESC LIMIT 10 OFFSET 10",
		},
		{
			name:     "single",
			build:    func(b *query.Builder) (string, []any) { return b.BuildSingle("ID", "abc") },
			wantSQL:  selectRuns + " WHERE r.id = $1",
			wantArgs: []any{"abc"},
		},
		{
			name:    "nil equals skipped",
			build:   func(b *query.Builder) (string, []any) { return b.WhereEquals("TeacherEmail", nil).BuildCount() },
			wantSQL: "SELECT COUNT(*) FROM public.import_runs r",
		},
		{
			name: "search",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereSearch(ptr("frizzle"), "TeacherEmail", "ID").BuildCount()
			},
			wantSQL:  "SELECT COUNT(*) FROM public.import_runs r WHERE (r.teacher_email ILIKE $1 OR r.id ILIKE $2)",
			wantArgs: []any{"%frizzle%", "%frizzle%"},
		},
		{
			name:    "nil search skipped",
			build:   func(b *query.Builder) (string, []any) { return b.WhereSearch(nil, "TeacherEmail").BuildCount() },
			wantSQL: "SELECT COUNT(*) FROM public.import_runs r",
		},
		{
			name: "conditions and page",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereEquals("TeacherEmail", "t@x.io").WhereSearch(ptr("abc"), "ID").BuildPage(3, 25)
			},
			sort:     []query.SortField{{Field: "ID"}},
			wantSQL:  selectRuns + " WHERE r.teacher_email = $1 AND (r.id ILIKE $2) ORDER BY r.id ASC LIMIT 25 OFFSET 50",
			wantArgs: []any{"t@x.io", "%abc%"},
		},
		{
			name: "count with conditions",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereEquals("TeacherEmail", "t@x.io").BuildCount()
			},
			wantSQL:  "SELECT COUNT(*) FROM public.import_runs r WHERE r.teacher_email = $1",
			wantArgs: []any{"t@x.io"},
		},
		{
			name: "order by fields overrides default",
			build: func(b *query.Builder) (string, []any) {
				return b.OrderByFields([]query.SortField{startedDesc, {Field: "TeacherEmail"}}).BuildPage(1, 10)
			},
			sort:    []query.SortField{{Field: "ID"}},
			wantSQL: selectRuns + " ORDER BY r.started_at DESC, r.teacher_email ASC LIMIT 10 OFFSET 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tt.build(query.NewBuilder(testProjection(), tt.sort...))
			if sql != tt.wantSQL {
				t.Errorf("sql = %q, want %q", sql, tt.wantSQL)
			}
			if len(args) != len(tt.wantArgs) {
				t.Fatalf("args = %v, want %v", args, tt.wantArgs)
			}
			for i := range args {
				if args[i] != tt.wantArgs[i] {
					t.Errorf("args[%d] = %v, want %v", i, args[i], tt.wantArgs[i])
				}
			}
		})
	}
}
