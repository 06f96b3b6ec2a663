// Package store persists reconciled entities in PostgreSQL. It reads the full
// existing state of one teacher and applies reconciliation plans in a single
// transaction. Assignments, enrollments, submissions and grades are scoped to a
// teacher through the classroom's single owning teacher.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/gradebook/internal/core"
	"github.com/JaimeStill/gradebook/internal/reconcile"
	"github.com/JaimeStill/gradebook/pkg/query"
	"github.com/JaimeStill/gradebook/pkg/repository"
)

// System defines the entity store contract used by the import service.
type System interface {
	// Load returns every entity owned by the teacher, including all submission
	// rows and their grades. An unknown teacher yields empty Entities.
	Load(ctx context.Context, teacherID string) (reconcile.Entities, error)
	// Apply writes the plan atomically. Writes are upserts keyed by id, so
	// applying the same plan twice leaves the store unchanged.
	Apply(ctx context.Context, plan *reconcile.Plan) error
	// History returns every row of a submission lineage ordered by version.
	History(ctx context.Context, submissionID string) ([]core.Submission, error)
}

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a PostgreSQL entity store implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "store"),
	}
}

func (r *repo) Load(ctx context.Context, teacherID string) (reconcile.Entities, error) {
	var e reconcile.Entities
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return loadInto(ctx, r.db, &e.Teachers, teacherProjection, "ID", teacherID, scanTeacher, byID)
	})
	g.Go(func() error {
		return loadInto(ctx, r.db, &e.Classrooms, classroomProjection, "TeacherID", teacherID, scanClassroom, byID)
	})
	g.Go(func() error {
		return loadInto(ctx, r.db, &e.Assignments, assignmentProjection, scopeColumn, teacherID, scanAssignment, byID)
	})
	g.Go(func() error {
		return loadInto(ctx, r.db, &e.Enrollments, enrollmentProjection, scopeColumn, teacherID, scanEnrollment, byID)
	})
	g.Go(func() error {
		return loadInto(ctx, r.db, &e.Submissions, submissionProjection, scopeColumn, teacherID, scanSubmission, byID, byVersion)
	})
	g.Go(func() error {
		return loadInto(ctx, r.db, &e.Grades, gradeProjection, scopeColumn, teacherID, scanGrade, byRowKey...)
	})

	if err := g.Wait(); err != nil {
		return reconcile.Entities{}, fmt.Errorf("load teacher %s: %w", teacherID, err)
	}
	return e, nil
}

func (r *repo) Apply(ctx context.Context, plan *reconcile.Plan) error {
	if plan == nil || plan.Empty() {
		return nil
	}

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, applyPlan(ctx, tx, plan)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"plan applied",
		"teacher", plan.TeacherID,
		"summary", plan.Summary(),
	)
	return nil
}

func (r *repo) History(ctx context.Context, submissionID string) ([]core.Submission, error) {
	q, args := query.
		NewBuilder(submissionProjection, byVersion).
		WhereEquals("ID", submissionID).
		Build()

	rows, err := repository.QueryMany(ctx, r.db, q, args, scanSubmission)
	if err != nil {
		return nil, fmt.Errorf("query submission history: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows, nil
}

func loadInto[T any](
	ctx context.Context,
	q repository.Querier,
	dst *[]T,
	projection *query.ProjectionMap,
	field string,
	teacherID string,
	scan repository.ScanFunc[T],
	sort ...query.SortField,
) error {
	sqlText, args := query.
		NewBuilder(projection, sort...).
		WhereEquals(field, teacherID).
		Build()

	items, err := repository.QueryMany(ctx, q, sqlText, args, scan)
	if err != nil {
		return fmt.Errorf("query %s: %w", projection.Alias(), err)
	}
	*dst = items
	return nil
}
