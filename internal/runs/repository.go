package runs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/gradebook/pkg/pagination"
	"github.com/JaimeStill/gradebook/pkg/query"
	"github.com/JaimeStill/gradebook/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates an import run repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "runs"),
		pagination: pagination,
	}
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Run], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "TeacherEmail", "SnapshotKey")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count import runs: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRun)
	if err != nil {
		return nil, fmt.Errorf("query import runs: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Run, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	run, err := repository.QueryOne(ctx, r.db, q, args, scanRun)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &run, nil
}

func (r *repo) Start(ctx context.Context, cmd StartCommand) (*Run, error) {
	q := `
		INSERT INTO import_runs(id, teacher_email, snapshot_key, source, fetched_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + columns

	args := []any{uuid.New(), cmd.TeacherEmail, cmd.SnapshotKey, cmd.Source, cmd.FetchedAt}

	run, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Run, error) {
		return repository.QueryOne(ctx, tx, q, args, scanRun)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("import run started", "id", run.ID, "teacher", run.TeacherEmail)
	return &run, nil
}

func (r *repo) Finish(ctx context.Context, id uuid.UUID, cmd FinishCommand) (*Run, error) {
	q := `
		UPDATE import_runs
		SET status = $2, created = $3, updated = $4, versioned = $5, grades = $6,
			error = $7, finished_at = NOW()
		WHERE id = $1 AND status = 'running'
		RETURNING ` + columns

	args := []any{
		id,
		cmd.status(),
		cmd.Summary.Created,
		cmd.Summary.Updated,
		cmd.Summary.Versioned,
		cmd.Summary.Grades,
		cmd.message(),
	}

	run, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Run, error) {
		return repository.QueryOne(ctx, tx, q, args, scanRun)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, findErr := r.Find(ctx, id); findErr == nil {
				return nil, ErrFinished
			}
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("import run finished", "id", run.ID, "status", run.Status)
	return &run, nil
}
