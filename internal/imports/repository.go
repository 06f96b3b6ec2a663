package imports

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/gradebook/internal/core"
	"github.com/JaimeStill/gradebook/internal/reconcile"
	"github.com/JaimeStill/gradebook/internal/runs"
	"github.com/JaimeStill/gradebook/internal/snapshot"
	"github.com/JaimeStill/gradebook/internal/stats"
	"github.com/JaimeStill/gradebook/internal/store"
	"github.com/JaimeStill/gradebook/pkg/identity"
	"github.com/JaimeStill/gradebook/pkg/lock"
	"github.com/JaimeStill/gradebook/pkg/storage"
)

const archiveTimeLayout = "20060102T150405Z"

type repo struct {
	store   store.System
	runs    runs.System
	archive storage.System
	locker  lock.Locker
	logger  *slog.Logger
	cfg     Config
}

// New creates the import service implementing the System interface.
func New(
	entities store.System,
	ledger runs.System,
	archive storage.System,
	locker lock.Locker,
	logger *slog.Logger,
	cfg Config,
) System {
	return &repo{
		store:   entities,
		runs:    ledger,
		archive: archive,
		locker:  locker,
		logger:  logger.With("system", "imports"),
		cfg:     cfg,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.cfg.MaxSnapshotSize)
}

func (r *repo) Import(ctx context.Context, data []byte) (*Outcome, error) {
	p, err := r.prepare(data)
	if err != nil {
		return nil, err
	}

	key := r.archiveKey(p.result)
	if err := r.archive.Upload(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		return nil, fmt.Errorf("archive snapshot: %w", err)
	}

	return r.commit(ctx, p, key)
}

func (r *repo) Replay(ctx context.Context, key string) (*Outcome, error) {
	blob, err := r.archive.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("download snapshot %s: %w", key, err)
	}
	defer blob.Body.Close()

	data, err := io.ReadAll(blob.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", key, err)
	}

	p, err := r.prepare(data)
	if err != nil {
		return nil, err
	}

	return r.commit(ctx, p, key)
}

func (r *repo) Preview(ctx context.Context, data []byte) (*Outcome, error) {
	p, err := r.prepare(data)
	if err != nil {
		return nil, err
	}

	state, plan, err := r.plan(ctx, p.result)
	if err != nil {
		return nil, err
	}

	next, err := state.Apply(plan)
	if err != nil {
		return nil, fmt.Errorf("project plan: %w", err)
	}

	out := r.outcome(p, plan, next)
	out.Plan = plan
	return out, nil
}

func (r *repo) ImportBatch(ctx context.Context, docs [][]byte) []BatchResult {
	results := make([]BatchResult, len(docs))
	groups := make(map[string][]int)
	var order []string

	for i, data := range docs {
		results[i].Index = i

		teacherID, err := peekTeacher(data)
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		if _, ok := groups[teacherID]; !ok {
			order = append(order, teacherID)
		}
		groups[teacherID] = append(groups[teacherID], i)
	}

	var g errgroup.Group
	g.SetLimit(max(r.cfg.Concurrency, 1))

	for _, teacherID := range order {
		g.Go(func() error {
			for _, i := range groups[teacherID] {
				out, err := r.Import(ctx, docs[i])
				if err != nil {
					results[i].Error = err.Error()
					continue
				}
				results[i].Outcome = out
			}
			return nil
		})
	}
	g.Wait()

	r.logger.Info("batch imported", "snapshots", len(docs), "teachers", len(order))
	return results
}

func (r *repo) Stats(ctx context.Context, email string) (*stats.Global, error) {
	teacherID, err := identity.Teacher(email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	entities, err := r.store.Load(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if len(entities.Teachers) == 0 {
		return nil, ErrTeacherNotFound
	}

	state, err := reconcile.NewState(entities)
	if err != nil {
		return nil, fmt.Errorf("index teacher %s: %w", teacherID, err)
	}

	global := aggregate(state)
	return &global, nil
}

func (r *repo) History(ctx context.Context, submissionID string) ([]core.Submission, error) {
	return r.store.History(ctx, submissionID)
}

type prepared struct {
	snap   *snapshot.Snapshot
	result *snapshot.Result
}

func (r *repo) prepare(data []byte) (*prepared, error) {
	snap, err := snapshot.Decode(bytes.NewReader(data), r.cfg.MaxSnapshotSize)
	if err != nil {
		return nil, err
	}

	result, err := snapshot.Transform(snap)
	if err != nil {
		return nil, err
	}

	if snap.Metadata.Expired(time.Now()) {
		r.logger.Warn(
			"importing expired snapshot",
			"teacher", result.Teacher.ID,
			"fetched_at", result.FetchedAt,
			"expires_at", result.ExpiresAt,
		)
	}

	return &prepared{snap: snap, result: result}, nil
}

func (r *repo) commit(ctx context.Context, p *prepared, key string) (*Outcome, error) {
	run, err := r.runs.Start(ctx, runs.StartCommand{
		TeacherEmail: p.result.Teacher.Email,
		SnapshotKey:  key,
		Source:       p.result.Source,
		FetchedAt:    p.result.FetchedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("start import run: %w", err)
	}

	out, err := r.reconcile(ctx, p, run.ID)

	finish := runs.FinishCommand{Err: err}
	if out != nil {
		finish.Summary = out.Summary
	}
	if _, ferr := r.runs.Finish(context.WithoutCancel(ctx), run.ID, finish); ferr != nil {
		r.logger.Warn("import run finish failed", "run", run.ID, "error", ferr)
	}

	if err != nil {
		return nil, err
	}

	out.RunID = &run.ID
	out.SnapshotKey = key
	return out, nil
}

func (r *repo) reconcile(ctx context.Context, p *prepared, runID uuid.UUID) (*Outcome, error) {
	teacherID := p.result.Teacher.ID

	lease, err := r.locker.Acquire(ctx, teacherID, r.cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("lock teacher %s: %w", teacherID, err)
	}
	defer func() {
		if err := r.locker.Release(context.WithoutCancel(ctx), lease); err != nil {
			r.logger.Warn("lease release failed", "teacher", teacherID, "error", err)
		}
	}()

	state, plan, err := r.plan(ctx, p.result)
	if err != nil {
		return nil, err
	}

	if err := r.store.Apply(ctx, plan); err != nil {
		return nil, fmt.Errorf("apply plan: %w", err)
	}

	next, err := state.Apply(plan)
	if err != nil {
		return nil, fmt.Errorf("project plan: %w", err)
	}

	out := r.outcome(p, plan, next)

	r.logger.Info(
		"snapshot imported",
		"run", runID,
		"teacher", teacherID,
		"created", out.Summary.Created,
		"updated", out.Summary.Updated,
		"versioned", out.Summary.Versioned,
		"grades", out.Summary.Grades,
		"grading_queue", len(out.GradingQueue),
	)
	return out, nil
}

func (r *repo) plan(ctx context.Context, result *snapshot.Result) (*reconcile.State, *reconcile.Plan, error) {
	entities, err := r.store.Load(ctx, result.Teacher.ID)
	if err != nil {
		return nil, nil, err
	}

	state, err := reconcile.NewState(entities)
	if err != nil {
		return nil, nil, fmt.Errorf("index teacher %s: %w", result.Teacher.ID, err)
	}

	plan, err := reconcile.Merge(result, state)
	if err != nil {
		return nil, nil, err
	}
	return state, plan, nil
}

func (r *repo) outcome(p *prepared, plan *reconcile.Plan, next *reconcile.State) *Outcome {
	queue := plan.GradingQueue()
	keys := make([]core.RowKey, len(queue))
	for i, s := range queue {
		keys[i] = s.Key()
	}

	versioned := plan.Submissions.Versioned
	if versioned == nil {
		versioned = []reconcile.Version{}
	}

	return &Outcome{
		TeacherID:    p.result.Teacher.ID,
		Expired:      p.snap.Metadata.Expired(time.Now()),
		Summary:      plan.Summary(),
		Versioned:    versioned,
		GradingQueue: keys,
		Stats:        aggregate(next),
	}
}

func (r *repo) archiveKey(result *snapshot.Result) string {
	name := fmt.Sprintf("%s-%s.json", result.FetchedAt.Format(archiveTimeLayout), uuid.NewString())
	return path.Join(r.cfg.ArchivePrefix, strings.TrimPrefix(result.Teacher.ID, identity.NamespaceTeacher+":"), name)
}

func aggregate(s *reconcile.State) stats.Global {
	e := s.Entities()
	return stats.Aggregate(stats.Input{
		Classrooms:  e.Classrooms,
		Submissions: s.LatestSubmissions(),
		Grades:      e.Grades,
	})
}

func peekTeacher(data []byte) (string, error) {
	snap, err := snapshot.Parse(data)
	if err != nil {
		return "", err
	}
	teacherID, err := identity.Teacher(snap.Teacher.Email)
	if err != nil {
		return "", fmt.Errorf("%w: teacher: %v", snapshot.ErrMalformed, err)
	}
	return teacherID, nil
}
