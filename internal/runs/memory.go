package runs

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/gradebook/pkg/pagination"
)

// Memory is an in-process run ledger ordered by start time, newest first.
type Memory struct {
	mu         sync.RWMutex
	runs       map[uuid.UUID]Run
	pagination pagination.Config
}

// NewMemory creates an empty in-process run ledger.
func NewMemory(pagination pagination.Config) *Memory {
	return &Memory{
		runs:       make(map[uuid.UUID]Run),
		pagination: pagination,
	}
}

func (m *Memory) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Run], error) {
	page.Normalize(m.pagination)

	m.mu.RLock()
	matched := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		if filters.match(r) && searchMatch(page.Search, r) {
			matched = append(matched, r)
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(matched, func(a, b Run) int {
		return cmp.Or(b.StartedAt.Compare(a.StartedAt), strings.Compare(a.ID.String(), b.ID.String()))
	})

	start := min(page.Offset(), len(matched))
	end := min(start+page.PageSize, len(matched))

	result := pagination.NewPageResult(matched[start:end], len(matched), page.Page, page.PageSize)
	return &result, nil
}

func (m *Memory) Find(ctx context.Context, id uuid.UUID) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *Memory) Start(ctx context.Context, cmd StartCommand) (*Run, error) {
	r := Run{
		ID:           uuid.New(),
		TeacherEmail: cmd.TeacherEmail,
		SnapshotKey:  cmd.SnapshotKey,
		Source:       cmd.Source,
		FetchedAt:    cmd.FetchedAt,
		Status:       StatusRunning,
		StartedAt:    time.Now().UTC(),
	}

	m.mu.Lock()
	m.runs[r.ID] = r
	m.mu.Unlock()

	return &r, nil
}

func (m *Memory) Finish(ctx context.Context, id uuid.UUID, cmd FinishCommand) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status != StatusRunning {
		return nil, ErrFinished
	}

	now := time.Now().UTC()
	r.Status = cmd.status()
	r.Created = cmd.Summary.Created
	r.Updated = cmd.Summary.Updated
	r.Versioned = cmd.Summary.Versioned
	r.Grades = cmd.Summary.Grades
	r.Error = cmd.message()
	r.FinishedAt = &now
	m.runs[id] = r

	return &r, nil
}

func searchMatch(search *string, r Run) bool {
	if search == nil || *search == "" {
		return true
	}
	s := strings.ToLower(*search)
	return strings.Contains(strings.ToLower(r.TeacherEmail), s) ||
		strings.Contains(strings.ToLower(r.SnapshotKey), s)
}
