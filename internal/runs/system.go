package runs

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/gradebook/pkg/pagination"
)

// System defines the public contract for the import run ledger.
type System interface {
	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Run], error)

	Find(ctx context.Context, id uuid.UUID) (*Run, error)
	Start(ctx context.Context, cmd StartCommand) (*Run, error)
	// Finish closes a running run. Returns ErrFinished if the run is already closed.
	Finish(ctx context.Context, id uuid.UUID, cmd FinishCommand) (*Run, error)
}
