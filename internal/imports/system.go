package imports

import (
	"context"

	"github.com/JaimeStill/gradebook/internal/core"
	"github.com/JaimeStill/gradebook/internal/stats"
)

// System defines the public contract for snapshot imports.
type System interface {
	Handler() *Handler

	// Import reconciles a raw snapshot document and persists the result.
	Import(ctx context.Context, data []byte) (*Outcome, error)
	// Preview reconciles a raw snapshot document without writing anything.
	// The returned Outcome carries the full plan.
	Preview(ctx context.Context, data []byte) (*Outcome, error)
	// Replay re-imports a snapshot previously archived at key.
	Replay(ctx context.Context, key string) (*Outcome, error)
	// ImportBatch imports several documents. Snapshots of different teachers
	// run in parallel; snapshots of one teacher run in input order.
	ImportBatch(ctx context.Context, docs [][]byte) []BatchResult

	Stats(ctx context.Context, email string) (*stats.Global, error)
	History(ctx context.Context, submissionID string) ([]core.Submission, error)
}
