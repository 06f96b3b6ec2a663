// Package imports runs the snapshot import pipeline. A pass decodes and
// transforms a snapshot, archives the raw document, serializes on the
// teacher's lease, reconciles against stored state, writes the plan, and
// records the run in the ledger.
package imports

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/gradebook/internal/core"
	"github.com/JaimeStill/gradebook/internal/reconcile"
	"github.com/JaimeStill/gradebook/internal/stats"
)

// Config holds import pipeline settings.
type Config struct {
	MaxSnapshotSize int64
	Concurrency     int
	ArchivePrefix   string
	LockTTL         time.Duration
}

// Outcome reports one import pass. RunID and SnapshotKey are empty for previews.
type Outcome struct {
	RunID        *uuid.UUID          `json:"run_id,omitempty"`
	TeacherID    string              `json:"teacher_id"`
	SnapshotKey  string              `json:"snapshot_key,omitempty"`
	Expired      bool                `json:"expired"`
	Summary      reconcile.Summary   `json:"summary"`
	Versioned    []reconcile.Version `json:"versioned"`
	GradingQueue []core.RowKey       `json:"grading_queue"`
	Stats        stats.Global        `json:"stats"`
	Plan         *reconcile.Plan     `json:"plan,omitempty"`
}

// BatchResult reports the outcome of a single snapshot within a batch import.
// On success, Outcome is populated and Error is empty.
type BatchResult struct {
	Index   int      `json:"index"`
	Outcome *Outcome `json:"outcome,omitempty"`
	Error   string   `json:"error,omitempty"`
}
