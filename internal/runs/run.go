// Package runs implements the import run ledger. Every import pass records
// one run with the snapshot it consumed and the write counts it produced.
package runs

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/gradebook/internal/reconcile"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one recorded import pass.
type Run struct {
	ID           uuid.UUID  `json:"id"`
	TeacherEmail string     `json:"teacher_email"`
	SnapshotKey  string     `json:"snapshot_key"`
	Source       string     `json:"source"`
	FetchedAt    time.Time  `json:"fetched_at"`
	Status       string     `json:"status"`
	Created      int        `json:"created"`
	Updated      int        `json:"updated"`
	Versioned    int        `json:"versioned"`
	Grades       int        `json:"grades"`
	Error        *string    `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// StartCommand carries the data needed to open a run.
type StartCommand struct {
	TeacherEmail string
	SnapshotKey  string
	Source       string
	FetchedAt    time.Time
}

// FinishCommand closes a run. A nil Err completes the run with the counts of
// Summary; a non-nil Err fails it.
type FinishCommand struct {
	Summary reconcile.Summary
	Err     error
}

func (c FinishCommand) status() string {
	if c.Err != nil {
		return StatusFailed
	}
	return StatusCompleted
}

func (c FinishCommand) message() *string {
	if c.Err == nil {
		return nil
	}
	msg := c.Err.Error()
	return &msg
}
