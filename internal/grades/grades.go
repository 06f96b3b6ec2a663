// Package grades extracts standalone grade entities from transformed submissions
// and enforces the lock ratchet that protects manually entered grades.
package grades

import (
	"github.com/JaimeStill/gradebook/internal/core"
)

// LockReasonManual is recorded on grades locked because a teacher entered them.
const LockReasonManual = "manual grade entered by teacher"

// Origin maps a provider grade origin onto GradedBy. The legacy "teacher"
// value is a manual grade; anything not recognized as manual is automated.
func Origin(raw string) core.GradedBy {
	switch raw {
	case "manual", "teacher", "human":
		return core.GradedManual
	default:
		return core.GradedAutomated
	}
}

// Extract returns the grade embedded in a transformed submission, bound to the
// submission's row key, or nil when the submission carries no grade. The grade
// is locked if and only if it was entered manually.
func Extract(s core.Submission) *core.Grade {
	if s.Embedded == nil {
		return nil
	}

	e := s.Embedded
	g := &core.Grade{
		SubmissionID:      s.ID,
		SubmissionVersion: s.Version,
		Score:             e.Score,
		MaxScore:          e.MaxScore,
		Feedback:          e.Feedback,
		GradedBy:          Origin(e.Origin),
		GradedAt:          e.GradedAt,
		Meta:              s.Meta,
	}

	if g.GradedBy == core.GradedManual {
		g.IsLocked = true
		g.LockReason = LockReasonManual
	}
	return g
}

// CanOverwrite reports whether the reconciliation path may replace existing.
// A locked grade can only be replaced by another manual action, never by an import.
func CanOverwrite(existing *core.Grade) bool {
	return existing == nil || !existing.IsLocked
}
