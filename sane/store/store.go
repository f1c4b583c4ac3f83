// Package store persists training snapshots and per-generation statistics
// so that a run can be resumed and inspected later.
package store

import (
	"context"

	"github.com/baldhumanity/sane-go/sane"
	"github.com/google/uuid"
)

// Store saves snapshots and generation statistics keyed by run id.
type Store interface {
	Init(ctx context.Context) error
	SaveSnapshot(ctx context.Context, runID string, snapshot *sane.Snapshot) error
	LoadSnapshot(ctx context.Context, runID string) (*sane.Snapshot, bool, error)
	SaveGenerationStats(ctx context.Context, runID string, stats sane.GenerationStats) error
	ListGenerationStats(ctx context.Context, runID string) ([]sane.GenerationStats, error)
	Close() error
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}
