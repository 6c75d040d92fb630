// Package store persists run reports so past scrapes can be inspected with
// the runs command. Persistence is best-effort: a store failure is logged by
// the caller and never aborts a scrape.
package store

import (
	"context"

	"github.com/civicgrab/civicgrab/internal/model"
)

// Store is the run-history persistence interface.
type Store interface {
	SaveReport(ctx context.Context, report *model.RunReport) error
	ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error)
	GetReport(ctx context.Context, runID string) (*model.RunReport, error)

	Migrate(ctx context.Context) error
	Close() error
}
