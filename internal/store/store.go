// Package store persists prepared demographic tables and joined results.
package store

import (
	"context"
	"time"

	"github.com/sells-group/census-choropleth/internal/model"
)

// Run is one persisted prepare run: the jurisdiction total plus the number of
// per-unit records stored under it.
type Run struct {
	ID        string                `json:"id"`
	Source    string                `json:"source"`
	Total     model.CanonicalRecord `json:"total"`
	Units     int                   `json:"units"`
	CreatedAt time.Time             `json:"created_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Source string `json:"source,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for prepared tables and joins.
type Store interface {
	// Runs
	SaveRun(ctx context.Context, source string, total model.CanonicalRecord, perUnit []model.CanonicalRecord) (*Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)
	ListRecords(ctx context.Context, runID string) ([]model.CanonicalRecord, error)

	// Joined output
	SaveMerged(ctx context.Context, runID, field string, records []model.MergedRecord) (int64, error)
	ListMerged(ctx context.Context, runID, field string) ([]model.MergedRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 50

var countColumns = []string{"total", "hispanic", "white", "black", "asian", "mixed", "others"}

func countArgs(r model.CanonicalRecord) []any {
	return []any{r.Total, r.Hispanic, r.White, r.Black, r.Asian, r.Mixed, r.Others}
}

func countDest(r *model.CanonicalRecord) []any {
	return []any{&r.Total, &r.Hispanic, &r.White, &r.Black, &r.Asian, &r.Mixed, &r.Others}
}

type scannable interface {
	Scan(dest ...any) error
}

const runColumns = `id, source, area_name, total_id, total, hispanic, white, black, asian, mixed, others, units, created_at`

func scanRun(row scannable) (*Run, error) {
	var r Run
	dest := append([]any{&r.ID, &r.Source, &r.Total.AreaName, &r.Total.ID}, countDest(&r.Total)...)
	dest = append(dest, &r.Units, &r.CreatedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &r, nil
}
