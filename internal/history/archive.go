// Package history provides an optional audit archive of terminal job
// outcomes. It records what each job did and how it ended, never the
// payloads themselves, and is write-only from the engine's point of view:
// jobs are never resumed or re-read from it.
package history

import (
	"context"
	"time"

	"github.com/fusepool/sedsvc/internal/model"
)

// Entry is one archived transformation outcome.
type Entry struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Script      string    `json:"script"`
	ContentType string    `json:"content_type"`
	OutputType  string    `json:"output_type,omitempty"`
	OutputBytes int       `json:"output_bytes"`
	Error       string    `json:"error,omitempty"`
	DurationMS  int       `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Stats holds aggregate archive statistics.
type Stats struct {
	Total         int            `json:"total"`
	CountByStatus map[string]int `json:"count_by_status"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
}

// Archive defines the persistence operations for job outcomes.
type Archive interface {
	Record(ctx context.Context, job *model.Job) error
	List(ctx context.Context, limit, offset int) ([]*Entry, int, error)
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}
