package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/fusepool/sedsvc/internal/engine"
	"github.com/fusepool/sedsvc/internal/model"
	"github.com/fusepool/sedsvc/internal/registry"
)

const recordTimeout = 5 * time.Second

// Sink decorates another sink with archival: after the wrapped sink has
// recorded the outcome, the job's terminal record is copied into the
// archive. Archive failures are logged and swallowed so a broken archive
// never turns completed work into a failure.
type Sink struct {
	next    engine.Sink
	reg     *registry.Registry
	archive Archive
	logger  *slog.Logger
}

// NewSink wraps next with archival of terminal job records.
func NewSink(next engine.Sink, reg *registry.Registry, archive Archive, logger *slog.Logger) *Sink {
	return &Sink{next: next, reg: reg, archive: archive, logger: logger}
}

// OnSuccess delegates to the wrapped sink, then archives the job.
func (s *Sink) OnSuccess(id string, res *model.Result) error {
	if err := s.next.OnSuccess(id, res); err != nil {
		return err
	}
	s.record(id)
	return nil
}

// OnFailure delegates to the wrapped sink, then archives the job.
func (s *Sink) OnFailure(id string, cause error) error {
	if err := s.next.OnFailure(id, cause); err != nil {
		return err
	}
	s.record(id)
	return nil
}

func (s *Sink) record(id string) {
	job, err := s.reg.Status(id)
	if err != nil {
		s.logger.Error("archive lookup failed", "job_id", id, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := s.archive.Record(ctx, job); err != nil {
		s.logger.Error("archive record failed", "job_id", id, "error", err)
	}
}
