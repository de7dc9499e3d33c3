package engine

import (
	"github.com/fusepool/sedsvc/internal/model"
	"github.com/fusepool/sedsvc/internal/registry"
)

// Sink receives the outcome of each executed job. It decouples the worker
// loop from result delivery: the default sink records outcomes in the job
// registry for polling, and decorators can layer on other delivery
// mechanisms (event publication, audit archival) without touching the
// worker. A returned error signals a registry-contract violation; the
// worker logs it and moves on to the next job.
type Sink interface {
	OnSuccess(id string, res *model.Result) error
	OnFailure(id string, cause error) error
}

// RegistrySink is the default sink: it transitions jobs to their terminal
// state in the registry, where status polls pick them up.
type RegistrySink struct {
	reg *registry.Registry
}

// NewRegistrySink creates the default registry-backed sink.
func NewRegistrySink(reg *registry.Registry) *RegistrySink {
	return &RegistrySink{reg: reg}
}

// OnSuccess records a completed result.
func (s *RegistrySink) OnSuccess(id string, res *model.Result) error {
	return s.reg.Complete(id, res)
}

// OnFailure records a failed transformation.
func (s *RegistrySink) OnFailure(id string, cause error) error {
	return s.reg.Fail(id, cause)
}
