// Package registry tracks per-job state from admission to terminal
// outcome. Entries are written by exactly one actor (the worker, through
// the callback sink); status polls only read, so a sync.RWMutex keeps
// readers from ever blocking each other.
package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/fusepool/sedsvc/internal/model"
)

// Registry usage errors. These indicate a bug in the engine or its
// integration rather than a transient condition.
var (
	ErrDuplicateID     = errors.New("identifier already registered")
	ErrUnknownID       = errors.New("unknown identifier")
	ErrAlreadyTerminal = errors.New("job already in a terminal state")
)

type entry struct {
	job       model.Job
	req       *model.Request
	expiresAt time.Time
}

// Registry is an in-memory map from job identifier to job state. A
// non-zero TTL schedules terminal entries for eviction; pending entries
// never expire.
type Registry struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]*entry
}

// New creates an empty registry. ttl <= 0 disables eviction.
func New(ttl time.Duration) *Registry {
	return &Registry{
		ttl:     ttl,
		entries: make(map[string]*entry),
	}
}

// Register records a new pending job for the given identifier and takes
// ownership of the request until the worker picks it up.
func (r *Registry) Register(id string, req *model.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; ok {
		return ErrDuplicateID
	}
	r.entries[id] = &entry{
		job: model.Job{
			ID:          id,
			Status:      model.StatusPending,
			Script:      req.Script,
			ContentType: req.ContentType,
			CreatedAt:   time.Now().UTC(),
		},
		req: req,
	}
	return nil
}

// Remove deletes an entry regardless of state. Used to roll back a
// registration whose queue admission was rejected; the identifier has not
// been revealed to any caller at that point.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Pending returns the request payload for a pending job.
func (r *Registry) Pending(id string) (*model.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, ErrUnknownID
	}
	if e.job.Status != model.StatusPending {
		return nil, ErrAlreadyTerminal
	}
	return e.req, nil
}

// Complete transitions a pending job to completed and stores its result.
func (r *Registry) Complete(id string, res *model.Result) error {
	return r.finish(id, func(j *model.Job) {
		j.Status = model.StatusCompleted
		j.Output = res.Data
		j.OutputType = res.ContentType
	})
}

// Fail transitions a pending job to failed and records the cause.
func (r *Registry) Fail(id string, cause error) error {
	return r.finish(id, func(j *model.Job) {
		j.Status = model.StatusFailed
		j.Error = cause.Error()
	})
}

// finish applies a terminal transition under the write lock. The request
// payload is released and, when a TTL is configured, the entry is stamped
// for eviction.
func (r *Registry) finish(id string, mutate func(*model.Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return ErrUnknownID
	}
	if model.Terminal(e.job.Status) {
		return ErrAlreadyTerminal
	}

	now := time.Now().UTC()
	mutate(&e.job)
	e.job.FinishedAt = &now
	durationMS := int(now.Sub(e.job.CreatedAt).Milliseconds())
	e.job.DurationMS = &durationMS
	e.req = nil
	if r.ttl > 0 {
		e.expiresAt = now.Add(r.ttl)
	}
	return nil
}

// Status returns a copy of the job record so callers never observe a
// partially updated state.
func (r *Registry) Status(id string) (*model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, ErrUnknownID
	}
	job := e.job
	return &job, nil
}

// IsActive reports whether the job is still pending. Unknown identifiers
// and terminal jobs both report false.
func (r *Registry) IsActive(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	return ok && e.job.Status == model.StatusPending
}

// Len returns the number of tracked entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Sweep evicts terminal entries whose TTL elapsed before now and returns
// the evicted identifiers.
func (r *Registry) Sweep(now time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	for id, e := range r.entries {
		if !e.expiresAt.IsZero() && e.expiresAt.Before(now) {
			delete(r.entries, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}
