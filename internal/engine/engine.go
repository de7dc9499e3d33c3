package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fusepool/sedsvc/internal/model"
	"github.com/fusepool/sedsvc/internal/queue"
	"github.com/fusepool/sedsvc/internal/registry"
	"github.com/fusepool/sedsvc/internal/transform"
)

// DefaultWorkers is the worker count used when none is configured.
const DefaultWorkers = 1

// Engine lifecycle and admission errors.
var (
	// ErrAlreadyActivated is returned when Activate is called twice.
	ErrAlreadyActivated = errors.New("engine already activated")

	// ErrNotActivated is returned by Submit before a sink is installed.
	ErrNotActivated = errors.New("engine not activated")

	// ErrBacklogFull is returned when the admission queue is at capacity.
	// The caller may retry later; no state is left behind.
	ErrBacklogFull = errors.New("backlog full")

	// ErrHalted is returned after a worker loop fault stopped intake.
	ErrHalted = errors.New("engine halted after worker loop fault")
)

// Options configures the engine.
type Options struct {
	// QueueCapacity bounds the backlog of admitted jobs. Zero means
	// queue.DefaultCapacity.
	QueueCapacity int

	// Workers is the number of sequential executors sharing the queue.
	// Zero means DefaultWorkers.
	Workers int

	// SweepInterval is how often expired terminal registry entries are
	// evicted. Zero disables the janitor.
	SweepInterval time.Duration
}

// Engine accepts transformation requests, enforces the bounded backlog,
// runs the pluggable transformer on its workers, and reports outcomes
// through the installed sink. Lifecycle: created by New, started once by
// Activate, stopped by Shutdown.
type Engine struct {
	registry    *registry.Registry
	queue       *queue.Queue
	transformer transform.Transformer
	notifier    *Notifier
	logger      *slog.Logger
	workers     int
	sweepEvery  time.Duration

	sink      Sink
	activated atomic.Bool
	halted    atomic.Bool
	faults    chan error
	done      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// New creates an engine in the created state. No work is accepted until
// Activate installs a sink and starts the workers.
func New(opts Options, reg *registry.Registry, tr transform.Transformer, logger *slog.Logger) *Engine {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Engine{
		registry:    reg,
		queue:       queue.New(opts.QueueCapacity),
		transformer: tr,
		notifier:    NewNotifier(),
		logger:      logger,
		workers:     workers,
		sweepEvery:  opts.SweepInterval,
		faults:      make(chan error, workers),
		done:        make(chan struct{}),
	}
}

// Notifier returns the completion notifier for long-poll subscriptions.
func (e *Engine) Notifier() *Notifier {
	return e.notifier
}

// Activate installs the callback sink and starts the worker loops. It
// must be called exactly once before any submission; a second call fails
// with ErrAlreadyActivated.
func (e *Engine) Activate(sink Sink) error {
	if sink == nil {
		return errors.New("nil sink")
	}
	if !e.activated.CompareAndSwap(false, true) {
		return ErrAlreadyActivated
	}
	e.sink = sink

	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}
	if e.sweepEvery > 0 {
		e.wg.Add(1)
		go e.janitor()
	}

	e.logger.Info("engine activated",
		"workers", e.workers,
		"queue_capacity", e.queue.Cap(),
	)
	return nil
}

// Submit generates a fresh identifier for the request and attempts to
// admit it. On success the job is registered pending and the identifier
// returned; on a full backlog ErrBacklogFull is returned and no state is
// left behind. Submit never blocks.
//
// The pending entry is registered before the queue offer and rolled back
// on rejection. The identifier is only revealed to the caller here, so
// the rollback cannot be observed; registering first guarantees a worker
// never dequeues an identifier the registry does not know.
func (e *Engine) Submit(req *model.Request) (string, error) {
	if !e.activated.Load() {
		return "", ErrNotActivated
	}
	if e.halted.Load() {
		return "", ErrHalted
	}

	id := model.NewID()
	if err := e.registry.Register(id, req); err != nil {
		return "", fmt.Errorf("register job: %w", err)
	}
	if !e.queue.Offer(id) {
		e.registry.Remove(id)
		jobsRejected.Inc()
		return "", ErrBacklogFull
	}

	jobsSubmitted.Inc()
	queueDepth.Set(float64(e.queue.Depth()))
	return id, nil
}

// Status returns the job record for the identifier.
func (e *Engine) Status(id string) (*model.Job, error) {
	return e.registry.Status(id)
}

// IsActive reports whether the job is still being processed. Terminal and
// unknown identifiers both report false.
func (e *Engine) IsActive(id string) bool {
	return e.registry.IsActive(id)
}

// Accepting reports whether Submit can currently admit work: the engine
// has been activated and no worker loop fault has halted intake.
func (e *Engine) Accepting() bool {
	return e.activated.Load() && !e.halted.Load()
}

// Faults delivers worker loop faults: errors escaping the dequeue or
// dispatch path itself, after which no further jobs will complete on that
// worker. The operator must treat these as fatal.
func (e *Engine) Faults() <-chan error {
	return e.faults
}

// Shutdown stops the workers and waits for the in-flight transformation
// on each to finish. Pending backlog entries are abandoned.
func (e *Engine) Shutdown() {
	e.stopOnce.Do(func() { close(e.done) })
	e.wg.Wait()
}

// worker is one sequential executor: it takes the next identifier, runs
// the transformation to completion, reports the outcome, and only then
// dequeues again. A panic in the transformation is contained by process;
// a panic escaping the loop itself halts intake and is surfaced on the
// fault channel.
func (e *Engine) worker(n int) {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			fault := fmt.Errorf("worker %d dispatch fault: %v", n, r)
			e.halted.Store(true)
			e.logger.Error("worker loop fault, halting intake", "worker", n, "error", fault)
			select {
			case e.faults <- fault:
			default:
			}
		}
	}()

	for {
		id, ok := e.queue.Take(e.done)
		if !ok {
			return
		}
		queueDepth.Set(float64(e.queue.Depth()))
		e.process(id)
	}
}

// process executes a single dequeued job and reports its outcome. Errors
// here are fatal to the request, never to the loop.
func (e *Engine) process(id string) {
	req, err := e.registry.Pending(id)
	if err != nil {
		// Contract violation: the queue handed out an identifier the
		// registry does not hold as pending.
		e.logger.Error("dequeued job has no pending entry", "job_id", id, "error", err)
		return
	}

	start := time.Now()
	res, err := e.runTransform(req)
	transformDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		e.logger.Warn("transformation failed", "job_id", id, "error", err)
		if sinkErr := e.sink.OnFailure(id, err); sinkErr != nil {
			e.logger.Error("report failure", "job_id", id, "error", sinkErr)
		}
		jobsProcessed.WithLabelValues(model.StatusFailed).Inc()
	} else {
		if sinkErr := e.sink.OnSuccess(id, res); sinkErr != nil {
			e.logger.Error("report success", "job_id", id, "error", sinkErr)
		}
		jobsProcessed.WithLabelValues(model.StatusCompleted).Inc()
	}

	e.notifier.Done(id)
}

// runTransform invokes the transformer with panic containment: one bad
// request must never kill the worker.
func (e *Engine) runTransform(req *model.Request) (res *model.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("transformation panic: %v", r)
		}
	}()
	return e.transformer.Transform(context.Background(), req)
}

// janitor periodically evicts expired terminal registry entries and drops
// their completion markers.
func (e *Engine) janitor() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return
		case now := <-ticker.C:
			evicted := e.registry.Sweep(now.UTC())
			for _, id := range evicted {
				e.notifier.Forget(id)
			}
			if len(evicted) > 0 {
				e.logger.Debug("evicted expired jobs", "count", len(evicted))
			}
		}
	}
}
