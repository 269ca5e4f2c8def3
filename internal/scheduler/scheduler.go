// Package scheduler implements the bounded FIFO queue and strict serial
// worker (C6) that sit between admission (C5) and the engine layer
// (C3/C4). A single consumer goroutine owns the currently loaded
// engine; every other goroutine talks to it only through channels, per
// the message-passing discipline in spec §5.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/ekisa-team/sttgate/internal/engine"
	"github.com/ekisa-team/sttgate/internal/registry"
)

// Snapshot is a point-in-time, race-free view of scheduler state,
// answered by the consumer goroutine itself (§5) rather than guarded
// by a mutex.
type Snapshot struct {
	EngineKind   registry.EngineKind
	ModelID      string
	Alias        string
	Capabilities registry.Capabilities
	QueueDepth   int
	MaxQueueSize int
	Degraded     bool
}

type queryRequest struct {
	resp chan Snapshot
}

// Scheduler is the C6 bounded FIFO queue plus its dedicated worker.
// Zero value is not usable; construct with New.
type Scheduler struct {
	factory engine.Factory
	log     *slog.Logger

	jobs    chan *Job
	queryCh chan queryRequest
	stopped chan struct{}

	degraded atomic.Bool
	stopping atomic.Bool

	maxQueueSize int

	// Owned exclusively by run(); never touched from any other goroutine.
	currentEngine engine.Engine
	currentSpec   registry.ModelSpec
}

// New constructs a Scheduler with the given bounded queue capacity.
// Call Start before Submit.
func New(factory engine.Factory, capacity int, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		factory:      factory,
		log:          log,
		jobs:         make(chan *Job, capacity),
		queryCh:      make(chan queryRequest),
		stopped:      make(chan struct{}),
		maxQueueSize: capacity,
	}
}

// Start synchronously loads the initial model so a startup failure is
// observable to the caller, then launches the consumer goroutine.
func (s *Scheduler) Start(ctx context.Context, initialSpec registry.ModelSpec) error {
	eng, err := s.factory.Create(initialSpec)
	if err != nil {
		return fmt.Errorf("scheduler: create initial engine: %w", err)
	}
	if err := eng.Load(ctx); err != nil {
		return fmt.Errorf("scheduler: load initial model %q: %w", initialSpec.Alias, err)
	}

	s.currentEngine = eng
	s.currentSpec = initialSpec

	go s.run()
	return nil
}

// Submit enqueues job for processing. It never blocks on inference: it
// either accepts the job into the bounded queue immediately or fails
// fast with ErrQueueFull, ErrServiceStopping, or ErrServiceDegraded.
// On any error return, the caller (the HTTP handler) owns job.AudioPath and
// must delete it.
func (s *Scheduler) Submit(job *Job) error {
	if s.stopping.Load() {
		return ErrServiceStopping
	}
	if s.degraded.Load() {
		return ErrServiceDegraded
	}

	select {
	case s.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting new work, lets already-queued jobs drain,
// then releases the loaded engine. It returns when the worker has
// exited or ctx is done, whichever comes first.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.stopping.Store(true)

	select {
	case s.jobs <- nil: // sentinel, preserves FIFO order of already-queued jobs
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot answers a race-free read of current scheduler state. It is
// implemented as a query sent to the consumer goroutine rather than a
// lock, per spec §5's preference for message passing over shared state.
func (s *Scheduler) Snapshot(ctx context.Context) (Snapshot, error) {
	req := queryRequest{resp: make(chan Snapshot, 1)}

	select {
	case s.queryCh <- req:
	case <-s.stopped:
		return Snapshot{}, fmt.Errorf("scheduler: stopped")
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}

	select {
	case snap := <-req.resp:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// run is the sole consumer of s.jobs and the sole owner of
// currentEngine/currentSpec. It never returns until a nil sentinel job
// (enqueued by Shutdown) is processed.
func (s *Scheduler) run() {
	defer close(s.stopped)
	defer func() {
		if err := s.currentEngine.Release(); err != nil {
			s.log.Error("scheduler: final release failed", "error", err)
		}
	}()

	for {
		select {
		case q := <-s.queryCh:
			q.resp <- s.snapshot()

		case job := <-s.jobs:
			if job == nil {
				return
			}
			s.process(job)
		}
	}
}

func (s *Scheduler) snapshot() Snapshot {
	return Snapshot{
		EngineKind:   s.currentSpec.EngineKind,
		ModelID:      s.currentSpec.ModelID,
		Alias:        s.currentSpec.Alias,
		Capabilities: s.currentSpec.Capabilities,
		QueueDepth:   len(s.jobs),
		MaxQueueSize: s.maxQueueSize,
		Degraded:     s.degraded.Load(),
	}
}

// process runs one job to completion, always deleting its temp audio
// file regardless of outcome (§8 invariant: no orphaned temp files).
// The file is removed before the outcome is delivered.
func (s *Scheduler) process(job *Job) {
	start := time.Now()
	finish := func(result *engine.Result, err error) {
		if rmErr := os.Remove(job.AudioPath); rmErr != nil && !os.IsNotExist(rmErr) {
			s.log.Warn("scheduler: temp file cleanup failed", "path", job.AudioPath, "error", rmErr)
		}
		job.deliver(result, err)
	}

	if s.degraded.Load() {
		finish(nil, ErrServiceDegraded)
		return
	}

	if job.RequestedSpec != nil && job.RequestedSpec.Alias != s.currentSpec.Alias {
		if err := s.swap(*job.RequestedSpec); err != nil {
			finish(nil, err)
			return
		}
	}

	ctx := context.Background()
	raw, err := s.currentEngine.Transcribe(ctx, job.AudioPath, engine.Options{
		Language:      job.Language,
		WithTimestamp: job.WithTimestamp,
	})
	if err != nil {
		finish(nil, fmt.Errorf("%w: %v", ErrInferenceFailed, err))
		return
	}

	result := engine.Sanitize(raw, s.currentSpec.Capabilities.Diarization)
	result.ModelID = s.currentSpec.ModelID

	s.log.Info("scheduler: job completed",
		"request_id", job.RequestID,
		"model", s.currentSpec.Alias,
		"queue_time_ms", start.Sub(job.EnqueuedAt).Milliseconds(),
		"inference_time_ms", time.Since(start).Milliseconds(),
	)

	finish(result, nil)
}

// swap implements the hot-swap protocol (§4.6): release the previous
// engine before loading the next one, since unified-memory hardware
// cannot hold two models at once. A release failure is logged but does
// NOT abort the swap — the new model is still attempted.
func (s *Scheduler) swap(newSpec registry.ModelSpec) error {
	previousEngine := s.currentEngine
	previousSpec := s.currentSpec

	if err := previousEngine.Release(); err != nil {
		s.log.Error("scheduler: release during swap failed, continuing anyway",
			"model", previousSpec.Alias, "error", err)
	}

	newEngine, err := s.factory.Create(newSpec)
	if err == nil {
		err = newEngine.Load(context.Background())
	}
	if err != nil {
		return s.recover(previousSpec, newSpec, err)
	}

	s.currentEngine = newEngine
	s.currentSpec = newSpec
	return nil
}

// recover attempts to restore previousSpec after a failed swap. On
// success the service stays healthy and only the triggering job fails
// (ErrSwapFailed). On failure the service enters the degraded state:
// every subsequent Submit and queued job fails fast until an operator
// restarts the process.
func (s *Scheduler) recover(previousSpec, failedSpec registry.ModelSpec, origErr error) error {
	s.log.Error("scheduler: swap failed, attempting to restore previous model",
		"failed_model", failedSpec.Alias, "previous_model", previousSpec.Alias, "error", origErr)

	restoredEngine, err := s.factory.Create(previousSpec)
	if err == nil {
		err = restoredEngine.Load(context.Background())
	}
	if err != nil {
		s.log.Error("scheduler: restore after failed swap also failed, entering degraded state",
			"previous_model", previousSpec.Alias, "error", err)
		s.degraded.Store(true)
		return fmt.Errorf("%w: %v", ErrServiceDegraded, err)
	}

	s.currentEngine = restoredEngine
	s.currentSpec = previousSpec
	return fmt.Errorf("%w: %v", ErrSwapFailed, origErr)
}
