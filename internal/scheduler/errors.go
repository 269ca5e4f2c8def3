package scheduler

import "errors"

// Error taxonomy for the scheduler (C6), surfaced by the HTTP layer
// per the mapping in spec §7.
var (
	// ErrQueueFull is returned synchronously by Submit when the bounded
	// FIFO is at capacity. The producer is responsible for deleting
	// the job's temp file on this path.
	ErrQueueFull = errors.New("scheduler: queue is full")

	// ErrServiceStopping is returned by Submit once Shutdown has begun.
	ErrServiceStopping = errors.New("scheduler: service is shutting down")

	// ErrServiceDegraded is returned by Submit, and delivered to any job
	// already queued, once a hot-swap failure could not be recovered.
	ErrServiceDegraded = errors.New("scheduler: service is degraded, manual restart required")

	// ErrSwapFailed is wrapped into a job's error when a hot-swap fails
	// but the previous engine was successfully restored.
	ErrSwapFailed = errors.New("scheduler: model switch failed")

	// ErrInferenceFailed wraps a job-level engine.Transcribe error.
	// The worker survives; only the one job fails.
	ErrInferenceFailed = errors.New("scheduler: inference failed")
)
