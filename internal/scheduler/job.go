package scheduler

import (
	"sync"
	"time"

	"github.com/ekisa-team/sttgate/internal/engine"
	"github.com/ekisa-team/sttgate/internal/registry"
)

// Job is one submitted transcription request, bound to a one-shot
// completion channel. The scheduler owns the temp file referenced by
// AudioPath until exactly one of Result/Err has been delivered.
type Job struct {
	RequestID string
	AudioPath string

	Language      string
	WithTimestamp bool

	// RequestedSpec is nil for a passthrough request ("keep current
	// model"); otherwise the already-resolved target spec. Resolution
	// happens once, in admission (C5), so the scheduler never needs to
	// consult the model registry.
	RequestedSpec *registry.ModelSpec

	EnqueuedAt time.Time

	done     chan Outcome
	deliverO sync.Once
}

// Outcome is what a Job resolves to: exactly one of Result or Err is
// set, never both, never neither (§3 TranscriptionJob invariant).
type Outcome struct {
	Result *engine.Result
	Err    error
}

// NewJob constructs a job with its completion channel ready to receive.
func NewJob(requestID, audioPath string) *Job {
	return &Job{
		RequestID:  requestID,
		AudioPath:  audioPath,
		EnqueuedAt: time.Now(),
		done:       make(chan Outcome, 1),
	}
}

// Done returns the channel the submitter awaits for the result.
func (j *Job) Done() <-chan Outcome {
	return j.done
}

// deliver completes the job exactly once. Subsequent calls are no-ops,
// protecting the "exactly one outcome" invariant even if a caller bug
// tried to deliver twice.
func (j *Job) deliver(result *engine.Result, err error) {
	j.deliverO.Do(func() {
		j.done <- Outcome{Result: result, Err: err}
		close(j.done)
	})
}
