// Package engine defines the polymorphic ASR back-end contract (C3)
// and the factory that constructs concrete engines from a ModelSpec
// (C4). Engines are single-threaded: only the scheduler ever calls
// into one, and never concurrently.
package engine

import (
	"context"

	"github.com/ekisa-team/sttgate/internal/registry"
)

// Options carries per-request inference parameters.
type Options struct {
	Language      string
	WithTimestamp bool
}

// Segment is one timestamped span of a sanitized transcription.
// Speaker is nil when the engine lacks diarization capability.
type Segment struct {
	ID      int
	Speaker *string
	Start   float64
	End     float64
	Text    string
}

// Result is the outcome of a successful, sanitized Transcribe call —
// what the scheduler and HTTP layer operate on.
type Result struct {
	Text     string
	Duration float64
	Language string
	ModelID  string
	Segments []Segment // present iff capability timestamp && requested
}

// RawSegment is what a back-end actually hands back before
// sanitization: Start/End are pointers because some back-ends (a known
// upstream artifact, see Sanitize) omit them for a given segment.
type RawSegment struct {
	ID      int
	Speaker *string
	Start   *float64
	End     *float64
	Text    string
}

// RawResult is the unsanitized output of Engine.Transcribe.
type RawResult struct {
	Text     string
	Duration float64
	Language string
	ModelID  string
	Segments []RawSegment
}

// Engine is the uniform contract every ASR back-end implements (§4.3).
// Load and Release are synchronous and may block for tens of seconds;
// Transcribe is synchronous per call. Implementations are not safe for
// concurrent use — the scheduler is the only caller and calls serially.
type Engine interface {
	// Load brings the model into memory. Idempotent on success.
	Load(ctx context.Context) error

	// Transcribe runs inference against an already-persisted audio
	// file and returns the raw (unsanitized) result. The scheduler runs
	// the result through Sanitize before handing it on.
	Transcribe(ctx context.Context, audioPath string, opts Options) (*RawResult, error)

	// Release frees all accelerator memory. Best-effort: callers log
	// errors but never propagate them (§4.3).
	Release() error

	// Capabilities reports what the currently loaded model can
	// produce. Immutable while loaded.
	Capabilities() registry.Capabilities

	// ModelID returns the back-end-opaque model identifier in use.
	ModelID() string

	// EngineKind identifies the back-end family.
	EngineKind() registry.EngineKind
}

// Factory constructs an Engine for a ModelSpec without loading it —
// the caller (the scheduler) calls Load so load failures are
// observable in the hot-swap protocol (§4.6).
type Factory interface {
	Create(spec registry.ModelSpec) (Engine, error)
}
