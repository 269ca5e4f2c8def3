// Package funasr adapts the FunASR model-server process (Paraformer,
// SenseVoice, ...) to the engine.Engine contract. Inference itself —
// acoustic modeling, punctuation, speaker embedding — is out of scope
// (spec.md §1): this package only manages the subprocess lifecycle and
// speaks its HTTP wire protocol.
package funasr

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ekisa-team/sttgate/internal/engine"
	"github.com/ekisa-team/sttgate/internal/engine/process"
	"github.com/ekisa-team/sttgate/internal/registry"
)

// Config configures how the FunASR server process is launched.
type Config struct {
	BinPath      string
	Port         int
	ReadyTimeout time.Duration
}

// Engine implements engine.Engine over a local FunASR model server.
type Engine struct {
	cfg    Config
	spec   registry.ModelSpec
	client *http.Client
	handle *process.Handle
}

// New constructs (but does not load) a FunASR engine for spec.
func New(spec registry.ModelSpec, cfg Config) *Engine {
	return &Engine{
		cfg:    cfg,
		spec:   spec,
		client: engine.DefaultHTTPClient(),
	}
}

func (e *Engine) Load(ctx context.Context) error {
	if e.handle != nil {
		return nil // idempotent on success, per §4.3
	}

	handle, err := process.Start(ctx, process.Config{
		Name:         "funasr",
		BinPath:      e.cfg.BinPath,
		Args:         []string{"--model", e.spec.ModelID, "--port", fmt.Sprintf("%d", e.cfg.Port)},
		Port:         e.cfg.Port,
		ReadyTimeout: e.cfg.ReadyTimeout,
	})
	if err != nil {
		return fmt.Errorf("funasr: load failed: %w", err)
	}

	e.handle = handle
	return nil
}

func (e *Engine) Transcribe(ctx context.Context, audioPath string, opts engine.Options) (*engine.RawResult, error) {
	if e.handle == nil {
		return nil, fmt.Errorf("funasr: transcribe called before load")
	}

	return engine.PostTranscribe(ctx, e.client, e.handle.BaseURL, audioPath, opts)
}

func (e *Engine) Release() error {
	if e.handle == nil {
		return nil
	}

	e.handle.Stop()
	e.handle = nil
	return nil
}

func (e *Engine) Capabilities() registry.Capabilities { return e.spec.Capabilities }
func (e *Engine) ModelID() string                     { return e.spec.ModelID }
func (e *Engine) EngineKind() registry.EngineKind      { return registry.EngineFunASR }

var _ engine.Engine = (*Engine)(nil)
