// Package mlx adapts an mlx-audio model-server process (Qwen3-ASR,
// Parakeet, ...) running on Apple Silicon's unified memory to the
// engine.Engine contract. Like funasr, inference internals are out of
// scope — this package only owns the subprocess and its wire protocol.
package mlx

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ekisa-team/sttgate/internal/engine"
	"github.com/ekisa-team/sttgate/internal/engine/process"
	"github.com/ekisa-team/sttgate/internal/registry"
)

// Config configures how the mlx-audio server process is launched.
type Config struct {
	BinPath      string
	Port         int
	ReadyTimeout time.Duration
}

// Engine implements engine.Engine over a local mlx-audio model server.
type Engine struct {
	cfg    Config
	spec   registry.ModelSpec
	client *http.Client
	handle *process.Handle
}

// New constructs (but does not load) an mlx engine for spec.
func New(spec registry.ModelSpec, cfg Config) *Engine {
	return &Engine{
		cfg:    cfg,
		spec:   spec,
		client: engine.DefaultHTTPClient(),
	}
}

func (e *Engine) Load(ctx context.Context) error {
	if e.handle != nil {
		return nil
	}

	handle, err := process.Start(ctx, process.Config{
		Name:         "mlx-audio",
		BinPath:      e.cfg.BinPath,
		Args:         []string{"--model", e.spec.ModelID, "--port", fmt.Sprintf("%d", e.cfg.Port)},
		Port:         e.cfg.Port,
		ReadyTimeout: e.cfg.ReadyTimeout,
	})
	if err != nil {
		return fmt.Errorf("mlx: load failed: %w", err)
	}

	e.handle = handle
	return nil
}

func (e *Engine) Transcribe(ctx context.Context, audioPath string, opts engine.Options) (*engine.RawResult, error) {
	if e.handle == nil {
		return nil, fmt.Errorf("mlx: transcribe called before load")
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
func (e *Engine) EngineKind() registry.EngineKind      { return registry.EngineMLX }

var _ engine.Engine = (*Engine)(nil)
