package factory

import (
	"fmt"
	"time"

	"github.com/ekisa-team/sttgate/internal/engine"
	"github.com/ekisa-team/sttgate/internal/engine/funasr"
	"github.com/ekisa-team/sttgate/internal/engine/mlx"
	"github.com/ekisa-team/sttgate/internal/registry"
)

// StandardFactory is the C4 engine factory: it constructs the concrete
// engine implied by a ModelSpec's EngineKind. Because the scheduler
// never holds more than one engine loaded at once (release-before-load,
// §4.6), every engine kind is started on the same local port.
type StandardFactory struct {
	FunASRBinPath string
	MLXBinPath    string
	Port          int
	ReadyTimeout  time.Duration
}

// Create builds (without loading) the engine implied by spec.EngineKind.
func (f *StandardFactory) Create(spec registry.ModelSpec) (engine.Engine, error) {
	switch spec.EngineKind {
	case registry.EngineFunASR:
		return funasr.New(spec, funasr.Config{
			BinPath:      f.FunASRBinPath,
			Port:         f.Port,
			ReadyTimeout: f.ReadyTimeout,
		}), nil
	case registry.EngineMLX:
		return mlx.New(spec, mlx.Config{
			BinPath:      f.MLXBinPath,
			Port:         f.Port,
			ReadyTimeout: f.ReadyTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("engine: unsupported engine kind %q", spec.EngineKind)
	}
}

var _ engine.Factory = (*StandardFactory)(nil)
