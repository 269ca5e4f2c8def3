package httpapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/sttgate/internal/admission"
	"github.com/ekisa-team/sttgate/internal/engine"
	"github.com/ekisa-team/sttgate/internal/registry"
	"github.com/ekisa-team/sttgate/internal/scheduler"
)

// fakeEngine/fakeFactory mirror the hand-rolled doubles in
// internal/scheduler's own tests: precise control over which spec is
// "loaded" matters more here than testify's mock matchers would buy.
type fakeEngine struct {
	spec registry.ModelSpec
}

func (f *fakeEngine) Load(ctx context.Context) error { return nil }
func (f *fakeEngine) Transcribe(ctx context.Context, audioPath string, opts engine.Options) (*engine.RawResult, error) {
	return &engine.RawResult{Text: "hello", ModelID: f.spec.ModelID}, nil
}
func (f *fakeEngine) Release() error                      { return nil }
func (f *fakeEngine) Capabilities() registry.Capabilities { return f.spec.Capabilities }
func (f *fakeEngine) ModelID() string                     { return f.spec.ModelID }
func (f *fakeEngine) EngineKind() registry.EngineKind     { return f.spec.EngineKind }

var _ engine.Engine = (*fakeEngine)(nil)

type fakeFactory struct{}

func (fakeFactory) Create(spec registry.ModelSpec) (engine.Engine, error) {
	return &fakeEngine{spec: spec}, nil
}

var _ engine.Factory = fakeFactory{}

func testModelSpec(alias string) registry.ModelSpec {
	return registry.ModelSpec{
		Alias:      alias,
		ModelID:    alias + "-model-id",
		EngineKind: registry.EngineFunASR,
	}
}

func newTestServer(t *testing.T, reg *registry.Registry, loaded registry.ModelSpec) *Server {
	t.Helper()

	sched := scheduler.New(fakeFactory{}, 4, nil)
	require.NoError(t, sched.Start(context.Background(), loaded))

	return &Server{
		validator: admission.New(admission.Limits{}, reg),
		sched:     sched,
		reg:       reg,
	}
}

func TestHandleListModels_CurrentPopulatedWhenOnRegistry(t *testing.T) {
	specA := testModelSpec("paraformer")
	specB := testModelSpec("parakeet")
	reg := registry.New([]registry.ModelSpec{specA, specB})
	s := newTestServer(t, reg, specA)

	out, err := s.handleListModels(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, out.Body.Models, 2)
	require.NotNil(t, out.Body.Current)
	assert.Equal(t, "paraformer", *out.Body.Current)
}

func TestHandleListModels_CurrentNilWhenOffRegistry(t *testing.T) {
	specA := testModelSpec("paraformer")
	reg := registry.New([]registry.ModelSpec{specA})
	offRegistry := testModelSpec("mlx-community/custom-model")
	s := newTestServer(t, reg, offRegistry)

	out, err := s.handleListModels(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, out.Body.Models, 1)
	assert.Nil(t, out.Body.Current)
}
