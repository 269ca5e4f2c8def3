package scheduler

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/sttgate/internal/engine"
	"github.com/ekisa-team/sttgate/internal/registry"
)

// fakeEngine is a hand-rolled test double rather than a testify mock:
// the scheduler calls into it from a single goroutine but the test
// asserts on call order across Release/Load, which mock.Mock's
// argument matching makes awkward.
type fakeEngine struct {
	mu sync.Mutex

	spec registry.ModelSpec

	loadErr      error
	transcribeFn func(ctx context.Context, audioPath string, opts engine.Options) (*engine.RawResult, error)
	releaseErr   error

	loadCalls    int
	releaseCalls int

	// events, when set, receives "release:<alias>" and "load:<alias>"
	// entries in call order; engines may share one slice.
	events *[]string
}

func (f *fakeEngine) Load(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCalls++
	if f.events != nil {
		*f.events = append(*f.events, "load:"+f.spec.Alias)
	}
	return f.loadErr
}

func (f *fakeEngine) Transcribe(ctx context.Context, audioPath string, opts engine.Options) (*engine.RawResult, error) {
	if f.transcribeFn != nil {
		return f.transcribeFn(ctx, audioPath, opts)
	}
	return &engine.RawResult{Text: "hello", ModelID: f.spec.ModelID}, nil
}

func (f *fakeEngine) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseCalls++
	if f.events != nil {
		*f.events = append(*f.events, "release:"+f.spec.Alias)
	}
	return f.releaseErr
}

func (f *fakeEngine) Capabilities() registry.Capabilities { return f.spec.Capabilities }
func (f *fakeEngine) ModelID() string                     { return f.spec.ModelID }
func (f *fakeEngine) EngineKind() registry.EngineKind     { return f.spec.EngineKind }

var _ engine.Engine = (*fakeEngine)(nil)

// fakeFactory hands out a fixed fakeEngine per alias and records the
// order of Create calls.
type fakeFactory struct {
	mu       sync.Mutex
	engines  map[string]*fakeEngine
	createFn map[string]func() (engine.Engine, error)
	order    []string
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{engines: map[string]*fakeEngine{}}
}

func (f *fakeFactory) withEngine(spec registry.ModelSpec) *fakeEngine {
	e := &fakeEngine{spec: spec}
	f.engines[spec.Alias] = e
	return e
}

func (f *fakeFactory) Create(spec registry.ModelSpec) (engine.Engine, error) {
	f.mu.Lock()
	f.order = append(f.order, spec.Alias)
	f.mu.Unlock()

	if fn, ok := f.createFn[spec.Alias]; ok {
		return fn()
	}
	if e, ok := f.engines[spec.Alias]; ok {
		return e, nil
	}
	return f.withEngine(spec), nil
}

func testSpec(alias string) registry.ModelSpec {
	return registry.ModelSpec{
		Alias:        alias,
		ModelID:      alias + "-model-id",
		EngineKind:   registry.EngineFunASR,
		Capabilities: registry.Capabilities{Timestamp: true},
	}
}

func newTempAudio(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "job-*.wav")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func TestScheduler_SubmitAndProcess(t *testing.T) {
	factory := newFakeFactory()
	spec := testSpec("paraformer")
	factory.withEngine(spec)

	s := New(factory, 4, nil)
	require.NoError(t, s.Start(context.Background(), spec))

	audioPath := newTempAudio(t)
	job := NewJob("req-1", audioPath)

	require.NoError(t, s.Submit(job))

	select {
	case out := <-job.Done():
		require.NoError(t, out.Err)
		assert.Equal(t, "hello", out.Result.Text)
		assert.Equal(t, spec.ModelID, out.Result.ModelID)
	case <-time.After(time.Second):
		t.Fatal("job did not complete")
	}

	_, err := os.Stat(audioPath)
	assert.True(t, os.IsNotExist(err), "temp audio file should be deleted after processing")
}

func TestScheduler_QueueFullRejectsSynchronously(t *testing.T) {
	factory := newFakeFactory()
	spec := testSpec("paraformer")
	blocker := make(chan struct{})
	started := make(chan struct{})
	var startedOnce sync.Once
	fe := factory.withEngine(spec)
	fe.transcribeFn = func(ctx context.Context, audioPath string, opts engine.Options) (*engine.RawResult, error) {
		startedOnce.Do(func() { close(started) })
		<-blocker
		return &engine.RawResult{Text: "done"}, nil
	}

	s := New(factory, 1, nil)
	require.NoError(t, s.Start(context.Background(), spec))
	defer close(blocker)

	// First job occupies the worker (blocked in Transcribe); wait for
	// it to actually be picked up so the queue-slot accounting below
	// is deterministic rather than racing the consumer goroutine.
	require.NoError(t, s.Submit(NewJob("req-1", newTempAudio(t))))
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("first job was never picked up by the worker")
	}

	// Second job fills the one bounded queue slot; third must be
	// rejected synchronously.
	require.NoError(t, s.Submit(NewJob("req-2", newTempAudio(t))))

	err := s.Submit(NewJob("req-3", newTempAudio(t)))
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestScheduler_SwapReleasesBeforeLoad(t *testing.T) {
	factory := newFakeFactory()
	specA := testSpec("paraformer")
	specB := testSpec("sensevoice-small")
	engA := factory.withEngine(specA)
	engB := factory.withEngine(specB)

	s := New(factory, 4, nil)
	require.NoError(t, s.Start(context.Background(), specA))

	var events []string
	engA.events = &events
	engB.events = &events

	job := NewJob("req-1", newTempAudio(t))
	job.RequestedSpec = &specB
	require.NoError(t, s.Submit(job))

	select {
	case out := <-job.Done():
		require.NoError(t, out.Err)
	case <-time.After(time.Second):
		t.Fatal("swap job did not complete")
	}

	assert.Equal(t, 1, engA.releaseCalls, "previous engine must be released exactly once")
	assert.Equal(t, 1, engB.loadCalls, "new engine must be loaded exactly once")
	assert.Equal(t, []string{"release:paraformer", "load:sensevoice-small"}, events,
		"previous engine must be released before the new one is loaded")
}

func TestScheduler_ReleaseErrorDoesNotAbortSwap(t *testing.T) {
	factory := newFakeFactory()
	specA := testSpec("paraformer")
	specB := testSpec("sensevoice-small")
	engA := factory.withEngine(specA)
	engA.releaseErr = errors.New("device busy")
	engB := factory.withEngine(specB)

	s := New(factory, 4, nil)
	require.NoError(t, s.Start(context.Background(), specA))

	job := NewJob("req-1", newTempAudio(t))
	job.RequestedSpec = &specB
	require.NoError(t, s.Submit(job))

	select {
	case out := <-job.Done():
		require.NoError(t, out.Err, "a failed release must not fail the swap")
	case <-time.After(time.Second):
		t.Fatal("swap job did not complete")
	}

	assert.Equal(t, 1, engB.loadCalls)

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, specB.Alias, snap.Alias)
}

func TestScheduler_WorkerSurvivesInferenceError(t *testing.T) {
	factory := newFakeFactory()
	spec := testSpec("paraformer")
	fe := factory.withEngine(spec)
	fe.transcribeFn = func(ctx context.Context, audioPath string, opts engine.Options) (*engine.RawResult, error) {
		return nil, errors.New("boom")
	}

	s := New(factory, 4, nil)
	require.NoError(t, s.Start(context.Background(), spec))

	job1 := NewJob("req-1", newTempAudio(t))
	require.NoError(t, s.Submit(job1))

	select {
	case out := <-job1.Done():
		assert.ErrorIs(t, out.Err, ErrInferenceFailed)
	case <-time.After(time.Second):
		t.Fatal("job1 did not complete")
	}

	fe.transcribeFn = nil // second job succeeds, proving the worker is still alive
	job2 := NewJob("req-2", newTempAudio(t))
	require.NoError(t, s.Submit(job2))

	select {
	case out := <-job2.Done():
		require.NoError(t, out.Err)
	case <-time.After(time.Second):
		t.Fatal("job2 did not complete; worker did not survive job1's error")
	}
}

func TestScheduler_DegradedStateFailsFast(t *testing.T) {
	factory := newFakeFactory()
	specA := testSpec("paraformer")
	specB := testSpec("sensevoice-small")
	factory.withEngine(specA)
	factory.createFn = map[string]func() (engine.Engine, error){
		specB.Alias: func() (engine.Engine, error) {
			return nil, errors.New("create failed")
		},
	}
	// Make restoring specA fail too, on the second Create call for it.
	restoreAttempts := 0
	factory.createFn[specA.Alias] = func() (engine.Engine, error) {
		restoreAttempts++
		if restoreAttempts == 1 {
			return factory.engines[specA.Alias], nil
		}
		return nil, errors.New("restore failed")
	}

	s := New(factory, 4, nil)
	require.NoError(t, s.Start(context.Background(), specA))

	job := NewJob("req-1", newTempAudio(t))
	job.RequestedSpec = &specB
	require.NoError(t, s.Submit(job))

	select {
	case out := <-job.Done():
		assert.ErrorIs(t, out.Err, ErrServiceDegraded)
	case <-time.After(time.Second):
		t.Fatal("swap job did not complete")
	}

	err := s.Submit(NewJob("req-2", newTempAudio(t)))
	assert.ErrorIs(t, err, ErrServiceDegraded)
}

func TestScheduler_PassthroughDoesNotReswap(t *testing.T) {
	factory := newFakeFactory()
	spec := testSpec("paraformer")
	fe := factory.withEngine(spec)

	s := New(factory, 4, nil)
	require.NoError(t, s.Start(context.Background(), spec))

	job := NewJob("req-1", newTempAudio(t)) // RequestedSpec left nil: passthrough
	require.NoError(t, s.Submit(job))

	select {
	case out := <-job.Done():
		require.NoError(t, out.Err)
	case <-time.After(time.Second):
		t.Fatal("job did not complete")
	}

	assert.Equal(t, 0, fe.releaseCalls, "passthrough must not trigger a swap")
}

func TestScheduler_ShutdownDrainsQueueThenReleases(t *testing.T) {
	factory := newFakeFactory()
	spec := testSpec("paraformer")
	fe := factory.withEngine(spec)

	s := New(factory, 4, nil)
	require.NoError(t, s.Start(context.Background(), spec))

	job := NewJob("req-1", newTempAudio(t))
	require.NoError(t, s.Submit(job))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case out := <-job.Done():
		require.NoError(t, out.Err, "queued job must drain before shutdown completes")
	default:
		t.Fatal("queued job should have been delivered before Shutdown returned")
	}

	assert.Equal(t, 1, fe.releaseCalls)

	err := s.Submit(NewJob("req-2", newTempAudio(t)))
	assert.ErrorIs(t, err, ErrServiceStopping)
}
