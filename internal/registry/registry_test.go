package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpecs() []ModelSpec {
	return []ModelSpec{
		{
			Alias:      "paraformer",
			ModelID:    "iic/speech_seaco_paraformer_large_asr_nat-zh-cn-16k-common-vocab8404-pytorch",
			EngineKind: EngineFunASR,
			Capabilities: Capabilities{
				Timestamp:   true,
				Diarization: true,
			},
		},
		{
			Alias:      "qwen3-asr-mini",
			ModelID:    "mlx-community/Qwen3-ASR-1.7B-4bit",
			EngineKind: EngineMLX,
			Capabilities: Capabilities{
				Timestamp: true,
			},
		},
	}
}

func TestLookup_ExactAlias(t *testing.T) {
	r := New(testSpecs())

	spec, err := r.Lookup("paraformer")
	require.NoError(t, err)
	assert.Equal(t, EngineFunASR, spec.EngineKind)
	assert.True(t, spec.Capabilities.Diarization)
}

func TestLookup_ExactModelID(t *testing.T) {
	r := New(testSpecs())

	spec, err := r.Lookup("mlx-community/Qwen3-ASR-1.7B-4bit")
	require.NoError(t, err)
	assert.Equal(t, "qwen3-asr-mini", spec.Alias)
}

func TestLookup_MLXPrefixInference(t *testing.T) {
	r := New(testSpecs())

	spec, err := r.Lookup("mlx-community/some-unregistered-model")
	require.NoError(t, err)
	assert.Equal(t, EngineMLX, spec.EngineKind)
	assert.Equal(t, "mlx-community/some-unregistered-model", spec.Alias)
	assert.Equal(t, conservativeCapabilities, spec.Capabilities, "unregistered models get conservative capabilities")
}

func TestLookup_FunASRPrefixInference(t *testing.T) {
	r := New(testSpecs())

	spec, err := r.Lookup("iic/some-unregistered-funasr-model")
	require.NoError(t, err)
	assert.Equal(t, EngineFunASR, spec.EngineKind)
	assert.Equal(t, conservativeCapabilities, spec.Capabilities)
}

func TestLookup_FunASRSubstringInference(t *testing.T) {
	r := New(testSpecs())

	spec, err := r.Lookup("third-party/my-funasr-fork")
	require.NoError(t, err)
	assert.Equal(t, EngineFunASR, spec.EngineKind)
}

func TestLookup_UnknownModelReturnsError(t *testing.T) {
	r := New(testSpecs())

	_, err := r.Lookup("nonexistent-model")
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestIsPassthrough(t *testing.T) {
	assert.True(t, IsPassthrough(""))
	assert.True(t, IsPassthrough("whisper-1"))
	assert.False(t, IsPassthrough("paraformer"))
}

func TestAliasFor(t *testing.T) {
	r := New(testSpecs())

	alias, ok := r.AliasFor("mlx-community/Qwen3-ASR-1.7B-4bit")
	require.True(t, ok)
	assert.Equal(t, "qwen3-asr-mini", alias)

	_, ok = r.AliasFor("unregistered/model")
	assert.False(t, ok)
}

func TestList_SortedByAlias(t *testing.T) {
	r := New(testSpecs())

	specs := r.List()
	require.Len(t, specs, 2)
	assert.Equal(t, "paraformer", specs[0].Alias)
	assert.Equal(t, "qwen3-asr-mini", specs[1].Alias)
}

func TestReplace_AtomicSwap(t *testing.T) {
	r := New(testSpecs())

	r.Replace([]ModelSpec{{Alias: "only-one", ModelID: "x", EngineKind: EngineFunASR}})

	_, err := r.Lookup("paraformer")
	assert.ErrorIs(t, err, ErrUnknownModel)

	spec, err := r.Lookup("only-one")
	require.NoError(t, err)
	assert.Equal(t, "only-one", spec.Alias)
}
