package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(f float64) *float64 { return &f }
func str(s string) *string   { return &s }

func TestSanitize_DropsSegmentWithNilStartOrEnd(t *testing.T) {
	raw := &RawResult{
		Text: "hello world",
		Segments: []RawSegment{
			{ID: 0, Start: f64(0), End: nil, Text: "no end"},
			{ID: 1, Start: nil, End: f64(1), Text: "no start"},
			{ID: 2, Start: f64(1), End: f64(2), Text: "kept"},
		},
	}

	res := Sanitize(raw, false)

	require.Len(t, res.Segments, 1)
	assert.Equal(t, "kept", res.Segments[0].Text)
}

func TestSanitize_DiarizingModelReassignsNilSpeakerToFallback(t *testing.T) {
	raw := &RawResult{
		Text: "hello",
		Segments: []RawSegment{
			{ID: 0, Speaker: nil, Start: f64(0), End: f64(1), Text: "segment"},
		},
	}

	res := Sanitize(raw, true)

	require.Len(t, res.Segments, 1)
	require.NotNil(t, res.Segments[0].Speaker)
	assert.Equal(t, "0", *res.Segments[0].Speaker)
}

func TestSanitize_NonDiarizingModelLeavesNilSpeakerUntouched(t *testing.T) {
	raw := &RawResult{
		Text: "hello",
		Segments: []RawSegment{
			{ID: 0, Speaker: nil, Start: f64(0), End: f64(1), Text: "segment"},
		},
	}

	res := Sanitize(raw, false)

	require.Len(t, res.Segments, 1)
	assert.Nil(t, res.Segments[0].Speaker, "a non-diarizing engine's nil speaker is legitimate output, not an artifact")
}

func TestSanitize_PreservesExplicitSpeakerLabel(t *testing.T) {
	raw := &RawResult{
		Text: "hello",
		Segments: []RawSegment{
			{ID: 0, Speaker: str("1"), Start: f64(0), End: f64(1), Text: "segment"},
		},
	}

	res := Sanitize(raw, true)

	require.Len(t, res.Segments, 1)
	require.NotNil(t, res.Segments[0].Speaker)
	assert.Equal(t, "1", *res.Segments[0].Speaker)
}

func TestSanitize_NoSegments(t *testing.T) {
	raw := &RawResult{Text: "hello", Duration: 1.5, Language: "en", ModelID: "m"}

	res := Sanitize(raw, true)

	assert.Equal(t, "hello", res.Text)
	assert.Empty(t, res.Segments)
}

func TestSanitize_NilResult(t *testing.T) {
	assert.Nil(t, Sanitize(nil, true))
}
