package engine

// Sanitize converts a raw engine Result into the final Result the
// scheduler and HTTP layer operate on (§9 "Monkey-patched library
// bug"). The original Python service rewrote a third-party function at
// import time to filter out segments with null timestamps; here we
// wrap the engine call instead of mutating anything:
//
//   - segments whose Start or End the back-end never set are dropped —
//     a known upstream artifact, not real output.
//   - when the model declares diarization support but an individual
//     segment came back with no speaker label (another upstream
//     artifact), the segment is kept and assigned the documented
//     fallback speaker "0" rather than surfacing a hole in the
//     transcript.
//
// diarization must be the capability of the spec that produced raw,
// not a static default — a non-diarizing model's nil Speaker is
// correct output and passes through untouched.
func Sanitize(raw *RawResult, diarization bool) *Result {
	if raw == nil {
		return nil
	}

	res := &Result{
		Text:     raw.Text,
		Duration: raw.Duration,
		Language: raw.Language,
		ModelID:  raw.ModelID,
	}

	if len(raw.Segments) == 0 {
		return res
	}

	fallbackSpeaker := "0"
	cleaned := make([]Segment, 0, len(raw.Segments))

	for _, seg := range raw.Segments {
		if seg.Start == nil || seg.End == nil {
			continue
		}

		speaker := seg.Speaker
		if diarization && speaker == nil {
			speaker = &fallbackSpeaker
		}

		cleaned = append(cleaned, Segment{
			ID:      seg.ID,
			Speaker: speaker,
			Start:   *seg.Start,
			End:     *seg.End,
			Text:    seg.Text,
		})
	}

	res.Segments = cleaned
	return res
}
