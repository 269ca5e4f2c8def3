// Package format renders a sanitized engine.Result into one of the
// three supported output formats (json, txt, srt). Every formatter is
// a pure function of its input: the same Result renders identically
// every time (§8 idempotence property).
package format

import (
	"fmt"
	"strings"

	"github.com/ekisa-team/sttgate/internal/engine"
)

// Segment mirrors the wire shape of one transcript segment in the
// json output format.
type Segment struct {
	ID      int     `json:"id"`
	Speaker *string `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

// Response is the json-format response body (§6).
type Response struct {
	Text     string    `json:"text"`
	Duration float64   `json:"duration,omitempty"`
	Language string    `json:"language,omitempty"`
	Model    string    `json:"model"`
	Segments []Segment `json:"segments,omitempty"`
}

// JSON renders res as the structured response body. Segments are only
// included when the engine actually produced them; without segments the
// body has no segments field (duration and language are omitted when zero).
func JSON(res *engine.Result) Response {
	resp := Response{
		Text:     res.Text,
		Duration: res.Duration,
		Language: res.Language,
		Model:    res.ModelID,
	}
	if len(res.Segments) == 0 {
		return resp
	}
	resp.Segments = make([]Segment, len(res.Segments))
	for i, seg := range res.Segments {
		resp.Segments[i] = Segment{
			ID:      seg.ID,
			Speaker: seg.Speaker,
			Start:   seg.Start,
			End:     seg.End,
			Text:    seg.Text,
		}
	}
	return resp
}

// TXT renders a human-readable transcript: one line per segment,
// "[Speaker N]: text", optionally prefixed with a "[MM:SS] " timestamp
// tag. With no segments (or none requested), it falls back to the
// plain transcript text.
func TXT(res *engine.Result, withTimestamp bool) string {
	if len(res.Segments) == 0 {
		return res.Text
	}

	lines := make([]string, 0, len(res.Segments))
	for _, seg := range res.Segments {
		var b strings.Builder
		if withTimestamp {
			fmt.Fprintf(&b, "[%s] ", mmss(seg.Start))
		}
		if seg.Speaker != nil {
			fmt.Fprintf(&b, "[Speaker %s]: %s", *seg.Speaker, seg.Text)
		} else {
			fmt.Fprintf(&b, "[Unknown]: %s", seg.Text)
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

func mmss(seconds float64) string {
	total := int(seconds)
	m, s := total/60, total%60
	return fmt.Sprintf("%02d:%02d", m, s)
}

// SRT renders standard SubRip subtitle text: cue number, "start -->
// end" in HH:MM:SS,mmm, then a speaker-tagged line, each cue separated
// by a blank line.
func SRT(res *engine.Result) string {
	if len(res.Segments) == 0 {
		return ""
	}

	var b strings.Builder
	for i, seg := range res.Segments {
		speaker := "Unknown"
		if seg.Speaker != nil {
			speaker = fmt.Sprintf("Speaker %s", *seg.Speaker)
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n[%s]: %s\n\n", i+1, srtTime(seg.Start), srtTime(seg.End), speaker, seg.Text)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func srtTime(seconds float64) string {
	totalMs := int64(seconds*1000 + 0.5)
	if totalMs < 0 {
		totalMs = 0
	}
	hours := totalMs / 3_600_000
	minutes := (totalMs % 3_600_000) / 60_000
	secs := (totalMs % 60_000) / 1_000
	ms := totalMs % 1_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, ms)
}
