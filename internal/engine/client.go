package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// wireSegment and wireResult mirror the JSON body a local backend
// server returns from its /transcribe endpoint.
type wireSegment struct {
	ID      int      `json:"id"`
	Speaker *string  `json:"speaker"`
	Start   *float64 `json:"start"`
	End     *float64 `json:"end"`
	Text    string   `json:"text"`
}

type wireResult struct {
	Text     string        `json:"text"`
	Duration float64       `json:"duration"`
	Language string        `json:"language"`
	Segments []wireSegment `json:"segments"`
}

// PostTranscribe uploads the audio file at audioPath to baseURL+/transcribe
// and decodes the JSON response into a RawResult. Shared by the funasr
// and mlx adapters, which differ only in how they start/stop the
// backend process, not in the wire protocol they speak to it.
func PostTranscribe(ctx context.Context, httpClient *http.Client, baseURL, audioPath string, opts Options) (*RawResult, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to open audio file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("engine: failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("engine: failed to copy audio into request: %w", err)
	}

	_ = writer.WriteField("language", opts.Language)
	_ = writer.WriteField("with_timestamp", boolString(opts.WithTimestamp))
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("engine: failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/transcribe", &body)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to build transcribe request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine: transcribe request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("engine: backend returned %d: %s", resp.StatusCode, string(payload))
	}

	var wire wireResult
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("engine: failed to decode transcribe response: %w", err)
	}

	segments := make([]RawSegment, 0, len(wire.Segments))
	for _, s := range wire.Segments {
		segments = append(segments, RawSegment{
			ID:      s.ID,
			Speaker: s.Speaker,
			Start:   s.Start,
			End:     s.End,
			Text:    s.Text,
		})
	}

	return &RawResult{
		Text:     wire.Text,
		Duration: wire.Duration,
		Language: wire.Language,
		Segments: segments,
	}, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// DefaultHTTPClient is shared by engine adapters talking to their local
// backend server process.
func DefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Minute}
}
