// Command sttbench submits a fixed audio file through the real HTTP
// surface N times and reports p50/p95 latency — an ops tool in the
// teacher's cmd/* convention, supplementing the core with the kind of
// benchmark harness the original project's benchmarks/run.py provided.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"
)

func main() {
	var (
		flagURL   = flag.String("url", "http://127.0.0.1:50070/v1/audio/transcriptions", "Transcription endpoint to hit")
		flagFile  = flag.String("file", "", "Path to a WAV/MP3/etc. file to submit repeatedly")
		flagCount = flag.Int("n", 20, "Number of requests to submit")
		flagModel = flag.String("model", "", "Model alias to request (empty: keep current)")
	)
	flag.Parse()

	if *flagFile == "" {
		log.Fatal("sttbench: -file is required")
	}

	latencies := make([]time.Duration, 0, *flagCount)
	failures := 0

	for i := 0; i < *flagCount; i++ {
		d, err := submitOnce(*flagURL, *flagFile, *flagModel)
		if err != nil {
			log.Printf("sttbench: request %d failed: %v", i, err)
			failures++
			continue
		}
		latencies = append(latencies, d)
	}

	report(latencies, failures, *flagCount)
}

func submitOnce(url, filePath, model string) (time.Duration, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return 0, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return 0, fmt.Errorf("copy audio into request: %w", err)
	}
	if model != "" {
		_ = writer.WriteField("model", model)
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, &body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	client := &http.Client{Timeout: 10 * time.Minute}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	elapsed := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return 0, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(payload))
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return elapsed, nil
}

func report(latencies []time.Duration, failures, total int) {
	if len(latencies) == 0 {
		fmt.Printf("sttbench: 0/%d requests succeeded\n", total)
		return
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	p50 := percentile(latencies, 0.50)
	p95 := percentile(latencies, 0.95)

	fmt.Printf("sttbench: %d/%d succeeded, %d failed\n", len(latencies), total, failures)
	fmt.Printf("  p50 = %v\n", p50)
	fmt.Printf("  p95 = %v\n", p95)
	fmt.Printf("  min = %v, max = %v\n", latencies[0], latencies[len(latencies)-1])
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
