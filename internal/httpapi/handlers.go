package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ekisa-team/sttgate/internal/admission"
	"github.com/ekisa-team/sttgate/internal/engine"
	"github.com/ekisa-team/sttgate/internal/format"
	"github.com/ekisa-team/sttgate/internal/registry"
	"github.com/ekisa-team/sttgate/internal/scheduler"
)

func marshalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

// TranscribeInput is the multipart request body for
// POST /v1/audio/transcriptions, using huma's MultipartFormFiles
// pattern.
type TranscribeInput struct {
	Origin  string `header:"Origin"`
	RawBody huma.MultipartFormFiles[struct {
		File           huma.FormFile `form:"file" contentType:"audio/*,application/octet-stream" required:"true"`
		Model          string        `form:"model"`
		Language       string        `form:"language"`
		OutputFormat   string        `form:"output_format"`
		ResponseFormat string        `form:"response_format"`
		WithTimestamp  bool          `form:"with_timestamp"`
	}]
}

// TranscribeOutput carries a dynamic body: JSON for output_format=json,
// raw text for txt/srt — huma lets a handler override Content-Type and
// hand back pre-serialized bytes via a []byte body.
type TranscribeOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

func (s *Server) handleTranscribe(ctx context.Context, input *TranscribeInput) (*TranscribeOutput, error) {
	requestID := requestIDFrom(ctx)
	formData := input.RawBody.Data()

	if !formData.File.IsSet {
		return nil, huma.Error400BadRequest("audio file is required")
	}

	audioPath, size, err := s.persistUpload(formData.File)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to stage upload", err)
	}
	// Ownership of audioPath passes to the scheduler only once Submit
	// succeeds; every earlier return path must clean it up itself.
	cleanup := func() {
		if rmErr := os.Remove(audioPath); rmErr != nil && !os.IsNotExist(rmErr) {
			s.log.Warn("httpapi: failed to remove rejected upload", "path", audioPath, "error", rmErr)
		}
	}

	outputFormat := admission.ResolveOutputFormat(formData.ResponseFormat, formData.OutputFormat)

	snap, err := s.sched.Snapshot(ctx)
	if err != nil {
		cleanup()
		return nil, huma.Error500InternalServerError("failed to read scheduler state", err)
	}

	resolved, err := s.validator.Validate(admission.Request{
		Origin:              input.Origin,
		ContentType:         formData.File.ContentType,
		Filename:            formData.File.Filename,
		SizeBytes:           size,
		Model:               formData.Model,
		Language:            formData.Language,
		OutputFormat:        outputFormat,
		WithTimestamp:       formData.WithTimestamp,
		CurrentCapabilities: snap.Capabilities,
	})
	if err != nil {
		cleanup()
		return nil, mapAdmissionError(err)
	}

	job := scheduler.NewJob(requestID, audioPath)
	job.Language = formData.Language
	job.WithTimestamp = formData.WithTimestamp
	job.RequestedSpec = resolved.Spec

	start := time.Now()
	if err := s.sched.Submit(job); err != nil {
		cleanup()
		return nil, mapSchedulerError(err)
	}

	select {
	case outcome := <-job.Done():
		totalMs := time.Since(start).Milliseconds()
		if outcome.Err != nil {
			s.log.Error("httpapi: job failed",
				"request_id", requestID, "total_time_ms", totalMs, "error", outcome.Err)
			return nil, mapSchedulerError(outcome.Err)
		}
		s.log.Info("httpapi: job succeeded",
			"request_id", requestID, "total_time_ms", totalMs, "format", outputFormat)
		return renderOutput(outcome.Result, outputFormat, formData.WithTimestamp)
	case <-ctx.Done():
		// §5: client disconnect does not cancel in-flight inference;
		// the job still runs, its result is simply discarded here.
		return nil, huma.Error500InternalServerError("request cancelled", ctx.Err())
	}
}

func renderOutput(result *engine.Result, outputFormat string, withTimestamp bool) (*TranscribeOutput, error) {
	switch outputFormat {
	case "txt":
		return &TranscribeOutput{ContentType: "text/plain; charset=utf-8", Body: []byte(format.TXT(result, withTimestamp))}, nil
	case "srt":
		return &TranscribeOutput{ContentType: "text/plain; charset=utf-8", Body: []byte(format.SRT(result))}, nil
	case "json", "":
		body, err := marshalJSON(format.JSON(result))
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to encode response", err)
		}
		return &TranscribeOutput{ContentType: "application/json", Body: body}, nil
	default:
		return nil, huma.Error400BadRequest(fmt.Sprintf("unsupported output_format %q", outputFormat))
	}
}

// persistUpload copies the multipart file to a temp file and reports
// its size from a stat of the written file, never buffering the whole body in memory
// (§4.5 step 3).
func (s *Server) persistUpload(file huma.FormFile) (path string, size int64, err error) {
	dst, err := os.CreateTemp(s.uploadDir, "sttgate-upload-*")
	if err != nil {
		return "", 0, err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(dst.Name())
		return "", 0, err
	}

	fi, err := dst.Stat()
	if err != nil {
		os.Remove(dst.Name())
		return "", 0, err
	}

	return dst.Name(), fi.Size(), nil
}

// --- GET /v1/models ---

type ModelsOutput struct {
	Body struct {
		Models  []ModelDTO `json:"models"`
		Current *string    `json:"current"`
	}
}

type ModelDTO struct {
	Alias        string                `json:"alias"`
	ModelID      string                `json:"model_id"`
	Description  string                `json:"description,omitempty"`
	EngineKind   registry.EngineKind   `json:"engine_kind"`
	Capabilities registry.Capabilities `json:"capabilities"`
}

// handleListModels reports the registry plus the currently loaded
// alias (§4.7): nil when the running model isn't in the registry at
// all, e.g. an engine-qualified model string resolved ad hoc (§4.1).
func (s *Server) handleListModels(ctx context.Context, _ *struct{}) (*ModelsOutput, error) {
	specs := s.reg.List()
	out := &ModelsOutput{}
	out.Body.Models = make([]ModelDTO, len(specs))
	for i, spec := range specs {
		out.Body.Models[i] = ModelDTO{
			Alias:        spec.Alias,
			ModelID:      spec.ModelID,
			Description:  spec.Description,
			EngineKind:   spec.EngineKind,
			Capabilities: spec.Capabilities,
		}
	}

	snap, err := s.sched.Snapshot(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to read scheduler state", err)
	}
	for _, spec := range specs {
		if spec.Alias == snap.Alias {
			alias := snap.Alias
			out.Body.Current = &alias
			break
		}
	}

	return out, nil
}

// --- GET /v1/models/current ---

type CurrentModelOutput struct {
	Body struct {
		EngineKind   registry.EngineKind   `json:"engine_kind"`
		ModelID      string                `json:"model_id"`
		ModelAlias   string                `json:"model_alias,omitempty"`
		Capabilities registry.Capabilities `json:"capabilities"`
		QueueSize    int                   `json:"queue_size"`
		MaxQueueSize int                   `json:"max_queue_size"`
		State        string                `json:"state"`
	}
}

func (s *Server) handleCurrentModel(ctx context.Context, _ *struct{}) (*CurrentModelOutput, error) {
	snap, err := s.sched.Snapshot(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to read scheduler state", err)
	}

	out := &CurrentModelOutput{}
	out.Body.EngineKind = snap.EngineKind
	out.Body.ModelID = snap.ModelID
	out.Body.ModelAlias = snap.Alias
	out.Body.Capabilities = snap.Capabilities
	out.Body.QueueSize = snap.QueueDepth
	out.Body.MaxQueueSize = snap.MaxQueueSize
	out.Body.State = stateString(snap)
	return out, nil
}

func stateString(snap scheduler.Snapshot) string {
	if snap.Degraded {
		return "degraded"
	}
	return "running"
}

// --- GET /health ---

type HealthOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

func (s *Server) handleHealth(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	out := &HealthOutput{}
	out.Body.Status = "ok"
	return out, nil
}

// --- error mapping (§7) ---

func mapAdmissionError(err error) error {
	switch {
	case errors.Is(err, admission.ErrUnsupportedType):
		return huma.Error415UnsupportedMediaType(err.Error())
	case errors.Is(err, admission.ErrPayloadTooLarge):
		return huma.NewError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, admission.ErrUnknownModel):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, admission.ErrCapabilityMismatch):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, admission.ErrOriginNotAllowed):
		return huma.Error403Forbidden(err.Error())
	default:
		return huma.Error500InternalServerError("admission failed", err)
	}
}

func mapSchedulerError(err error) error {
	switch {
	case errors.Is(err, scheduler.ErrQueueFull):
		return huma.Error503ServiceUnavailable("server is busy, try again later")
	case errors.Is(err, scheduler.ErrServiceDegraded):
		return huma.Error503ServiceUnavailable("service is degraded, manual restart required")
	case errors.Is(err, scheduler.ErrServiceStopping):
		return huma.Error503ServiceUnavailable("service is shutting down")
	case errors.Is(err, scheduler.ErrSwapFailed):
		return huma.Error500InternalServerError("model switch failed", err)
	case errors.Is(err, scheduler.ErrInferenceFailed):
		return huma.Error500InternalServerError("inference failed", err)
	default:
		return huma.Error500InternalServerError("internal error", err)
	}
}

