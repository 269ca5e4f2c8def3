// Package httpapi is the C7 HTTP surface: the OpenAI-Whisper-compatible
// transcription endpoint plus model introspection and liveness, wired
// with huma/v2.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/ekisa-team/sttgate/internal/admission"
	"github.com/ekisa-team/sttgate/internal/registry"
	"github.com/ekisa-team/sttgate/internal/scheduler"
)

// Server holds everything the HTTP handlers need: the admission
// validator, the scheduler they submit jobs to, the registry for
// listing models, and where to stage uploaded audio.
type Server struct {
	validator *admission.Validator
	sched     *scheduler.Scheduler
	reg       *registry.Registry
	log       *slog.Logger
	uploadDir string
}

// Config bundles Server's dependencies.
type Config struct {
	Validator *admission.Validator
	Scheduler *scheduler.Scheduler
	Registry  *registry.Registry
	Logger    *slog.Logger
	UploadDir string // os.TempDir() if empty
}

// New wires every route onto api.
func New(api huma.API, cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		validator: cfg.Validator,
		sched:     cfg.Scheduler,
		reg:       cfg.Registry,
		log:       log,
		uploadDir: cfg.UploadDir,
	}

	huma.Register(api, huma.Operation{
		OperationID:   "transcribe",
		Method:        http.MethodPost,
		Path:          "/v1/audio/transcriptions",
		Summary:       "Transcribe an audio file",
		Tags:          []string{"transcriptions"},
		DefaultStatus: http.StatusOK,
	}, s.handleTranscribe)

	huma.Register(api, huma.Operation{
		OperationID: "list-models",
		Method:      http.MethodGet,
		Path:        "/v1/models",
		Summary:     "List every model in the registry",
		Tags:        []string{"models"},
	}, s.handleListModels)

	huma.Register(api, huma.Operation{
		OperationID: "current-model",
		Method:      http.MethodGet,
		Path:        "/v1/models/current",
		Summary:     "Report the currently loaded model and queue state",
		Tags:        []string{"models"},
	}, s.handleCurrentModel)

	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Liveness probe",
		Tags:        []string{"health"},
	}, s.handleHealth)

	return s
}

// requestID middleware: every response carries a fresh X-Request-ID
// (§6), used to correlate the log lines a single request produces.
func RequestIDMiddleware(ctx huma.Context, next func(huma.Context)) {
	id := uuid.NewString()
	ctx = huma.WithValue(ctx, requestIDKey{}, id)
	ctx.SetHeader("X-Request-ID", id)
	next(ctx)
}

type requestIDKey struct{}

// requestIDFrom recovers the request ID stashed by RequestIDMiddleware,
// falling back to "unknown" the way the original service logs did when
// no middleware had run yet.
func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return "unknown"
}
