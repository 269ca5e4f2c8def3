// Package admission implements the C5 admission validator: the set of
// checks that run at the HTTP boundary before a job ever reaches the
// queue (C6). Checks run in a fixed order and the first failure wins,
// per spec §4.5 — everything after that point, including any already
// persisted temp file, must be cleaned up by the caller.
package admission

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ekisa-team/sttgate/internal/registry"
)

// allowedMediaTypes is the audio MIME allowlist (§4.5 step 2).
var allowedMediaTypes = map[string]struct{}{
	"audio/wav":   {},
	"audio/x-wav": {},
	"audio/mpeg":  {},
	"audio/mp3":   {},
	"audio/mp4":   {},
	"audio/x-m4a": {},
	"audio/flac":  {},
	"audio/ogg":   {},
	"audio/webm":  {},
}

// allowedExtensions backs the MIME fallback: some HTTP clients (curl
// chief among them) upload audio as application/octet-stream without
// setting a real content type. The original service special-cased that
// one value and fell back to the file extension; we carry the same
// fallback forward since spec §4.5 doesn't forbid it and dropping it
// would silently reject valid curl uploads.
var allowedExtensions = map[string]struct{}{
	".wav":  {},
	".mp3":  {},
	".m4a":  {},
	".mp4":  {},
	".flac": {},
	".ogg":  {},
	".webm": {},
}

const octetStream = "application/octet-stream"

// Error taxonomy, mapped to HTTP status by the httpapi layer (§7).
var (
	ErrOriginNotAllowed   = errors.New("admission: origin not allowed")
	ErrUnsupportedType    = errors.New("admission: unsupported media type")
	ErrPayloadTooLarge    = errors.New("admission: payload too large")
	ErrUnknownModel       = errors.New("admission: unknown model")
	ErrCapabilityMismatch = errors.New("admission: capability mismatch")
)

// Request is everything the validator needs about one incoming upload.
// The HTTP layer populates this after persisting the upload to a temp
// file; the size check in Validate runs against that already-known
// size so the body is never read twice.
type Request struct {
	Origin        string
	ContentType   string
	Filename      string
	SizeBytes     int64
	Model         string
	Language      string
	OutputFormat  string // already resolved from response_format, see ResolveOutputFormat
	WithTimestamp bool

	// CurrentCapabilities is the capability set of whatever engine is
	// presently loaded, taken from a scheduler snapshot by the httpapi
	// layer. It's what governs a passthrough request (Model unset),
	// since the validator itself has no view into scheduler state.
	CurrentCapabilities registry.Capabilities
}

// Limits bounds what the validator will accept, sourced from config.
type Limits struct {
	AllowedOrigins []string // empty means "allow any origin"
	MaxUploadBytes int64
}

// Validator runs the C5 checks. It is stateless except for Limits and
// a reference to the registry for model resolution.
type Validator struct {
	limits Limits
	reg    *registry.Registry
}

func New(limits Limits, reg *registry.Registry) *Validator {
	return &Validator{limits: limits, reg: reg}
}

// Resolved is what survives admission: the (possibly nil, meaning
// passthrough) target spec and the final output format to render.
type Resolved struct {
	Spec         *registry.ModelSpec // nil: keep whichever engine is currently loaded
	OutputFormat string
}

// Validate runs every check in order, first failure wins (§4.5).
func (v *Validator) Validate(req Request) (Resolved, error) {
	if !v.originAllowed(req.Origin) {
		return Resolved{}, fmt.Errorf("%w: %q", ErrOriginNotAllowed, req.Origin)
	}

	if !v.mediaTypeAllowed(req.ContentType, req.Filename) {
		return Resolved{}, fmt.Errorf("%w: %q", ErrUnsupportedType, req.ContentType)
	}

	if req.SizeBytes > v.limits.MaxUploadBytes {
		return Resolved{}, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrPayloadTooLarge, req.SizeBytes, v.limits.MaxUploadBytes)
	}

	var spec *registry.ModelSpec
	if !registry.IsPassthrough(req.Model) {
		s, err := v.reg.Lookup(req.Model)
		if err != nil {
			return Resolved{}, fmt.Errorf("%w: %q", ErrUnknownModel, req.Model)
		}
		spec = &s
	}

	caps := req.CurrentCapabilities
	if spec != nil {
		caps = spec.Capabilities
	}
	if err := checkCapabilityCompatibility(req, caps); err != nil {
		return Resolved{}, err
	}

	return Resolved{Spec: spec, OutputFormat: req.OutputFormat}, nil
}

func (v *Validator) originAllowed(origin string) bool {
	if len(v.limits.AllowedOrigins) == 0 {
		return true
	}
	if origin == "" {
		// Non-browser clients (curl, server-to-server) send no Origin
		// header at all; CORS only governs browser requests.
		return true
	}
	for _, allowed := range v.limits.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (v *Validator) mediaTypeAllowed(contentType, filename string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if _, ok := allowedMediaTypes[contentType]; ok {
		return true
	}
	if contentType != octetStream {
		return false
	}
	ext := strings.ToLower(filepath.Ext(filename))
	_, ok := allowedExtensions[ext]
	return ok
}

func checkCapabilityCompatibility(req Request, caps registry.Capabilities) error {
	if req.OutputFormat == "srt" && !caps.Timestamp {
		return fmt.Errorf("%w: srt output requires timestamp support", ErrCapabilityMismatch)
	}
	if req.WithTimestamp && !caps.Timestamp {
		return fmt.Errorf("%w: with_timestamp requires timestamp support", ErrCapabilityMismatch)
	}
	// language=auto without language_detect is advisory only: the
	// engine is expected to downgrade to its default language rather
	// than fail the request (§4.2 — "Never silently downgrade a
	// format", which applies to output format, not language).
	return nil
}
