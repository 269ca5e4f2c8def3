// Package registry implements the model registry (C1) and the
// immutable engine capability value (C2): a static alias → ModelSpec
// table, consulted by admission and by the scheduler's hot-swap
// protocol. It never mutates a spec in place — reloads replace the
// whole table atomically.
package registry

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// EngineKind identifies the back-end family a model runs on.
type EngineKind string

const (
	EngineFunASR EngineKind = "funasr"
	EngineMLX    EngineKind = "mlx"
)

// Capabilities declares what a loaded engine can produce. Zero value
// is the most conservative (nothing declared).
type Capabilities struct {
	Timestamp      bool `json:"timestamp"`
	Diarization    bool `json:"diarization"`
	EmotionTags    bool `json:"emotion_tags"`
	LanguageDetect bool `json:"language_detect"`
}

// conservativeCapabilities is used when synthesizing a spec for an
// engine-qualified model string that isn't in the table (§4.1 rule 2):
// assume timestamp support only, nothing else. These capabilities are
// not revised after the engine loads.
var conservativeCapabilities = Capabilities{Timestamp: true}

// ModelSpec is an immutable description of a named ASR model.
type ModelSpec struct {
	Alias        string
	ModelID      string
	Description  string
	EngineKind   EngineKind
	Capabilities Capabilities
}

// openAIPassthroughValues are model strings that mean "keep current",
// never selectors. Empty string is included because some HTTP clients
// serialize an unset form field as "".
var openAIPassthroughValues = map[string]struct{}{
	"":          {},
	"whisper-1": {},
}

// IsPassthrough reports whether model means "use whatever is currently
// loaded" rather than naming a model.
func IsPassthrough(model string) bool {
	_, ok := openAIPassthroughValues[model]
	return ok
}

// enginePrefix maps a known model_id prefix/substring to the engine
// kind it implies, used to synthesize specs for unregistered full
// model paths (§4.1 rule 2). Order matters: checked top to bottom.
type enginePrefix struct {
	match func(modelID string) bool
	kind  EngineKind
}

var enginePrefixes = []enginePrefix{
	{kind: EngineMLX, match: func(id string) bool { return strings.HasPrefix(id, "mlx-community/") }},
	{kind: EngineFunASR, match: func(id string) bool {
		return strings.HasPrefix(id, "iic/") || strings.Contains(strings.ToLower(id), "funasr")
	}},
}

// Registry is the immutable (per-snapshot) alias → ModelSpec table.
// Reload replaces the whole table; in-flight lookups always observe
// either the old or the new table, never a partial one.
type Registry struct {
	mu        sync.RWMutex
	byAlias   map[string]ModelSpec
	byModelID map[string]string // model_id -> alias
}

// New builds a Registry from a fixed list of specs (typically the
// compiled-in defaults, optionally merged with a YAML overlay).
func New(specs []ModelSpec) *Registry {
	r := &Registry{}
	r.Replace(specs)
	return r
}

// Replace atomically swaps the entire table. Used both at startup and
// by the config watcher on a validated registry-overlay reload.
func (r *Registry) Replace(specs []ModelSpec) {
	byAlias := make(map[string]ModelSpec, len(specs))
	byModelID := make(map[string]string, len(specs))
	for _, s := range specs {
		byAlias[s.Alias] = s
		byModelID[s.ModelID] = s.Alias
	}

	r.mu.Lock()
	r.byAlias = byAlias
	r.byModelID = byModelID
	r.mu.Unlock()
}

// ErrUnknownModel is returned when a model string resolves to neither
// a known alias, a known model_id, nor a recognizable engine-qualified
// prefix.
var ErrUnknownModel = errors.New("unknown model")

// Lookup resolves a model selector to a ModelSpec per §4.1:
//  1. Exact alias match.
//  2. Exact registered model_id match.
//  3. Engine-qualified prefix inference, synthesizing a conservative
//     ad-hoc spec.
//
// Callers must check IsPassthrough before calling Lookup — passthrough
// values are not selectors and have no ModelSpec.
func (r *Registry) Lookup(model string) (ModelSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if spec, ok := r.byAlias[model]; ok {
		return spec, nil
	}

	if alias, ok := r.byModelID[model]; ok {
		return r.byAlias[alias], nil
	}

	for _, p := range enginePrefixes {
		if p.match(model) {
			return ModelSpec{
				Alias:        model,
				ModelID:      model,
				EngineKind:   p.kind,
				Description:  "Custom model (conservative default capabilities).",
				Capabilities: conservativeCapabilities,
			}, nil
		}
	}

	return ModelSpec{}, ErrUnknownModel
}

// AliasFor returns the registered alias for a model_id, if any.
func (r *Registry) AliasFor(modelID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alias, ok := r.byModelID[modelID]
	return alias, ok
}

// List returns all registered specs, sorted by alias.
func (r *Registry) List() []ModelSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ModelSpec, 0, len(r.byAlias))
	for _, s := range r.byAlias {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })

	return out
}
