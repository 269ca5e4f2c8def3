package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.yaml.in/yaml/v3"

	"github.com/ekisa-team/sttgate/internal/registry"
	"github.com/ekisa-team/sttgate/internal/xfs"
)

//go:embed schema/model_registry.schema.json
var registryOverlaySchema []byte

const registryOverlaySchemaURL = "sttgate://model-registry-overlay.schema.json"

// registryOverlayDocument mirrors the YAML shape validated by
// schema/model_registry.schema.json.
type registryOverlayDocument struct {
	Models []registryOverlayEntry `yaml:"models"`
}

type registryOverlayEntry struct {
	Alias        string             `yaml:"alias"`
	ModelID      string             `yaml:"model_id"`
	EngineKind   string             `yaml:"engine_kind"`
	Description  string             `yaml:"description"`
	Capabilities capabilitiesOverly `yaml:"capabilities"`
}

type capabilitiesOverly struct {
	Timestamp      bool `yaml:"timestamp"`
	Diarization    bool `yaml:"diarization"`
	EmotionTags    bool `yaml:"emotion_tags"`
	LanguageDetect bool `yaml:"language_detect"`
}

// compileRegistrySchema compiles the embedded JSON Schema once per call;
// cheap enough given reloads are debounced to one per file-write burst.
func compileRegistrySchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(registryOverlaySchemaURL, bytes.NewReader(registryOverlaySchema)); err != nil {
		return nil, fmt.Errorf("config: failed to register registry overlay schema: %w", err)
	}

	return compiler.Compile(registryOverlaySchemaURL)
}

// LoadModelRegistryOverlay reads, schema-validates, and parses a YAML
// model-registry overlay file into ModelSpecs. The returned specs are
// merged on top of the compiled-in defaults by the caller — an overlay
// alias with the same name as a built-in one replaces it.
func LoadModelRegistryOverlay(path string) ([]registry.ModelSpec, error) {
	data, err := os.ReadFile(xfs.ExpandTilde(path))
	if err != nil {
		return nil, fmt.Errorf("config: failed to read model registry overlay: %w", err)
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: invalid YAML in model registry overlay: %w", err)
	}

	schema, err := compileRegistrySchema()
	if err != nil {
		return nil, err
	}

	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("config: model registry overlay failed validation: %w", err)
	}

	var doc registryOverlayDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal model registry overlay: %w", err)
	}

	specs := make([]registry.ModelSpec, 0, len(doc.Models))
	for _, e := range doc.Models {
		specs = append(specs, registry.ModelSpec{
			Alias:       e.Alias,
			ModelID:     e.ModelID,
			EngineKind:  registry.EngineKind(strings.ToLower(e.EngineKind)),
			Description: e.Description,
			Capabilities: registry.Capabilities{
				Timestamp:      e.Capabilities.Timestamp,
				Diarization:    e.Capabilities.Diarization,
				EmotionTags:    e.Capabilities.EmotionTags,
				LanguageDetect: e.Capabilities.LanguageDetect,
			},
		})
	}

	return specs, nil
}

// MergeOverlay layers overlay specs on top of the base table: an
// overlay entry with an alias matching a base entry replaces it,
// otherwise it is appended.
func MergeOverlay(base, overlay []registry.ModelSpec) []registry.ModelSpec {
	merged := make(map[string]registry.ModelSpec, len(base)+len(overlay))
	order := make([]string, 0, len(base)+len(overlay))

	for _, s := range base {
		merged[s.Alias] = s
		order = append(order, s.Alias)
	}
	for _, s := range overlay {
		if _, exists := merged[s.Alias]; !exists {
			order = append(order, s.Alias)
		}
		merged[s.Alias] = s
	}

	out := make([]registry.ModelSpec, 0, len(order))
	for _, alias := range order {
		out = append(out, merged[alias])
	}

	return out
}
