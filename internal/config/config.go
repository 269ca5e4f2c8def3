// Package config resolves process configuration from the environment
// (§6 "Configuration") and loads the optional YAML model-registry
// overlay that extends the compiled-in table of internal/registry.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/ekisa-team/sttgate/internal/envvar"
	"github.com/ekisa-team/sttgate/internal/registry"
)

// Config holds process-wide settings resolved once at startup.
type Config struct {
	EngineType        registry.EngineKind
	ModelID           string
	Port              int
	MaxQueueSize      int
	MaxUploadSizeMB   int64
	AllowedOrigins    []string
	LogLevel          string
	LogToFile         bool
	ModelRegistryPath string
}

const (
	DefaultPort            = 50070
	DefaultMaxQueueSize    = 50
	DefaultMaxUploadSizeMB = 200
)

// FromEnv builds a Config from environment variables, applying the
// defaults named in spec §6.
func FromEnv() *Config {
	return &Config{
		EngineType:        registry.EngineKind(getEnv(envvar.EngineType, string(registry.EngineFunASR))),
		ModelID:           os.Getenv(envvar.ModelID),
		Port:              getEnvInt(envvar.Port, DefaultPort),
		MaxQueueSize:      getEnvInt(envvar.MaxQueueSize, DefaultMaxQueueSize),
		MaxUploadSizeMB:   int64(getEnvInt(envvar.MaxUploadSizeMB, DefaultMaxUploadSizeMB)),
		AllowedOrigins:    getEnvCSV(envvar.AllowedOrigins, []string{"*"}),
		LogLevel:          getEnv(envvar.LogLevel, "info"),
		LogToFile:         getEnvBool(envvar.LogToFile, false),
		ModelRegistryPath: os.Getenv(envvar.ModelRegistryPath),
	}
}

// MaxUploadSizeBytes is MaxUploadSizeMB converted to bytes.
func (c *Config) MaxUploadSizeBytes() int64 {
	return c.MaxUploadSizeMB * 1024 * 1024
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvCSV(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
