// Package envvar centralizes the names of every environment variable the
// gateway reads at startup. Keeping them in one place avoids typo drift
// between main.go, config loading, and the docs.
package envvar

const (
	// EngineType selects the default ASR back-end ("funasr" or "mlx").
	EngineType = "ENGINE_TYPE"

	// ModelID overrides the model identifier loaded at startup,
	// regardless of engine type.
	ModelID = "MODEL_ID"

	// Port is the HTTP listen port (default 50070).
	Port = "PORT"

	// MaxQueueSize bounds the transcription scheduler's FIFO queue.
	MaxQueueSize = "MAX_QUEUE_SIZE"

	// MaxUploadSizeMB bounds accepted audio upload size in megabytes.
	MaxUploadSizeMB = "MAX_UPLOAD_SIZE_MB"

	// AllowedOrigins is a comma-separated CORS allowlist ("*" allowed).
	AllowedOrigins = "ALLOWED_ORIGINS"

	// LogLevel sets the slog level (debug, info, warn, error).
	LogLevel = "LOG_LEVEL"

	// LogToFile enables the rotating file sink alongside console output.
	LogToFile = "LOG_TO_FILE"

	// ModelRegistryPath points to an optional YAML overlay extending the
	// built-in model registry. Hot-reloaded when present.
	ModelRegistryPath = "MODEL_REGISTRY_PATH"
)
