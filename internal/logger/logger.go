// Package logger builds the process-wide slog.Logger used across the
// gateway: a colorized handler for the console via tint, optionally
// fanned out to a rotating file via lumberjack.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Option configures the logger constructed by New.
type Option func(*options)

type options struct {
	logFile   string
	level     slog.Level
	logToFile bool
}

// WithLogToFile enables a rotating file sink in addition to stderr.
func WithLogToFile(enabled bool) Option {
	return func(o *options) { o.logToFile = enabled }
}

// WithLogFile sets the rotating log file path (used only when the file
// sink is enabled).
func WithLogFile(path string) Option {
	return func(o *options) { o.logFile = path }
}

// WithLevel sets the minimum level. Defaults to slog.LevelInfo.
func WithLevel(level slog.Level) Option {
	return func(o *options) { o.level = level }
}

// ParseLevel maps the LOG_LEVEL environment value to a slog.Level,
// defaulting to info on anything unrecognized.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a slog.Logger for the given environment name ("development",
// "production", ...). In development the console handler prints local
// time with color; in any other environment timestamps are left to the
// handler default so log aggregators can parse them.
func New(environment string, opts ...Option) *slog.Logger {
	o := &options{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(o)
	}

	var out io.Writer = os.Stderr
	if o.logToFile {
		path := o.logFile
		if path == "" {
			path = "logs/sttgate.log"
		}
		fileSink := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		out = io.MultiWriter(os.Stderr, fileSink)
	}

	tintOpts := &tint.Options{
		Level:   o.level,
		NoColor: environment == "production",
	}
	if environment == "development" {
		tintOpts.TimeFormat = time.Kitchen
	}

	return slog.New(tint.NewHandler(out, tintOpts))
}
