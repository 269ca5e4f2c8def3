// Command sttgate runs the transcription gateway: admission (C5), the
// bounded-queue scheduler (C6), the funasr/mlx engine layer (C3/C4),
// and the HTTP surface (C7), wired the same way as the model manager
// and config watcher it composes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/ekisa-team/sttgate/internal/admission"
	"github.com/ekisa-team/sttgate/internal/config"
	"github.com/ekisa-team/sttgate/internal/engine/factory"
	"github.com/ekisa-team/sttgate/internal/env"
	"github.com/ekisa-team/sttgate/internal/httpapi"
	"github.com/ekisa-team/sttgate/internal/logger"
	"github.com/ekisa-team/sttgate/internal/registry"
	"github.com/ekisa-team/sttgate/internal/scheduler"
)

func main() {
	var (
		flagPort          = flag.Int("port", config.DefaultHTTPPort(), "HTTP port to listen on")
		flagRegistryPath  = flag.String("model-registry", "", "Path to a YAML model registry overlay")
		flagFunASRBinPath = flag.String("funasr-bin", os.Getenv("FUNASR_BIN_PATH"), "Path to the funasr model-server binary")
		flagMLXBinPath    = flag.String("mlx-bin", os.Getenv("MLX_BIN_PATH"), "Path to the mlx-audio model-server binary")
	)
	flag.Parse()

	environment := env.FromEnv()
	cfg := config.FromEnv()
	slog.SetDefault(logger.New(string(environment),
		logger.WithLogToFile(environment == env.Production || cfg.LogToFile),
		logger.WithLogFile(path.Join("logs", "sttgate.log")),
		logger.WithLevel(logger.ParseLevel(os.Getenv("LOG_LEVEL"))),
	))

	if *flagPort != config.DefaultHTTPPort() {
		cfg.Port = *flagPort
	}
	if *flagRegistryPath != "" {
		cfg.ModelRegistryPath = *flagRegistryPath
	}

	if err := run(cfg, *flagFunASRBinPath, *flagMLXBinPath); err != nil {
		slog.Error("sttgate: fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, funasrBin, mlxBin string) error {
	reg := registry.New(registry.Defaults())

	if cfg.ModelRegistryPath != "" {
		watcher, err := config.NewRegistryWatcher(cfg.ModelRegistryPath, registry.Defaults(), func(specs []registry.ModelSpec, err error) {
			if err != nil {
				slog.Error("sttgate: model registry overlay reload failed", "error", err)
				return
			}
			reg.Replace(specs)
		})
		if err != nil {
			return fmt.Errorf("sttgate: model registry overlay: %w", err)
		}
		reg.Replace(watcher.Snapshot())
	}

	initialSpec, err := resolveInitialSpec(reg, cfg)
	if err != nil {
		return fmt.Errorf("sttgate: resolve initial model: %w", err)
	}

	engineFactory := &factory.StandardFactory{
		FunASRBinPath: funasrBin,
		MLXBinPath:    mlxBin,
		Port:          9000,
		ReadyTimeout:  60 * time.Second,
	}

	sched := scheduler.New(engineFactory, cfg.MaxQueueSize, slog.Default())

	startCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := sched.Start(startCtx, initialSpec); err != nil {
		return fmt.Errorf("sttgate: start scheduler: %w", err)
	}

	validator := admission.New(admission.Limits{
		AllowedOrigins: cfg.AllowedOrigins,
		MaxUploadBytes: cfg.MaxUploadSizeBytes(),
	}, reg)

	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("sttgate", "1.0.0"))
	api.UseMiddleware(httpapi.RequestIDMiddleware)

	httpapi.New(api, httpapi.Config{
		Validator: validator,
		Scheduler: sched,
		Registry:  reg,
		Logger:    slog.Default(),
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("sttgate: listening", "port", cfg.Port, "model", initialSpec.Alias)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("sttgate: http server: %w", err)
	case <-sigCh:
		slog.Info("sttgate: shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("sttgate: http server shutdown error", "error", err)
	}
	if err := sched.Shutdown(shutdownCtx); err != nil {
		slog.Error("sttgate: scheduler shutdown error", "error", err)
	}

	return nil
}

// resolveInitialSpec honors MODEL_ID if set, falling back to the
// registered model for ENGINE_TYPE whose alias sorts first (the order
// of reg.List), per §6's configuration table.
func resolveInitialSpec(reg *registry.Registry, cfg *config.Config) (registry.ModelSpec, error) {
	if cfg.ModelID != "" {
		return reg.Lookup(cfg.ModelID)
	}

	for _, spec := range reg.List() {
		if spec.EngineKind == cfg.EngineType {
			return spec, nil
		}
	}

	return registry.ModelSpec{}, fmt.Errorf("no model registered for engine type %q", cfg.EngineType)
}
