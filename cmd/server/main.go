package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/taskboard/internal/app"
	"github.com/benvon/taskboard/internal/config"
	"github.com/benvon/taskboard/internal/handlers"
	"github.com/benvon/taskboard/internal/logger"
	"github.com/benvon/taskboard/internal/telemetry"
	"go.uber.org/zap"
)

// Set at build time with -ldflags "-X main.version=..."
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging, including LLM request details")
	consoleFlag := flag.Bool("console-log", false, "Write human-readable logs instead of JSON")
	envFile := flag.String("env-file", ".env", "Optional .env file to load before reading the environment")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		log.Fatalf("Failed to load %s: %v", *envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *debugFlag {
		cfg.ServerDebugMode = true
	}

	zapLogger, err := logger.New(logger.Options{
		Service: cfg.ServiceName,
		Version: version,
		Debug:   cfg.ServerDebugMode,
		Console: *consoleFlag,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_server",
		zap.String("version", version),
		zap.Bool("debug_mode", cfg.ServerDebugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("storage_driver", cfg.StorageDriver),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
			cfg.OTELEnabled = false
		} else {
			tp, err := telemetry.InitTracer(context.Background(), telemetry.Config{
				ServiceName:    cfg.ServiceName,
				ServiceVersion: version,
				Endpoint:       cfg.OTELEndpoint,
			})
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
				cfg.OTELEnabled = false
			} else {
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := telemetry.Shutdown(ctx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_initialize_application", zap.Error(err))
	}

	router, err := application.Router(handlers.VersionInfo{Version: version, Commit: commit, BuildDate: buildDate})
	if err != nil {
		_ = application.Close()
		zapLogger.Fatal("failed_to_build_router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      app.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	autosaveCtx, autosaveCancel := context.WithCancel(context.Background())
	autosaveDone := make(chan struct{})
	go func() {
		defer close(autosaveDone)
		application.Run(autosaveCtx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		zapLogger.Info("server_shutting_down")
	case err := <-serverErr:
		zapLogger.Error("server_failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	// Stopping the autosave loop writes the final snapshot.
	autosaveCancel()
	<-autosaveDone
	if err := application.Close(); err != nil {
		zapLogger.Error("failed_to_close_application", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}
