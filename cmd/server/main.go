package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"code-review-orchestrator/internal/agent"
	"code-review-orchestrator/internal/annotate"
	"code-review-orchestrator/internal/config"
	"code-review-orchestrator/internal/orchestrator"
	"code-review-orchestrator/internal/resolver"
	"code-review-orchestrator/internal/server"
	"code-review-orchestrator/internal/source"
	"code-review-orchestrator/internal/storage"
	"code-review-orchestrator/internal/worker"
)

func main() {

	// .env is optional; real deployments use the environment directly
	_ = godotenv.Load()

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, logCleanup := setupLogger(cfg)
	defer logCleanup()
	slog.SetDefault(logger)

	// Review history store
	var store storage.Repository
	if cfg.Storage.Driver == "sqlite" {
		var err error
		store, err = storage.NewSQLiteRepository(cfg.Storage.DSN)
		if err != nil {
			slog.Error("init storage failed", "error", err)
			os.Exit(1)
		}
		defer store.Close()
	} else if cfg.Storage.Driver != "" {
		slog.Warn("unknown storage driver, running without history", "driver", cfg.Storage.Driver)
	}

	// Optional LLM-backed suggestion annotator
	annotator, err := annotate.New(cfg.Annotator)
	if err != nil {
		slog.Error("init annotator failed", "error", err)
		os.Exit(1)
	}
	if annotator != nil {
		slog.Info("annotator enabled", "backend", cfg.Annotator.Backend, "model", cfg.Annotator.Model)
	}

	provider := source.NewGitHubProvider(cfg.Source.APIURL, cfg.Source.Token, cfg.Source.FetchTimeout)
	res := resolver.New(provider, cfg.Source.Extensions, cfg.Source.MaxArtifacts)
	registry := agent.NewRegistry(cfg.Review.LintCommand, cfg.Review.MaxToolMessageLen)

	orch := orchestrator.New(res, registry, orchestrator.Options{
		ArtifactConcurrency: cfg.Review.ArtifactConcurrency,
		Agent: agent.Config{
			Timeout:        cfg.Review.AgentTimeout,
			MaxSuggestions: cfg.Annotator.MaxSuggestions,
			Annotator:      annotator,
		},
	})

	pool := worker.NewPool(cfg.Review.Workers, cfg.Review.QueueSize)
	pool.Start()

	srv := server.New(cfg, orch, store, pool)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server start failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("server stopping")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("server shutdown forced", "error", err)
	}

	// Let queued reviews finish before the store closes
	pool.Stop(30 * time.Second)

	slog.Info("server stopped")
}

// setupLogger creates a logger based on configuration
func setupLogger(cfg *config.Config) (*slog.Logger, func()) {
	var writers []io.Writer
	var closers []io.Closer
	outputs := strings.Split(cfg.Log.Output, ",")

	for _, output := range outputs {
		output = strings.TrimSpace(output)
		if output == "" {
			continue
		}

		var w io.Writer
		switch output {
		case "stderr":
			w = os.Stderr
		case "stdout":
			w = os.Stdout
		default:
			// Use lumberjack for log rotation
			l := &lumberjack.Logger{
				Filename:   output,
				MaxSize:    cfg.Log.Rotation.MaxSize,
				MaxBackups: cfg.Log.Rotation.MaxBackups,
				MaxAge:     cfg.Log.Rotation.MaxAge,
				Compress:   cfg.Log.Rotation.Compress,
			}
			w = l
			closers = append(closers, l)
		}
		writers = append(writers, w)
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	multiWriter := io.MultiWriter(writers...)
	opts := &slog.HandlerOptions{Level: cfg.GetLogLevel()}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(multiWriter, opts)
	} else {
		handler = slog.NewTextHandler(multiWriter, opts)
	}

	cleanup := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	return slog.New(handler), cleanup
}
