package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/jkfsjkfs/proyecto-rutas/internal/config"
	"github.com/jkfsjkfs/proyecto-rutas/internal/database"
	"github.com/jkfsjkfs/proyecto-rutas/internal/handlers"
	"github.com/jkfsjkfs/proyecto-rutas/internal/observability"
	"github.com/jkfsjkfs/proyecto-rutas/internal/planner"
	"github.com/jkfsjkfs/proyecto-rutas/internal/routing"
	"github.com/jkfsjkfs/proyecto-rutas/internal/server"
	"github.com/jkfsjkfs/proyecto-rutas/internal/sqlite"
)

const serviceName = "proyecto-rutas"

var configPath = flag.String("config", "", "path to a TOML config file")

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, shutdownTracing, err := observability.NewTracerProvider(ctx, cfg.Tracing, serviceName)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}

	dbPath, err := database.ResolveDBPath(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to resolve database path: %w", err)
	}
	logger.Info("[DB] opening database", zap.String("path", dbPath))
	store, err := sqlite.New(dbPath, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize data store: %w", err)
	}
	defer store.Close()

	if cfg.Database.SeedFile != "" {
		if _, err := database.LoadSeed(ctx, store, cfg.Database.SeedFile, logger); err != nil {
			return fmt.Errorf("failed to seed database: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	optimizer := routing.NewOptimizer(
		routing.WithExactThreshold(cfg.Optimizer.ExactThreshold),
		routing.WithParallelism(cfg.Optimizer.Parallelism),
		routing.WithLogger(logger),
		routing.WithMetrics(metrics),
	)
	p, err := planner.New(store, optimizer, cfg.Optimizer.CacheSize,
		planner.WithLogger(logger),
		planner.WithTracerProvider(tp),
		planner.WithCacheRecorder(metrics),
	)
	if err != nil {
		return fmt.Errorf("failed to create planner: %w", err)
	}

	srv, err := server.New(cfg.Server, server.Deps{
		Handler:  handlers.New(store, p, logger),
		Metrics:  metrics,
		Registry: reg,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	actualAddr, err := srv.Start()
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	if cfg.Server.OpenBrowser {
		// Open browser after a short delay to ensure server is ready
		go func() {
			time.Sleep(500 * time.Millisecond)
			url := fmt.Sprintf("http://%s/api/v1/health", actualAddr)
			if err := openBrowser(url); err != nil {
				logger.Warn("Could not open browser", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	logger.Info("Received shutdown signal, starting graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("could not gracefully shutdown the server: %w", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("Failed to flush traces", zap.Error(err))
	}

	logger.Info("Server stopped")
	return nil
}

func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default: // linux, freebsd, etc.
		cmd = exec.Command("xdg-open", url)
	}

	return cmd.Start()
}
