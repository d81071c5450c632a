package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"go.uber.org/zap"

	"github.com/chapterops/palms-server/internal/api"
	"github.com/chapterops/palms-server/internal/config"
	"github.com/chapterops/palms-server/internal/logger"
	"github.com/chapterops/palms-server/internal/lottery"
	"github.com/chapterops/palms-server/internal/mcp"
	"github.com/chapterops/palms-server/internal/rating"
	"github.com/chapterops/palms-server/internal/report"
	"github.com/chapterops/palms-server/internal/store"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// In stdio mode stdout carries the MCP protocol; logs must stay on
	// stderr.
	log := logger.Must(cfg.LogLevel, cfg.IsStdioMode())
	defer func() { _ = log.Sync() }()

	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() {
		log.Debug("starting with configuration", zap.String("config", cfg.String()))
	}

	st, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}
	if st != nil {
		log.Info("persistence enabled")
	}

	ratings := rating.NewTable(st, log)
	lotto := lottery.NewEngine(cfg.ExcludeWinners, log, lottery.WithPersister(st))
	reports := report.NewService(cfg.MaxFileSize, cfg.DefaultChapter, cfg.WindowWeeks,
		ratings, lotto, st, log)

	if err := reports.LoadFromStore(); err != nil {
		log.Fatal("failed to restore persisted state", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.IsStdioMode() {
		runStdioMode(ctx, cfg, reports, ratings, lotto, log)
		return
	}
	runServerMode(ctx, cancel, cfg, reports, ratings, lotto, log)
}

// runServerMode runs the HTTP API with graceful shutdown on signals.
func runServerMode(ctx context.Context, cancel context.CancelFunc, cfg *config.Config,
	reports *report.Service, ratings *rating.Table, lotto *lottery.Engine, log *zap.Logger,
) {
	server := api.NewServer(cfg, reports, ratings, lotto, log)

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
		if err := <-serverErrCh; err != nil {
			log.Error("server shutdown with error", zap.Error(err))
			os.Exit(1)
		}
	case err := <-serverErrCh:
		if err != nil {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	log.Info("server stopped")
}

// runStdioMode serves the MCP tool surface; the parent process controls
// our lifecycle.
func runStdioMode(ctx context.Context, cfg *config.Config, reports *report.Service,
	ratings *rating.Table, lotto *lottery.Engine, log *zap.Logger,
) {
	server, err := mcp.NewServer(cfg, reports, ratings, lotto)
	if err != nil {
		log.Fatal("failed to create MCP server", zap.Error(err))
	}

	if err := server.Run(ctx); err != nil {
		log.Error("MCP server error", zap.Error(err))
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("palms-server %s\n", version)
	fmt.Printf("  build time: %s\n", buildTime)
	fmt.Printf("  git commit: %s\n", gitCommit)
	fmt.Printf("  go version: %s\n", runtime.Version())
	fmt.Printf("  platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
