package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/coreyhahn/vivado-mcp/internal/adapter/mcpserver"
	"github.com/coreyhahn/vivado-mcp/internal/features"
	"github.com/coreyhahn/vivado-mcp/internal/infra/config"
	"github.com/coreyhahn/vivado-mcp/internal/infra/logger"
	"github.com/coreyhahn/vivado-mcp/internal/infra/tracer"
	"github.com/coreyhahn/vivado-mcp/internal/reports"
	"github.com/coreyhahn/vivado-mcp/internal/vivado"
)

var version = "dev"

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		case "--version", "version":
			fmt.Println("vivado-mcp " + version)
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`vivado-mcp - MCP server for Vivado TCL automation

USAGE:
    vivado-mcp [FLAGS]

The server speaks MCP over stdio and is meant to be launched by an MCP
client. It keeps one Vivado TCL session alive across tool calls, so
the 20-30 second startup cost is paid once per session instead of once
per command.

FLAGS:
    -h, --help         Show this help message
    --version          Print the version and exit
    --config PATH      Config file path (default: ./config.yaml)

CONFIGURATION:
    Config file: ./config.yaml (missing file falls back to defaults)
    Environment: VIVADO_MCP_* variables override config`)
}

func configPath() string {
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	if p := os.Getenv("VIVADO_MCP_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

func run() error {
	// 1. Config
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// 2. Logger & Tracer. Logging goes to stderr or a file; stdout
	// belongs to the MCP transport.
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx := context.Background()
	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(ctx)

	// 3. Session registry. The session is created lazily and started by
	// the start_session tool, not here: startup takes tens of seconds
	// and the client should choose when to pay for it.
	registry := vivado.NewRegistry(cfg.Vivado, log)

	// 4. Stores
	reportStore := reports.NewStore(cfg.Reports, log)
	featureStore := features.NewStore(cfg.Features.File)

	// 5. Tool surface
	srv := mcpserver.New(registry.Get(), reportStore, featureStore, cfg.Reports, log)
	mcpSrv := srv.Build(version)

	// 6. Graceful shutdown: stop the Vivado child before exiting so it
	// does not linger holding project locks.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Vivado.StopTimeout+5*time.Second)
		defer stopCancel()
		registry.Reset(stopCtx)
	}()

	log.Info("vivado-mcp starting",
		"version", version,
		"vivado_path", cfg.Vivado.Path,
		"reports_dir", cfg.Reports.Dir,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ServeStdio(mcpSrv)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}
}
