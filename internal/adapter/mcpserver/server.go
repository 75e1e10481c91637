// Package mcpserver exposes the interactive session as MCP tools over
// stdio. Tool handlers translate MCP arguments into TCL commands, run
// them through the shared session, and shape the results for an LLM
// caller: parsed metrics first, raw report text only on request and
// always bounded.
package mcpserver

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/coreyhahn/vivado-mcp/internal/domain"
	"github.com/coreyhahn/vivado-mcp/internal/features"
	"github.com/coreyhahn/vivado-mcp/internal/infra/config"
	"github.com/coreyhahn/vivado-mcp/internal/reports"
)

const serverName = "vivado"

// commandSession is the slice of the session the tool surface needs.
// Narrow on purpose so tests can drive handlers with a fake.
type commandSession interface {
	Start(ctx context.Context) domain.CommandResult
	Stop(ctx context.Context) domain.CommandResult
	Execute(ctx context.Context, command string, timeoutOverride time.Duration) domain.CommandResult
	IsHealthy(ctx context.Context) bool
	EnsureHealthy(ctx context.Context) domain.CommandResult
	State() domain.SessionState
	CurrentProject() string
	SetCurrentProject(path string)
	ClearCurrentProject()
	Stats() domain.StatsSnapshot
	SetExecutablePath(path string)
}

// Server wires the session, report store, and feature backlog into MCP
// tool handlers.
type Server struct {
	session   commandSession
	reports   *reports.Store
	features  *features.Store
	maxInline int
	log       *slog.Logger
}

func New(session commandSession, reportStore *reports.Store, featureStore *features.Store,
	cfg config.ReportsConfig, log *slog.Logger) *Server {
	maxInline := cfg.MaxInlineChars
	if maxInline <= 0 {
		maxInline = reports.DefaultMaxInlineChars
	}
	return &Server{
		session:   session,
		reports:   reportStore,
		features:  featureStore,
		maxInline: maxInline,
		log:       log,
	}
}

// Build constructs the MCP server with every tool registered. The
// result is ready for server.ServeStdio.
func (s *Server) Build(version string) *server.MCPServer {
	m := server.NewMCPServer(serverName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.registerSessionTools(m)
	s.registerProjectTools(m)
	s.registerFlowTools(m)
	s.registerAnalysisTools(m)
	s.registerQueryTools(m)
	s.registerSimulationTools(m)
	s.registerReportTools(m)
	s.registerFeatureTools(m)

	return m
}
