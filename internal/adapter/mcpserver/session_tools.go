package mcpserver

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/shirou/gopsutil/v4/mem"
	"go.opentelemetry.io/otel/trace"

	"github.com/coreyhahn/vivado-mcp/internal/domain"
)

// lowMemoryThresholdGB is the free-memory floor below which large
// builds are likely to thrash.
const lowMemoryThresholdGB = 64.0

func (s *Server) registerSessionTools(m *server.MCPServer) {
	m.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start the persistent Vivado TCL session. Startup takes 20-30 seconds; the session then stays alive between commands."),
		mcp.WithString("vivado_path", mcp.Description("Path to the vivado executable (defaults to the configured path)")),
	), s.handleStartSession)

	m.AddTool(mcp.NewTool("stop_session",
		mcp.WithDescription("Stop the Vivado session gracefully. Safe to call when no session is running."),
	), s.handleStopSession)

	m.AddTool(mcp.NewTool("session_status",
		mcp.WithDescription("Get session statistics: commands run, errors, timing, recent command history."),
	), s.handleSessionStatus)

	m.AddTool(mcp.NewTool("check_session_health",
		mcp.WithDescription("Check whether the session is responsive, optionally restarting it when it is not."),
		mcp.WithBoolean("auto_recover", mcp.Description("Restart the session if unhealthy (default true)")),
	), s.handleCheckSessionHealth)

	m.AddTool(mcp.NewTool("get_host_status",
		mcp.WithDescription("Get host memory status to judge whether this machine can carry a large build."),
	), s.handleGetHostStatus)
}

func (s *Server) handleStartSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "start_session", func(ctx context.Context, span trace.Span) (any, error) {
		if path := req.GetString("vivado_path", ""); path != "" {
			s.session.SetExecutablePath(path)
		}
		result := s.session.Start(ctx)
		return map[string]any{
			"success":    result.Success,
			"message":    result.Output,
			"elapsed_ms": result.ElapsedMS,
		}, nil
	})
}

func (s *Server) handleStopSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "stop_session", func(ctx context.Context, span trace.Span) (any, error) {
		result := s.session.Stop(ctx)
		return map[string]any{
			"success": result.Success,
			"message": result.Output,
		}, nil
	})
}

func (s *Server) handleSessionStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "session_status", func(ctx context.Context, span trace.Span) (any, error) {
		return s.session.Stats(), nil
	})
}

func (s *Server) handleCheckSessionHealth(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "check_session_health", func(ctx context.Context, span trace.Span) (any, error) {
		autoRecover := req.GetBool("auto_recover", true)

		if s.session.State() != domain.SessionRunning {
			if !autoRecover {
				return map[string]any{
					"healthy": false,
					"action":  "none",
					"message": "Session not running (auto_recover=false)",
				}, nil
			}
			result := s.session.Start(ctx)
			return map[string]any{
				"healthy":    result.Success,
				"action":     "started",
				"message":    "Session was not running, started new session",
				"elapsed_ms": result.ElapsedMS,
			}, nil
		}

		if s.session.IsHealthy(ctx) {
			return map[string]any{
				"healthy": true,
				"action":  "none",
				"message": "Session is healthy and responsive",
			}, nil
		}

		if !autoRecover {
			return map[string]any{
				"healthy": false,
				"action":  "none",
				"message": "Session is unresponsive (auto_recover=false)",
			}, nil
		}
		result := s.session.EnsureHealthy(ctx)
		return map[string]any{
			"healthy":    result.Success,
			"action":     "restarted",
			"message":    "Session was unresponsive, restarted",
			"elapsed_ms": result.ElapsedMS,
		}, nil
	})
}

func (s *Server) handleGetHostStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "get_host_status", func(ctx context.Context, span trace.Span) (any, error) {
		vm, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("read host memory: %w", err)
		}
		hostname, _ := os.Hostname()

		freeGB := float64(vm.Available) / (1 << 30)
		totalGB := float64(vm.Total) / (1 << 30)

		resp := map[string]any{
			"hostname":              hostname,
			"memory_free_gb":        math.Round(freeGB*10) / 10,
			"memory_total_gb":       math.Round(totalGB*10) / 10,
			"memory_percent_used":   vm.UsedPercent,
			"vivado_session_active": s.session.State() == domain.SessionRunning,
			"suggestion":            nil,
		}
		if freeGB < lowMemoryThresholdGB {
			resp["suggestion"] = fmt.Sprintf(
				"Low memory (%.1fGB free). Prefer a higher-memory host for large builds.", freeGB)
		}
		return resp, nil
	})
}
