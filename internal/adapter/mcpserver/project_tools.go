package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"
)

func (s *Server) registerProjectTools(m *server.MCPServer) {
	m.AddTool(mcp.NewTool("open_project",
		mcp.WithDescription("Open a Vivado project (.xpr file). The project stays open for subsequent commands."),
		mcp.WithString("project_path", mcp.Required(), mcp.Description("Absolute path to the .xpr project file")),
	), s.handleOpenProject)

	m.AddTool(mcp.NewTool("close_project",
		mcp.WithDescription("Close the currently open project."),
	), s.handleCloseProject)

	m.AddTool(mcp.NewTool("get_project_info",
		mcp.WithDescription("Get properties of the open project: name, target part, language, directory."),
	), s.handleGetProjectInfo)

	m.AddTool(mcp.NewTool("run_tcl",
		mcp.WithDescription("Execute an arbitrary TCL command in the Vivado session. Escape hatch for anything without a dedicated tool."),
		mcp.WithString("command", mcp.Required(), mcp.Description("TCL command to execute")),
	), s.handleRunTCL)
}

func (s *Server) handleOpenProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "open_project", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		projectPath, err := req.RequireString("project_path")
		if err != nil {
			return nil, err
		}

		result := s.session.Execute(ctx, "open_project "+braced(projectPath), 0)
		if result.Success {
			s.session.SetCurrentProject(projectPath)
		}
		return map[string]any{
			"success":    result.Success,
			"output":     result.Output,
			"elapsed_ms": result.ElapsedMS,
		}, nil
	})
}

func (s *Server) handleCloseProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "close_project", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		result := s.session.Execute(ctx, "close_project", 0)
		s.session.ClearCurrentProject()
		return map[string]any{
			"success": result.Success,
			"output":  result.Output,
		}, nil
	})
}

func (s *Server) handleGetProjectInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "get_project_info", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		commands := []string{
			"current_project",
			"get_property PART [current_project]",
			"get_property TARGET_LANGUAGE [current_project]",
			"get_property DIRECTORY [current_project]",
		}
		results := make(map[string]string, len(commands))
		for _, cmd := range commands {
			results[cmd] = s.session.Execute(ctx, cmd, 0).Output
		}
		return results, nil
	})
}

func (s *Server) handleRunTCL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "run_tcl", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		command, err := req.RequireString("command")
		if err != nil {
			return nil, err
		}
		result := s.session.Execute(ctx, command, 0)
		return map[string]any{
			"success":    result.Success,
			"output":     result.Output,
			"elapsed_ms": result.ElapsedMS,
		}, nil
	})
}
