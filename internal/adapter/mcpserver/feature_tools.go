package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"

	"github.com/coreyhahn/vivado-mcp/internal/features"
)

func (s *Server) registerFeatureTools(m *server.MCPServer) {
	m.AddTool(mcp.NewTool("request_feature",
		mcp.WithDescription("Submit a feature request for a capability this server lacks."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Short title for the request")),
		mcp.WithString("description", mcp.Required(), mcp.Description("What the feature should do")),
		mcp.WithString("use_case", mcp.Description("What you were trying to accomplish")),
		mcp.WithString("priority", mcp.Description("low, medium (default), or high")),
	), s.handleRequestFeature)

	m.AddTool(mcp.NewTool("list_feature_requests",
		mcp.WithDescription("List all submitted feature requests."),
	), s.handleListFeatureRequests)
}

func (s *Server) handleRequestFeature(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "request_feature", func(ctx context.Context, span trace.Span) (any, error) {
		title, err := req.RequireString("title")
		if err != nil {
			return nil, err
		}
		description, err := req.RequireString("description")
		if err != nil {
			return nil, err
		}

		added, err := s.features.Add(title, description,
			req.GetString("use_case", ""),
			req.GetString("priority", "medium"))
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"success": true,
			"message": fmt.Sprintf("Feature request #%d submitted: %s", added.ID, title),
			"request": added,
		}, nil
	})
}

func (s *Server) handleListFeatureRequests(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "list_feature_requests", func(ctx context.Context, span trace.Span) (any, error) {
		requests := s.features.List()
		if requests == nil {
			requests = []features.Request{}
		}
		return map[string]any{
			"success":  true,
			"total":    len(requests),
			"requests": requests,
		}, nil
	})
}
