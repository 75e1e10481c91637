package mcpserver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"
)

// Hierarchy queries can return tens of thousands of cells; these bounds
// keep responses and follow-up property lookups tractable.
const (
	hierarchyCellLimit    = 500
	hierarchyRefNameLimit = 100
)

func (s *Server) registerQueryTools(m *server.MCPServer) {
	m.AddTool(mcp.NewTool("get_design_hierarchy",
		mcp.WithDescription("Get the design's instance hierarchy with module references."),
		mcp.WithNumber("max_depth", mcp.Description("Maximum hierarchy depth, counted by '/' separators (default 3)")),
		mcp.WithString("instance_pattern", mcp.Description("Instance name pattern (default *)")),
	), s.handleGetDesignHierarchy)

	m.AddTool(mcp.NewTool("get_ports",
		mcp.WithDescription("Get the design's top-level I/O ports."),
	), s.handleGetPorts)

	m.AddTool(mcp.NewTool("get_nets",
		mcp.WithDescription("Search for nets by name pattern."),
		mcp.WithString("pattern", mcp.Description("Net name pattern (default *)")),
		mcp.WithNumber("limit", mcp.Description("Maximum nets to return (default 100)")),
	), s.handleGetNets)

	m.AddTool(mcp.NewTool("get_cells",
		mcp.WithDescription("Search for cells/instances by name pattern."),
		mcp.WithString("pattern", mcp.Description("Cell name pattern (default *)")),
		mcp.WithNumber("limit", mcp.Description("Maximum cells to return (default 100)")),
	), s.handleGetCells)
}

// hierarchyDepth counts hierarchy levels by "/" separators; top-level
// instances are depth 0.
func hierarchyDepth(path string) int {
	return strings.Count(path, "/")
}

func (s *Server) handleGetDesignHierarchy(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "get_design_hierarchy", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		maxDepth := req.GetInt("max_depth", 3)
		pattern := req.GetString("instance_pattern", "*")

		result := s.session.Execute(ctx, "get_cells -hierarchical "+braced(pattern), 0)
		output := strings.TrimSpace(result.Output)
		if !result.Success || output == "" {
			errMsg := "No cells found"
			if !result.Success {
				errMsg = result.Output
			}
			return map[string]any{
				"success":    result.Success,
				"cells":      []string{},
				"cell_count": 0,
				"error":      errMsg,
				"elapsed_ms": result.ElapsedMS,
			}, nil
		}

		var cells []string
		for _, cell := range strings.Fields(output) {
			if hierarchyDepth(cell) <= maxDepth {
				cells = append(cells, cell)
			}
		}
		sort.Strings(cells)

		// Module references for a bounded sample; one property lookup
		// per cell is too slow for the full list.
		cellRefs := make(map[string]string)
		sample := cells
		if len(sample) > hierarchyRefNameLimit {
			sample = sample[:hierarchyRefNameLimit]
		}
		for _, cell := range sample {
			refRes := s.session.Execute(ctx,
				fmt.Sprintf("get_property REF_NAME [get_cells %s]", braced(cell)), 0)
			if ref := strings.TrimSpace(refRes.Output); refRes.Success && ref != "" {
				cellRefs[cell] = ref
			}
		}

		listed := cells
		if len(listed) > hierarchyCellLimit {
			listed = listed[:hierarchyCellLimit]
		}
		resp := map[string]any{
			"success":      true,
			"cells":        listed,
			"cell_count":   len(cells),
			"cell_modules": cellRefs,
			"max_depth":    maxDepth,
			"elapsed_ms":   result.ElapsedMS,
		}
		if len(cells) > hierarchyCellLimit {
			resp["truncated"] = true
			resp["total_cells"] = len(cells)
			resp["message"] = "Cell list truncated. Use instance_pattern to filter or generate_full_report for complete hierarchy."
		}
		return resp, nil
	})
}

func (s *Server) handleGetPorts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "get_ports", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		result := s.session.Execute(ctx, "get_ports *", 0)
		ports := []string{}
		if result.Success {
			ports = strings.Fields(result.Output)
		}
		return map[string]any{
			"success":    result.Success,
			"ports":      ports,
			"elapsed_ms": result.ElapsedMS,
		}, nil
	})
}

func (s *Server) handleGetNets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "get_nets", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		pattern := req.GetString("pattern", "*")
		limit := req.GetInt("limit", 100)

		result := s.session.Execute(ctx,
			fmt.Sprintf("lrange [get_nets %s] 0 %d", braced(pattern), limit-1), 0)
		nets := []string{}
		if result.Success {
			nets = strings.Fields(result.Output)
		}
		return map[string]any{
			"success":    result.Success,
			"nets":       nets,
			"elapsed_ms": result.ElapsedMS,
		}, nil
	})
}

func (s *Server) handleGetCells(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "get_cells", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		pattern := req.GetString("pattern", "*")
		limit := req.GetInt("limit", 100)

		result := s.session.Execute(ctx,
			fmt.Sprintf("lrange [get_cells %s] 0 %d", braced(pattern), limit-1), 0)
		cells := []string{}
		if result.Success {
			cells = strings.Fields(result.Output)
		}
		return map[string]any{
			"success":    result.Success,
			"cells":      cells,
			"elapsed_ms": result.ElapsedMS,
		}, nil
	})
}
