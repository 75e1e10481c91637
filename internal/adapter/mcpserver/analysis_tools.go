package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"

	"github.com/coreyhahn/vivado-mcp/internal/parse"
)

func (s *Server) registerAnalysisTools(m *server.MCPServer) {
	m.AddTool(mcp.NewTool("get_timing_summary",
		mcp.WithDescription("Get the timing summary (WNS, TNS, WHS, THS) as parsed metrics. Use generate_full_report for complete raw output."),
		mcp.WithString("detail_level", mcp.Description("summary (metrics only, default), standard (plus truncated raw), full (plus bounded raw)")),
	), s.handleGetTimingSummary)

	m.AddTool(mcp.NewTool("get_timing_paths",
		mcp.WithDescription("Get failing or critical timing paths as a structured summary (slack, endpoints, clocks)."),
		mcp.WithNumber("num_paths", mcp.Description("Maximum paths to report (default 10)")),
		mcp.WithNumber("slack_threshold", mcp.Description("Only paths with slack below this value in ns (default 0: failing paths)")),
		mcp.WithString("path_type", mcp.Description("setup (default) or hold")),
		mcp.WithString("from_pin", mcp.Description("Startpoint filter")),
		mcp.WithString("to_pin", mcp.Description("Endpoint filter")),
		mcp.WithString("through", mcp.Description("Through-point filter")),
		mcp.WithString("clock", mcp.Description("Restrict to one clock domain")),
		mcp.WithString("detail_level", mcp.Description("summary (default), standard, or full")),
	), s.handleGetTimingPaths)

	m.AddTool(mcp.NewTool("get_utilization",
		mcp.WithDescription("Get resource utilization (LUT, FF, BRAM, DSP, IO) as parsed metrics."),
		mcp.WithBoolean("hierarchical", mcp.Description("Per-module breakdown")),
		mcp.WithString("module_filter", mcp.Description("Module pattern for the hierarchical report")),
		mcp.WithNumber("threshold_percent", mcp.Description("Mark resources below this utilization percentage")),
		mcp.WithString("detail_level", mcp.Description("summary (default), standard, or full")),
	), s.handleGetUtilization)

	m.AddTool(mcp.NewTool("get_clocks",
		mcp.WithDescription("Get clock definitions and periods from the design."),
	), s.handleGetClocks)

	m.AddTool(mcp.NewTool("get_messages",
		mcp.WithDescription("Get tool messages grouped by severity."),
		mcp.WithString("severity", mcp.Description("all (default), error, critical, or warning")),
	), s.handleGetMessages)
}

func (s *Server) handleGetTimingSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "get_timing_summary", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		detailLevel := req.GetString("detail_level", "summary")

		result := s.session.Execute(ctx, "report_timing_summary -no_header -return_string", 0)
		ts := parse.Timing(result.Output)

		resp := map[string]any{
			"wns":               ts.WNS,
			"tns":               ts.TNS,
			"whs":               ts.WHS,
			"ths":               ts.THS,
			"failing_endpoints": ts.FailingEndpoints,
			"met":               ts.Met,
			"success":           result.Success,
			"elapsed_ms":        result.ElapsedMS,
		}
		s.attachRaw(resp, ts.Raw, detailLevel)
		return resp, nil
	})
}

func (s *Server) handleGetTimingPaths(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "get_timing_paths", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		numPaths := req.GetInt("num_paths", 10)
		slackThreshold := req.GetFloat("slack_threshold", 0)
		pathType := req.GetString("path_type", "setup")
		fromPin := req.GetString("from_pin", "")
		toPin := req.GetString("to_pin", "")
		through := req.GetString("through", "")
		clock := req.GetString("clock", "")
		detailLevel := req.GetString("detail_level", "summary")

		delayType := "max"
		if pathType != "setup" {
			delayType = "min"
		}
		cmd := fmt.Sprintf("report_timing -delay_type %s -max_paths %d -slack_lesser_than %g",
			delayType, numPaths, slackThreshold)
		if fromPin != "" {
			cmd += " -from " + braced(fromPin)
		}
		if toPin != "" {
			cmd += " -to " + braced(toPin)
		}
		if through != "" {
			cmd += " -through " + braced(through)
		}
		if clock != "" {
			cmd += fmt.Sprintf(" -filter {CLOCK == %s}", clock)
		}
		cmd += " -return_string"

		result := s.session.Execute(ctx, cmd, 0)

		filters := map[string]any{
			"path_type":       pathType,
			"num_paths":       numPaths,
			"slack_threshold": slackThreshold,
		}
		if fromPin != "" {
			filters["from_pin"] = fromPin
		}
		if toPin != "" {
			filters["to_pin"] = toPin
		}
		if through != "" {
			filters["through"] = through
		}
		if clock != "" {
			filters["clock"] = clock
		}

		resp := map[string]any{
			"success":         result.Success,
			"elapsed_ms":      result.ElapsedMS,
			"filters_applied": filters,
		}
		if !result.Success {
			resp["error"] = result.Output
			return resp, nil
		}

		paths := parse.TimingPaths(result.Output, numPaths)
		resp["paths"] = paths
		resp["path_count"] = len(paths)
		s.attachRaw(resp, result.Output, detailLevel)
		return resp, nil
	})
}

func (s *Server) handleGetUtilization(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "get_utilization", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		hierarchical := req.GetBool("hierarchical", false)
		moduleFilter := req.GetString("module_filter", "")
		detailLevel := req.GetString("detail_level", "summary")
		args := req.GetArguments()
		_, hasThreshold := args["threshold_percent"]
		threshold := req.GetFloat("threshold_percent", 0)

		cmd := "report_utilization -return_string"
		if hierarchical {
			cmd += " -hierarchical"
			if moduleFilter != "" {
				cmd += " -hierarchical_pattern " + braced(moduleFilter)
			}
		}

		result := s.session.Execute(ctx, cmd, 0)
		u := parse.Utilization(result.Output)

		resp := map[string]any{
			"success":    result.Success,
			"elapsed_ms": result.ElapsedMS,
		}
		for class, usage := range u.ByClass() {
			row := map[string]any{
				"used":      usage.Used,
				"available": usage.Available,
				"percent":   usage.Percent,
			}
			if hasThreshold && usage.Percent < threshold {
				row["below_threshold"] = true
			}
			resp[class] = row
		}
		s.attachRaw(resp, u.Raw, detailLevel)
		return resp, nil
	})
}

func (s *Server) handleGetClocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "get_clocks", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		result := s.session.Execute(ctx, "report_clocks -return_string", 0)
		return map[string]any{
			"success":    result.Success,
			"clocks":     result.Output,
			"elapsed_ms": result.ElapsedMS,
		}, nil
	})
}

func (s *Server) handleGetMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "get_messages", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		severity := req.GetString("severity", "all")

		result := s.session.Execute(ctx, "get_msg_config -rules", 0)
		buckets := parse.Messages(result.Output)

		if severity != "all" {
			var filtered []string
			switch severity {
			case "error":
				filtered = buckets.Errors
			case "critical":
				filtered = buckets.CriticalWarnings
			case "warning":
				filtered = buckets.Warnings
			}
			return map[string]any{
				severity:  filtered,
				"raw":     buckets.Raw,
				"success": result.Success,
			}, nil
		}

		return map[string]any{
			"errors":            buckets.Errors,
			"critical_warnings": buckets.CriticalWarnings,
			"warnings":          buckets.Warnings,
			"info":              buckets.Info,
			"raw":               buckets.Raw,
			"success":           result.Success,
		}, nil
	})
}
