package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"

	"github.com/coreyhahn/vivado-mcp/internal/infra/tracer"
	"github.com/coreyhahn/vivado-mcp/internal/reports"
)

// reportCommands maps report types to the TCL commands that produce
// them. Unknown types fall back to "report_<type>" so new report
// commands work without a map update.
var reportCommands = map[string]string{
	"timing":         "report_timing -max_paths 100",
	"timing_summary": "report_timing_summary",
	"utilization":    "report_utilization",
	"hierarchy":      "report_hierarchy",
	"clocks":         "report_clocks",
	"power":          "report_power",
	"drc":            "report_drc",
}

func (s *Server) registerReportTools(m *server.MCPServer) {
	m.AddTool(mcp.NewTool("generate_full_report",
		mcp.WithDescription("Write a complete report to a file for later sectioned reading. Use this for large reports instead of inline output."),
		mcp.WithString("report_type", mcp.Required(), mcp.Description("timing, timing_summary, utilization, hierarchy, clocks, power, drc, or any report_* suffix")),
		mcp.WithObject("options", mcp.Description("Report options: hierarchical (bool, utilization), num_paths (int, timing)")),
		mcp.WithString("output_file", mcp.Description("Explicit output path; defaults to the managed reports directory")),
	), s.handleGenerateFullReport)

	m.AddTool(mcp.NewTool("read_report_section",
		mcp.WithDescription("Read a line range or pattern context from a previously generated report file."),
		mcp.WithString("report_id", mcp.Description("ID returned by generate_full_report")),
		mcp.WithString("file_path", mcp.Description("Direct file path, alternative to report_id")),
		mcp.WithNumber("start_line", mcp.Description("1-indexed first line (default 1)")),
		mcp.WithNumber("num_lines", mcp.Description("Lines to return (default 100)")),
		mcp.WithString("search_pattern", mcp.Description("Case-insensitive regex; window is positioned around the first match")),
	), s.handleReadReportSection)
}

func (s *Server) handleGenerateFullReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "generate_full_report", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		reportType := req.GetString("report_type", "timing")
		outputFile := req.GetString("output_file", "")

		var options map[string]any
		if raw, ok := req.GetArguments()["options"].(map[string]any); ok {
			options = raw
		}

		if err := s.reports.Prepare(); err != nil {
			return nil, err
		}

		id := s.reports.NewID()
		path := outputFile
		if path == "" {
			path = s.reports.DefaultPath(reportType, id)
		}

		baseCmd, ok := reportCommands[reportType]
		if !ok {
			baseCmd = "report_" + reportType
		}
		if reportType == "utilization" {
			if h, _ := options["hierarchical"].(bool); h {
				baseCmd += " -hierarchical"
			}
		}
		if reportType == "timing" {
			if n, ok := options["num_paths"].(float64); ok && n > 0 {
				baseCmd = strings.Replace(baseCmd, "-max_paths 100",
					fmt.Sprintf("-max_paths %d", int(n)), 1)
			}
		}

		cmd := baseCmd + " -file " + braced(path)
		result := s.session.Execute(ctx, cmd, 0)
		if !result.Success {
			return map[string]any{
				"success":    false,
				"error":      result.Output,
				"elapsed_ms": result.ElapsedMS,
			}, nil
		}

		md, err := s.reports.Record(id, path, reportType)
		if err != nil {
			return map[string]any{
				"success":    false,
				"error":      fmt.Sprintf("Report generated but could not read file info: %v", err),
				"file_path":  path,
				"elapsed_ms": result.ElapsedMS,
			}, nil
		}

		span.SetAttributes(
			tracer.StringAttr("report.type", reportType),
			tracer.IntAttr("report.size_bytes", int(md.SizeBytes)),
		)
		return map[string]any{
			"success":     true,
			"report_id":   md.ID,
			"file_path":   md.FilePath,
			"report_type": md.ReportType,
			"size_bytes":  md.SizeBytes,
			"line_count":  md.LineCount,
			"message":     fmt.Sprintf("Report written to %s. Use read_report_section to read portions.", md.FilePath),
			"elapsed_ms":  result.ElapsedMS,
		}, nil
	})
}

func (s *Server) handleReadReportSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "read_report_section", func(ctx context.Context, span trace.Span) (any, error) {
		reportID := req.GetString("report_id", "")
		filePath := req.GetString("file_path", "")

		if reportID != "" {
			resolved, err := s.reports.Resolve(reportID)
			if err != nil {
				return map[string]any{
					"success": false,
					"error":   fmt.Sprintf("Report ID %q not found in cache or reports directory", reportID),
				}, nil
			}
			filePath = resolved
		}
		if filePath == "" {
			return map[string]any{
				"success": false,
				"error":   "Either report_id or file_path must be provided",
			}, nil
		}

		section, err := reports.ReadSection(filePath, reports.SectionOptions{
			StartLine:     req.GetInt("start_line", 1),
			NumLines:      req.GetInt("num_lines", 100),
			SearchPattern: req.GetString("search_pattern", ""),
		})
		if err != nil {
			return map[string]any{
				"success": false,
				"error":   err.Error(),
			}, nil
		}
		if section.PatternMissing {
			return map[string]any{
				"success":     true,
				"warning":     fmt.Sprintf("Pattern '%s' not found in file", req.GetString("search_pattern", "")),
				"total_lines": section.TotalLines,
				"file_path":   section.FilePath,
			}, nil
		}
		return map[string]any{
			"success":        true,
			"file_path":      section.FilePath,
			"start_line":     section.StartLine,
			"end_line":       section.EndLine,
			"total_lines":    section.TotalLines,
			"returned_lines": section.ReturnedLines,
			"content":        section.Content,
		}, nil
	})
}
