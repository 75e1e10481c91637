package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/trace"

	"github.com/coreyhahn/vivado-mcp/internal/domain"
	"github.com/coreyhahn/vivado-mcp/internal/infra/tracer"
	"github.com/coreyhahn/vivado-mcp/internal/reports"
)

// run is the shared tool pipeline: start a span, invoke the handler,
// format the result. Handlers return either a string (passed through as
// plain text) or any JSON-marshalable value. Errors become error tool
// results rather than protocol failures so the caller sees them.
func (s *Server) run(ctx context.Context, name string,
	handler func(ctx context.Context, span trace.Span) (any, error)) (*mcp.CallToolResult, error) {

	ctx, span := tracer.StartSpan(ctx, name,
		trace.WithAttributes(tracer.StringAttr("tool.name", name)),
	)
	defer span.End()

	result, err := handler(ctx, span)
	if err != nil {
		tracer.RecordError(span, err)
		s.log.Warn(name+" failed", "error", err, "code", domain.ErrorCodeOf(err))
		return mcp.NewToolResultError(err.Error()), nil
	}

	switch v := result.(type) {
	case string:
		tracer.SetOK(span)
		return mcp.NewToolResultText(v), nil
	default:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			tracer.RecordError(span, err)
			return mcp.NewToolResultError(fmt.Sprintf("failed to format response: %v", err)), nil
		}
		tracer.SetOK(span)
		return mcp.NewToolResultText(string(data)), nil
	}
}

// errNotRunning is what every tool past the session group returns when
// no session is up.
var errNotRunning = errors.New("Vivado session not running. Call start_session first.")

func (s *Server) requireRunning() error {
	if s.session.State() != domain.SessionRunning {
		return errNotRunning
	}
	return nil
}

// attachRaw adds raw report text to a response according to the
// requested detail level: "summary" omits it, "standard" includes a
// half-budget excerpt, "full" includes up to the whole inline budget.
func (s *Server) attachRaw(resp map[string]any, raw, detailLevel string) {
	switch detailLevel {
	case "standard":
		if len(raw) > s.maxInline/2 {
			tr := reports.Truncate(raw, s.maxInline/2)
			resp["raw"] = tr.Content
			if tr.IsTruncated {
				resp["raw_truncated"] = true
				resp["raw_total_chars"] = tr.TotalChars
			}
		} else {
			resp["raw"] = raw
		}
	case "full":
		tr := reports.Truncate(raw, s.maxInline)
		resp["raw"] = tr.Content
		if tr.IsTruncated {
			resp["raw_truncated"] = true
			resp["raw_total_chars"] = tr.TotalChars
			resp["truncation_message"] = tr.TruncationMessage
		}
	}
	// "summary" and anything else: no raw output.
}

// braced wraps a TCL argument in braces so paths and patterns with
// spaces survive word splitting.
func braced(s string) string {
	return "{" + s + "}"
}
