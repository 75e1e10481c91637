package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreyhahn/vivado-mcp/internal/domain"
	"github.com/coreyhahn/vivado-mcp/internal/features"
	"github.com/coreyhahn/vivado-mcp/internal/infra/config"
	"github.com/coreyhahn/vivado-mcp/internal/reports"
)

// fakeSession is a scripted commandSession. Execute answers from the
// respond hook when set, otherwise echoes the command back as output.
type fakeSession struct {
	state    domain.SessionState
	project  string
	execPath string
	healthy  bool
	executed []string
	respond  func(command string) domain.CommandResult
}

func newFakeSession() *fakeSession {
	return &fakeSession{state: domain.SessionRunning, healthy: true}
}

func (f *fakeSession) Start(ctx context.Context) domain.CommandResult {
	f.state = domain.SessionRunning
	return domain.NewCommandResult("start", "Vivado session started", true, 100*time.Millisecond)
}

func (f *fakeSession) Stop(ctx context.Context) domain.CommandResult {
	f.state = domain.SessionStopped
	f.project = ""
	return domain.NewCommandResult("stop", "Session stopped", true, 10*time.Millisecond)
}

func (f *fakeSession) Execute(ctx context.Context, command string, timeoutOverride time.Duration) domain.CommandResult {
	f.executed = append(f.executed, command)
	if f.respond != nil {
		return f.respond(command)
	}
	return domain.NewCommandResult(command, command, true, time.Millisecond)
}

func (f *fakeSession) IsHealthy(ctx context.Context) bool { return f.healthy }

func (f *fakeSession) EnsureHealthy(ctx context.Context) domain.CommandResult {
	f.healthy = true
	f.state = domain.SessionRunning
	return domain.NewCommandResult("recover", "restarted", true, 50*time.Millisecond)
}

func (f *fakeSession) State() domain.SessionState { return f.state }
func (f *fakeSession) CurrentProject() string     { return f.project }
func (f *fakeSession) SetCurrentProject(p string) { f.project = p }
func (f *fakeSession) ClearCurrentProject()       { f.project = "" }
func (f *fakeSession) SetExecutablePath(p string) { f.execPath = p }

func (f *fakeSession) Stats() domain.StatsSnapshot {
	return domain.StatsSnapshot{
		IsRunning:   f.state == domain.SessionRunning,
		CommandsRun: len(f.executed),
	}
}

func newTestServer(t *testing.T, session *fakeSession) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.ReportsConfig{
		Dir:            t.TempDir(),
		CacheTTL:       time.Hour,
		MaxInlineChars: 200,
	}
	reportStore := reports.NewStore(cfg, log)
	featureStore := features.NewStore(filepath.Join(t.TempDir(), "feature_requests.json"))
	return New(session, reportStore, featureStore, cfg, log)
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

// resultJSON unmarshals the text payload of a tool result.
func resultJSON(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	text := resultText(t, res)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	return out
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	default:
		t.Fatalf("expected text content, got %T", res.Content[0])
		return ""
	}
}

func TestToolsRequireRunningSession(t *testing.T) {
	session := newFakeSession()
	session.state = domain.SessionStopped
	srv := newTestServer(t, session)

	res, err := srv.handleRunTCL(t.Context(), callRequest("run_tcl", map[string]any{"command": "puts hi"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "not running")
	assert.Empty(t, session.executed)
}

func TestOpenProjectTracksCurrentProject(t *testing.T) {
	session := newFakeSession()
	srv := newTestServer(t, session)

	res, err := srv.handleOpenProject(t.Context(), callRequest("open_project",
		map[string]any{"project_path": "/work/top.xpr"}))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "/work/top.xpr", session.project)
	assert.Equal(t, "open_project {/work/top.xpr}", session.executed[0])

	res, err = srv.handleCloseProject(t.Context(), callRequest("close_project", nil))
	require.NoError(t, err)
	assert.Equal(t, true, resultJSON(t, res)["success"])
	assert.Empty(t, session.project)
}

func TestRunTCLReportsOutput(t *testing.T) {
	session := newFakeSession()
	session.respond = func(cmd string) domain.CommandResult {
		return domain.NewCommandResult(cmd, "hello", true, time.Millisecond)
	}
	srv := newTestServer(t, session)

	res, err := srv.handleRunTCL(t.Context(), callRequest("run_tcl", map[string]any{"command": "puts hello"}))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, "hello", out["output"])
	assert.Equal(t, true, out["success"])
}

func TestStartSessionForwardsExecutablePath(t *testing.T) {
	session := newFakeSession()
	session.state = domain.SessionStopped
	srv := newTestServer(t, session)

	res, err := srv.handleStartSession(t.Context(), callRequest("start_session",
		map[string]any{"vivado_path": "/opt/Xilinx/bin/vivado"}))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "/opt/Xilinx/bin/vivado", session.execPath)
	assert.Equal(t, domain.SessionRunning, session.state)
}

func TestCheckSessionHealthStartsStoppedSession(t *testing.T) {
	session := newFakeSession()
	session.state = domain.SessionStopped
	srv := newTestServer(t, session)

	res, err := srv.handleCheckSessionHealth(t.Context(), callRequest("check_session_health", nil))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, "started", out["action"])
	assert.Equal(t, true, out["healthy"])
}

func TestCheckSessionHealthRestartsUnresponsiveSession(t *testing.T) {
	session := newFakeSession()
	session.healthy = false
	srv := newTestServer(t, session)

	res, err := srv.handleCheckSessionHealth(t.Context(), callRequest("check_session_health", nil))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, "restarted", out["action"])
	assert.Equal(t, true, out["healthy"])
}

func TestCheckSessionHealthWithoutAutoRecover(t *testing.T) {
	session := newFakeSession()
	session.healthy = false
	srv := newTestServer(t, session)

	res, err := srv.handleCheckSessionHealth(t.Context(), callRequest("check_session_health",
		map[string]any{"auto_recover": false}))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, "none", out["action"])
	assert.Equal(t, false, out["healthy"])
}

func TestRunSynthesisTrustsRunProperties(t *testing.T) {
	session := newFakeSession()
	session.respond = func(cmd string) domain.CommandResult {
		switch {
		case strings.Contains(cmd, "STATUS"):
			return domain.NewCommandResult(cmd, "synth_design Complete!", true, time.Millisecond)
		case strings.Contains(cmd, "PROGRESS"):
			return domain.NewCommandResult(cmd, "100%", true, time.Millisecond)
		default:
			// Console output full of report noise that the classifier
			// would flag as a failure.
			return domain.NewCommandResult(cmd, "ERROR: [Timing 38-282] in report text", false, time.Second)
		}
	}
	srv := newTestServer(t, session)

	res, err := srv.handleRunSynthesis(t.Context(), callRequest("run_synthesis", nil))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, true, out["success"])
	assert.Contains(t, out["run_status"], "Complete")
	assert.Contains(t, out["note"], "completed successfully")
	assert.Contains(t, session.executed[0], "reset_run synth_1")
	assert.Contains(t, session.executed[0], "-jobs 4")
}

func TestRunImplementationFailedRun(t *testing.T) {
	session := newFakeSession()
	session.respond = func(cmd string) domain.CommandResult {
		if strings.Contains(cmd, "STATUS") {
			return domain.NewCommandResult(cmd, "route_design ERROR", true, time.Millisecond)
		}
		return domain.NewCommandResult(cmd, "done", true, time.Millisecond)
	}
	srv := newTestServer(t, session)

	res, err := srv.handleRunImplementation(t.Context(), callRequest("run_implementation",
		map[string]any{"jobs": 8}))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, false, out["success"])
	assert.Contains(t, session.executed[0], "-jobs 8")
}

const timingSummaryFixture = `
Design Timing Summary
WNS(ns): -0.123  TNS(ns): -1.500  WHS(ns): 0.045  THS(ns): 0.000
3 failing endpoints
`

func TestGetTimingSummaryDetailLevels(t *testing.T) {
	session := newFakeSession()
	session.respond = func(cmd string) domain.CommandResult {
		return domain.NewCommandResult(cmd, timingSummaryFixture, true, time.Millisecond)
	}
	srv := newTestServer(t, session)

	res, err := srv.handleGetTimingSummary(t.Context(), callRequest("get_timing_summary", nil))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.InDelta(t, -0.123, out["wns"], 0.0001)
	assert.Equal(t, false, out["met"])
	_, hasRaw := out["raw"]
	assert.False(t, hasRaw, "summary level must omit raw output")

	res, err = srv.handleGetTimingSummary(t.Context(), callRequest("get_timing_summary",
		map[string]any{"detail_level": "full"}))
	require.NoError(t, err)
	out = resultJSON(t, res)
	_, hasRaw = out["raw"]
	assert.True(t, hasRaw, "full level must include raw output")
}

func TestGetTimingPathsBuildsFilters(t *testing.T) {
	session := newFakeSession()
	srv := newTestServer(t, session)

	_, err := srv.handleGetTimingPaths(t.Context(), callRequest("get_timing_paths", map[string]any{
		"path_type": "hold",
		"num_paths": float64(5),
		"from_pin":  "reg_a/C",
		"clock":     "clk_100",
	}))
	require.NoError(t, err)
	require.Len(t, session.executed, 1)
	cmd := session.executed[0]
	assert.Contains(t, cmd, "-delay_type min")
	assert.Contains(t, cmd, "-max_paths 5")
	assert.Contains(t, cmd, "-from {reg_a/C}")
	assert.Contains(t, cmd, "-filter {CLOCK == clk_100}")
}

func TestGetDesignHierarchyDepthFilter(t *testing.T) {
	session := newFakeSession()
	session.respond = func(cmd string) domain.CommandResult {
		if strings.HasPrefix(cmd, "get_cells -hierarchical") {
			return domain.NewCommandResult(cmd,
				"top_i top_i/cpu top_i/cpu/alu top_i/cpu/alu/adder/carry", true, time.Millisecond)
		}
		return domain.NewCommandResult(cmd, "riscv_cpu", true, time.Millisecond)
	}
	srv := newTestServer(t, session)

	res, err := srv.handleGetDesignHierarchy(t.Context(), callRequest("get_design_hierarchy",
		map[string]any{"max_depth": float64(2)}))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, float64(3), out["cell_count"])
	cells := out["cells"].([]any)
	for _, c := range cells {
		assert.NotContains(t, c.(string), "adder/carry")
	}
}

func TestGetNetsAppliesLimit(t *testing.T) {
	session := newFakeSession()
	srv := newTestServer(t, session)

	_, err := srv.handleGetNets(t.Context(), callRequest("get_nets",
		map[string]any{"pattern": "clk*", "limit": float64(10)}))
	require.NoError(t, err)
	assert.Equal(t, "lrange [get_nets {clk*}] 0 9", session.executed[0])
}

func TestLaunchSimulationModeMapping(t *testing.T) {
	session := newFakeSession()
	srv := newTestServer(t, session)

	res, err := srv.handleLaunchSimulation(t.Context(), callRequest("launch_simulation",
		map[string]any{"mode": "post_synth_timing"}))
	require.NoError(t, err)
	assert.Equal(t, "launch_simulation -mode synth -type timing", session.executed[0])
	out := resultJSON(t, res)
	assert.Equal(t, true, out["success"])
}

func TestRunSimulationAll(t *testing.T) {
	session := newFakeSession()
	srv := newTestServer(t, session)

	_, err := srv.handleRunSimulation(t.Context(), callRequest("run_simulation",
		map[string]any{"time": "all"}))
	require.NoError(t, err)
	assert.Equal(t, "run -all", session.executed[0])

	_, err = srv.handleRunSimulation(t.Context(), callRequest("run_simulation", nil))
	require.NoError(t, err)
	assert.Equal(t, "run 100ns", session.executed[1])
}

func TestGetSignalValuesBoundsLookups(t *testing.T) {
	session := newFakeSession()
	many := make([]string, 80)
	for i := range many {
		many[i] = "/tb/sig" + string(rune('a'+i%26))
	}
	session.respond = func(cmd string) domain.CommandResult {
		if strings.HasPrefix(cmd, "get_objects") {
			return domain.NewCommandResult(cmd, strings.Join(many, " "), true, time.Millisecond)
		}
		return domain.NewCommandResult(cmd, "1'b0", true, time.Millisecond)
	}
	srv := newTestServer(t, session)

	res, err := srv.handleGetSignalValues(t.Context(), callRequest("get_signal_values", nil))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, true, out["success"])
	// One listing command plus at most signalValueLimit value reads.
	assert.LessOrEqual(t, len(session.executed), 1+signalValueLimit)
}

func TestAddBreakpointConditions(t *testing.T) {
	session := newFakeSession()
	srv := newTestServer(t, session)

	_, err := srv.handleAddBreakpoint(t.Context(), callRequest("add_breakpoint",
		map[string]any{"signal": "/tb/clk", "condition": "posedge"}))
	require.NoError(t, err)
	assert.Equal(t, "add_bp -posedge {/tb/clk}", session.executed[0])

	_, err = srv.handleAddBreakpoint(t.Context(), callRequest("add_breakpoint",
		map[string]any{"signal": "/tb/data"}))
	require.NoError(t, err)
	assert.Equal(t, "add_bp {/tb/data}", session.executed[1])
}

func TestGenerateAndReadReport(t *testing.T) {
	session := newFakeSession()
	session.respond = func(cmd string) domain.CommandResult {
		// Real runs write the report through the shell's -file option;
		// the fake does the write itself.
		if i := strings.Index(cmd, "-file {"); i >= 0 {
			path := cmd[i+len("-file {") : len(cmd)-1]
			content := "Clock Summary\n" + strings.Repeat("path line\n", 20)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return domain.NewCommandResult(cmd, err.Error(), false, time.Millisecond)
			}
		}
		return domain.NewCommandResult(cmd, "", true, 5*time.Millisecond)
	}
	srv := newTestServer(t, session)

	res, err := srv.handleGenerateFullReport(t.Context(), callRequest("generate_full_report",
		map[string]any{"report_type": "timing", "options": map[string]any{"num_paths": float64(25)}}))
	require.NoError(t, err)
	out := resultJSON(t, res)
	require.Equal(t, true, out["success"])
	assert.Contains(t, session.executed[0], "-max_paths 25")
	assert.Equal(t, float64(21), out["line_count"])
	reportID := out["report_id"].(string)

	res, err = srv.handleReadReportSection(t.Context(), callRequest("read_report_section",
		map[string]any{"report_id": reportID, "num_lines": float64(5)}))
	require.NoError(t, err)
	section := resultJSON(t, res)
	assert.Equal(t, true, section["success"])
	assert.Equal(t, float64(5), section["returned_lines"])
	assert.Contains(t, section["content"], "Clock Summary")

	res, err = srv.handleReadReportSection(t.Context(), callRequest("read_report_section",
		map[string]any{"report_id": reportID, "search_pattern": "no such text"}))
	require.NoError(t, err)
	missing := resultJSON(t, res)
	assert.Equal(t, true, missing["success"])
	assert.Contains(t, missing["warning"], "not found")
}

func TestReadReportSectionUnknownID(t *testing.T) {
	srv := newTestServer(t, newFakeSession())

	res, err := srv.handleReadReportSection(t.Context(), callRequest("read_report_section",
		map[string]any{"report_id": "deadbeef"}))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, false, out["success"])
	assert.Contains(t, out["error"], "deadbeef")
}

func TestFeatureRequestRoundtrip(t *testing.T) {
	srv := newTestServer(t, newFakeSession())

	res, err := srv.handleRequestFeature(t.Context(), callRequest("request_feature", map[string]any{
		"title":       "Incremental synthesis",
		"description": "Support incremental synthesis runs",
		"priority":    "high",
	}))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, true, out["success"])
	assert.Contains(t, out["message"], "#1")

	res, err = srv.handleListFeatureRequests(t.Context(), callRequest("list_feature_requests", nil))
	require.NoError(t, err)
	list := resultJSON(t, res)
	assert.Equal(t, float64(1), list["total"])
}

func TestBuildRegistersTools(t *testing.T) {
	srv := newTestServer(t, newFakeSession())
	m := srv.Build("test")
	require.NotNil(t, m)
}
