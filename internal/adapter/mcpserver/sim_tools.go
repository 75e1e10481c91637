package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"
)

// signalValueLimit bounds how many signals a pattern query reads values
// for; each value is a separate shell round trip.
const signalValueLimit = 50

// simulationModes maps friendly mode names to the simulator's launch
// arguments.
var simulationModes = map[string]string{
	"behavioral":        "behav",
	"post_synth_func":   "synth -type func",
	"post_synth_timing": "synth -type timing",
	"post_impl_func":    "impl -type func",
	"post_impl_timing":  "impl -type timing",
}

// breakpointConditions maps edge names to add_bp flags. An empty flag
// breaks on any value change.
var breakpointConditions = map[string]string{
	"posedge": "-posedge",
	"negedge": "-negedge",
	"change":  "",
}

// objectFilters maps object-kind names to get_objects filters.
var objectFilters = map[string]string{
	"all":      "",
	"signals":  "-filter {TYPE == signal}",
	"ports":    "-filter {TYPE == port}",
	"internal": "-filter {TYPE == signal && IS_PORT == false}",
}

func (s *Server) registerSimulationTools(m *server.MCPServer) {
	m.AddTool(mcp.NewTool("launch_simulation",
		mcp.WithDescription("Launch the integrated simulator (xsim)."),
		mcp.WithString("mode", mcp.Description("behavioral (default), post_synth_func, post_synth_timing, post_impl_func, or post_impl_timing")),
	), s.handleLaunchSimulation)

	m.AddTool(mcp.NewTool("run_simulation",
		mcp.WithDescription("Advance simulation time."),
		mcp.WithString("time", mcp.Description("Duration like 100ns or 'all' to run until the testbench completes (default 100ns)")),
	), s.handleRunSimulation)

	m.AddTool(mcp.NewTool("restart_simulation",
		mcp.WithDescription("Reset the simulation to time 0."),
	), s.handleRestartSimulation)

	m.AddTool(mcp.NewTool("close_simulation",
		mcp.WithDescription("Close the simulator."),
	), s.handleCloseSimulation)

	m.AddTool(mcp.NewTool("get_simulation_time",
		mcp.WithDescription("Get the current simulation time."),
	), s.handleGetSimulationTime)

	m.AddTool(mcp.NewTool("get_signal_value",
		mcp.WithDescription("Get the current value of one signal."),
		mcp.WithString("signal", mcp.Required(), mcp.Description("Full path to the signal")),
		mcp.WithString("radix", mcp.Description("hex (default), bin, dec, unsigned, or ascii")),
	), s.handleGetSignalValue)

	m.AddTool(mcp.NewTool("get_signal_values",
		mcp.WithDescription("Get values of all signals matching a pattern."),
		mcp.WithString("pattern", mcp.Description("Signal path pattern (default /*)")),
		mcp.WithString("radix", mcp.Description("hex (default), bin, dec, unsigned, or ascii")),
	), s.handleGetSignalValues)

	m.AddTool(mcp.NewTool("add_signals_to_wave",
		mcp.WithDescription("Add signals to the waveform viewer."),
		mcp.WithArray("signals", mcp.Required(), mcp.Description("Signal paths to add")),
	), s.handleAddSignalsToWave)

	m.AddTool(mcp.NewTool("set_simulation_top",
		mcp.WithDescription("Set the top-level testbench module for simulation."),
		mcp.WithString("top_module", mcp.Required(), mcp.Description("Testbench module name")),
		mcp.WithString("fileset", mcp.Description("Simulation fileset (default sim_1)")),
	), s.handleSetSimulationTop)

	m.AddTool(mcp.NewTool("get_simulation_objects",
		mcp.WithDescription("List simulation objects (signals, ports) in a scope."),
		mcp.WithString("scope", mcp.Description("Scope path (default /)")),
		mcp.WithString("filter", mcp.Description("all (default), signals, ports, or internal")),
	), s.handleGetSimulationObjects)

	m.AddTool(mcp.NewTool("get_scopes",
		mcp.WithDescription("List child scopes under a parent scope."),
		mcp.WithString("parent", mcp.Description("Parent scope path (default /)")),
	), s.handleGetScopes)

	m.AddTool(mcp.NewTool("step_simulation",
		mcp.WithDescription("Step the simulation by delta cycles."),
		mcp.WithNumber("count", mcp.Description("Number of steps (default 1)")),
	), s.handleStepSimulation)

	m.AddTool(mcp.NewTool("add_breakpoint",
		mcp.WithDescription("Add a breakpoint on a signal edge or change."),
		mcp.WithString("signal", mcp.Required(), mcp.Description("Signal to break on")),
		mcp.WithString("condition", mcp.Description("posedge, negedge, or change (default)")),
	), s.handleAddBreakpoint)

	m.AddTool(mcp.NewTool("remove_breakpoints",
		mcp.WithDescription("Remove all breakpoints."),
	), s.handleRemoveBreakpoints)

	m.AddTool(mcp.NewTool("get_simulation_messages",
		mcp.WithDescription("Get simulation message counts, optionally by severity."),
		mcp.WithString("severity", mcp.Description("all (default) or a specific severity name")),
	), s.handleGetSimulationMessages)
}

func (s *Server) handleLaunchSimulation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "launch_simulation", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		mode := req.GetString("mode", "behavioral")
		simMode, ok := simulationModes[mode]
		if !ok {
			simMode = simulationModes["behavioral"]
		}

		result := s.session.Execute(ctx, "launch_simulation -mode "+simMode, 0)
		message := result.Output
		if message == "" {
			message = fmt.Sprintf("Simulation launched in %s mode", mode)
		}
		return map[string]any{
			"success":    result.Success,
			"message":    message,
			"elapsed_ms": result.ElapsedMS,
		}, nil
	})
}

func (s *Server) handleRunSimulation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "run_simulation", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		timeVal := req.GetString("time", "100ns")

		cmd := "run " + timeVal
		if strings.EqualFold(timeVal, "all") {
			cmd = "run -all"
		}
		result := s.session.Execute(ctx, cmd, 0)
		return map[string]any{
			"success":    result.Success,
			"output":     result.Output,
			"elapsed_ms": result.ElapsedMS,
		}, nil
	})
}

func (s *Server) handleRestartSimulation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "restart_simulation", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		result := s.session.Execute(ctx, "restart", 0)
		message := result.Output
		if result.Success {
			message = "Simulation restarted"
		}
		return map[string]any{
			"success":    result.Success,
			"message":    message,
			"elapsed_ms": result.ElapsedMS,
		}, nil
	})
}

func (s *Server) handleCloseSimulation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "close_simulation", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		result := s.session.Execute(ctx, "close_sim", 0)
		message := result.Output
		if result.Success {
			message = "Simulation closed"
		}
		return map[string]any{
			"success":    result.Success,
			"message":    message,
			"elapsed_ms": result.ElapsedMS,
		}, nil
	})
}

func (s *Server) handleGetSimulationTime(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "get_simulation_time", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		result := s.session.Execute(ctx, "current_time", 0)
		var simTime any
		if result.Success {
			simTime = strings.TrimSpace(result.Output)
		}
		return map[string]any{
			"success":    result.Success,
			"time":       simTime,
			"elapsed_ms": result.ElapsedMS,
		}, nil
	})
}

func (s *Server) handleGetSignalValue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "get_signal_value", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		signal, err := req.RequireString("signal")
		if err != nil {
			return nil, err
		}
		radix := req.GetString("radix", "hex")

		result := s.session.Execute(ctx,
			fmt.Sprintf("get_value -radix %s %s", radix, braced(signal)), 0)
		var value any
		if result.Success {
			value = strings.TrimSpace(result.Output)
		}
		return map[string]any{
			"success":    result.Success,
			"signal":     signal,
			"value":      value,
			"radix":      radix,
			"elapsed_ms": result.ElapsedMS,
		}, nil
	})
}

func (s *Server) handleGetSignalValues(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "get_signal_values", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		pattern := req.GetString("pattern", "/*")
		radix := req.GetString("radix", "hex")

		listRes := s.session.Execute(ctx,
			"get_objects -filter {TYPE == signal || TYPE == port} "+braced(pattern), 0)
		output := strings.TrimSpace(listRes.Output)
		if !listRes.Success || output == "" {
			return map[string]any{
				"success":    false,
				"error":      "No signals found matching pattern",
				"elapsed_ms": listRes.ElapsedMS,
			}, nil
		}

		signals := strings.Fields(output)
		if len(signals) > signalValueLimit {
			signals = signals[:signalValueLimit]
		}
		values := make(map[string]string, len(signals))
		for _, sig := range signals {
			valRes := s.session.Execute(ctx,
				fmt.Sprintf("get_value -radix %s %s", radix, braced(sig)), 0)
			if valRes.Success {
				values[sig] = strings.TrimSpace(valRes.Output)
			}
		}
		return map[string]any{
			"success":    true,
			"values":     values,
			"radix":      radix,
			"elapsed_ms": listRes.ElapsedMS,
		}, nil
	})
}

func (s *Server) handleAddSignalsToWave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "add_signals_to_wave", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		signals := req.GetStringSlice("signals", nil)
		if len(signals) == 0 {
			if single := req.GetString("signals", ""); single != "" {
				signals = []string{single}
			}
		}

		allOK := true
		results := make([]map[string]any, 0, len(signals))
		for _, sig := range signals {
			res := s.session.Execute(ctx, "add_wave "+braced(sig), 0)
			if !res.Success {
				allOK = false
			}
			results = append(results, map[string]any{"signal": sig, "success": res.Success})
		}
		return map[string]any{
			"success": allOK,
			"results": results,
		}, nil
	})
}

func (s *Server) handleSetSimulationTop(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "set_simulation_top", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		topModule, err := req.RequireString("top_module")
		if err != nil {
			return nil, err
		}
		fileset := req.GetString("fileset", "sim_1")

		result := s.session.Execute(ctx,
			fmt.Sprintf("set_property top %s [get_filesets %s]", topModule, fileset), 0)
		message := result.Output
		if result.Success {
			message = "Set simulation top to " + topModule
		}
		return map[string]any{
			"success":    result.Success,
			"message":    message,
			"elapsed_ms": result.ElapsedMS,
		}, nil
	})
}

func (s *Server) handleGetSimulationObjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "get_simulation_objects", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		scope := req.GetString("scope", "/")
		filter := req.GetString("filter", "all")

		filterStr, ok := objectFilters[filter]
		if !ok {
			filterStr = ""
		}
		cmd := "get_objects "
		if filterStr != "" {
			cmd += filterStr + " "
		}
		cmd += braced(scope + "/*")

		result := s.session.Execute(ctx, cmd, 0)
		objects := []string{}
		if out := strings.TrimSpace(result.Output); result.Success && out != "" {
			objects = strings.Fields(out)
		}
		return map[string]any{
			"success":    result.Success,
			"scope":      scope,
			"objects":    objects,
			"count":      len(objects),
			"elapsed_ms": result.ElapsedMS,
		}, nil
	})
}

func (s *Server) handleGetScopes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "get_scopes", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		parent := req.GetString("parent", "/")

		result := s.session.Execute(ctx, "get_scopes "+braced(parent+"/*"), 0)
		scopes := []string{}
		if out := strings.TrimSpace(result.Output); result.Success && out != "" {
			scopes = strings.Fields(out)
		}
		return map[string]any{
			"success":    result.Success,
			"parent":     parent,
			"scopes":     scopes,
			"count":      len(scopes),
			"elapsed_ms": result.ElapsedMS,
		}, nil
	})
}

func (s *Server) handleStepSimulation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "step_simulation", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		count := req.GetInt("count", 1)
		result := s.session.Execute(ctx, fmt.Sprintf("step %d", count), 0)
		return map[string]any{
			"success":    result.Success,
			"output":     result.Output,
			"elapsed_ms": result.ElapsedMS,
		}, nil
	})
}

func (s *Server) handleAddBreakpoint(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "add_breakpoint", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		signal, err := req.RequireString("signal")
		if err != nil {
			return nil, err
		}
		condition := req.GetString("condition", "change")

		condStr, ok := breakpointConditions[condition]
		if !ok {
			condStr = ""
		}
		cmd := "add_bp "
		if condStr != "" {
			cmd += condStr + " "
		}
		cmd += braced(signal)

		result := s.session.Execute(ctx, cmd, 0)
		message := result.Output
		if message == "" {
			message = "Breakpoint added on " + signal
		}
		return map[string]any{
			"success":    result.Success,
			"signal":     signal,
			"condition":  condition,
			"message":    message,
			"elapsed_ms": result.ElapsedMS,
		}, nil
	})
}

func (s *Server) handleRemoveBreakpoints(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "remove_breakpoints", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		result := s.session.Execute(ctx, "remove_bps -all", 0)
		message := result.Output
		if result.Success {
			message = "All breakpoints removed"
		}
		return map[string]any{
			"success":    result.Success,
			"message":    message,
			"elapsed_ms": result.ElapsedMS,
		}, nil
	})
}

func (s *Server) handleGetSimulationMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "get_simulation_messages", func(ctx context.Context, span trace.Span) (any, error) {
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		severity := req.GetString("severity", "all")

		cmd := "get_msg_config -count"
		if severity != "all" {
			cmd += " -severity " + braced(severity)
		}
		result := s.session.Execute(ctx, cmd, 0)
		return map[string]any{
			"success":    result.Success,
			"messages":   result.Output,
			"elapsed_ms": result.ElapsedMS,
		}, nil
	})
}
