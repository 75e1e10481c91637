package vivado

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/coreyhahn/vivado-mcp/internal/domain"
	"github.com/coreyhahn/vivado-mcp/internal/infra/config"
)

// startupBanner is printed once the tool has finished loading and is
// about to hand control to the TCL shell.
const startupBanner = "Start of session"

// healthMarker is echoed back by the health probe. It never appears in
// normal tool output.
const healthMarker = "HEALTH_OK"

// Session manages one long-lived interactive TCL process. The process is
// started once and kept alive between commands, avoiding the tool's slow
// startup for every request and preserving in-tool state such as the
// open project.
//
// All methods are safe for concurrent use. Command execution is
// serialized: the interactive shell can only service one command at a
// time, so concurrent callers queue on an internal mutex.
type Session struct {
	cfg config.VivadoConfig
	log *slog.Logger

	mu             sync.Mutex
	handle         *Handle
	state          domain.SessionState
	id             string
	currentProject string
	stats          *sessionStats
}

// NewSession creates a session in the NotStarted state. No process is
// spawned until Start is called.
func NewSession(cfg config.VivadoConfig, log *slog.Logger) *Session {
	return &Session{
		cfg:   cfg,
		log:   log,
		state: domain.SessionNotStarted,
		stats: newSessionStats(),
	}
}

func newSessionID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// Start spawns the tool in interactive TCL mode and waits until it is
// ready to accept commands. Already-running sessions report success
// immediately without restarting.
func (s *Session) Start(ctx context.Context) domain.CommandResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.SessionRunning {
		return domain.NewCommandResult("start", "Session already running", true, 0)
	}

	began := time.Now()

	h, err := Spawn(s.cfg.Path, "-mode", "tcl", "-nojournal", "-nolog")
	if err != nil {
		s.log.Error("spawn failed", "path", s.cfg.Path, "error", err)
		return domain.NewCommandResult("start",
			fmt.Sprintf("Failed to start Vivado: %v", err), false, time.Since(began))
	}

	bannerCtx, cancel := context.WithTimeout(ctx, s.cfg.StartupTimeout)
	defer cancel()
	if _, err := h.Await(bannerCtx, startupBanner); err != nil {
		_ = h.Kill()
		s.log.Error("startup banner not seen", "error", err)
		return domain.NewCommandResult("start",
			"Failed to start Vivado: Timeout waiting for startup", false, time.Since(began))
	}

	// Let the trailing banner output land, then discard it so the
	// readiness probe starts from a clean buffer.
	time.Sleep(time.Second)
	h.Drain()

	// An empty line makes the shell print a fresh prompt, confirming it
	// is actually servicing input.
	if err := h.WriteLine(""); err != nil {
		_ = h.Kill()
		return domain.NewCommandResult("start",
			fmt.Sprintf("Failed to start Vivado: %v", err), false, time.Since(began))
	}
	probeCtx, cancelProbe := context.WithTimeout(ctx, 10*time.Second)
	defer cancelProbe()
	if _, err := h.Await(probeCtx, promptToken); err != nil {
		_ = h.Kill()
		s.log.Error("readiness probe failed", "error", err)
		return domain.NewCommandResult("start",
			"Failed to start Vivado: Timeout waiting for startup", false, time.Since(began))
	}

	s.handle = h
	s.state = domain.SessionRunning
	s.id = newSessionID()
	s.stats.markStarted(time.Now())
	s.log.Info("session started", "session_id", s.id, "elapsed", time.Since(began))

	return domain.NewCommandResult("start", "Vivado session started successfully", true, time.Since(began))
}

// Execute sends one TCL command and captures its output up to the next
// prompt. timeoutOverride replaces the configured default when positive;
// long flow operations pass their own budget here.
//
// A timed-out command leaves the child running. The output already read
// is lost to this call but will be drained before the next one.
func (s *Session) Execute(ctx context.Context, command string, timeoutOverride time.Duration) domain.CommandResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.SessionRunning {
		return domain.NewCommandResult(command,
			"Vivado session not running. Call start() first.", false, 0)
	}

	began := time.Now()

	if drained := s.handle.Drain(); drained != "" {
		s.log.Debug("drained stale output", "bytes", len(drained))
	}

	if err := s.handle.WriteLine(command); err != nil {
		result := domain.NewCommandResult(command,
			fmt.Sprintf("Error executing command: %v", err), false, time.Since(began))
		s.stats.record(result)
		return result
	}

	effective := s.cfg.DefaultTimeout
	if timeoutOverride > 0 {
		effective = timeoutOverride
	}
	cmdCtx, cancel := context.WithTimeout(ctx, effective)
	defer cancel()

	raw, err := s.handle.Await(cmdCtx, promptToken)
	if err != nil {
		var result domain.CommandResult
		var te *TimeoutError
		if errors.As(err, &te) {
			s.log.Warn("command timed out", "command", command, "timeout", effective)
			result = domain.NewCommandResult(command,
				fmt.Sprintf("Command timed out after %gs", effective.Seconds()), false, time.Since(began))
		} else {
			s.log.Error("command failed", "command", command, "error", err)
			result = domain.NewCommandResult(command,
				fmt.Sprintf("Error executing command: %v", err), false, time.Since(began))
		}
		s.stats.record(result)
		return result
	}

	output := FrameOutput(raw, command)
	c := Classify(output)
	result := domain.NewCommandResult(command, output, !c.ActualFailure(), time.Since(began))
	s.stats.record(result)
	return result
}

// Stop shuts the session down. It asks the shell to exit, waits briefly
// for the process to leave on its own, and force-kills it otherwise.
// Stop always reports success and is safe to call on a stopped session.
func (s *Session) Stop(ctx context.Context) domain.CommandResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.SessionRunning {
		return domain.NewCommandResult("stop", "Session not running", true, 0)
	}

	began := time.Now()

	graceful := true
	if err := s.handle.WriteLine("exit"); err != nil {
		graceful = false
	} else {
		exitCtx, cancel := context.WithTimeout(ctx, s.cfg.StopTimeout)
		if _, err := s.handle.AwaitExit(exitCtx); err != nil {
			graceful = false
		}
		cancel()
	}

	if graceful {
		_ = s.handle.Reap()
	} else {
		s.log.Warn("graceful exit failed, killing process", "session_id", s.id)
		_ = s.handle.Kill()
	}

	s.handle = nil
	s.state = domain.SessionStopped
	s.currentProject = ""
	s.log.Info("session stopped", "session_id", s.id, "elapsed", time.Since(began))

	return domain.NewCommandResult("stop", "Vivado session stopped", true, time.Since(began))
}

// IsHealthy probes the shell with a trivial command and reports whether
// it responds in time. A hung or dead process fails the probe.
func (s *Session) IsHealthy(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.SessionRunning || s.handle == nil {
		return false
	}

	s.handle.Drain()
	if err := s.handle.WriteLine(fmt.Sprintf("puts {%s}", healthMarker)); err != nil {
		return false
	}

	markerCtx, cancel := context.WithTimeout(ctx, s.cfg.HealthTimeout)
	defer cancel()
	if _, err := s.handle.Await(markerCtx, healthMarker); err != nil {
		return false
	}
	promptCtx, cancelPrompt := context.WithTimeout(ctx, s.cfg.HealthTimeout)
	defer cancelPrompt()
	if _, err := s.handle.Await(promptCtx, promptToken); err != nil {
		return false
	}
	return true
}

// EnsureHealthy checks responsiveness and performs one recovery attempt
// (stop then start) if the probe fails. The result of the restart is
// returned as-is; there is no retry loop.
func (s *Session) EnsureHealthy(ctx context.Context) domain.CommandResult {
	if s.IsHealthy(ctx) {
		return domain.NewCommandResult("health_check", "Session healthy", true, 0)
	}
	s.log.Warn("session unhealthy, restarting")
	s.Stop(ctx)
	return s.Start(ctx)
}

// SetExecutablePath overrides the configured executable for the next
// Start. Ignored while the session is running and for empty paths.
func (s *Session) SetExecutablePath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if path != "" && s.state != domain.SessionRunning {
		s.cfg.Path = path
	}
}

// State returns the current lifecycle state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID returns the identifier assigned at the most recent Start, or empty
// if the session never started.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// CurrentProject returns the path of the project opened through this
// session, or empty when none is open.
func (s *Session) CurrentProject() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentProject
}

// SetCurrentProject records the project path after a successful open.
func (s *Session) SetCurrentProject(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentProject = path
}

// ClearCurrentProject forgets the open project after a close.
func (s *Session) ClearCurrentProject() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentProject = ""
}

// Stats returns a point-in-time copy of the session statistics.
func (s *Session) Stats() domain.StatsSnapshot {
	s.mu.Lock()
	running := s.state == domain.SessionRunning
	id := s.id
	project := s.currentProject
	s.mu.Unlock()

	snap := s.stats.snapshot()
	snap.IsRunning = running
	snap.SessionID = id
	snap.CurrentProject = project
	return snap
}
