package domain

import "time"

// SessionState represents the lifecycle state of the Vivado session.
type SessionState string

const (
	SessionNotStarted SessionState = "not_started"
	SessionRunning    SessionState = "running"
	SessionStopped    SessionState = "stopped"
)

// CommandResult is the outcome of executing a single TCL command against the
// Vivado session. Produced once per Execute call and never mutated afterwards.
type CommandResult struct {
	Command   string        `json:"command"`
	Output    string        `json:"output"`
	Success   bool          `json:"success"`
	Elapsed   time.Duration `json:"-"`
	ElapsedMS float64       `json:"elapsed_ms"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewCommandResult builds a CommandResult stamped with the current time.
func NewCommandResult(command, output string, success bool, elapsed time.Duration) CommandResult {
	return CommandResult{
		Command:   command,
		Output:    output,
		Success:   success,
		Elapsed:   elapsed,
		ElapsedMS: float64(elapsed.Microseconds()) / 1000.0,
		Timestamp: time.Now(),
	}
}

// HistoryEntry is one completed command in the bounded session history.
type HistoryEntry struct {
	Command   string    `json:"command"`
	Success   bool      `json:"success"`
	ElapsedMS float64   `json:"elapsed_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// StatsSnapshot is a read-only copy of session statistics. The session hands
// out value copies, never a live reference, so callers cannot observe torn
// updates.
type StatsSnapshot struct {
	IsRunning          bool           `json:"is_running"`
	SessionID          string         `json:"session_id,omitempty"`
	CurrentProject     string         `json:"current_project,omitempty"`
	SessionStart       *time.Time     `json:"session_start,omitempty"`
	CommandsRun        int            `json:"commands_run"`
	TotalCommandTimeMS float64        `json:"total_command_time_ms"`
	Errors             int            `json:"errors"`
	AvgCommandTimeMS   float64        `json:"avg_command_time_ms"`
	RecentHistory      []HistoryEntry `json:"command_history"`
}
