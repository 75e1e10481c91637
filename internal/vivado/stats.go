package vivado

import (
	"sync"
	"time"

	"github.com/coreyhahn/vivado-mcp/internal/domain"
)

// historyCap bounds the command history. Old entries drop when exceeded.
const historyCap = 100

// sessionStats accumulates counters and a bounded command history for
// one session lifetime. Thread-safe.
type sessionStats struct {
	mu sync.Mutex

	commandsRun        int
	totalCommandTimeMS float64
	errors             int
	sessionStart       *time.Time
	history            []domain.HistoryEntry
}

func newSessionStats() *sessionStats {
	return &sessionStats{}
}

// markStarted records the session start time.
func (s *sessionStats) markStarted(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionStart = &at
}

// record tallies one completed command.
func (s *sessionStats) record(res domain.CommandResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commandsRun++
	s.totalCommandTimeMS += res.ElapsedMS
	if !res.Success {
		s.errors++
	}

	s.history = append(s.history, domain.HistoryEntry{
		Command:   res.Command,
		Success:   res.Success,
		ElapsedMS: res.ElapsedMS,
		Timestamp: res.Timestamp,
	})
	if len(s.history) > historyCap {
		s.history = s.history[len(s.history)-historyCap:]
	}
}

// snapshot returns a value copy of the current counters and history.
// Mutating the returned slice does not affect the live stats.
func (s *sessionStats) snapshot() domain.StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.StatsSnapshot{
		CommandsRun:        s.commandsRun,
		TotalCommandTimeMS: s.totalCommandTimeMS,
		Errors:             s.errors,
	}
	if s.sessionStart != nil {
		start := *s.sessionStart
		snap.SessionStart = &start
	}
	if s.commandsRun > 0 {
		snap.AvgCommandTimeMS = s.totalCommandTimeMS / float64(s.commandsRun)
	}
	snap.RecentHistory = make([]domain.HistoryEntry, len(s.history))
	copy(snap.RecentHistory, s.history)
	return snap
}
