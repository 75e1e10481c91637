package vivado

import (
	"context"
	"log/slog"
	"sync"

	"github.com/coreyhahn/vivado-mcp/internal/infra/config"
)

// Registry hands out the single shared session. Only one tool process
// should run at a time; every caller that asks the registry gets the
// same instance, created lazily on first access.
type Registry struct {
	cfg config.VivadoConfig
	log *slog.Logger

	mu      sync.Mutex
	session *Session
}

func NewRegistry(cfg config.VivadoConfig, log *slog.Logger) *Registry {
	return &Registry{cfg: cfg, log: log}
}

// Get returns the shared session, creating it if needed. The session is
// not started; callers start it explicitly.
func (r *Registry) Get() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		r.session = NewSession(r.cfg, r.log)
	}
	return r.session
}

// Reset stops the current session if one exists and discards it. The
// next Get creates a fresh instance with zeroed statistics.
func (r *Registry) Reset(ctx context.Context) {
	r.mu.Lock()
	s := r.session
	r.session = nil
	r.mu.Unlock()

	if s != nil {
		s.Stop(ctx)
	}
}
