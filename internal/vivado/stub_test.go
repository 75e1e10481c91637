package vivado

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coreyhahn/vivado-mcp/internal/infra/config"
)

// writeStubShell creates a shell script that behaves like the tool's
// interactive TCL mode: startup banner, command echo, a prompt after
// every command, and a handful of canned commands the tests drive.
func writeStubShell(t *testing.T) string {
	t.Helper()

	script := `#!/bin/sh
printf 'stub tool v0.1\n'
printf 'Start of session\n'
while IFS= read -r line; do
  printf '%s\n' "$line"
  case "$line" in
    exit) exit 0 ;;
    'puts {HEALTH_OK}') printf 'HEALTH_OK\n' ;;
    'sleepy '*) sleep "${line#sleepy }" ;;
    fail) printf 'ERROR: [Test 1-1] forced failure\n' ;;
    'puts hello') printf 'hello\n' ;;
    report) printf 'Design Timing Summary\nWNS(ns): 0.123\n' ;;
    wedge) exec sleep 60 ;;
  esac
  printf 'Vivado%% \n'
done
`
	path := filepath.Join(t.TempDir(), "vivado-stub")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func testConfig(path string) config.VivadoConfig {
	return config.VivadoConfig{
		Path:           path,
		DefaultTimeout: 5 * time.Second,
		StartupTimeout: 10 * time.Second,
		HealthTimeout:  2 * time.Second,
		StopTimeout:    5 * time.Second,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestSession starts a session against the stub shell and registers
// cleanup so the child never outlives the test.
func newTestSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession(testConfig(writeStubShell(t)), testLogger())
	res := s.Start(t.Context())
	if !res.Success {
		t.Fatalf("Start failed: %s", res.Output)
	}
	// t.Context is already canceled once cleanups run, so stop with a
	// fresh context to keep shutdown graceful.
	t.Cleanup(func() { s.Stop(context.Background()) })
	return s
}
