package vivado

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/coreyhahn/vivado-mcp/internal/domain"
)

// TimeoutError is returned by Await when the pattern did not appear in
// time. Captured holds everything read so far; the child keeps running
// and the caller decides whether to recover.
type TimeoutError struct {
	Pattern  string
	Captured string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for %q (%d bytes captured)", e.Pattern, len(e.Captured))
}

func (e *TimeoutError) Unwrap() error { return domain.ErrTimeout }

// Handle owns a child process attached to a pseudo-terminal. A reader
// goroutine accumulates everything the child writes; Await consumes the
// accumulated text up to a marker pattern.
//
// Handle itself does no command framing. Session layers the
// prompt-synchronized protocol on top.
type Handle struct {
	cmd *exec.Cmd
	tty *os.File

	mu      sync.Mutex
	cond    *sync.Cond
	buf     []byte
	readErr error

	done chan struct{}
}

// Spawn starts the program under a pseudo-terminal and begins capturing
// its output.
func Spawn(path string, args ...string) (*Handle, error) {
	cmd := exec.Command(path, args...)
	tty, err := pty.Start(cmd)
	if err != nil {
		return nil, domain.NewDomainError("vivado.Spawn", domain.ErrSpawnFailed, err.Error())
	}
	disableEcho(tty)

	h := &Handle{
		cmd:  cmd,
		tty:  tty,
		done: make(chan struct{}),
	}
	h.cond = sync.NewCond(&h.mu)
	go h.readLoop()
	return h, nil
}

// disableEcho turns off terminal echo so the capture contains only what
// the child writes, not a line-discipline copy of our input. Best effort;
// some platforms reject termios on the master side.
func disableEcho(tty *os.File) {
	fd := int(tty.Fd())
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return
	}
	t.Lflag &^= unix.ECHO
	_ = unix.IoctlSetTermios(fd, unix.TCSETS, t)
}

func (h *Handle) readLoop() {
	chunk := make([]byte, 32*1024)
	for {
		n, err := h.tty.Read(chunk)
		h.mu.Lock()
		if n > 0 {
			h.buf = append(h.buf, chunk[:n]...)
		}
		if err != nil {
			h.readErr = err
			h.cond.Broadcast()
			h.mu.Unlock()
			close(h.done)
			return
		}
		h.cond.Broadcast()
		h.mu.Unlock()
	}
}

// WriteLine sends one line of input to the child.
func (h *Handle) WriteLine(line string) error {
	if _, err := h.tty.Write([]byte(line + "\n")); err != nil {
		return domain.WrapOp("vivado.WriteLine", err)
	}
	return nil
}

// Await blocks until the accumulated output contains pattern, the child
// closes its terminal, or ctx expires. On success it returns everything
// before the pattern and consumes the buffer through it. On timeout it
// returns a *TimeoutError carrying the captured text; the buffer is left
// intact so a later Drain or Await sees it.
func (h *Handle) Await(ctx context.Context, pattern string) (string, error) {
	needle := []byte(pattern)

	h.mu.Lock()
	defer h.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		h.mu.Lock()
		h.cond.Broadcast()
		h.mu.Unlock()
	})
	defer stop()

	for {
		if idx := bytes.Index(h.buf, needle); idx >= 0 {
			before := string(h.buf[:idx])
			h.buf = h.buf[idx+len(needle):]
			return before, nil
		}
		if h.readErr != nil {
			captured := string(h.buf)
			h.buf = nil
			return captured, domain.NewDomainError("vivado.Await", domain.ErrChannelClosed, h.readErr.Error())
		}
		if ctx.Err() != nil {
			return string(h.buf), &TimeoutError{Pattern: pattern, Captured: string(h.buf)}
		}
		h.cond.Wait()
	}
}

// AwaitExit blocks until the child closes its terminal or ctx expires,
// returning any remaining output.
func (h *Handle) AwaitExit(ctx context.Context) (string, error) {
	select {
	case <-h.done:
	case <-ctx.Done():
		h.mu.Lock()
		captured := string(h.buf)
		h.mu.Unlock()
		return captured, &TimeoutError{Pattern: "EOF", Captured: captured}
	}
	h.mu.Lock()
	remaining := string(h.buf)
	h.buf = nil
	h.mu.Unlock()
	return remaining, nil
}

// Drain discards anything the child has written that nobody consumed.
// Called before sending a command so stale output from earlier
// operations cannot be attributed to it.
func (h *Handle) Drain() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	drained := string(h.buf)
	h.buf = nil
	return drained
}

// Alive reports whether the child's terminal is still open.
func (h *Handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Kill forcibly terminates the child and reaps it.
func (h *Handle) Kill() error {
	if h.cmd.Process != nil {
		_ = h.cmd.Process.Kill()
	}
	_ = h.tty.Close()
	<-h.done
	_ = h.cmd.Wait()
	return nil
}

// Reap closes the terminal and collects the exit status after the child
// has already exited on its own.
func (h *Handle) Reap() error {
	_ = h.tty.Close()
	return h.cmd.Wait()
}
