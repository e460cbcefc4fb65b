package capture

import (
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Runner launches the external capture process. The production runner wraps
// exec.Cmd; tests substitute fakes to drive the failure paths.
type Runner interface {
	Start(name string, args []string, stderrTailLen int) (Process, error)
}

// Process is a handle to a launched capture process.
type Process interface {
	Pid() int
	// Done is closed once the process has exited and been reaped.
	Done() <-chan struct{}
	// StderrTail returns the tail of the process's stderr output so far.
	StderrTail() string
	// Terminate asks the process to exit.
	Terminate() error
	// Kill forcibly ends the process.
	Kill() error
	// Wait blocks until the process exits or the timeout elapses. It returns
	// false if the process was still alive when the timeout hit.
	Wait(timeout time.Duration) bool
}

type execRunner struct{}

func (execRunner) Start(name string, args []string, stderrTailLen int) (Process, error) {
	cmd := exec.Command(name, args...)
	tail := newTailWriter(stderrTailLen)
	cmd.Stdout = io.Discard
	cmd.Stderr = tail
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	p := &execProcess{
		cmd:  cmd,
		tail: tail,
		done: make(chan struct{}),
	}
	go func() {
		cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

type execProcess struct {
	cmd  *exec.Cmd
	tail *tailWriter
	done chan struct{}
}

func (p *execProcess) Pid() int { return p.cmd.Process.Pid }

func (p *execProcess) Done() <-chan struct{} { return p.done }

func (p *execProcess) StderrTail() string { return p.tail.String() }

func (p *execProcess) Terminate() error { return p.cmd.Process.Signal(syscall.SIGTERM) }

func (p *execProcess) Kill() error { return p.cmd.Process.Kill() }

func (p *execProcess) Wait(timeout time.Duration) bool {
	select {
	case <-p.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// tailWriter keeps the last limit bytes written to it. ffmpeg is chatty on
// stderr; only the tail is useful for diagnostics.
type tailWriter struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func newTailWriter(limit int) *tailWriter {
	return &tailWriter{limit: limit}
}

func (t *tailWriter) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.limit {
		t.buf = t.buf[len(t.buf)-t.limit:]
	}
	return len(p), nil
}

func (t *tailWriter) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
