package capture

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/eisenbruch/projector/internal/config"
	"github.com/eisenbruch/projector/pkg/ffmpeg"
)

// User-facing start/stop messages.
const (
	msgAlreadyRunning = "Already running"
	msgStarted        = "Started"
	msgPermissionHint = "Failed - grant Screen Recording permission to your terminal in System Settings."
	msgNoSegments     = "No segments generated - check screen recording permissions in System Settings."
)

// StartResult is the structured outcome of a start request.
type StartResult struct {
	OK      bool
	Message string
}

// Supervisor owns the single capture session. All mutations go through
// Start/Stop under the mutex, so overlapping HTTP requests cannot spawn a
// second process against one tracked handle.
type Supervisor struct {
	mu       sync.Mutex
	config   *config.Config
	runner   Runner
	session  *Session
	proc     Process
	onChange func(running bool)
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithRunner substitutes the process runner, used by tests.
func WithRunner(r Runner) Option {
	return func(s *Supervisor) { s.runner = r }
}

// WithListener registers a callback invoked on running-state transitions.
// The callback runs outside the supervisor lock.
func WithListener(fn func(running bool)) Option {
	return func(s *Supervisor) { s.onChange = fn }
}

func NewSupervisor(cfg *config.Config, opts ...Option) *Supervisor {
	s := &Supervisor{
		config: cfg,
		runner: execRunner{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Running reports whether a capture session is active.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

// Current returns a copy of the active session, if any.
func (s *Supervisor) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	session := *s.session
	return &session
}

// Start launches the capture process for the given source and blocks until
// the first manifest appears, the process dies, or the start timeout hits.
// Starting while a session is active is a no-op success.
func (s *Supervisor) Start(sourceID string) StartResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		return StartResult{OK: true, Message: msgAlreadyRunning}
	}

	if sourceID == "" {
		sourceID = s.config.DefaultSourceID
	}

	if err := prepareSegmentDir(s.config.HLSDir); err != nil {
		log.Printf("Failed to prepare segment directory: %v", err)
		return StartResult{OK: false, Message: msgPermissionHint}
	}

	args := ffmpeg.CaptureArgs(ffmpeg.CaptureOptions{
		SourceID:   sourceID,
		FrameRate:  s.config.FrameRate,
		SegmentDir: s.config.HLSDir,
	})
	proc, err := s.runner.Start(s.config.FFmpegPath, args, s.config.StderrTailLen)
	if err != nil {
		log.Printf("Failed to launch %s: %v", s.config.FFmpegPath, err)
		return StartResult{OK: false, Message: msgPermissionHint}
	}

	if res := s.awaitFirstManifest(proc); !res.OK {
		return res
	}

	s.session = &Session{
		ID:        uuid.New(),
		PID:       proc.Pid(),
		SourceID:  sourceID,
		StartedAt: time.Now(),
	}
	s.proc = proc
	go s.reap(proc)
	s.notify(true)
	log.Printf("Capture started: source=%s pid=%d", sourceID, proc.Pid())
	return StartResult{OK: true, Message: msgStarted}
}

// awaitFirstManifest waits for the capture process to write its first
// playlist. An fsnotify watch on the segment directory catches it promptly;
// a coarse poll tick backs the watch up, and a deadline bounds the whole
// wait. Called with the supervisor lock held.
func (s *Supervisor) awaitFirstManifest(proc Process) StartResult {
	manifest := filepath.Join(s.config.HLSDir, ffmpeg.ManifestName)

	var watchEvents chan fsnotify.Event
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		if err := watcher.Add(s.config.HLSDir); err == nil {
			watchEvents = watcher.Events
		}
	}

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(s.config.StartTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-proc.Done():
			log.Printf("Capture process exited early. stderr:\n%s", proc.StderrTail())
			return StartResult{OK: false, Message: msgPermissionHint}
		case event := <-watchEvents:
			if event.Name == manifest && event.Op.Has(fsnotify.Create) {
				return StartResult{OK: true, Message: msgStarted}
			}
		case <-ticker.C:
			if _, err := os.Stat(manifest); err == nil {
				return StartResult{OK: true, Message: msgStarted}
			}
		case <-deadline.C:
			// Alive but silent, likely a timestamp or permission issue.
			if err := proc.Terminate(); err != nil {
				proc.Kill()
			}
			if !proc.Wait(s.config.StopTimeout) {
				proc.Kill()
				proc.Wait(s.config.StopTimeout)
			}
			log.Printf("Capture process produced no segments. stderr:\n%s", proc.StderrTail())
			return StartResult{OK: false, Message: msgNoSegments}
		}
	}
}

// Stop ends the active session, if any. Idempotent.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Supervisor) stopLocked() {
	if s.proc != nil {
		s.proc.Kill()
		s.proc.Wait(s.config.StopTimeout)
	}
	wasRunning := s.session != nil
	if wasRunning {
		log.Printf("Capture stopped: pid=%d", s.session.PID)
	}
	s.session = nil
	s.proc = nil
	if wasRunning {
		s.notify(false)
	}
}

// reap clears the handle when the process dies on its own, so status flips
// back to idle without an explicit stop.
func (s *Supervisor) reap(proc Process) {
	<-proc.Done()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc != proc {
		return
	}
	log.Printf("Capture process exited: pid=%d. stderr:\n%s", s.session.PID, proc.StderrTail())
	s.session = nil
	s.proc = nil
	s.notify(false)
}

func (s *Supervisor) notify(running bool) {
	if s.onChange != nil {
		go s.onChange(running)
	}
}

// prepareSegmentDir recreates the segment directory so every start begins
// with an empty playlist namespace.
func prepareSegmentDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}
