package capture

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eisenbruch/projector/internal/config"
	"github.com/eisenbruch/projector/pkg/ffmpeg"
)

type fakeProcess struct {
	pid    int
	stderr string

	exitOnce   sync.Once
	done       chan struct{}
	mu         sync.Mutex
	terminated bool
	killed     bool
}

func newFakeProcess() *fakeProcess {
	return &fakeProcess{pid: 4242, done: make(chan struct{})}
}

func (p *fakeProcess) exit() {
	p.exitOnce.Do(func() { close(p.done) })
}

func (p *fakeProcess) Pid() int { return p.pid }

func (p *fakeProcess) Done() <-chan struct{} { return p.done }

func (p *fakeProcess) StderrTail() string { return p.stderr }

func (p *fakeProcess) Terminate() error {
	p.mu.Lock()
	p.terminated = true
	p.mu.Unlock()
	p.exit()
	return nil
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.exit()
	return nil
}

func (p *fakeProcess) Wait(timeout time.Duration) bool {
	select {
	case <-p.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (p *fakeProcess) wasTerminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminated || p.killed
}

type fakeRunner struct {
	mu       sync.Mutex
	starts   int
	lastArgs []string
	onStart  func(p *fakeProcess)
}

func (r *fakeRunner) Start(name string, args []string, stderrTailLen int) (Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
	r.lastArgs = args
	p := newFakeProcess()
	if r.onStart != nil {
		r.onStart(p)
	}
	return p, nil
}

func (r *fakeRunner) startCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts
}

func (r *fakeRunner) argString() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.lastArgs, " ")
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.HLSDir = filepath.Join(t.TempDir(), "stream")
	cfg.StartTimeout = 500 * time.Millisecond
	cfg.PollInterval = 10 * time.Millisecond
	cfg.StopTimeout = 100 * time.Millisecond
	return cfg
}

// writeManifest simulates the capture process producing its first playlist.
func writeManifest(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ffmpeg.ManifestName), []byte("#EXTM3U\n"), 0644))
}

func TestStartSuccess(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{onStart: func(p *fakeProcess) {
		writeManifest(t, cfg.HLSDir)
	}}
	sup := NewSupervisor(cfg, WithRunner(runner))

	result := sup.Start("2")
	require.True(t, result.OK)
	assert.Equal(t, "Started", result.Message)
	assert.True(t, sup.Running())

	session := sup.Current()
	require.NotNil(t, session)
	assert.Equal(t, "2", session.SourceID)
	assert.Equal(t, 4242, session.PID)
}

func TestStartTwiceIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{onStart: func(p *fakeProcess) {
		writeManifest(t, cfg.HLSDir)
	}}
	sup := NewSupervisor(cfg, WithRunner(runner))

	first := sup.Start("2")
	require.True(t, first.OK)

	second := sup.Start("2")
	require.True(t, second.OK)
	assert.Equal(t, "Already running", second.Message)
	assert.Equal(t, 1, runner.startCount())
}

func TestStartUsesDefaultSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.DefaultSourceID = "7"
	runner := &fakeRunner{onStart: func(p *fakeProcess) {
		writeManifest(t, cfg.HLSDir)
	}}
	sup := NewSupervisor(cfg, WithRunner(runner))

	result := sup.Start("")
	require.True(t, result.OK)
	assert.Contains(t, runner.argString(), "7:none")
	assert.Equal(t, "7", sup.Current().SourceID)
}

func TestStartRecreatesSegmentDir(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.HLSDir, 0755))
	stale := filepath.Join(cfg.HLSDir, "seg999.ts")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	runner := &fakeRunner{onStart: func(p *fakeProcess) {
		writeManifest(t, cfg.HLSDir)
	}}
	sup := NewSupervisor(cfg, WithRunner(runner))

	require.True(t, sup.Start("2").OK)
	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestStartFailsOnEarlyExit(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{onStart: func(p *fakeProcess) {
		p.stderr = "avfoundation: operation not permitted"
		p.exit()
	}}
	sup := NewSupervisor(cfg, WithRunner(runner))

	result := sup.Start("2")
	require.False(t, result.OK)
	assert.Equal(t, msgPermissionHint, result.Message)
	assert.False(t, sup.Running())
}

func TestStartFailsWhenNoSegmentsAppear(t *testing.T) {
	cfg := testConfig(t)
	cfg.StartTimeout = 150 * time.Millisecond

	var proc *fakeProcess
	runner := &fakeRunner{onStart: func(p *fakeProcess) {
		proc = p // alive, never writes anything
	}}
	sup := NewSupervisor(cfg, WithRunner(runner))

	result := sup.Start("2")
	require.False(t, result.OK)
	assert.Equal(t, msgNoSegments, result.Message)
	assert.False(t, sup.Running())
	assert.True(t, proc.wasTerminated())
}

func TestStopWhenIdleIsNoOp(t *testing.T) {
	sup := NewSupervisor(testConfig(t), WithRunner(&fakeRunner{}))
	sup.Stop()
	sup.Stop()
	assert.False(t, sup.Running())
}

func TestStopEndsSession(t *testing.T) {
	cfg := testConfig(t)
	var proc *fakeProcess
	runner := &fakeRunner{onStart: func(p *fakeProcess) {
		proc = p
		writeManifest(t, cfg.HLSDir)
	}}
	sup := NewSupervisor(cfg, WithRunner(runner))

	require.True(t, sup.Start("2").OK)
	sup.Stop()

	assert.False(t, sup.Running())
	assert.Nil(t, sup.Current())
	assert.True(t, proc.wasTerminated())

	// Stopping again stays harmless.
	sup.Stop()
}

func TestRestartAfterStopSpawnsNewProcess(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{onStart: func(p *fakeProcess) {
		writeManifest(t, cfg.HLSDir)
	}}
	sup := NewSupervisor(cfg, WithRunner(runner))

	require.True(t, sup.Start("2").OK)
	sup.Stop()
	require.True(t, sup.Start("2").OK)
	assert.Equal(t, 2, runner.startCount())
}

func TestSessionClearedWhenProcessDies(t *testing.T) {
	cfg := testConfig(t)
	var proc *fakeProcess
	runner := &fakeRunner{onStart: func(p *fakeProcess) {
		proc = p
		writeManifest(t, cfg.HLSDir)
	}}
	sup := NewSupervisor(cfg, WithRunner(runner))

	require.True(t, sup.Start("2").OK)
	proc.exit()

	assert.Eventually(t, func() bool { return !sup.Running() },
		time.Second, 10*time.Millisecond)
}

func TestListenerSeesTransitions(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{onStart: func(p *fakeProcess) {
		writeManifest(t, cfg.HLSDir)
	}}
	transitions := make(chan bool, 4)
	sup := NewSupervisor(cfg, WithRunner(runner),
		WithListener(func(running bool) { transitions <- running }))

	require.True(t, sup.Start("2").OK)
	select {
	case running := <-transitions:
		assert.True(t, running)
	case <-time.After(time.Second):
		t.Fatal("no transition after start")
	}

	sup.Stop()
	select {
	case running := <-transitions:
		assert.False(t, running)
	case <-time.After(time.Second):
		t.Fatal("no transition after stop")
	}
}

func TestConcurrentStartsSpawnOneProcess(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{onStart: func(p *fakeProcess) {
		writeManifest(t, cfg.HLSDir)
	}}
	sup := NewSupervisor(cfg, WithRunner(runner))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := sup.Start("2")
			assert.True(t, result.OK)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, runner.startCount())
	assert.True(t, sup.Running())
}
