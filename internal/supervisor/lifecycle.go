package supervisor

import (
	"context"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Atlas-Launcher/runner/internal/atlaserr"
	"github.com/Atlas-Launcher/runner/internal/backup"
	"github.com/Atlas-Launcher/runner/internal/marker"
	"github.com/Atlas-Launcher/runner/internal/pack"
	"github.com/Atlas-Launcher/runner/internal/procutil"
	"github.com/Atlas-Launcher/runner/internal/rcon"
	"github.com/Atlas-Launcher/runner/internal/stage"
)


// DefaultGrace is the default time Stop waits for a cooperative shutdown
// before escalating to a termination signal.
const DefaultGrace = 30 * time.Second

// killGrace bounds how long Stop waits after sending SIGTERM before
// escalating to SIGKILL.
const killGrace = 10 * time.Second

// CrashLoopThreshold is the uptime below which a non-zero exit is
// classified Crashed rather than Exited.
const CrashLoopThreshold = 30 * time.Second

// StartDeps bundles everything Start needs beyond the pack bytes: the
// apply pipeline's configuration and the background tasks to kick off
// the first time a server in this root starts.
type StartDeps struct {
	StageConfig   stage.Config
	BackupEngine  backup.Engine
	OnLifecycle   func(event string)
	OnLog         func(LogLine)
	Now           func() int64
}

func (d StartDeps) now() int64 {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UnixMilli()
}

// Start decodes packBytes, runs the apply pipeline, spawns the resulting
// launch plan, and starts the singleton background tasks (child monitor,
// daily backup scheduler) on first use.
func (s *SharedState) Start(ctx context.Context, deps StartDeps, profile string, packBytes []byte) (ServerStatus, error) {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	s.mu.Lock()
	if s.status == Starting || s.status == Running || s.status == Stopping {
		current := s.status
		s.mu.Unlock()
		return ServerStatus{}, atlaserr.Newf(atlaserr.ServerAlreadyRunning, "server is %s", current)
	}
	s.status = Starting
	s.mu.Unlock()

	blob, err := pack.Decode(packBytes)
	if err != nil {
		s.setIdle()
		return ServerStatus{}, err
	}

	outcome, err := stage.Apply(ctx, deps.StageConfig, blob)
	if err != nil {
		s.setIdle()
		return ServerStatus{}, err
	}

	cwd := filepath.Join(deps.StageConfig.ServerRoot, "current", outcome.Launch.CwdRel)
	writer := newRingWriter(s.logs, deps.OnLog)
	child, err := procutil.Start(outcome.Launch.Argv, cwd, writer)
	if err != nil {
		s.setIdle()
		return ServerStatus{}, err
	}

	startedAt := deps.now()
	s.mu.Lock()
	s.profile = profile
	s.child = child
	s.logWriter = writer
	s.launchPlan = outcome.Launch
	s.lastStartMs = startedAt
	s.status = Running
	s.restartDisabled = false
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if deps.OnLifecycle != nil {
		deps.OnLifecycle("ServerSpawned")
	}

	if s.TryMarkOnce(s.monitorFlag()) {
		go RunMonitor(context.Background(), s, deps)
	}
	if s.TryMarkOnce(s.schedFlag()) {
		go deps.BackupEngine.RunDailyScheduler(context.Background())
	}

	return snap, nil
}

// Stop marks Stopping, attempts a cooperative RCON "stop", waits up to
// grace for the child to exit, and escalates to a termination signal if
// it is still alive. If force is set, the cooperative RCON stop is
// skipped and the child is sent SIGTERM and then SIGKILL without waiting
// out either grace period.
func (s *SharedState) Stop(ctx context.Context, grace time.Duration, force bool) (ServerStatus, error) {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if grace <= 0 {
		grace = DefaultGrace
	}
	termGrace := killGrace
	if force {
		grace = 0
		termGrace = 0
	}

	s.mu.Lock()
	if s.status != Running {
		current := s.status
		s.mu.Unlock()
		return ServerStatus{}, atlaserr.Newf(atlaserr.ServerNotRunning, "server is %s", current)
	}
	child := s.child
	serverRoot := s.serverRoot
	s.status = Stopping
	s.mu.Unlock()

	if !force {
		settings, err := rcon.ReadSettings(filepath.Join(serverRoot, "current", "server.properties"))
		if err == nil && settings.Enabled {
			client := rcon.Client{Address: "127.0.0.1:" + strconv.Itoa(settings.Port), Password: settings.Password}
			_, _ = client.Execute(ctx, "stop")
		}
	}

	info, err := child.Stop(ctx, grace, termGrace)
	if err != nil {
		return ServerStatus{}, atlaserr.Wrap(atlaserr.Internal, "stop server", err)
	}

	s.mu.Lock()
	s.child = nil
	s.status = Exited
	s.exitCode = info.Code
	s.atMs = time.Now().UnixMilli()
	writer := s.logWriter
	s.logWriter = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if writer != nil {
		_ = writer.Close()
	}

	return snap, nil
}

// Restart stops (retaining grace) then starts again with the same
// profile and pack bytes.
func (s *SharedState) Restart(ctx context.Context, deps StartDeps, grace time.Duration, packBytes []byte) (ServerStatus, error) {
	s.mu.Lock()
	profile := s.profile
	s.mu.Unlock()

	if _, err := s.Stop(ctx, grace, false); err != nil {
		return ServerStatus{}, err
	}
	return s.Start(ctx, deps, profile, packBytes)
}

// Update decodes a new pack blob, and if its identity differs from the
// currently applied marker, archives the running world via backup before
// stopping the child and re-applying with the new plan.
func (s *SharedState) Update(ctx context.Context, deps StartDeps, profile string, newPackBytes []byte) (ServerStatus, error) {
	blob, err := pack.Decode(newPackBytes)
	if err != nil {
		return ServerStatus{}, err
	}

	current := filepath.Join(deps.StageConfig.ServerRoot, "current")
	if existing, ok, err := marker.Read(current, nil); err == nil && ok && !existing.Matches(blob.Metadata) {
		if _, err := deps.BackupEngine.Run(ctx); err != nil {
			return ServerStatus{}, err
		}
	}

	s.mu.Lock()
	running := s.status == Running
	s.mu.Unlock()
	if running {
		if _, err := s.Stop(ctx, DefaultGrace, false); err != nil {
			return ServerStatus{}, err
		}
	}

	return s.Start(ctx, deps, profile, newPackBytes)
}

func (s *SharedState) setIdle() {
	s.mu.Lock()
	s.status = Idle
	s.mu.Unlock()
}

func (s *SharedState) snapshotLocked() ServerStatus {
	return ServerStatus{
		Status:          s.status,
		Profile:         s.profile,
		PID:             s.pidLocked(),
		StartedAtMs:     s.lastStartMs,
		ExitCode:        s.exitCode,
		AtMs:            s.atMs,
		RestartDisabled: s.restartDisabled,
	}
}
