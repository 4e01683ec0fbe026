// Package supervisor owns the per-server-root SharedState: the single
// mutex-guarded record of what the child process is doing, plus the
// lifecycle operations (Start, Stop, Restart, Update) serialized behind
// a coarser lifecycle lock.
package supervisor

import (
	"sync"

	"github.com/Atlas-Launcher/runner/internal/launch"
	"github.com/Atlas-Launcher/runner/internal/procutil"
)

// Status is the server's coarse lifecycle phase.
type Status string

const (
	Idle     Status = "Idle"
	Starting Status = "Starting"
	Running  Status = "Running"
	Stopping Status = "Stopping"
	Exited   Status = "Exited"
	Crashed  Status = "Crashed"
)

// ServerStatus is the read-only snapshot handed out to Status RPCs and
// broadcast to subscribers; it never aliases SharedState's internals.
type ServerStatus struct {
	Status          Status `json:"status"`
	Profile         string `json:"profile,omitempty"`
	PID             int    `json:"pid,omitempty"`
	StartedAtMs     int64  `json:"started_at_ms,omitempty"`
	ExitCode        int    `json:"exit_code,omitempty"`
	AtMs            int64  `json:"at_ms,omitempty"`
	RestartDisabled bool   `json:"restart_disabled"`
}

// SharedState is guarded by a single mutex; critical sections never await
// network I/O. lifecycleMu is the coarser lock serializing
// Start/Stop/Update/promote and may be held across those operations'
// blocking calls, which is why it is a separate lock from mu.
type SharedState struct {
	mu sync.Mutex

	status          Status
	profile         string
	serverRoot      string
	child           *procutil.Child
	logWriter       *ringWriter
	launchPlan      launch.Plan
	lastStartMs     int64
	exitCode        int
	atMs            int64
	restartAttempts int
	restartDisabled bool

	logs *LogRing

	lifecycleMu    sync.Mutex
	monitorStarted bool
	schedStarted   bool
}

// New returns an Idle SharedState for serverRoot with a default-sized
// log ring.
func New(serverRoot string) *SharedState {
	return &SharedState{
		status:     Idle,
		serverRoot: serverRoot,
		logs:       NewLogRing(DefaultLogRingSize),
	}
}

// Snapshot returns the current status under the mutex.
func (s *SharedState) Snapshot() ServerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
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

func (s *SharedState) pidLocked() int {
	if s.child == nil {
		return 0
	}
	return s.child.Pid()
}

// Logs returns the shared log ring so callers can tail or append without
// taking the lifecycle lock.
func (s *SharedState) Logs() *LogRing { return s.logs }

// TryMarkOnce flips a one-shot flag under the state mutex and reports
// whether this call was the one that flipped it, so the monitor and
// backup scheduler are each started exactly once regardless of how many
// times Start runs. It does not take the lifecycle lock, which Start
// already holds when it calls this.
func (s *SharedState) TryMarkOnce(flag *bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if *flag {
		return false
	}
	*flag = true
	return true
}

func (s *SharedState) monitorFlag() *bool { return &s.monitorStarted }
func (s *SharedState) schedFlag() *bool   { return &s.schedStarted }
