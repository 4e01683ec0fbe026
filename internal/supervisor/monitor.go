package supervisor

import (
	"context"
	"strconv"
	"time"

	"github.com/Atlas-Launcher/runner/internal/procutil"
)

// monitorPollInterval is the child monitor's poll rate.
const monitorPollInterval = time.Second

// RunMonitor is the singleton background task that polls for the
// child's exit and reclassifies status. It runs until ctx is cancelled.
func RunMonitor(ctx context.Context, s *SharedState, deps StartDeps) {
	ticker := time.NewTicker(monitorPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		child := s.child
		lastStart := s.lastStartMs
		s.mu.Unlock()
		if child == nil {
			continue
		}

		info, ok := child.TryWait()
		if !ok {
			continue
		}

		now := deps.now()
		uptime := time.Duration(now-lastStart) * time.Millisecond
		status := Exited
		if info.Code != 0 && uptime < CrashLoopThreshold {
			status = Crashed
		}

		s.mu.Lock()
		s.child = nil
		s.status = status
		s.exitCode = info.Code
		s.atMs = now
		s.restartDisabled = true
		writer := s.logWriter
		s.logWriter = nil
		s.mu.Unlock()

		if writer != nil {
			_ = writer.Close()
		}

		s.logs.Push(LogLine{AtMs: now, Line: monitorLogLine(status, info)})
		if deps.OnLifecycle != nil {
			deps.OnLifecycle("ServerExited")
		}
	}
}

func monitorLogLine(status Status, info procutil.ExitInfo) string {
	if info.Signal != "" {
		return string(status) + ": terminated by " + info.Signal
	}
	return string(status) + ": exit code " + strconv.Itoa(info.Code)
}
