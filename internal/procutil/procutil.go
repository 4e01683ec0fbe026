// Package procutil spawns and supervises the server child process: start
// with a resolved argv/cwd, escalate SIGTERM to SIGKILL on a grace
// deadline, and poll exit status without blocking the caller.
package procutil

import (
	"context"
	"io"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/Atlas-Launcher/runner/internal/atlaserr"
)

// ExitInfo describes how a child process ended.
type ExitInfo struct {
	Code   int
	Signal string // empty unless the process was killed by a signal
}

// Child wraps a running server process. cmd.Wait is called exactly once,
// from the goroutine Start spawns; TryWait and Wait both observe its
// result through done rather than calling Wait again, which exec.Cmd
// does not allow.
type Child struct {
	cmd  *exec.Cmd
	done chan struct{}
	info ExitInfo
}

// Start spawns argv[0] with argv[1:] as arguments in cwd, wiring stdout
// and stderr to out (normally the log ring's writer).
func Start(argv []string, cwd string, out io.Writer) (*Child, error) {
	if len(argv) == 0 {
		return nil, atlaserr.New(atlaserr.InvalidConfig, "launch plan has empty argv")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = cwd
	cmd.Stdout = out
	cmd.Stderr = out
	// New process group so a termination signal can be delivered to the
	// whole tree the server jar spawns (Java sometimes forks helpers).
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, atlaserr.Wrap(atlaserr.IoError, "spawn server process", err)
	}

	c := &Child{cmd: cmd, done: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		c.info = exitInfoFromError(err)
		close(c.done)
	}()
	return c, nil
}

// Pid returns the spawned process's pid.
func (c *Child) Pid() int { return c.cmd.Process.Pid }

// TryWait polls for exit without blocking. ok is false while the process
// is still running.
func (c *Child) TryWait() (info ExitInfo, ok bool) {
	select {
	case <-c.done:
		return c.info, true
	default:
		return ExitInfo{}, false
	}
}

// Wait blocks until the child exits or ctx is cancelled.
func (c *Child) Wait(ctx context.Context) (ExitInfo, error) {
	select {
	case <-c.done:
		return c.info, nil
	case <-ctx.Done():
		return ExitInfo{}, ctx.Err()
	}
}

// Terminate sends SIGTERM to the child's process group, waits up to
// grace, and sends SIGKILL if the process is still alive afterward.
func (c *Child) Terminate(ctx context.Context, grace time.Duration) (ExitInfo, error) {
	_ = signalGroup(c.cmd.Process.Pid, syscall.SIGTERM)

	timeoutCtx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()

	info, err := c.Wait(timeoutCtx)
	if err == nil {
		return info, nil
	}

	_ = signalGroup(c.cmd.Process.Pid, syscall.SIGKILL)
	return c.Wait(ctx)
}

// Stop waits up to grace for the child to exit on its own — the window
// given to a cooperative shutdown request (e.g. an RCON "stop") issued by
// the caller before this is called — then escalates to Terminate if it
// is still alive.
func (c *Child) Stop(ctx context.Context, grace, killGrace time.Duration) (ExitInfo, error) {
	waitCtx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()
	if info, err := c.Wait(waitCtx); err == nil {
		return info, nil
	}
	return c.Terminate(ctx, killGrace)
}

func signalGroup(pid int, sig syscall.Signal) error {
	// Negative pid targets the whole process group created by Setpgid.
	return unix.Kill(-pid, unix.Signal(sig))
}

func exitInfoFromError(err error) ExitInfo {
	if err == nil {
		return ExitInfo{Code: 0}
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return ExitInfo{Code: -1}
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return ExitInfo{Code: exitErr.ExitCode()}
	}
	if status.Signaled() {
		return ExitInfo{Code: -1, Signal: status.Signal().String()}
	}
	return ExitInfo{Code: status.ExitStatus()}
}
