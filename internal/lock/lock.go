// Package lock implements the daemon's single-instance advisory lock.
package lock

import (
	"context"
	"net"
	"os"
	"time"

	"github.com/gofrs/flock"
)

// ErrHeld is returned by Acquire when another live process already holds
// the lock. The caller (daemon main) is expected to log and exit 0
// rather than treat this as a startup failure.
var ErrHeld = errHeld{}

type errHeld struct{}

func (errHeld) Error() string { return "lock: held by another process" }

// Instance guards the lock's lifetime; Release must be called to drop it.
type Instance struct {
	fl *flock.Flock
}

// Acquire takes the exclusive, non-blocking advisory lock at path. If the
// lock is currently held, ErrHeld is returned.
func Acquire(path string) (*Instance, error) {
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHeld
	}
	return &Instance{fl: fl}, nil
}

// Release drops the lock and removes the backing file best-effort.
func (i *Instance) Release() error {
	path := i.fl.Path()
	err := i.fl.Unlock()
	_ = os.Remove(path)
	return err
}

// ProbeSocket dials sockPath with a short timeout to decide whether an
// orphaned socket file is backed by a live listener.
func ProbeSocket(ctx context.Context, sockPath string) bool {
	d := net.Dialer{Timeout: 200 * time.Millisecond}
	conn, err := d.DialContext(ctx, "unix", sockPath)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// RemoveStaleSocket deletes sockPath if present and nothing answers a
// probe connect to it.
func RemoveStaleSocket(ctx context.Context, sockPath string) error {
	if _, err := os.Stat(sockPath); err != nil {
		return nil
	}
	if ProbeSocket(ctx, sockPath) {
		return nil
	}
	return os.Remove(sockPath)
}
