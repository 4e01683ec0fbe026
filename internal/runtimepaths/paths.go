// Package runtimepaths resolves the XDG-aware locations for the daemon's
// IPC socket and lock file.
package runtimepaths

import (
	"os"
	"path/filepath"
	"runtime"
)

const dirName = "runner2"

// Paths bundles the per-user runtime locations the daemon and CLI agree
// on without either side needing to rediscover them independently.
type Paths struct {
	RuntimeDir string
	SocketPath string
	LockPath   string
}

// Resolve computes Paths from the environment, honoring XDG_RUNTIME_DIR on
// Linux, TMPDIR on macOS, and falling back to os.TempDir() everywhere.
func Resolve() Paths {
	base := runtimeBase()
	dir := filepath.Join(base, dirName)
	return Paths{
		RuntimeDir: dir,
		SocketPath: filepath.Join(dir, "runnerd.sock"),
		LockPath:   filepath.Join(dir, "runnerd.lock"),
	}
}

// EnsureDir creates the runtime directory with owner-only permissions if
// it doesn't already exist.
func (p Paths) EnsureDir() error {
	return os.MkdirAll(p.RuntimeDir, 0o700)
}

func runtimeBase() string {
	if runtime.GOOS == "linux" {
		if v := os.Getenv("XDG_RUNTIME_DIR"); v != "" {
			return v
		}
	}
	if runtime.GOOS == "darwin" {
		if v := os.Getenv("TMPDIR"); v != "" {
			return v
		}
	}
	if v := os.Getenv("TMPDIR"); v != "" {
		return v
	}
	return os.TempDir()
}
