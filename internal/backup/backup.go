// Package backup implements world snapshots, current/ archiving, and
// retention pruning. The daily scheduler lives in schedule.go and shares
// Engine.Run with the on-demand RPC path.
package backup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/Atlas-Launcher/runner/internal/atlaserr"
	"github.com/Atlas-Launcher/runner/internal/fsutil"
	"github.com/Atlas-Launcher/runner/internal/preserve"
	"github.com/Atlas-Launcher/runner/internal/rcon"
)

// Engine runs backup operations for one server root. It is the single
// entrypoint both the on-demand RPC handler and the daily scheduler call,
// so quiescing and retention are never implemented twice.
type Engine struct {
	ServerRoot string
	Quiescer   rcon.Quiescer
	Logger     *slog.Logger
	// KeepWorldBackups and KeepCurrentBackups bound retention per prefix;
	// zero means unlimited.
	KeepWorldBackups   int
	KeepCurrentBackups int
}

func (e Engine) backupRoot() string { return filepath.Join(e.ServerRoot, ".runner", "backup") }
func (e Engine) currentDir() string { return filepath.Join(e.ServerRoot, "current") }

// Run performs one world snapshot: quiesce, copy worlds + identity files
// into a new backup-<ms>/ directory, resume saves, prune retention. It
// returns the new backup directory's path.
func (e Engine) Run(ctx context.Context) (string, error) {
	current := e.currentDir()
	if _, err := os.Stat(current); err != nil {
		return "", atlaserr.Wrap(atlaserr.Invalid, "current directory does not exist", err)
	}

	done, quiesced := e.Quiescer.Begin(ctx, current)
	defer done(ctx)

	dest := filepath.Join(e.backupRoot(), "backup-"+nowMillis())
	if err := preserve.Run(current, dest); err != nil {
		return "", err
	}

	if e.Logger != nil {
		e.Logger.Info("backup created", slog.String("path", dest), slog.Bool("quiesced", quiesced))
	}

	if err := e.prune("backup-", e.KeepWorldBackups); err != nil && e.Logger != nil {
		e.Logger.Warn("backup retention prune failed", slog.String("error", err.Error()))
	}

	return dest, nil
}

// ArchiveCurrent renames current/ to backup/current-<ms>/, the
// destructive move a force-reinstall uses to clear current/ out of the
// way entirely. Run is what callers want when current/ must stay intact
// for the next apply to preserve world/identity files forward from.
// It returns the archived path.
func (e Engine) ArchiveCurrent() (string, error) {
	current := e.currentDir()
	if _, err := os.Stat(current); err != nil {
		return "", atlaserr.Wrap(atlaserr.Invalid, "no current directory to archive", err)
	}

	if err := os.MkdirAll(e.backupRoot(), 0o755); err != nil {
		return "", atlaserr.Wrap(atlaserr.IoError, "create backup root", err)
	}

	dest := filepath.Join(e.backupRoot(), "current-"+nowMillis())
	if err := os.Rename(current, dest); err != nil {
		return "", atlaserr.Wrap(atlaserr.IoError, "archive current", err)
	}

	if err := e.prune("current-", e.KeepCurrentBackups); err != nil && e.Logger != nil {
		e.Logger.Warn("current archive retention prune failed", slog.String("error", err.Error()))
	}

	return dest, nil
}

// prune keeps only the most recent keep entries under prefix, ordered by
// name — each name is timestamp-prefixed and therefore lexicographically
// sortable. keep <= 0 disables pruning.
func (e Engine) prune(prefix string, keep int) error {
	if keep <= 0 {
		return nil
	}

	entries, err := os.ReadDir(e.backupRoot())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return atlaserr.Wrap(atlaserr.IoError, "list backup root", err)
	}

	var matching []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			matching = append(matching, entry.Name())
		}
	}
	sort.Strings(matching)
	if len(matching) <= keep {
		return nil
	}

	for _, name := range matching[:len(matching)-keep] {
		if err := os.RemoveAll(filepath.Join(e.backupRoot(), name)); err != nil {
			return atlaserr.Wrap(atlaserr.IoError, "remove pruned backup "+name, err)
		}
	}
	return nil
}

// nowMillis is split out so tests can't accidentally depend on wall-clock
// ordering within the same millisecond; fsutil-style callers elsewhere
// use the same pattern via stage.uniqueSuffix.
func nowMillis() string {
	return strconv.FormatInt(monotonicMillis(), 10)
}
