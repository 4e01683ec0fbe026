// Package stage implements the Stager & Promoter: it turns a decoded
// pack blob into a freshly built staging tree and atomically promotes it
// to current/.
package stage

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/Atlas-Launcher/runner/internal/atlaserr"
	"github.com/Atlas-Launcher/runner/internal/cache"
	"github.com/Atlas-Launcher/runner/internal/fetch"
	"github.com/Atlas-Launcher/runner/internal/fsutil"
	"github.com/Atlas-Launcher/runner/internal/launch"
	"github.com/Atlas-Launcher/runner/internal/loader"
	"github.com/Atlas-Launcher/runner/internal/marker"
	"github.com/Atlas-Launcher/runner/internal/pack"
	"github.com/Atlas-Launcher/runner/internal/plan"
	"github.com/Atlas-Launcher/runner/internal/preserve"
	"github.com/Atlas-Launcher/runner/internal/rcon"
)

// Config bundles the dependencies and per-instance settings Apply needs
// beyond the blob itself. LoaderVersion and the launch.Options fields are
// instance configuration, not part of the pack.
type Config struct {
	ServerRoot    string
	Fetcher       *fetch.Fetcher
	Registry      loader.Registry
	LoaderVersion string
	Launch        launch.Options
	Logger        *slog.Logger
}

// Outcome is what a successful Apply produced.
type Outcome struct {
	Marker marker.Marker
	Launch launch.Plan
	// Staged is false when the apply was a no-op because the blob was
	// already applied.
	Staged bool
}

func currentDir(serverRoot string) string { return filepath.Join(serverRoot, "current") }

// Apply runs the full sequence: idempotency check, staging directory
// creation, inline writes, dependency fetch+placement, loader install,
// world/identity preservation, marker + launch plan write, and promotion.
func Apply(ctx context.Context, cfg Config, blob pack.Blob) (Outcome, error) {
	current := currentDir(cfg.ServerRoot)

	if existing, ok, err := marker.Read(current, cfg.Logger); err != nil {
		return Outcome{}, err
	} else if ok && existing.Matches(blob.Metadata) {
		lp, err := readLaunchPlan(current)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Marker: existing, Launch: lp, Staged: false}, nil
	}

	p, err := plan.Compute(blob)
	if err != nil {
		return Outcome{}, err
	}

	stagingRoot := filepath.Join(cfg.ServerRoot, ".runner", "staging", uniqueSuffix())
	stagingCurrent := filepath.Join(stagingRoot, "current")
	if err := os.MkdirAll(stagingCurrent, 0o755); err != nil {
		return Outcome{}, atlaserr.Wrap(atlaserr.IoError, "create staging directory", err)
	}
	// Any failure past this point leaves a half-built staging tree; it is
	// never promoted, so best-effort delete it rather than leaving trash.
	succeeded := false
	defer func() {
		if !succeeded {
			_ = os.RemoveAll(stagingRoot)
		}
	}()

	for _, w := range p.InlineWrites {
		if err := fsutil.WriteFileAtomic(filepath.Join(stagingCurrent, filepath.FromSlash(w.Rel)), w.Data, 0o644); err != nil {
			return Outcome{}, err
		}
	}

	if err := placeDeps(ctx, cfg.Fetcher, p.Deps, stagingCurrent); err != nil {
		return Outcome{}, err
	}

	loaderResult, err := loader.Install(ctx, cfg.Fetcher, cfg.Registry, blob.Metadata.Loader, blob.Metadata.MinecraftVersion, cfg.LoaderVersion, stagingCurrent)
	if err != nil {
		return Outcome{}, err
	}

	if err := preserve.Run(current, stagingCurrent); err != nil {
		return Outcome{}, err
	}

	if err := rcon.EnsurePassword(filepath.Join(stagingCurrent, "server.properties")); err != nil {
		return Outcome{}, err
	}

	javaMajor := launch.ResolveJavaMajor(blob.Metadata.MinecraftVersion, cfg.Launch.JavaMajorOverride)
	launchOpts := cfg.Launch
	launchOpts.JavaBin = launch.ResolveJavaBin(cfg.Launch.JavaHome, javaMajor, cfg.Launch.JavaBin)
	lp := launch.Derive(launchOpts, loaderResult.EntryJar)
	if err := writeLaunchPlan(stagingCurrent, lp); err != nil {
		return Outcome{}, err
	}

	m := marker.FromMetadata(blob.Metadata)
	if err := marker.Write(stagingCurrent, m); err != nil {
		return Outcome{}, err
	}

	if err := promote(cfg.ServerRoot, stagingCurrent); err != nil {
		return Outcome{}, err
	}
	succeeded = true

	return Outcome{Marker: m, Launch: lp, Staged: true}, nil
}

var (
	suffixMu   sync.Mutex
	lastSuffix int64
)

// uniqueSuffix names a staging or archived-current directory with a
// monotonic millisecond timestamp, bumped by at least one from whatever
// it last returned so two calls within the same millisecond never
// collide.
func uniqueSuffix() string {
	suffixMu.Lock()
	defer suffixMu.Unlock()

	now := time.Now().UnixMilli()
	if now <= lastSuffix {
		now = lastSuffix + 1
	}
	lastSuffix = now
	return strconv.FormatInt(now, 10)
}

// placeDeps fetches every planned dependency and writes it to its
// destination under stagingCurrent, re-verifying the hash against the
// bytes actually written (the Fetcher already verified on download; this
// guards against a corrupted cache entry on a cache hit).
func placeDeps(ctx context.Context, fetcher *fetch.Fetcher, deps []plan.PlannedDep, stagingCurrent string) error {
	if len(deps) == 0 {
		return nil
	}

	items := make([]fetch.Item, len(deps))
	for i, d := range deps {
		items[i] = fetch.Item{URL: d.Dep.URL, ExpectedHash: d.Dep.Hash}
	}

	results, err := fetcher.FetchAll(ctx, items)
	if err != nil {
		return err
	}

	for i, d := range deps {
		data, err := os.ReadFile(results[i].Path)
		if err != nil {
			return atlaserr.Wrap(atlaserr.IoError, "read fetched dependency", err)
		}

		hasher, err := cache.NewHasher(d.Dep.Hash.Alg)
		if err != nil {
			return err
		}
		hasher.Write(data)
		actual := hex.EncodeToString(hasher.Sum(nil))
		if subtle.ConstantTimeCompare([]byte(actual), []byte(d.Dep.Hash.Hex)) != 1 {
			return atlaserr.IntegrityMismatch(d.Dep.URL, d.Dep.Hash.Hex, actual)
		}

		dest := filepath.Join(stagingCurrent, filepath.FromSlash(d.DestRel))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return atlaserr.Wrap(atlaserr.IoError, "create dependency directory", err)
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return atlaserr.Wrap(atlaserr.IoError, "write dependency", err)
		}
	}
	return nil
}

func writeLaunchPlan(stagingCurrent string, lp launch.Plan) error {
	data, err := json.MarshalIndent(lp, "", "  ")
	if err != nil {
		return atlaserr.Wrap(atlaserr.Internal, "marshal launch plan", err)
	}
	return fsutil.WriteFileAtomic(filepath.Join(stagingCurrent, ".runner", "launch.json"), data, 0o644)
}

func readLaunchPlan(current string) (launch.Plan, error) {
	data, err := os.ReadFile(filepath.Join(current, ".runner", "launch.json"))
	if err != nil {
		return launch.Plan{}, atlaserr.Wrap(atlaserr.IoError, "read launch plan", err)
	}
	var lp launch.Plan
	if err := json.Unmarshal(data, &lp); err != nil {
		return launch.Plan{}, atlaserr.Wrap(atlaserr.Decode, "parse launch plan", err)
	}
	return lp, nil
}

// promote performs the two same-filesystem renames that cut staging over
// to current/: current -> backup/current-<ms>/, then staging/current ->
// current/. A failure between the two is recoverable by Recover on the
// next startup.
func promote(serverRoot, stagingCurrent string) error {
	backupRoot := filepath.Join(serverRoot, ".runner", "backup")
	if err := os.MkdirAll(backupRoot, 0o755); err != nil {
		return atlaserr.Wrap(atlaserr.IoError, "create backup root", err)
	}

	current := currentDir(serverRoot)
	if _, err := os.Stat(current); err == nil {
		dest := filepath.Join(backupRoot, "current-"+uniqueSuffix())
		if err := os.Rename(current, dest); err != nil {
			return atlaserr.Wrap(atlaserr.IoError, "archive previous current", err)
		}
	} else if !os.IsNotExist(err) {
		return atlaserr.Wrap(atlaserr.IoError, "stat current", err)
	}

	if err := os.Rename(stagingCurrent, current); err != nil {
		return atlaserr.Wrap(atlaserr.IoError, "promote staging to current", err)
	}
	return nil
}

// Recover implements the startup recovery described for an interrupted
// promotion: if current/ is absent but a backup/current-<ms>/ exists,
// that is the previous live tree left behind after the first rename but
// before the second; it is renamed back into place so the daemon can
// re-run Apply from the last good blob.
func Recover(serverRoot string) error {
	current := currentDir(serverRoot)
	if _, err := os.Stat(current); err == nil {
		return nil
	}

	backupRoot := filepath.Join(serverRoot, ".runner", "backup")
	entries, err := os.ReadDir(backupRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return atlaserr.Wrap(atlaserr.IoError, "list backup root", err)
	}

	var latest string
	for _, e := range entries {
		if !e.IsDir() || len(e.Name()) < len("current-") || e.Name()[:len("current-")] != "current-" {
			continue
		}
		if e.Name() > latest {
			latest = e.Name()
		}
	}
	if latest == "" {
		return nil
	}

	return os.Rename(filepath.Join(backupRoot, latest), current)
}
