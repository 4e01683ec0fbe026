package supervisor

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atlas-Launcher/runner/internal/backup"
	"github.com/Atlas-Launcher/runner/internal/cache"
	"github.com/Atlas-Launcher/runner/internal/fetch"
	"github.com/Atlas-Launcher/runner/internal/launch"
	"github.com/Atlas-Launcher/runner/internal/loader"
	"github.com/Atlas-Launcher/runner/internal/marker"
	"github.com/Atlas-Launcher/runner/internal/pack"
	"github.com/Atlas-Launcher/runner/internal/procutil"
	"github.com/Atlas-Launcher/runner/internal/rcon"
	"github.com/Atlas-Launcher/runner/internal/stage"
)

func fixedClock(ms int64) func() int64 {
	return func() int64 { return ms }
}

func TestMonitorClassifiesFastNonZeroExitAsCrashed(t *testing.T) {
	s := New(t.TempDir())
	child, err := procutil.Start([]string{"/bin/sh", "-c", "exit 7"}, t.TempDir(), &bytes.Buffer{})
	require.NoError(t, err)

	start := time.Now().UnixMilli()
	s.mu.Lock()
	s.child = child
	s.status = Running
	s.lastStartMs = start
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go RunMonitor(ctx, s, StartDeps{Now: func() int64 { return start + 500 }})

	require.Eventually(t, func() bool {
		return s.Snapshot().Status == Crashed
	}, 2*time.Second, 20*time.Millisecond)

	snap := s.Snapshot()
	assert.Equal(t, 7, snap.ExitCode)
	assert.True(t, snap.RestartDisabled)
}

func TestMonitorClassifiesLongRunZeroExitAsExited(t *testing.T) {
	s := New(t.TempDir())
	child, err := procutil.Start([]string{"/bin/sh", "-c", "exit 0"}, t.TempDir(), &bytes.Buffer{})
	require.NoError(t, err)

	start := time.Now().UnixMilli() - int64(CrashLoopThreshold/time.Millisecond) - 1000
	s.mu.Lock()
	s.child = child
	s.status = Running
	s.lastStartMs = start
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go RunMonitor(ctx, s, StartDeps{})

	require.Eventually(t, func() bool {
		return s.Snapshot().Status == Exited
	}, 2*time.Second, 20*time.Millisecond)
}

func TestStopWaitsThenReportsExit(t *testing.T) {
	s := New(t.TempDir())
	child, err := procutil.Start([]string{"/bin/sh", "-c", "trap 'exit 0' TERM; sleep 30 & wait"}, t.TempDir(), &bytes.Buffer{})
	require.NoError(t, err)

	s.mu.Lock()
	s.child = child
	s.status = Running
	s.serverRoot = t.TempDir()
	s.mu.Unlock()

	snap, err := s.Stop(context.Background(), 200*time.Millisecond, false)
	require.NoError(t, err)
	assert.Equal(t, Exited, snap.Status)
}

func TestStopRejectsWhenNotRunning(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Stop(context.Background(), time.Second, false)
	require.Error(t, err)
}

// fakeEntryJar is returned by the fake loader artifact fetch; its
// content and hash are unrelated to anything real, only self-consistent.
var fakeEntryJar = []byte("fake-entry-jar")

func fakeEntryHash() pack.Hash {
	sum := sha256.Sum256(fakeEntryJar)
	return pack.Hash{Alg: pack.HashSHA256, Hex: hex.EncodeToString(sum[:])}
}

func newTestStageConfig(t *testing.T, serverRoot string, loaderVersion string) stage.Config {
	t.Helper()

	c, err := cache.New(filepath.Join(serverRoot, ".runner", "cache"))
	require.NoError(t, err)

	provider := fetch.ProviderFunc(func(ctx context.Context, url string) ([]byte, error) {
		return fakeEntryJar, nil
	})
	fetcher := fetch.New(c, provider)

	reg := loader.NewMapRegistry()
	reg.Add(pack.LoaderFabric, "1.20.4", loaderVersion, []loader.Artifact{
		{RelPath: "fabric-server-launcher.jar", URL: "https://example.test/fabric.jar", Hash: fakeEntryHash()},
	})

	return stage.Config{
		ServerRoot:    serverRoot,
		Fetcher:       fetcher,
		Registry:      reg,
		LoaderVersion: loaderVersion,
		Launch:        launch.Options{MemoryMB: 512, JavaBin: "/bin/true"},
	}
}

func TestUpdateBacksUpNonDestructivelyAndPreservesWhitelist(t *testing.T) {
	serverRoot := t.TempDir()
	current := filepath.Join(serverRoot, "current")
	require.NoError(t, os.MkdirAll(current, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(current, "whitelist.json"), []byte(`["alice"]`), 0o644))
	require.NoError(t, marker.Write(current, marker.Marker{
		PackID: "skyfactory", Version: "4.1.0", MinecraftVersion: "1.20.4", Loader: pack.LoaderFabric,
	}))

	cfg := newTestStageConfig(t, serverRoot, "0.15.0")
	deps := StartDeps{
		StageConfig:  cfg,
		BackupEngine: backup.Engine{ServerRoot: serverRoot, Quiescer: rcon.Quiescer{}},
		Now:          fixedClock(1000),
	}

	newBlob := pack.Blob{Metadata: pack.Metadata{
		PackID: "skyfactory", Version: "4.2.0", MinecraftVersion: "1.20.4", Loader: pack.LoaderFabric,
	}}
	packBytes, err := pack.EncodeDefault(newBlob)
	require.NoError(t, err)

	s := New(serverRoot)
	_, err = s.Update(context.Background(), deps, "default", packBytes)
	require.NoError(t, err)

	backupRoot := filepath.Join(serverRoot, ".runner", "backup")
	entries, err := os.ReadDir(backupRoot)
	require.NoError(t, err)
	var sawNonDestructiveBackup bool
	for _, e := range entries {
		if e.IsDir() && len(e.Name()) >= len("backup-") && e.Name()[:len("backup-")] == "backup-" {
			sawNonDestructiveBackup = true
		}
	}
	assert.True(t, sawNonDestructiveBackup, "Update must call backup.Engine.Run, not ArchiveCurrent, so a backup-<ms> snapshot exists")

	data, err := os.ReadFile(filepath.Join(current, "whitelist.json"))
	require.NoError(t, err)
	assert.Equal(t, `["alice"]`, string(data), "whitelist.json must be preserved forward into the re-applied current/")

	got, ok, err := marker.Read(current, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "4.2.0", got.Version)
}

func TestStopForceEscalatesWithoutWaiting(t *testing.T) {
	s := New(t.TempDir())
	child, err := procutil.Start([]string{"/bin/sh", "-c", "trap '' TERM; sleep 30"}, t.TempDir(), &bytes.Buffer{})
	require.NoError(t, err)

	s.mu.Lock()
	s.child = child
	s.status = Running
	s.serverRoot = t.TempDir()
	s.mu.Unlock()

	start := time.Now()
	snap, err := s.Stop(context.Background(), 30*time.Second, true)
	require.NoError(t, err)
	assert.Equal(t, Exited, snap.Status)
	assert.Less(t, time.Since(start), 5*time.Second)
}
