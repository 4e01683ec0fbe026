package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withCurrent(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	current := filepath.Join(root, "current")
	require.NoError(t, os.MkdirAll(filepath.Join(current, "world"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(current, "world", "level.dat"), []byte("lvl"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(current, "whitelist.json"), []byte("[]"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(current, "server.properties"), []byte("enable-rcon=false\n"), 0o644))
	return root
}

func TestRunCreatesBackupAndPreservesWorld(t *testing.T) {
	root := withCurrent(t)
	e := Engine{ServerRoot: root}

	path, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(path), "backup-")

	data, err := os.ReadFile(filepath.Join(path, "world", "level.dat"))
	require.NoError(t, err)
	assert.Equal(t, "lvl", string(data))
}

func TestRunFailsWithoutCurrent(t *testing.T) {
	e := Engine{ServerRoot: t.TempDir()}
	_, err := e.Run(context.Background())
	require.Error(t, err)
}

func TestArchiveCurrentRenames(t *testing.T) {
	root := withCurrent(t)
	e := Engine{ServerRoot: root}

	dest, err := e.ArchiveCurrent()
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(dest), "current-")

	_, err = os.Stat(filepath.Join(root, "current"))
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(filepath.Join(dest, "whitelist.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestPruneKeepsMostRecentN(t *testing.T) {
	root := withCurrent(t)
	e := Engine{ServerRoot: root, KeepWorldBackups: 2}

	for i := 0; i < 4; i++ {
		_, err := e.Run(context.Background())
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(filepath.Join(root, ".runner", "backup"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestMonotonicMillisStrictlyIncreases(t *testing.T) {
	a := monotonicMillis()
	b := monotonicMillis()
	assert.Greater(t, b, a)
}

func TestDurationUntilNextLocalMidnight(t *testing.T) {
	now := time.Date(2026, 8, 1, 23, 59, 0, 0, time.UTC)
	d := durationUntilNextLocalMidnight(now)
	assert.Equal(t, time.Minute, d)

	now = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	d = durationUntilNextLocalMidnight(now)
	assert.Equal(t, 24*time.Hour, d)
}
