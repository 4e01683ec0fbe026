package marker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atlas-Launcher/runner/internal/pack"
)

func meta() pack.Metadata {
	return pack.Metadata{
		PackID:           "skyfactory",
		Version:          "4.2.0",
		MinecraftVersion: "1.20.1",
		Loader:           pack.LoaderForge,
	}
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	current := t.TempDir()
	m := FromMetadata(meta())
	require.NoError(t, Write(current, m))

	got, ok, err := Read(current, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, m, got)
	assert.True(t, got.Matches(meta()))
}

func TestReadAbsentIsNotApplied(t *testing.T) {
	current := t.TempDir()
	got, ok, err := Read(current, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Marker{}, got)
}

func TestReadCorruptIsNotApplied(t *testing.T) {
	current := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Dir(Path(current)), 0o755))
	require.NoError(t, os.WriteFile(Path(current), []byte("{not json"), 0o644))

	got, ok, err := Read(current, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Marker{}, got)
}

func TestMatchesRequiresAllFields(t *testing.T) {
	m := FromMetadata(meta())
	other := meta()
	other.Version = "4.2.1"
	assert.False(t, m.Matches(other))
}
