package stage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atlas-Launcher/runner/internal/cache"
	"github.com/Atlas-Launcher/runner/internal/fetch"
	"github.com/Atlas-Launcher/runner/internal/launch"
	"github.com/Atlas-Launcher/runner/internal/loader"
	"github.com/Atlas-Launcher/runner/internal/marker"
	"github.com/Atlas-Launcher/runner/internal/pack"
)

func hashOf(b []byte) pack.Hash {
	sum := sha256.Sum256(b)
	return pack.Hash{Alg: pack.HashSHA256, Hex: hex.EncodeToString(sum[:])}
}

func testConfig(t *testing.T, serverRoot string, jarBytes []byte) Config {
	c, err := cache.New(t.TempDir())
	require.NoError(t, err)
	content := map[string][]byte{"https://example.invalid/fabric.jar": jarBytes}
	fetcher := fetch.New(c, fetch.ProviderFunc(func(ctx context.Context, url string) ([]byte, error) {
		return content[url], nil
	}))

	reg := loader.NewMapRegistry()
	reg.Add(pack.LoaderFabric, "1.20.4", "0.15.0", []loader.Artifact{
		{RelPath: "fabric-server-launcher.jar", URL: "https://example.invalid/fabric.jar", Hash: hashOf(jarBytes)},
	})

	return Config{
		ServerRoot:    serverRoot,
		Fetcher:       fetcher,
		Registry:      reg,
		LoaderVersion: "0.15.0",
		Launch:        launch.Options{MemoryMB: 2048, JavaBin: "/usr/bin/java"},
	}
}

func freshBlob() pack.Blob {
	return pack.Blob{
		Metadata: pack.Metadata{PackID: "atlas", Version: "1.0.0", MinecraftVersion: "1.20.4", Loader: pack.LoaderFabric},
		Files: []pack.File{
			{Path: "config/server.properties", Data: []byte("motd=Atlas\n")},
		},
	}
}

func TestApplyFreshInstall(t *testing.T) {
	serverRoot := t.TempDir()
	jarBytes := []byte("jar-bytes")
	cfg := testConfig(t, serverRoot, jarBytes)

	outcome, err := Apply(context.Background(), cfg, freshBlob())
	require.NoError(t, err)
	assert.True(t, outcome.Staged)
	assert.Equal(t, "atlas", outcome.Marker.PackID)

	data, err := os.ReadFile(filepath.Join(serverRoot, "current", "config", "server.properties"))
	require.NoError(t, err)
	assert.Equal(t, "motd=Atlas\n", string(data))

	jar, err := os.ReadFile(filepath.Join(serverRoot, "current", "fabric-server-launcher.jar"))
	require.NoError(t, err)
	assert.Equal(t, jarBytes, jar)

	assert.Contains(t, outcome.Launch.Argv, "fabric-server-launcher.jar")
	assert.Equal(t, outcome.Launch.Argv[len(outcome.Launch.Argv)-1], "nogui")

	m, ok, err := marker.Read(filepath.Join(serverRoot, "current"), nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, m.Matches(freshBlob().Metadata))
}

func TestApplyIsIdempotent(t *testing.T) {
	serverRoot := t.TempDir()
	cfg := testConfig(t, serverRoot, []byte("jar-bytes"))

	_, err := Apply(context.Background(), cfg, freshBlob())
	require.NoError(t, err)

	currentInfo, err := os.Stat(filepath.Join(serverRoot, "current"))
	require.NoError(t, err)

	outcome, err := Apply(context.Background(), cfg, freshBlob())
	require.NoError(t, err)
	assert.False(t, outcome.Staged)

	_, err = os.Stat(filepath.Join(serverRoot, ".runner", "staging"))
	assert.True(t, os.IsNotExist(err), "second apply must not create a staging directory")

	againInfo, err := os.Stat(filepath.Join(serverRoot, "current"))
	require.NoError(t, err)
	assert.Equal(t, currentInfo.ModTime(), againInfo.ModTime())
}

func TestApplyPreservesIdentityOnUpgrade(t *testing.T) {
	serverRoot := t.TempDir()
	cfg := testConfig(t, serverRoot, []byte("jar-bytes"))

	_, err := Apply(context.Background(), cfg, freshBlob())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(serverRoot, "current", "whitelist.json"), []byte(`["steve"]`), 0o644))

	upgraded := freshBlob()
	upgraded.Metadata.Version = "1.1.0"

	outcome, err := Apply(context.Background(), cfg, upgraded)
	require.NoError(t, err)
	assert.True(t, outcome.Staged)

	data, err := os.ReadFile(filepath.Join(serverRoot, "current", "whitelist.json"))
	require.NoError(t, err)
	assert.Equal(t, `["steve"]`, string(data))

	entries, err := os.ReadDir(filepath.Join(serverRoot, ".runner", "backup"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "current-")
}

func TestApplyIntegrityFailureLeavesCurrentUntouched(t *testing.T) {
	serverRoot := t.TempDir()
	cfg := testConfig(t, serverRoot, []byte("jar-bytes"))
	_, err := Apply(context.Background(), cfg, freshBlob())
	require.NoError(t, err)

	bad := freshBlob()
	bad.Metadata.Version = "2.0.0"
	bad.Manifest.Dependencies = []pack.Dependency{{
		URL:  "https://example.invalid/mods/foo.jar",
		Hash: pack.Hash{Alg: pack.HashSHA256, Hex: hashOf([]byte("wrong")).Hex},
		Kind: pack.KindMod,
		Side: pack.SideServer,
	}}

	_, err = Apply(context.Background(), cfg, bad)
	// The fetcher has no provider entry for this URL, so bytes come back
	// empty and the declared hash cannot match: an integrity failure, not
	// a transport one.
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(serverRoot, "current", "mods", "foo.jar"))
	assert.True(t, os.IsNotExist(statErr))

	stagingEntries, _ := os.ReadDir(filepath.Join(serverRoot, ".runner", "staging"))
	assert.Empty(t, stagingEntries, "failed staging directory must be cleaned up")
}

func TestRecoverRestoresInterruptedPromotion(t *testing.T) {
	serverRoot := t.TempDir()
	backupRoot := filepath.Join(serverRoot, ".runner", "backup", "current-1000")
	require.NoError(t, os.MkdirAll(backupRoot, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(backupRoot, "marker"), []byte("x"), 0o644))

	require.NoError(t, Recover(serverRoot))

	_, err := os.Stat(filepath.Join(serverRoot, "current", "marker"))
	require.NoError(t, err)
}

func TestRecoverNoopWhenCurrentPresent(t *testing.T) {
	serverRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(serverRoot, "current"), 0o755))
	require.NoError(t, Recover(serverRoot))
}
