package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atlas-Launcher/runner/internal/pack"
)

func TestComputeSkipsClientOnlyDeps(t *testing.T) {
	blob := pack.Blob{
		Manifest: pack.Manifest{Dependencies: []pack.Dependency{
			{URL: "https://x.test/a.jar", Kind: pack.KindMod, Side: pack.SideClient, Hash: pack.Hash{Alg: pack.HashSHA256, Hex: "0"}},
			{URL: "https://x.test/b.jar", Kind: pack.KindMod, Side: pack.SideServer, Hash: pack.Hash{Alg: pack.HashSHA256, Hex: "0"}},
			{URL: "https://x.test/c.jar", Kind: pack.KindMod, Side: pack.SideBoth, Hash: pack.Hash{Alg: pack.HashSHA256, Hex: "0"}},
		}},
	}
	p, err := Compute(blob)
	require.NoError(t, err)
	require.Len(t, p.Deps, 2)
	assert.Equal(t, "mods/b.jar", p.Deps[0].DestRel)
	assert.Equal(t, "mods/c.jar", p.Deps[1].DestRel)
}

func TestComputeSkipsPointerFiles(t *testing.T) {
	blob := pack.Blob{
		Files: []pack.File{
			{Path: "mods/foo.mod.toml", Data: []byte("ignored")},
			{Path: "config/server.properties", Data: []byte("motd=hi\n")},
		},
	}
	p, err := Compute(blob)
	require.NoError(t, err)
	require.Len(t, p.InlineWrites, 1)
	assert.Equal(t, "config/server.properties", p.InlineWrites[0].Rel)
}

func TestComputeRejectsTraversal(t *testing.T) {
	blob := pack.Blob{Files: []pack.File{{Path: "../escape.txt", Data: []byte("x")}}}
	_, err := Compute(blob)
	require.Error(t, err)
}

func TestComputeDeterministic(t *testing.T) {
	blob := pack.Blob{
		Manifest: pack.Manifest{Dependencies: []pack.Dependency{
			{URL: "https://x.test/a.jar", Kind: pack.KindMod, Side: pack.SideServer, Hash: pack.Hash{Alg: pack.HashSHA256, Hex: "0"}},
		}},
		Files: []pack.File{{Path: "a.txt", Data: []byte("x")}},
	}
	a, err := Compute(blob)
	require.NoError(t, err)
	b, err := Compute(blob)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestComputeEmptyBlob(t *testing.T) {
	p, err := Compute(pack.Blob{})
	require.NoError(t, err)
	assert.Empty(t, p.InlineWrites)
	assert.Empty(t, p.Deps)
}
