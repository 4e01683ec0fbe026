package pointer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	k, ok := KindOf("mods/foo.mod.toml")
	require.True(t, ok)
	assert.Equal(t, Mod, k)

	k, ok = KindOf("resources/foo.res.toml")
	require.True(t, ok)
	assert.Equal(t, Resource, k)

	_, ok = KindOf("mods/foo.jar")
	assert.False(t, ok)
}

func TestResolvePointerPathSynthesizes(t *testing.T) {
	got := ResolvePointerPath("", Mod, "https://cdn.example.test/Fancy Mod v2!.jar")
	assert.Equal(t, "mods/fancy-mod-v2.mod.toml", got)

	got = ResolvePointerPath("", Resource, "https://cdn.example.test/Pack.zip")
	assert.Equal(t, "resources/pack.res.toml", got)
}

func TestResolvePointerPathKeepsExplicit(t *testing.T) {
	got := ResolvePointerPath(" mods/explicit.mod.toml ", Mod, "https://cdn.example.test/x.jar")
	assert.Equal(t, "mods/explicit.mod.toml", got)
}

func TestDestinationRelPathExtensionFromStripped(t *testing.T) {
	dest, err := DestinationRelPath("mods/foo.jar.mod.toml", Mod, "https://cdn.example.test/x.jar")
	require.NoError(t, err)
	assert.Equal(t, "mods/foo.jar", dest)
}

func TestDestinationRelPathExtensionFromURL(t *testing.T) {
	dest, err := DestinationRelPath("mods/foo.mod.toml", Mod, "https://cdn.example.test/real.jar")
	require.NoError(t, err)
	assert.Equal(t, "mods/foo.jar", dest)
}

func TestDestinationRelPathDefaultExtension(t *testing.T) {
	dest, err := DestinationRelPath("mods/foo.mod.toml", Mod, "https://cdn.example.test/noext")
	require.NoError(t, err)
	assert.Equal(t, "mods/foo.jar", dest)

	dest, err = DestinationRelPath("resources/bar.res.toml", Resource, "https://cdn.example.test/noext")
	require.NoError(t, err)
	assert.Equal(t, "resources/bar.zip", dest)
}

func TestDestinationRelPathIdempotent(t *testing.T) {
	first, err := DestinationRelPath("mods/foo.mod.toml", Mod, "https://cdn.example.test/x.jar")
	require.NoError(t, err)

	second, err := DestinationRelPath(first, Mod, "https://cdn.example.test/x.jar")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDestinationRelPathRejectsTraversal(t *testing.T) {
	_, err := DestinationRelPath("../escape.mod.toml", Mod, "https://cdn.example.test/x.jar")
	require.Error(t, err)
}
