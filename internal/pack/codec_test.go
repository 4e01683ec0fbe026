package pack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBlob() Blob {
	return Blob{
		Metadata: Metadata{
			PackID:           "atlas",
			Version:          "1.0.0",
			MinecraftVersion: "1.20.4",
			Loader:           LoaderFabric,
		},
		Manifest: Manifest{
			Dependencies: []Dependency{
				{
					URL:  "https://example.test/foo.jar",
					Hash: Hash{Alg: HashSHA256, Hex: "a" + repeat("0", 63)},
					Kind: KindMod,
					Side: SideServer,
				},
			},
		},
		Files: []File{
			{Path: "config/server.properties", Data: []byte("motd=Atlas\n")},
			{Path: "README.md", Data: []byte("hi")},
		},
	}
}

func repeat(s string, n int) string {
	out := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s[0])
	}
	return string(out)
}

func TestRoundTrip(t *testing.T) {
	blob := sampleBlob()
	for _, level := range []int{1, 9, 19, 22} {
		encoded, err := Encode(blob, level)
		require.NoError(t, err)
		decoded, err := Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, blob.Metadata, decoded.Metadata)
		assert.Equal(t, blob.Manifest, decoded.Manifest)
		// Files come back sorted by path regardless of input order.
		require.Len(t, decoded.Files, 2)
		assert.Equal(t, "README.md", decoded.Files[0].Path)
		assert.Equal(t, "config/server.properties", decoded.Files[1].Path)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	blob := sampleBlob()
	a, err := Encode(blob, DefaultLevel)
	require.NoError(t, err)
	b, err := Encode(blob, DefaultLevel)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncodeOrderIndependent(t *testing.T) {
	blob := sampleBlob()
	reversed := sampleBlob()
	reversed.Files = []File{blob.Files[1], blob.Files[0]}

	a, err := Encode(blob, DefaultLevel)
	require.NoError(t, err)
	b, err := Encode(reversed, DefaultLevel)
	require.NoError(t, err)
	assert.Equal(t, a, b, "file insertion order must not affect encoded bytes")
}

func TestDecodeCorrupt(t *testing.T) {
	_, err := Decode([]byte("not a pack blob"))
	require.Error(t, err)
}

func TestValidateRejectsTraversal(t *testing.T) {
	blob := sampleBlob()
	blob.Files = append(blob.Files, File{Path: "../escape.txt", Data: []byte("x")})
	_, err := Encode(blob, DefaultLevel)
	require.Error(t, err)
}

func TestValidateRejectsBadLoader(t *testing.T) {
	blob := sampleBlob()
	blob.Metadata.Loader = "bogus"
	_, err := Encode(blob, DefaultLevel)
	require.Error(t, err)
}

func TestValidateRejectsBadHashWidth(t *testing.T) {
	blob := sampleBlob()
	blob.Manifest.Dependencies[0].Hash.Hex = "deadbeef"
	_, err := Encode(blob, DefaultLevel)
	require.Error(t, err)
}
