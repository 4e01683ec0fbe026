package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atlas-Launcher/runner/internal/atlaserr"
	"github.com/Atlas-Launcher/runner/internal/cache"
	"github.com/Atlas-Launcher/runner/internal/pack"
)

func hashOf(data []byte) pack.Hash {
	sum := sha256.Sum256(data)
	return pack.Hash{Alg: pack.HashSHA256, Hex: hex.EncodeToString(sum[:])}
}

func TestFetchAllVerifiesAndStores(t *testing.T) {
	c, err := cache.New(t.TempDir())
	require.NoError(t, err)

	content := []byte("mod bytes")
	item := Item{URL: "https://example.test/a.jar", ExpectedHash: hashOf(content)}

	f := New(c, ProviderFunc(func(_ context.Context, url string) ([]byte, error) {
		assert.Equal(t, item.URL, url)
		return content, nil
	}))

	results, err := f.FetchAll(context.Background(), []Item{item})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, c.Exists(item.ExpectedHash))
}

func TestFetchAllSkipsCached(t *testing.T) {
	c, err := cache.New(t.TempDir())
	require.NoError(t, err)
	content := []byte("cached")
	h := hashOf(content)
	_, err = c.Store(h, content)
	require.NoError(t, err)

	calls := 0
	f := New(c, ProviderFunc(func(_ context.Context, url string) ([]byte, error) {
		calls++
		return content, nil
	}))

	_, err = f.FetchAll(context.Background(), []Item{{URL: "https://example.test/b.jar", ExpectedHash: h}})
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
}

func TestFetchAllIntegrityMismatch(t *testing.T) {
	c, err := cache.New(t.TempDir())
	require.NoError(t, err)

	wrong := hashOf([]byte("expected"))
	f := New(c, ProviderFunc(func(_ context.Context, url string) ([]byte, error) {
		return []byte("actual different bytes"), nil
	}))

	_, err = f.FetchAll(context.Background(), []Item{{URL: "https://example.test/c.jar", ExpectedHash: wrong}})
	require.Error(t, err)

	var aerr *atlaserr.Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, atlaserr.Integrity, aerr.Code)
	assert.False(t, c.Exists(wrong), "mismatched content must not be stored")
}

func TestFetchAllAbortsOnFirstError(t *testing.T) {
	c, err := cache.New(t.TempDir())
	require.NoError(t, err)

	boom := errors.New("network down")
	f := New(c, ProviderFunc(func(_ context.Context, url string) ([]byte, error) {
		return nil, boom
	}))
	f.Concurrency = 2

	items := make([]Item, 10)
	for i := range items {
		items[i] = Item{URL: "https://example.test/x.jar", ExpectedHash: hashOf([]byte("x"))}
	}

	_, err = f.FetchAll(context.Background(), items)
	require.Error(t, err)

	var aerr *atlaserr.Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, atlaserr.Transport, aerr.Code)
}
