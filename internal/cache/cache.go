// Package cache implements the content-addressed artifact store: a flat
// directory of immutable files named by the lowercase hex of their
// content hash.
package cache

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Atlas-Launcher/runner/internal/atlaserr"
	"github.com/Atlas-Launcher/runner/internal/pack"
)

// Cache is a content-addressed store rooted at Root.
type Cache struct {
	Root string
}

// New returns a Cache rooted at root, creating the directory if needed.
func New(root string) (*Cache, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, atlaserr.Wrap(atlaserr.IoError, "create cache root", err)
	}
	return &Cache{Root: root}, nil
}

// NewHasher returns the hash.Hash implementation for alg.
func NewHasher(alg pack.HashAlg) (hash.Hash, error) {
	switch alg {
	case pack.HashSHA1:
		return sha1.New(), nil
	case pack.HashSHA256:
		return sha256.New(), nil
	case pack.HashSHA512:
		return sha512.New(), nil
	default:
		return nil, atlaserr.Newf(atlaserr.Invalid, "unknown hash algorithm %q", alg)
	}
}

// GetPath returns the on-disk path for hash h, with no I/O performed.
// The cache is a flat directory keyed purely by the lowercase hex
// digest; the algorithm is not part of the path.
func (c *Cache) GetPath(h pack.Hash) string {
	return filepath.Join(c.Root, h.Hex)
}

// Exists reports whether h is already present in the cache.
func (c *Cache) Exists(h pack.Hash) bool {
	_, err := os.Stat(c.GetPath(h))
	return err == nil
}

// Store writes data into the cache, keyed by h. If the entry already
// exists it is left untouched — entries are immutable once created.
// Concurrent stores of identical content are safe: each writer stages to
// a unique temp file and renames atomically onto the same destination
// path, so the worst case is a harmless redundant write, not corruption.
func (c *Cache) Store(h pack.Hash, data []byte) (string, error) {
	dest := c.GetPath(h)
	if c.Exists(h) {
		return dest, nil
	}

	tmp := dest + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", atlaserr.Wrap(atlaserr.IoError, "write cache temp file", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return "", atlaserr.Wrap(atlaserr.IoError, "rename cache entry into place", err)
	}
	return dest, nil
}

// Read loads the cached bytes for h. Callers that already verified the
// hash at Store time do not need to re-verify on Read; a mismatch
// between a file's name and its actual content at rest is out of scope.
func (c *Cache) Read(h pack.Hash) ([]byte, error) {
	data, err := os.ReadFile(c.GetPath(h))
	if err != nil {
		return nil, atlaserr.Wrap(atlaserr.IoError, "read cache entry", err)
	}
	return data, nil
}
