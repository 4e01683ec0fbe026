// Package fsutil holds small filesystem primitives shared by the
// preservation, backup, and staging components: recursive copies that
// never follow symlinks, and atomic write-then-rename.
package fsutil

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Atlas-Launcher/runner/internal/atlaserr"
)

// CopyTree recursively copies src into dst. Symlinks are never followed,
// so a symlink in the source tree is skipped rather than dereferenced.
// A missing src is not an error; it is a silent no-op, which the
// preservation and backup code both rely on.
func CopyTree(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return atlaserr.Wrap(atlaserr.IoError, "stat "+src, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil
	}
	if !info.IsDir() {
		return CopyFile(src, dst)
	}

	if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
		return atlaserr.Wrap(atlaserr.IoError, "mkdir "+dst, err)
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return atlaserr.Wrap(atlaserr.IoError, "readdir "+src, err)
	}
	for _, entry := range entries {
		if err := CopyTree(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// CopyFile copies a single regular file, creating dst's parent
// directories as needed. A missing src is a silent no-op.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return atlaserr.Wrap(atlaserr.IoError, "open "+src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return atlaserr.Wrap(atlaserr.IoError, "stat "+src, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return atlaserr.Wrap(atlaserr.IoError, "mkdir "+filepath.Dir(dst), err)
	}

	tmp := dst + ".tmp-" + uuid.NewString()
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return atlaserr.Wrap(atlaserr.IoError, "create "+tmp, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(tmp)
		return atlaserr.Wrap(atlaserr.IoError, "copy "+src, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return atlaserr.Wrap(atlaserr.IoError, "close "+tmp, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return atlaserr.Wrap(atlaserr.IoError, "rename "+tmp, err)
	}
	return nil
}

// WriteFileAtomic writes data to path via a temp file + rename so readers
// never observe a partial write.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return atlaserr.Wrap(atlaserr.IoError, "mkdir "+filepath.Dir(path), err)
	}
	tmp := path + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return atlaserr.Wrap(atlaserr.IoError, "write "+tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return atlaserr.Wrap(atlaserr.IoError, "rename "+tmp, err)
	}
	return nil
}
