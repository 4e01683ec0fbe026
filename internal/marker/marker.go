// Package marker implements the applied marker: the small record proving
// a given pack is live in current/.
package marker

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Atlas-Launcher/runner/internal/atlaserr"
	"github.com/Atlas-Launcher/runner/internal/fsutil"
	"github.com/Atlas-Launcher/runner/internal/pack"
)

// Marker is the persisted {pack_id, version, minecraft_version, loader}
// record at current/.runner/applied.json.
type Marker struct {
	PackID           string      `json:"pack_id"`
	Version          string      `json:"version"`
	MinecraftVersion string      `json:"minecraft_version"`
	Loader           pack.Loader `json:"loader"`
}

// FromMetadata builds the Marker a successful apply of blob must leave
// behind.
func FromMetadata(meta pack.Metadata) Marker {
	return Marker{
		PackID:           meta.PackID,
		Version:          meta.Version,
		MinecraftVersion: meta.MinecraftVersion,
		Loader:           meta.Loader,
	}
}

// Matches reports whether m certifies that meta is already applied: all
// four identity fields must match exactly.
func (m Marker) Matches(meta pack.Metadata) bool {
	return m == FromMetadata(meta)
}

// Path returns the marker file's location under a server's current/.
func Path(currentDir string) string {
	return filepath.Join(currentDir, ".runner", "applied.json")
}

// Write persists m atomically (temp file + rename), pretty-printed.
func Write(currentDir string, m Marker) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return atlaserr.Wrap(atlaserr.Internal, "marshal applied marker", err)
	}
	return fsutil.WriteFileAtomic(Path(currentDir), data, 0o644)
}

// Read loads the marker at currentDir. Its absence is not an error — it
// is reported as (Marker{}, false, nil), "not applied". A marker that
// exists but fails to parse is also treated as "not applied", but is
// logged as a warning via logger (which may be nil) rather than failing
// the caller's apply outright.
func Read(currentDir string, logger *slog.Logger) (Marker, bool, error) {
	data, err := os.ReadFile(Path(currentDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Marker{}, false, nil
		}
		return Marker{}, false, atlaserr.Wrap(atlaserr.IoError, "read applied marker", err)
	}

	var m Marker
	if err := json.Unmarshal(data, &m); err != nil {
		if logger != nil {
			logger.Warn("applied marker failed to parse, treating as not applied", slog.String("error", err.Error()))
		}
		return Marker{}, false, nil
	}
	return m, true, nil
}
