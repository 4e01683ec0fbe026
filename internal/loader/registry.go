package loader

import (
	"encoding/json"
	"os"

	"github.com/Atlas-Launcher/runner/internal/atlaserr"
	"github.com/Atlas-Launcher/runner/internal/pack"
)

// key identifies one (loader kind, minecraft version, loader version)
// install target.
type key struct {
	Kind             pack.Loader
	MinecraftVersion string
	LoaderVersion    string
}

// MapRegistry is a Registry backed by an in-memory table, the shape a
// loaded registry file (read once at daemon startup, not refreshed while
// the daemon runs) is decoded into.
type MapRegistry map[key][]Artifact

// NewMapRegistry returns an empty registry ready for Add calls.
func NewMapRegistry() MapRegistry {
	return make(MapRegistry)
}

// Add registers the artifact set for one install target.
func (r MapRegistry) Add(kind pack.Loader, minecraftVersion, loaderVersion string, artifacts []Artifact) {
	r[key{kind, minecraftVersion, loaderVersion}] = artifacts
}

func (r MapRegistry) Artifacts(kind pack.Loader, minecraftVersion, loaderVersion string) ([]Artifact, error) {
	return r[key{kind, minecraftVersion, loaderVersion}], nil
}

// registryFileEntry is one published install target as it appears in a
// registry file on disk.
type registryFileEntry struct {
	Loader           pack.Loader `json:"loader"`
	MinecraftVersion string      `json:"minecraft_version"`
	LoaderVersion    string      `json:"loader_version"`
	Artifacts        []Artifact  `json:"artifacts"`
}

// LoadRegistryFile reads a JSON document listing published artifact sets
// per install target (the operator-maintained table of loader download
// URLs and hashes) and returns a MapRegistry populated from it. The file
// is read once at daemon startup; refreshing it means restarting the
// daemon.
func LoadRegistryFile(path string) (MapRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, atlaserr.Wrap(atlaserr.IoError, "read loader registry file", err)
	}

	var entries []registryFileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, atlaserr.Wrap(atlaserr.Decode, "parse loader registry file", err)
	}

	reg := NewMapRegistry()
	for _, e := range entries {
		if !e.Loader.Valid() {
			return nil, atlaserr.Newf(atlaserr.Invalid, "loader registry file: unknown loader %q", e.Loader)
		}
		reg.Add(e.Loader, e.MinecraftVersion, e.LoaderVersion, e.Artifacts)
	}
	return reg, nil
}
