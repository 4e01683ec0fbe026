// Package loader materializes a server entry jar into staging/current/
// for a given {minecraft_version, loader, loader_version}, reusing the
// Fetcher + Cache against the loader registry's published hashes.
package loader

import (
	"context"
	"os"
	"path/filepath"

	"github.com/Atlas-Launcher/runner/internal/atlaserr"
	"github.com/Atlas-Launcher/runner/internal/fetch"
	"github.com/Atlas-Launcher/runner/internal/pack"
)

// Artifact is one file a loader install requires: where it lands inside
// current/, and the URL + hash that resolve its bytes.
type Artifact struct {
	RelPath string    `json:"rel_path"`
	URL     string    `json:"url"`
	Hash    pack.Hash `json:"hash"`
}

// Registry supplies the published URL + hash for a loader artifact. Each
// loader kind is fixed in its file layout and argv template; only the
// per-version URLs and hashes vary, and those come from this registry
// rather than being computed, since they are external published data.
type Registry interface {
	// Artifacts returns the deterministic artifact set for installing
	// kind at minecraftVersion/loaderVersion. It does not perform I/O.
	Artifacts(kind pack.Loader, minecraftVersion, loaderVersion string) ([]Artifact, error)
}

// Result is what an install left behind.
type Result struct {
	// EntryJar is the path (relative to current/) passed as the "-jar"
	// argument to the launch plan.
	EntryJar string
}

// entryJarName is fixed per loader kind; the registry only has to know
// how to name and fetch artifacts, not which one is the entry point.
var entryJarName = map[pack.Loader]string{
	pack.LoaderFabric: "fabric-server-launcher.jar",
	pack.LoaderForge:  "forge-server.jar",
	pack.LoaderNeo:    "neoforge-server.jar",
}

// Install fetches every artifact kind's registry entry describes and
// writes each into destDir (normally staging/current/), verifying
// content hashes along the way via fetcher.
func Install(ctx context.Context, fetcher *fetch.Fetcher, reg Registry, kind pack.Loader, minecraftVersion, loaderVersion, destDir string) (Result, error) {
	if !kind.Valid() {
		return Result{}, atlaserr.Newf(atlaserr.Invalid, "unknown loader kind %q", kind)
	}

	artifacts, err := reg.Artifacts(kind, minecraftVersion, loaderVersion)
	if err != nil {
		return Result{}, err
	}
	if len(artifacts) == 0 {
		return Result{}, atlaserr.Newf(atlaserr.Invalid, "no artifacts published for %s %s/%s", kind, minecraftVersion, loaderVersion)
	}

	items := make([]fetch.Item, len(artifacts))
	for i, a := range artifacts {
		items[i] = fetch.Item{URL: a.URL, ExpectedHash: a.Hash}
	}

	results, err := fetcher.FetchAll(ctx, items)
	if err != nil {
		return Result{}, err
	}

	for i, a := range artifacts {
		data, err := os.ReadFile(results[i].Path)
		if err != nil {
			return Result{}, atlaserr.Wrap(atlaserr.IoError, "read fetched loader artifact", err)
		}
		dest := filepath.Join(destDir, filepath.FromSlash(a.RelPath))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return Result{}, atlaserr.Wrap(atlaserr.IoError, "create loader artifact directory", err)
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return Result{}, atlaserr.Wrap(atlaserr.IoError, "write loader artifact", err)
		}
	}

	entry, ok := entryJarName[kind]
	if !ok {
		return Result{}, atlaserr.Newf(atlaserr.Invalid, "no entry jar name known for loader %q", kind)
	}
	return Result{EntryJar: entry}, nil
}
