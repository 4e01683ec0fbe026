package pack

import (
	"strings"

	"github.com/Atlas-Launcher/runner/internal/atlaserr"
)

// Validate checks the invariants required of a decoded Blob: non-empty
// identity fields, well-formed dependency hashes, and a traversal-safe
// files map.
func (b *Blob) Validate() error {
	if b.Metadata.PackID == "" {
		return atlaserr.New(atlaserr.Invalid, "metadata.pack_id must not be empty")
	}
	if b.Metadata.Version == "" {
		return atlaserr.New(atlaserr.Invalid, "metadata.version must not be empty")
	}
	if b.Metadata.MinecraftVersion == "" {
		return atlaserr.New(atlaserr.Invalid, "metadata.minecraft_version must not be empty")
	}
	if !b.Metadata.Loader.Valid() {
		return atlaserr.Newf(atlaserr.Invalid, "unknown loader %q", b.Metadata.Loader)
	}
	for i, dep := range b.Manifest.Dependencies {
		if err := dep.Hash.validate(); err != nil {
			return atlaserr.Wrap(atlaserr.Invalid, "dependency hash invalid", err).
				WithDetails(map[string]any{"index": i, "url": dep.URL})
		}
		switch dep.Kind {
		case KindMod, KindResource:
		default:
			return atlaserr.Newf(atlaserr.Invalid, "dependency %d: unknown kind %q", i, dep.Kind)
		}
		switch dep.Side {
		case SideServer, SideClient, SideBoth:
		default:
			return atlaserr.Newf(atlaserr.Invalid, "dependency %d: unknown side %q", i, dep.Side)
		}
	}
	for _, f := range b.Files {
		if err := ValidateRelPath(f.Path); err != nil {
			return err
		}
	}
	return nil
}

func (h Hash) validate() error {
	if !h.Alg.Valid() {
		return atlaserr.Newf(atlaserr.Invalid, "unknown hash algorithm %q", h.Alg)
	}
	want := hexWidth[h.Alg]
	if len(h.Hex) != want || !isLowerHex(h.Hex) {
		return atlaserr.Newf(atlaserr.Invalid, "hash hex must be %d lowercase hex chars for %s", want, h.Alg)
	}
	return nil
}

func isLowerHex(s string) bool {
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') {
			continue
		}
		return false
	}
	return true
}

// ValidateRelPath rejects absolute paths and ".." segments, the traversal
// guard every files-map key and every planner-computed destination must
// pass.
func ValidateRelPath(p string) error {
	if p == "" {
		return atlaserr.New(atlaserr.Invalid, "path must not be empty")
	}
	if strings.HasPrefix(p, "/") || (len(p) >= 2 && p[1] == ':') {
		return atlaserr.Newf(atlaserr.Invalid, "path %q must be relative", p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return atlaserr.Newf(atlaserr.Invalid, "path %q contains a .. segment", p)
		}
	}
	return nil
}
