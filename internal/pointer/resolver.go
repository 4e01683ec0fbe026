// Package pointer resolves pointer files — tiny descriptors in a pack's
// files map whose on-disk destination is computed from their own name
// and the URL of the dependency they stand in for.
package pointer

import (
	"net/url"
	"path"
	"strings"

	"github.com/Atlas-Launcher/runner/internal/atlaserr"
	"github.com/Atlas-Launcher/runner/internal/pack"
)

// Kind distinguishes the two pointer suffixes.
type Kind int

const (
	Mod Kind = iota
	Resource
)

func (k Kind) suffix() string {
	if k == Mod {
		return ".mod.toml"
	}
	return ".res.toml"
}

func (k Kind) defaultExtension() string {
	if k == Mod {
		return ".jar"
	}
	return ".zip"
}

// KindOf reports whether path is a pointer file, and which kind.
func KindOf(filePath string) (Kind, bool) {
	switch {
	case strings.HasSuffix(filePath, ".mod.toml"):
		return Mod, true
	case strings.HasSuffix(filePath, ".res.toml"):
		return Resource, true
	default:
		return 0, false
	}
}

// KindOfDep maps a dependency's Kind field to the matching pointer Kind.
func KindOfDep(k pack.DepKind) Kind {
	if k == pack.KindResource {
		return Resource
	}
	return Mod
}

// ResolvePointerPath returns the pointer_path to use for dep, synthesizing
// one from the dependency's URL when it is empty.
func ResolvePointerPath(pointerPath string, kind Kind, depURL string) string {
	trimmed := strings.TrimSpace(pointerPath)
	if trimmed != "" {
		return trimmed
	}

	base := urlFilenameStem(depURL)
	if base == "" {
		base = "asset"
	}
	slug := slugify(base)
	if kind == Mod {
		return "mods/" + slug + ".mod.toml"
	}
	return "resources/" + slug + ".res.toml"
}

// DestinationRelPath computes the final relative install path for a
// resolved pointer path. Feeding the result back through DestinationRelPath
// again is a no-op: it is not a pointer path anymore, so the suffix strip
// is a no-op and the extension is already present.
func DestinationRelPath(pointerPath string, kind Kind, depURL string) (string, error) {
	stripped := strings.TrimSuffix(pointerPath, kind.suffix())

	var dest string
	if strings.TrimSpace(stripped) == "" {
		base := "mods/asset"
		if kind == Resource {
			base = "resources/asset"
		}
		dest = base + kind.defaultExtension()
	} else if path.Ext(stripped) != "" {
		dest = stripped
	} else {
		ext := extensionFromURL(depURL)
		if ext == "" {
			ext = kind.defaultExtension()
		}
		dest = stripped + ext
	}

	if err := pack.ValidateRelPath(dest); err != nil {
		return "", atlaserr.Wrap(atlaserr.Invalid, "pointer destination invalid", err)
	}
	return dest, nil
}

func extensionFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	last := lastPathSegment(u.Path)
	if last == "" {
		return ""
	}
	ext := strings.ToLower(path.Ext(last))
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" || len(ext) > 10 || !isAlnum(ext) {
		return ""
	}
	return "." + ext
}

func urlFilenameStem(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	last := lastPathSegment(u.Path)
	if last == "" {
		return ""
	}
	ext := path.Ext(last)
	stem := strings.TrimSuffix(last, ext)
	return strings.TrimSpace(stem)
}

func lastPathSegment(p string) string {
	p = strings.TrimSuffix(p, "/")
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}

func isAlnum(s string) bool {
	for _, r := range s {
		if !(r >= '0' && r <= '9') && !(r >= 'a' && r <= 'z') {
			return false
		}
	}
	return true
}

// slugify lowercases s and squashes runs of non-alphanumeric characters
// (including case changes' separators) into single dashes, trimming
// leading/trailing dashes.
func slugify(s string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(s) {
		if r >= '0' && r <= '9' || r >= 'a' && r <= 'z' {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
