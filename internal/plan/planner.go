// Package plan computes, from a decoded pack, the set of inline writes
// and dependency placements the stager must materialize.
package plan

import (
	"github.com/Atlas-Launcher/runner/internal/pack"
	"github.com/Atlas-Launcher/runner/internal/pointer"
)

// InlineWrite is one file to write verbatim relative to the staging root.
type InlineWrite struct {
	Rel  string
	Data []byte
}

// PlannedDep is one dependency to fetch and place at DestRel.
type PlannedDep struct {
	Dep     pack.Dependency
	DestRel string
}

// Plan is the pure, deterministic output of planning an apply.
type Plan struct {
	InlineWrites []InlineWrite
	Deps         []PlannedDep
}

// Compute builds a Plan from blob. It never touches the filesystem or the
// network: both dependency placement and inline-write selection are
// derived purely from the blob's own fields.
func Compute(blob pack.Blob) (Plan, error) {
	var p Plan

	for _, dep := range blob.Manifest.Dependencies {
		if dep.Side == pack.SideClient {
			continue
		}
		kind := pointer.KindOfDep(dep.Kind)
		pointerPath := pointer.ResolvePointerPath(dep.PointerPath, kind, dep.URL)
		destRel, err := pointer.DestinationRelPath(pointerPath, kind, dep.URL)
		if err != nil {
			return Plan{}, err
		}
		p.Deps = append(p.Deps, PlannedDep{Dep: dep, DestRel: destRel})
	}

	for _, f := range blob.Files {
		if err := pack.ValidateRelPath(f.Path); err != nil {
			return Plan{}, err
		}
		if _, isPointer := pointer.KindOf(f.Path); isPointer {
			// Pointer files describe where a dependency lands; they carry
			// no content of their own to write into the staging tree.
			continue
		}
		p.InlineWrites = append(p.InlineWrites, InlineWrite{Rel: f.Path, Data: f.Data})
	}

	return p, nil
}
