// Package preserve carries worlds and identity files across upgrades.
package preserve

import (
	"path/filepath"

	"github.com/Atlas-Launcher/runner/internal/fsutil"
)

// WorldDirs are the directories copied verbatim from an existing
// current/ into the new staging tree.
var WorldDirs = []string{"world", "world_nether", "world_the_end"}

// IdentityFiles are the flat files copied alongside the worlds.
var IdentityFiles = []string{
	"whitelist.json",
	"ops.json",
	"banned-ips.json",
	"banned-players.json",
	"usercache.json",
}

// Run copies worlds and identity files from currentDir into
// stagingCurrentDir. currentDir not existing at all is fine: every
// individual copy silently no-ops on a missing source, so a from-scratch
// install with no prior current/ simply preserves nothing.
func Run(currentDir, stagingCurrentDir string) error {
	for _, dir := range WorldDirs {
		if err := fsutil.CopyTree(filepath.Join(currentDir, dir), filepath.Join(stagingCurrentDir, dir)); err != nil {
			return err
		}
	}
	for _, name := range IdentityFiles {
		if err := fsutil.CopyFile(filepath.Join(currentDir, name), filepath.Join(stagingCurrentDir, name)); err != nil {
			return err
		}
	}
	return nil
}
