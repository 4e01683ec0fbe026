// Package main is the runnerd supervisor daemon: one process per server
// root that provisions packs, owns the Minecraft server child, and
// speaks the IPC protocol to runnerctl.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
