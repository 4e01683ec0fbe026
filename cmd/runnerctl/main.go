// Package main is runnerctl, the command-line client for a running
// runnerd daemon.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
