package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Atlas-Launcher/runner/internal/runtimepaths"
)

// Version is set at build time.
var Version = "dev"

var (
	flagSocket string
	flagJSON   bool
)

var rootCmd = &cobra.Command{
	Use:   "runnerctl",
	Short: "runnerctl talks to a running runnerd daemon",
	Long: `runnerctl is the command-line client for runnerd.

It connects to the daemon's local stream socket and issues one request
per invocation:

  $ runnerctl status
  $ runnerctl start myprofile --pack /path/to/pack.atlas
  $ runnerctl logs -n 200`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	defaultSocket := runtimepaths.Resolve().SocketPath
	rootCmd.PersistentFlags().StringVar(&flagSocket, "socket", defaultSocket, "path to the runnerd socket")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "runnerctl %s\n", Version)
		},
	})
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printError(err error) {
	fmt.Fprintf(os.Stderr, "%s %s\n", colorRed("Error:"), err.Error())
}

func colorRed(s string) string {
	if !isTTY() {
		return s
	}
	return "\033[31m" + s + "\033[0m"
}

func colorGreen(s string) string {
	if !isTTY() {
		return s
	}
	return "\033[32m" + s + "\033[0m"
}

func isTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
