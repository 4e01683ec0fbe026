package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Atlas-Launcher/runner/internal/ipc"
)

var (
	flagStopForce   bool
	flagStopGraceMs int64
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running server",
	RunE:  runStop,
}

func init() {
	stopCmd.Flags().BoolVar(&flagStopForce, "force", false, "skip the cooperative RCON stop and terminate immediately")
	stopCmd.Flags().Int64Var(&flagStopGraceMs, "grace-ms", 0, "milliseconds to wait for a cooperative exit before escalating")
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := ipc.Dial(ctx, flagSocket)
	if err != nil {
		printError(err)
		return err
	}
	defer client.Close()

	req := ipc.StopRequest{Kind: ipc.KindStop, Force: flagStopForce}
	if flagStopGraceMs > 0 {
		req.GraceMs = &flagStopGraceMs
	}

	var resp ipc.StoppedResponse
	if err := client.Call(ctx, req, &resp); err != nil {
		printError(err)
		return err
	}

	if flagJSON {
		return printJSON(resp)
	}
	exit := "unknown"
	if resp.ExitCode != nil {
		exit = fmt.Sprintf("%d", *resp.ExitCode)
	}
	fmt.Printf("%s exit %s\n", colorGreen("stopped:"), exit)
	return nil
}
