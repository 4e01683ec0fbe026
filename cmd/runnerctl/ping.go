package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Atlas-Launcher/runner/internal/ipc"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the daemon is reachable and protocol-compatible",
	RunE:  runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := ipc.Dial(ctx, flagSocket)
	if err != nil {
		printError(err)
		return err
	}
	defer client.Close()

	req := ipc.PingRequest{Kind: ipc.KindPing, ClientVersion: Version, ProtocolVersion: ipc.ProtocolVersion}
	var resp ipc.PongResponse
	if err := client.Call(ctx, req, &resp); err != nil {
		printError(err)
		return err
	}

	if flagJSON {
		return printJSON(resp)
	}
	fmt.Printf("%s daemon %s (protocol %d)\n", colorGreen("pong:"), resp.DaemonVersion, resp.ProtocolVersion)
	return nil
}
