package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Atlas-Launcher/runner/internal/ipc"
)

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Ask the daemon to shut down cleanly",
	RunE:  runShutdown,
}

func init() {
	rootCmd.AddCommand(shutdownCmd)
}

func runShutdown(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := ipc.Dial(ctx, flagSocket)
	if err != nil {
		printError(err)
		return err
	}
	defer client.Close()

	var resp ipc.ShutdownAckResponse
	if err := client.Call(ctx, ipc.ShutdownRequest{Kind: ipc.KindShutdown}, &resp); err != nil {
		printError(err)
		return err
	}

	if flagJSON {
		return printJSON(resp)
	}
	fmt.Println(colorGreen("shutdown acknowledged"))
	return nil
}
