package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Atlas-Launcher/runner/internal/ipc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon and server status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := ipc.Dial(ctx, flagSocket)
	if err != nil {
		printError(err)
		return err
	}
	defer client.Close()

	var resp ipc.StatusResponsePayload
	if err := client.Call(ctx, ipc.StatusRequest{Kind: ipc.KindStatus}, &resp); err != nil {
		printError(err)
		return err
	}

	if flagJSON {
		return printJSON(resp)
	}
	fmt.Printf("daemon: %s\n", resp.Daemon)
	fmt.Printf("server: %+v\n", resp.Server)
	return nil
}
