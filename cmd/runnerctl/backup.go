package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Atlas-Launcher/runner/internal/ipc"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Run an on-demand world backup",
	RunE:  runBackup,
}

func init() {
	rootCmd.AddCommand(backupCmd)
}

func runBackup(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client, err := ipc.Dial(ctx, flagSocket)
	if err != nil {
		printError(err)
		return err
	}
	defer client.Close()

	var resp ipc.BackupCreatedResponse
	if err := client.Call(ctx, ipc.BackupRequest{Kind: ipc.KindBackup}, &resp); err != nil {
		printError(err)
		return err
	}

	if flagJSON {
		return printJSON(resp)
	}
	fmt.Printf("%s %s\n", colorGreen("backup created:"), resp.Path)
	return nil
}
