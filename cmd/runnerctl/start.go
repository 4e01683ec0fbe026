package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Atlas-Launcher/runner/internal/ipc"
)

var (
	flagStartPack string
)

var startCmd = &cobra.Command{
	Use:   "start [profile]",
	Short: "Apply a pack and launch the server",
	Args:  cobra.ExactArgs(1),
	RunE:  runStart,
}

func init() {
	startCmd.Flags().StringVar(&flagStartPack, "pack", "", "path to the pack blob to apply (required)")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	if flagStartPack == "" {
		return fmt.Errorf("--pack is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	client, err := ipc.Dial(ctx, flagSocket)
	if err != nil {
		printError(err)
		return err
	}
	defer client.Close()

	req := ipc.StartRequest{
		Kind:    ipc.KindStart,
		Profile: args[0],
		Env:     map[string]string{"ATLAS_PACK_BLOB": flagStartPack},
	}
	var resp ipc.StartedResponse
	if err := client.Call(ctx, req, &resp); err != nil {
		printError(err)
		return err
	}

	if flagJSON {
		return printJSON(resp)
	}
	fmt.Printf("%s profile %q pid %d\n", colorGreen("started:"), resp.Profile, resp.PID)
	return nil
}
