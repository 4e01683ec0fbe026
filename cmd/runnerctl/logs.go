package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Atlas-Launcher/runner/internal/ipc"
)

var flagLogsLines int

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the most recent retained server log lines",
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().IntVarP(&flagLogsLines, "lines", "n", 100, "number of lines to retrieve")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := ipc.Dial(ctx, flagSocket)
	if err != nil {
		printError(err)
		return err
	}
	defer client.Close()

	req := ipc.LogsTailRequest{Kind: ipc.KindLogsTail, Lines: flagLogsLines}
	var resp ipc.LogsTailResponse
	if err := client.Call(ctx, req, &resp); err != nil {
		printError(err)
		return err
	}

	if flagJSON {
		return printJSON(resp)
	}

	lines, ok := resp.Lines.([]interface{})
	if !ok {
		return printJSON(resp)
	}
	if resp.Truncated {
		fmt.Println(colorGreen("(older lines truncated)"))
	}
	for _, l := range lines {
		fmt.Printf("%v\n", l)
	}
	return nil
}
