package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Atlas-Launcher/runner/internal/ipc"
)

var flagSubscribeTopics []string

var subscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Stream log/status/lifecycle events until interrupted",
	RunE:  runSubscribe,
}

func init() {
	subscribeCmd.Flags().StringSliceVar(&flagSubscribeTopics, "topics", []string{"Logs", "Status", "Lifecycle"}, "topics to subscribe to")
	rootCmd.AddCommand(subscribeCmd)
}

func runSubscribe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, err := ipc.Dial(ctx, flagSocket)
	if err != nil {
		printError(err)
		return err
	}
	defer client.Close()

	topics := make([]ipc.Topic, len(flagSubscribeTopics))
	for i, t := range flagSubscribeTopics {
		topics[i] = ipc.Topic(t)
	}

	req := ipc.SubscribeRequest{Kind: ipc.KindSubscribe, Topics: topics, SendInitialStatus: true}
	var resp ipc.SubscribedResponse
	if err := client.Call(ctx, req, &resp); err != nil {
		printError(err)
		return err
	}

	for env := range client.Events() {
		if flagJSON {
			fmt.Println(string(env.Payload))
			continue
		}
		fmt.Printf("%s\n", env.Payload)
	}
	return nil
}
