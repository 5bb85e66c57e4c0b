package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"basegraph.app/convene/internal/queue"
)

var enqueueFile string

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Queue a meeting request for the worker",
	Long: `Append a meeting request to the Redis request stream (REDIS_REQUEST_STREAM).
A running convene worker picks it up and publishes the decision to REDIS_STREAM.

Examples:
  convene enqueue --file request.json
  cat request.json | convene enqueue --file -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Redis.Enabled() {
			return fmt.Errorf("REDIS_URL is not set")
		}

		req, err := readRequest(cmd.InOrStdin(), enqueueFile)
		if err != nil {
			return err
		}

		client, err := queue.Connect(cmd.Context(), cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer client.Close()

		entryID, err := queue.Enqueue(cmd.Context(), client, cfg.Redis.RequestStream, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "queued %s as %s on %s\n", req.RequestID, entryID, cfg.Redis.RequestStream)
		return nil
	},
}

func init() {
	enqueueCmd.Flags().StringVarP(&enqueueFile, "file", "f", "", "request JSON file, - for stdin")
	_ = enqueueCmd.MarkFlagRequired("file")
}
