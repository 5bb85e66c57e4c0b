package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"basegraph.app/convene/common/id"
	"basegraph.app/convene/common/logger"
	"basegraph.app/convene/core/config"
)

var (
	verbose bool
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "convene",
	Short: "Coordinate meeting times across participants",
	Long: `convene runs the meeting coordination pipeline without the HTTP server.

Configuration comes from the same environment variables as the server
(.env.cli, then .env, in development).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(config.ServiceTypeCLI)
		if err != nil {
			return err
		}
		logger.SetupCLI(verbose)
		return id.Init(cfg.NodeID)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline progress")
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(enqueueCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
