package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"hydrafrog/internal/config"
	"hydrafrog/internal/queue"
)

func init() {
	enqueueCmd := &cobra.Command{
		Use:   "enqueue <crawlRunId> <projectId>",
		Short: "Push a crawl job onto the queue without the REST control plane",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			proc, err := config.LoadProcess(configFile)
			if err != nil {
				return fmt.Errorf("load process config: %w", err)
			}

			dispatcher := queue.NewDispatcher(proc.RedisAddr)
			defer dispatcher.Close()

			if err := dispatcher.Enqueue(context.Background(), args[0], args[1]); err != nil {
				return fmt.Errorf("enqueue job: %w", err)
			}

			cmd.Printf("enqueued crawl run %s for project %s\n", args[0], args[1])
			return nil
		},
	}

	rootCmd.AddCommand(enqueueCmd)
}
