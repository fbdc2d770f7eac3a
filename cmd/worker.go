package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"hydrafrog/internal/bfs"
	"hydrafrog/internal/config"
	"hydrafrog/internal/jobrunner"
	"hydrafrog/internal/logging"
	"hydrafrog/internal/persistence"
	"hydrafrog/internal/postprocess"
	"hydrafrog/internal/queue"
)

func init() {
	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "Start the asynq worker that consumes crawl jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			proc, err := config.LoadProcess(configFile)
			if err != nil {
				return fmt.Errorf("load process config: %w", err)
			}

			logger, err := logging.New(proc.LogLevel)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			defer logger.Sync()

			db, err := gorm.Open(postgres.Open(proc.PostgresDSN), &gorm.Config{})
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			store := persistence.New(db)
			if err := store.Migrate(context.Background()); err != nil {
				return fmt.Errorf("migrate store: %w", err)
			}

			driver := bfs.New(store, logger, nil).WithTimeout(proc.DefaultHTTPTimeout)
			runner := jobrunner.New(store, driver, func(ctx context.Context, crawlRunID string) error {
				return postprocess.Run(ctx, store, crawlRunID)
			}, logger)

			server := queue.NewServer(proc.RedisAddr, proc.WorkerConcurrency, logger)
			server.RegisterCrawlHandler(runner)

			logger.Info("worker starting", zap.String("redisAddr", proc.RedisAddr), zap.Int("concurrency", proc.WorkerConcurrency))
			return server.Run()
		},
	}

	rootCmd.AddCommand(workerCmd)
}
