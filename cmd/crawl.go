package cmd

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"hydrafrog/internal/bfs"
	"hydrafrog/internal/config"
	"hydrafrog/internal/jobrunner"
	"hydrafrog/internal/logging"
	"hydrafrog/internal/model"
	"hydrafrog/internal/persistence"
	"hydrafrog/internal/postprocess"
)

type crawlOptions struct {
	maxPages          int
	maxDepth          int
	throttleMs        int
	includeSubdomains bool
	userAgent         string
	timeout           time.Duration
	logLevel          string
}

func init() {
	opts := &crawlOptions{}

	crawlCmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "Run a queue-free, single crawl against an in-memory store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rootURL := strings.TrimSpace(args[0])
			parsed, err := url.Parse(rootURL)
			if err != nil || parsed.Host == "" {
				return fmt.Errorf("invalid url %q", rootURL)
			}

			logger, err := logging.New(opts.logLevel)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			defer logger.Sync()

			db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			store := persistence.New(db)
			ctx := context.Background()
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate store: %w", err)
			}

			settings := config.DefaultSettings()
			settings.MaxPages = opts.maxPages
			settings.MaxDepth = opts.maxDepth
			settings.ThrottleMs = opts.throttleMs
			settings.IncludeSubdomains = opts.includeSubdomains
			settings.UserAgent = opts.userAgent
			settingsJSON, err := config.MarshalSettings(settings)
			if err != nil {
				return fmt.Errorf("encode settings: %w", err)
			}

			project := model.Project{
				ID:       uuid.NewString(),
				StartURL: rootURL,
				Domain:   parsed.Hostname(),
			}
			if err := db.Create(&project).Error; err != nil {
				return fmt.Errorf("create project: %w", err)
			}

			run := model.CrawlRun{
				ID:                   uuid.NewString(),
				ProjectID:            project.ID,
				Status:               model.StatusQueued,
				SettingsSnapshotJSON: settingsJSON,
			}
			if err := db.Create(&run).Error; err != nil {
				return fmt.Errorf("create run: %w", err)
			}

			driver := bfs.New(store, logger, nil).WithTimeout(opts.timeout)
			runner := jobrunner.New(store, driver, func(ctx context.Context, crawlRunID string) error {
				return postprocess.Run(ctx, store, crawlRunID)
			}, logger)

			if err := runner.Execute(ctx, run.ID, project.ID); err != nil {
				return fmt.Errorf("crawl run failed: %w", err)
			}

			return printSummary(ctx, store, run.ID)
		},
	}

	crawlCmd.Flags().IntVar(&opts.maxPages, "max-pages", config.DefaultSettings().MaxPages, "Hard cap on distinct normalized URLs admitted")
	crawlCmd.Flags().IntVar(&opts.maxDepth, "max-depth", config.DefaultSettings().MaxDepth, "URLs with depth > max-depth are skipped")
	crawlCmd.Flags().IntVar(&opts.throttleMs, "throttle-ms", config.DefaultSettings().ThrottleMs, "Sleep between page iterations, in milliseconds")
	crawlCmd.Flags().BoolVar(&opts.includeSubdomains, "include-subdomains", false, "Classify subdomains of the target host as internal")
	crawlCmd.Flags().StringVar(&opts.userAgent, "user-agent", config.DefaultSettings().UserAgent, "Crawler user-agent")
	crawlCmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Timeout per HTTP request (e.g. 10s, 1m)")
	crawlCmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "Logger level (debug, info, warn, error)")

	rootCmd.AddCommand(crawlCmd)
}

func printSummary(ctx context.Context, store *persistence.Store, runID string) error {
	run, err := store.LoadRun(ctx, runID)
	if err != nil {
		return err
	}
	pages, err := store.Pages(ctx, runID)
	if err != nil {
		return err
	}
	totals, err := config.UnmarshalTotals(run.TotalsJSON)
	if err != nil {
		return err
	}

	fmt.Printf("\nCrawl complete (status: %s)\n", run.Status)
	fmt.Printf("  Pages:          %d\n", len(pages))
	fmt.Printf("  Links:          %d (internal: %d, external: %d)\n", totals.LinksCount, totals.InternalLinksCount, totals.ExternalLinksCount)
	fmt.Printf("  Broken links:   %d\n", totals.BrokenInternalLinksCount)
	fmt.Printf("  Issues:         %d\n", totals.IssueCountTotal)
	if totals.LastErrorMessage != "" {
		fmt.Printf("  Last error:     %s\n", totals.LastErrorMessage)
	}
	return nil
}
