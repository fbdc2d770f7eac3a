// Package cmd implements the CLI entry points for the Hydra Frog crawl
// execution engine: enqueueing crawl jobs and running the worker that
// consumes them.
package cmd

import "github.com/spf13/cobra"

// Version is set at build time via -ldflags.
var Version = "dev"

var configFile string

var rootCmd = &cobra.Command{
	Use:           "hydrafrog",
	Short:         "Hydra Frog — multi-tenant crawl execution engine",
	SilenceErrors: true,
	SilenceUsage:  true,
	Long: `Hydra Frog runs the crawl execution engine: a bounded breadth-first
site crawler that extracts SEO metadata, detects structural issues, and
persists per-crawl reports for an external control plane to serve.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a process config file (optional; env HYDRAFROG_* always applies)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version of Hydra Frog",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("hydrafrog", Version)
		},
	})
}

// Execute runs the root command. It is the single entry point called by main.
func Execute() error {
	return rootCmd.Execute()
}
