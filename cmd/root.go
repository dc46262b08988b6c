package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domain-crawler",
		Short: "Crawls single web domains on request and reports what it found.",
		Long: `domain-crawler runs an HTTP control API. Each POST /domains request
starts a crawl of one domain that follows every in-domain link allowed by the
site's robots.txt, deduplicating URLs as it goes. Discovered URLs and their
counts are queryable while and after the crawl runs.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (env vars prefixed CRAWLER_ override it)")

	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "domain-crawler: %v\n", err)
		os.Exit(1)
	}
}
