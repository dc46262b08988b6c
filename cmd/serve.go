package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/domain-crawler/internal/config"
	"github.com/JakeFAU/domain-crawler/internal/server"
)

// runServer builds and runs the service. It's a variable so tests can
// replace it.
var runServer = func(ctx context.Context, cfg *config.Config) error {
	app, err := server.Build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application services: %w", err)
	}
	return app.Run(ctx)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Starts the crawl control API",
		Long: `Serves the HTTP control API until SIGINT, SIGTERM or SIGQUIT arrives.
On shutdown the listener stops first, then running crawl sessions are
cancelled and given crawler.drain_timeout to exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return runServer(cmd.Context(), &cfg)
		},
	}
}
