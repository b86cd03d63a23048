package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/ymm-sync/internal/config"
	"github.com/JakeFAU/ymm-sync/internal/server"
)

// version is stamped at build time with -ldflags "-X".
var version = "dev"

// Runner is what serve needs from the application. Tests swap in a fake.
type Runner interface {
	Run(ctx context.Context) error
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, cfg *config.Config) (Runner, error) {
	return server.Build(ctx, cfg, version)
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "ymmsync",
		Short: "Vehicle fitment extraction for storefront product webhooks.",
		Long: `ymmsync receives product create/update webhooks, extracts the
year/make/model combinations a product fits, and upserts one record per
combination into the fitment table.`,
		SilenceUsage: true,
		Version:      version,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")

	cmd.AddCommand(newServeCmd(&cfgFile))
	cmd.AddCommand(newExtractCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
