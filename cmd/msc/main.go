// msc keeps quota-managed MinIO buckets under their quota by evicting the
// oldest objects of the least recently cleaned directories.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/abduss/msc/internal/config"
	"github.com/abduss/msc/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	jobReindex = "reindex"
	jobEnforce = "enforce"
)

type cli struct {
	cfg config.Config
	log *zap.Logger
}

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "msc",
		Short: "MinIO storage cleaner",
		Long: `msc enforces per-bucket quotas on a MinIO server.

It indexes the leaf directories of every bucket that has a quota and, when a
bucket's free headroom drops below CLEAN_PERCENT, deletes the oldest objects
of the least recently cleaned directories, PERCENT_DELETE_FILES percent of the
bucket's objects per cycle.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log, err := logger.Init()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			c.log, c.cfg = log, cfg
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}

	rootCmd.AddCommand(
		c.newServeCmd(),
		c.newReindexCmd(),
		c.newEnforceCmd(),
		c.newMigrateCmd(),
		c.newTokenCmd(),
	)
	return rootCmd
}
