package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/abduss/msc/internal/auth"
	"github.com/abduss/msc/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (c *cli) newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex [bucket...]",
		Short: "Run one indexing pass and exit",
		Long: `Without arguments, register every quota-bearing bucket and index its
leaf directories, as the scheduled job does. With arguments, register and
index only the named buckets.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(c.log)

			if len(args) == 0 {
				return a.scheduler.RunOnce(ctx, jobReindex)
			}
			for _, name := range args {
				if _, _, err := a.state.InsertBucket(ctx, name); err != nil {
					return fmt.Errorf("register bucket %s: %w", name, err)
				}
				report, err := a.indexer.Reindex(ctx, name)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (c *cli) newEnforceCmd() *cobra.Command {
	var bucket string

	cmd := &cobra.Command{
		Use:   "enforce",
		Short: "Run one quota enforcement pass and exit",
		Long: `Without --bucket, clean every quota-bearing bucket whose free headroom
is below CLEAN_PERCENT, as the scheduled job does. With --bucket, run one
cleanup cycle on that bucket regardless of its headroom.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := c.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(c.log)

			if bucket == "" {
				return a.scheduler.RunOnce(ctx, jobEnforce)
			}
			res, err := a.eviction.EnforceQuota(ctx, bucket)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&bucket, "bucket", "b", "", "clean only this bucket")
	return cmd
}

func (c *cli) newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return storage.Migrate(c.cfg.Postgres, c.log)
		},
	}
}

func (c *cli) newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin token for the job-trigger endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, exp, err := auth.NewVerifier(c.cfg.Auth).Issue(subject, ttl)
			if err != nil {
				return err
			}
			c.log.Info("admin token issued", zap.String("subject", subject), zap.Time("expires_at", exp))
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
