package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/abduss/msc/internal/auth"
	"github.com/abduss/msc/internal/metrics"
	"github.com/abduss/msc/internal/server"
	"github.com/abduss/msc/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func (c *cli) newServeCmd() *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the health/status HTTP server",
		Long: `Run one indexing pass, then reindex every TASK_DIR_TIME_MINUTES and
enforce quotas every TASK_CLEAN_TIME_MINUTES until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context(), skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply schema migrations on start")
	return cmd
}

func (c *cli) serve(ctx context.Context, skipMigrate bool) error {
	if !skipMigrate {
		if err := storage.Migrate(c.cfg.Postgres, c.log); err != nil {
			return err
		}
	}

	a, err := c.newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(c.log)

	metrics.InitMetrics()
	gin.SetMode(gin.ReleaseMode)

	deps := server.Dependencies{
		Config:      c.cfg,
		DB:          a.state,
		ObjectStore: a.objects,
		State:       a.state,
		Monitor:     a.monitor,
		Scheduler:   a.scheduler,
		Auth:        auth.NewVerifier(c.cfg.Auth),
	}
	if a.redis != nil {
		deps.Redis = a.redis
	}

	httpServer := &http.Server{
		Addr:         c.cfg.Server.Address(),
		Handler:      server.NewRouter(deps),
		ReadTimeout:  c.cfg.Server.ReadTimeout,
		WriteTimeout: c.cfg.Server.WriteTimeout,
		IdleTimeout:  c.cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.log.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.scheduler.Start(gctx, jobReindex)
	})
	g.Go(func() error {
		<-gctx.Done()
		c.log.Info("shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
