package main

import (
	"context"

	"github.com/abduss/msc/internal/eviction"
	"github.com/abduss/msc/internal/indexer"
	"github.com/abduss/msc/internal/jobs"
	"github.com/abduss/msc/internal/objectstore"
	"github.com/abduss/msc/internal/quota"
	"github.com/abduss/msc/internal/state"
	"github.com/abduss/msc/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// app holds the wired services shared by every command.
type app struct {
	pool      *pgxpool.Pool
	redis     *redis.Client
	state     *state.Repository
	objects   *objectstore.MinIOStore
	monitor   *quota.Monitor
	indexer   *indexer.Service
	eviction  *eviction.Service
	scheduler *jobs.Scheduler
}

func (c *cli) newApp(ctx context.Context) (*app, error) {
	pool, err := storage.NewPostgresPool(ctx, c.cfg.Postgres)
	if err != nil {
		return nil, err
	}

	s3, err := storage.NewMinIOClient(c.cfg.MinIO)
	if err != nil {
		pool.Close()
		return nil, err
	}
	admin, err := storage.NewMinIOAdminClient(c.cfg.MinIO)
	if err != nil {
		pool.Close()
		return nil, err
	}

	a := &app{pool: pool}
	a.objects = objectstore.NewMinIOStore(s3, admin)
	a.state = state.NewRepository(pool)
	a.monitor = quota.NewMonitor(a.objects, c.cfg.Cleaner.CleanThresholdPercent, c.log)
	a.indexer = indexer.NewService(a.state, a.objects, a.monitor, c.log)
	a.eviction = eviction.NewService(a.state, a.objects, a.monitor, eviction.Config{
		DeletePercent: c.cfg.Cleaner.DeletePercent,
	}, c.log)

	var locker jobs.Locker = jobs.LocalLocker{}
	if c.cfg.Redis.Enabled {
		client, err := storage.NewRedisClient(ctx, c.cfg.Redis)
		if err != nil {
			pool.Close()
			return nil, err
		}
		a.redis = client
		locker = jobs.NewRedisLocker(client, c.cfg.Redis.LockTTL)
	} else {
		c.log.Warn("redis disabled, runs are only serialised within this process")
	}

	a.scheduler = jobs.NewScheduler(locker, c.log,
		jobs.Job{Name: jobReindex, Interval: c.cfg.Cleaner.ReindexInterval, Run: a.indexer.CheckDirs},
		jobs.Job{Name: jobEnforce, Interval: c.cfg.Cleaner.EnforceInterval, Run: a.eviction.EnforceAll},
	)
	return a, nil
}

func (a *app) close(log *zap.Logger) {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn("close redis", zap.Error(err))
		}
	}
	a.pool.Close()
}
