// Package jobs runs the cleaner's periodic work.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abduss/msc/internal/logger"
	"github.com/abduss/msc/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const releaseTimeout = 5 * time.Second

var (
	// ErrJobRunning is returned when a run of the same job is already in progress.
	ErrJobRunning = errors.New("job already running")
	// ErrUnknownJob is returned for names the scheduler was not given.
	ErrUnknownJob = errors.New("unknown job")
)

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type entry struct {
	job  Job
	busy atomic.Bool
}

// Scheduler fires each job on its own interval and never overlaps two runs of
// the same job.
type Scheduler struct {
	entries map[string]*entry
	order   []string
	locker  Locker
	log     *zap.Logger

	mu      sync.Mutex
	baseCtx context.Context
	wg      sync.WaitGroup
}

// NewScheduler builds a scheduler. A nil locker means LocalLocker.
func NewScheduler(locker Locker, log *zap.Logger, jobs ...Job) *Scheduler {
	if locker == nil {
		locker = LocalLocker{}
	}
	s := &Scheduler{
		entries: make(map[string]*entry, len(jobs)),
		locker:  locker,
		log:     logger.OrNop(log).Named("jobs"),
		baseCtx: context.Background(),
	}
	for _, j := range jobs {
		s.entries[j.Name] = &entry{job: j}
		s.order = append(s.order, j.Name)
	}
	return s
}

// Jobs returns the registered job names in registration order.
func (s *Scheduler) Jobs() []string {
	return append([]string(nil), s.order...)
}

// Start runs the initial job once, when named, then fires every job on its
// interval until ctx is cancelled. It waits for in-flight runs before returning.
func (s *Scheduler) Start(ctx context.Context, initial string) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	if initial != "" {
		if err := s.RunOnce(ctx, initial); err != nil && !errors.Is(err, ErrJobRunning) {
			if errors.Is(err, ErrUnknownJob) {
				return err
			}
			s.log.Error("initial run failed", zap.String("job", initial), zap.Error(err))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range s.order {
		e := s.entries[name]
		g.Go(func() error {
			s.loop(gctx, e)
			return nil
		})
	}
	err := g.Wait()
	s.wg.Wait()
	return err
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	ticker := time.NewTicker(e.job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !e.busy.CompareAndSwap(false, true) {
				s.log.Warn("previous run still in progress, tick skipped", zap.String("job", e.job.Name))
				metrics.JobRuns.WithLabelValues(e.job.Name, "skipped").Inc()
				continue
			}
			_ = s.execute(ctx, e)
		}
	}
}

// RunOnce runs the job synchronously.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	e, err := s.claim(name)
	if err != nil {
		return err
	}
	return s.execute(ctx, e)
}

// Trigger starts the job in the background and returns immediately.
func (s *Scheduler) Trigger(name string) error {
	e, err := s.claim(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.execute(ctx, e)
	}()
	return nil
}

// Running reports whether the named job has a run in progress.
func (s *Scheduler) Running(name string) bool {
	e, ok := s.entries[name]
	return ok && e.busy.Load()
}

func (s *Scheduler) claim(name string) (*entry, error) {
	e, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	if !e.busy.CompareAndSwap(false, true) {
		metrics.JobRuns.WithLabelValues(name, "skipped").Inc()
		return nil, fmt.Errorf("%w: %s", ErrJobRunning, name)
	}
	return e, nil
}

// execute runs a claimed entry and clears its busy flag afterwards.
func (s *Scheduler) execute(ctx context.Context, e *entry) error {
	defer e.busy.Store(false)

	name := e.job.Name
	log := s.log.With(zap.String("job", name), zap.String("run_id", uuid.NewString()))

	token, ok, err := s.locker.Acquire(ctx, name)
	if err != nil {
		log.Error("lock unavailable", zap.Error(err))
		metrics.JobRuns.WithLabelValues(name, "failed").Inc()
		return err
	}
	if !ok {
		log.Info("job held by another instance, run skipped")
		metrics.JobRuns.WithLabelValues(name, "skipped").Inc()
		return fmt.Errorf("%w: %s", ErrJobRunning, name)
	}
	defer func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := s.locker.Release(rctx, name, token); err != nil {
			log.Warn("lock release failed", zap.Error(err))
		}
	}()

	log.Info("job started")
	start := time.Now()
	err = e.job.Run(ctx)
	elapsed := time.Since(start)
	metrics.JobDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	if err != nil {
		log.Error("job failed", zap.Duration("duration", elapsed), zap.Error(err))
		metrics.JobRuns.WithLabelValues(name, "failed").Inc()
		return err
	}
	log.Info("job finished", zap.Duration("duration", elapsed))
	metrics.JobRuns.WithLabelValues(name, "ok").Inc()
	return nil
}
