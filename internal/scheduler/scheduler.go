package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/showcase/internal/clock"
	"github.com/smallbiznis/showcase/internal/lock"
	obsmetrics "github.com/smallbiznis/showcase/internal/observability/metrics"
	scoringdomain "github.com/smallbiznis/showcase/internal/scoring/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

const (
	sweepLockKey     = "showcase:scheduler:" + JobRescoreSweep
	maxPendingPasses = 10
)

type Params struct {
	fx.In

	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Scoring scoringdomain.Service
	Locker  lock.Locker `optional:"true"`
	Config  Config      `optional:"true"`
}

type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	genID   *snowflake.Node
	clock   clock.Clock
	scoring scoringdomain.Service
	locker  lock.Locker

	mu    sync.Mutex
	ticks int
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Scoring == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		genID:   p.GenID,
		clock:   p.Clock,
		scoring: p.Scoring,
		locker:  p.Locker,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(run)
	}
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if owner {
		if err != nil {
			run.AddErrors(1)
		}
		s.logJobFinish(run)
	}
	if err == nil {
		return nil
	}

	// deadline is a soft timeout; the next tick picks up the remainder
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce executes one tick: pending rescoring always, the full sweep on the
// first tick and then every SweepEvery ticks.
func (s *Scheduler) RunOnce(parent context.Context) error {
	s.mu.Lock()
	tick := s.ticks
	s.ticks++
	s.mu.Unlock()

	var err error
	if s.isJobEnabled(JobRescorePending) {
		err = errors.Join(err, s.runJob(parent, JobRescorePending, s.cfg.BatchSize, s.cfg.JobTimeout, s.RescorePendingJob))
	}
	if tick%s.cfg.SweepEvery == 0 && s.isJobEnabled(JobRescoreSweep) {
		err = errors.Join(err, s.runJob(parent, JobRescoreSweep, s.cfg.BatchSize, s.cfg.SweepTimeout, s.RescoreSweepJob))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// empty means every job runs
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// RescorePendingJob drains products flagged by counter or override changes.
// Each pass is bounded by the batch size so a hot catalog cannot starve the tick.
func (s *Scheduler) RescorePendingJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	for pass := 0; pass < maxPendingPasses; pass++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := s.scoring.RecalculatePending(ctx, s.cfg.BatchSize)
		s.record(JobRescorePending, run, res)
		if err != nil {
			return err
		}
		if res.Processed < s.cfg.BatchSize || res.Processed == res.Failed {
			return nil
		}
	}
	return nil
}

// RescoreSweepJob rescores the whole catalog so novelty and recency decay is
// reflected. Only one instance sweeps at a time when a shared locker is configured.
func (s *Scheduler) RescoreSweepJob(ctx context.Context) error {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, sweepLockKey)
		if errors.Is(err, lock.ErrLockTimeout) {
			s.log.Info("rescore sweep skipped, held elsewhere")
			return nil
		}
		if err != nil {
			return err
		}
		defer release()
	}

	res, err := s.scoring.RecalculateAll(ctx, s.cfg.BatchSize, s.cfg.SweepConcurrency)
	s.record(JobRescoreSweep, jobRunFromContext(ctx), res)
	return err
}

func (s *Scheduler) record(job string, run *jobRun, res scoringdomain.BatchResult) {
	run.AddProcessed(res.Processed, res.Changed)
	run.AddErrors(res.Failed)
	obsmetrics.Scheduler().AddBatchProcessed(job, "product", res.Processed)
}
