package scheduler

import (
	"time"

	"github.com/smallbiznis/showcase/internal/config"
)

const (
	JobRescorePending = "rescore_pending"
	JobRescoreSweep   = "rescore_sweep"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	RunInterval time.Duration
	BatchSize   int
	// SweepEvery runs the full rescore once per this many ticks, starting with the first.
	SweepEvery       int
	SweepConcurrency int
	JobTimeout       time.Duration
	SweepTimeout     time.Duration
	EnabledJobs      []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:      time.Hour,
		BatchSize:        100,
		SweepEvery:       24,
		SweepConcurrency: 4,
		JobTimeout:       30 * time.Second,
		SweepTimeout:     30 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.SweepEvery <= 0 {
		c.SweepEvery = defaults.SweepEvery
	}
	if c.SweepConcurrency <= 0 {
		c.SweepConcurrency = defaults.SweepConcurrency
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.SweepTimeout <= 0 {
		c.SweepTimeout = defaults.SweepTimeout
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:      cfg.SchedulerInterval,
		BatchSize:        cfg.SchedulerBatchSize,
		SweepConcurrency: cfg.SchedulerConcurrency,
		EnabledJobs:      cfg.SchedulerJobs,
	}.withDefaults()
}
