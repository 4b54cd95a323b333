package scheduler

import (
	"time"

	"github.com/smallbiznis/shelflife/internal/config"
)

// Config controls scheduler intervals and job selection.
type Config struct {
	RunInterval      time.Duration
	JobTimeout       time.Duration
	LockTTL          time.Duration
	ReceiptRetention time.Duration
	// EnabledJobs empty means every job runs.
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:      time.Minute,
		JobTimeout:       30 * time.Second,
		LockTTL:          5 * time.Minute,
		ReceiptRetention: 30 * 24 * time.Hour,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:      cfg.Scheduler.Interval,
		LockTTL:          cfg.Scheduler.LockTTL,
		ReceiptRetention: cfg.Scheduler.ReceiptRetention,
		EnabledJobs:      cfg.Scheduler.Jobs,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	if c.ReceiptRetention <= 0 {
		c.ReceiptRetention = defaults.ReceiptRetention
	}
	return c
}
