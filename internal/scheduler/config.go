package scheduler

import (
	"time"

	"github.com/smallbiznis/lis/internal/config"
)

// Config controls scheduler intervals, batch sizes and retention windows.
type Config struct {
	RunInterval      time.Duration
	JobTimeout       time.Duration
	BatchSize        int
	SessionRetention time.Duration
	// AuditRetention of zero keeps audit logs forever.
	AuditRetention time.Duration
	EnabledJobs    []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:      5 * time.Minute,
		JobTimeout:       30 * time.Second,
		BatchSize:        500,
		SessionRetention: 7 * 24 * time.Hour,
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
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.SessionRetention <= 0 {
		c.SessionRetention = defaults.SessionRetention
	}
	if c.AuditRetention < 0 {
		c.AuditRetention = 0
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:      cfg.Scheduler.RunInterval,
		BatchSize:        cfg.Scheduler.BatchSize,
		SessionRetention: cfg.Scheduler.SessionRetention,
		AuditRetention:   cfg.Scheduler.AuditRetention,
		EnabledJobs:      cfg.Scheduler.EnabledJobs,
	}
}
