package monitor

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Config governs the worker's scan cadence (fixed 3s sleep by default).
// ScanCron, when set, overrides the fixed interval with a cron-style
// schedule, letting an operator run scans on a wall-clock cadence (e.g.
// quiet hours) instead of a busy 3s poll. Leave both fields zero for the
// default behavior.
type Config struct {
	ScanInterval time.Duration `json:"scanInterval" yaml:"scanInterval" env:"MONITOR_SCAN_INTERVAL"`
	ScanCron     string        `json:"scanCron" yaml:"scanCron" env:"MONITOR_SCAN_CRON"`

	schedule cron.Schedule
}

// SetDefaults fills ScanInterval with the fixed 3s cadence when unset, and
// parses ScanCron (standard 5-field cron) when present.
func (c *Config) SetDefaults() error {
	if c.ScanInterval <= 0 {
		c.ScanInterval = pollInterval
	}
	if c.ScanCron == "" {
		return nil
	}
	schedule, err := cron.ParseStandard(c.ScanCron)
	if err != nil {
		return fmt.Errorf("monitor: invalid scanCron %q: %w", c.ScanCron, err)
	}
	c.schedule = schedule
	return nil
}

// nextDelay returns how long the worker should sleep before its next
// scan pass, given no consecutive failures are in play (those still use
// the fixed failureBackoff regardless of schedule).
func (c *Config) nextDelay(now time.Time) time.Duration {
	if c == nil {
		return pollInterval
	}
	if c.schedule != nil {
		return c.schedule.Next(now).Sub(now)
	}
	if c.ScanInterval > 0 {
		return c.ScanInterval
	}
	return pollInterval
}
