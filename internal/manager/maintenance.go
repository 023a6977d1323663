package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rcliao/lorekeeper/internal/local"
	"github.com/rcliao/lorekeeper/internal/logger"
)

// DefaultMaintenanceSchedule runs maintenance every ten minutes.
const DefaultMaintenanceSchedule = "@every 10m"

// scheduleParser accepts standard five-field expressions and descriptors such as "@every 1h".
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// MaintenanceConfig controls what a Maintainer does on each run.
type MaintenanceConfig struct {
	Schedule string
	Forget   local.ForgetPolicy
	SaveDir  string  // autosave target, empty to skip
	Archive  Archive // snapshot target, nil to skip
}

// Report describes one maintenance run.
type Report struct {
	Forgotten map[string]int `json:"forgotten"`
	Saved     bool           `json:"saved"`
	Archived  int            `json:"archived"`
}

// Maintainer periodically forgets stale recollections and saves the world.
type Maintainer struct {
	m        *Manager
	cfg      MaintenanceConfig
	schedule cron.Schedule
}

// NewMaintainer validates the schedule and returns a maintainer for m.
func NewMaintainer(m *Manager, cfg MaintenanceConfig) (*Maintainer, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultMaintenanceSchedule
	}
	sched, err := scheduleParser.Parse(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", cfg.Schedule, err)
	}
	return &Maintainer{m: m, cfg: cfg, schedule: sched}, nil
}

// Next returns the next run time after t.
func (mt *Maintainer) Next(t time.Time) time.Time {
	return mt.schedule.Next(t)
}

// Run executes maintenance on schedule until ctx is done.
func (mt *Maintainer) Run(ctx context.Context) {
	for {
		now := time.Now()
		timer := time.NewTimer(mt.Next(now).Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Debug("maintainer stopping", "world", mt.m.WorldID())
			return
		case <-timer.C:
			if _, err := mt.RunOnce(ctx); err != nil {
				logger.Error("maintenance failed", "world", mt.m.WorldID(), "error", err)
			}
		}
	}
}

// RunOnce forgets, then saves and archives when configured.
func (mt *Maintainer) RunOnce(ctx context.Context) (Report, error) {
	r := Report{Forgotten: mt.m.Forget(mt.cfg.Forget)}

	total := 0
	for _, n := range r.Forgotten {
		total += n
	}
	if total > 0 {
		logger.Info("recollections forgotten", "world", mt.m.WorldID(), "count", total)
	}

	if mt.cfg.SaveDir != "" {
		if err := mt.m.SaveAll(mt.cfg.SaveDir); err != nil {
			return r, err
		}
		r.Saved = true
	}
	if mt.cfg.Archive != nil {
		snaps, err := mt.m.Snapshot(ctx, mt.cfg.Archive, "maintenance")
		r.Archived = len(snaps)
		if err != nil {
			return r, err
		}
	}
	return r, nil
}
