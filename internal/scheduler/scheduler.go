// Package scheduler runs the console's background jobs on cron schedules:
// the server health probe, the optional discovery refresh, and host vitals
// sampling for the metrics window.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"sovdscope/internal/config"
	"sovdscope/internal/console"
	"sovdscope/internal/logging"
	"sovdscope/internal/realtime"
	"sovdscope/internal/system"
)

// vitalsSchedule drives the metrics window; independent of user config.
const vitalsSchedule = "@every 5s"

// Scheduler owns the cron runner and its jobs.
type Scheduler struct {
	cron    *cron.Cron
	console *console.Console
	metrics *realtime.Metrics
}

// New builds the scheduler with all jobs registered but not running.
func New(cfg *config.Config, c *console.Console, metrics *realtime.Metrics) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		console: c,
		metrics: metrics,
	}

	if _, err := s.cron.AddFunc(cfg.HealthSchedule, s.probeHealth); err != nil {
		return nil, err
	}

	if cfg.RefreshSchedule != "" {
		if _, err := s.cron.AddFunc(cfg.RefreshSchedule, s.refreshDiscovery); err != nil {
			return nil, err
		}
	}

	if metrics != nil {
		if _, err := s.cron.AddFunc(vitalsSchedule, s.sampleVitals); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Start begins running the jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) probeHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), config.HealthTimeout)
	defer cancel()
	s.console.ProbeHealth(ctx)
}

func (s *Scheduler) refreshDiscovery() {
	if !s.console.Connected() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), config.DataTimeout)
	defer cancel()
	if err := s.console.RefreshDiscovery(ctx); err != nil {
		logging.Warning("Scheduled discovery refresh failed: %v", err)
	}
}

func (s *Scheduler) sampleVitals() {
	vitals, err := system.GetVitals()
	if err != nil {
		logging.Warning("Failed to sample host vitals: %v", err)
		return
	}
	s.metrics.Add(vitals.CPUPercent, vitals.MemPercent, vitals.DiskPercent)
}
