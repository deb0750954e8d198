package app

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs the billing jobs on their cron schedules, in local time.
type Scheduler struct {
	cron *cron.Cron
	jobs *Jobs
	log  logrus.FieldLogger
}

func NewScheduler(a *App, jobs *Jobs) *Scheduler {
	cronLogger := cron.PrintfLogger(a.Log)
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(a.Clock.Location()),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	return &Scheduler{cron: c, jobs: jobs, log: a.Log}
}

// Register adds every job with a non-empty schedule.
func (s *Scheduler) Register(schedules map[string]string) error {
	funcs := map[string]func(){
		"closure":       s.jobs.ClosePreviousPeriod,
		"early_freeze":  s.jobs.EarlyFreeze,
		"watchdog":      s.jobs.Watchdog,
		"rates_refresh": s.jobs.RefreshRates,
		"sync_totals":   s.jobs.SyncTotals,
	}
	for name, expr := range schedules {
		fn, ok := funcs[name]
		if !ok || expr == "" {
			continue
		}
		if _, err := s.cron.AddFunc(expr, fn); err != nil {
			s.log.WithError(err).WithField("job", name).Error("failed to schedule job")
			return err
		}
		s.log.WithFields(logrus.Fields{"job": name, "schedule": expr}).Info("scheduled job")
	}
	return nil
}

// Schedules maps job names to the configured cron expressions.
func (a *App) Schedules() map[string]string {
	return map[string]string{
		"closure":       a.Settings.ClosureSchedule,
		"early_freeze":  a.Settings.EarlyFreezeSchedule,
		"watchdog":      a.Settings.WatchdogSchedule,
		"rates_refresh": a.Settings.RatesRefreshSchedule,
		"sync_totals":   a.Settings.SyncTotalsSchedule,
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs through the returned context.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
