// Package schedule runs recurring tracking jobs on a cron engine with
// single-instance and missed-tick coalescing guarantees.
package schedule

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/aromano/pricewatch/internal/tracker"
)

// Job is a named unit of recurring work. Run errors are contained at the
// job boundary and never stop the engine.
type Job struct {
	ID  string
	Run func(ctx context.Context) error
}

// Scheduler wraps a cron engine. Every registered job runs under
// SkipIfStillRunning, so a tick that fires while the previous execution
// of the same job is in flight is dropped, not queued.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
	parser cron.Parser
}

// New builds a Scheduler.
func New(logger *zap.Logger) *Scheduler {
	cl := newCronLogger(logger)
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		)),
		logger: logger,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}
}

// AddIntervalJob schedules job every periodMinutes, each fire perturbed
// by up to jitterSeconds to avoid synchronized bursts across deployments.
func (s *Scheduler) AddIntervalJob(job Job, periodMinutes, jitterSeconds int) error {
	if periodMinutes <= 0 {
		return &tracker.ConfigError{Field: "schedule.every_minutes", Msg: "must be > 0"}
	}
	if jitterSeconds < 0 {
		return &tracker.ConfigError{Field: "schedule.jitter_seconds", Msg: "must be >= 0"}
	}
	s.addSchedule(job, jitterSchedule{
		period: time.Duration(periodMinutes) * time.Minute,
		jitter: time.Duration(jitterSeconds) * time.Second,
	})
	s.logger.Info("interval job registered",
		zap.String("job_id", job.ID),
		zap.Int("every_minutes", periodMinutes),
		zap.Int("jitter_seconds", jitterSeconds),
	)
	return nil
}

// AddCronJob schedules job from a 5-field cron expression
// (minute hour day-of-month month day-of-week).
func (s *Scheduler) AddCronJob(job Job, expr string) error {
	if fields := strings.Fields(expr); len(fields) != 5 {
		return &tracker.ConfigError{
			Field: "schedule.cron",
			Msg:   fmt.Sprintf("expression %q must have 5 fields, got %d", expr, len(fields)),
		}
	}
	sched, err := s.parser.Parse(expr)
	if err != nil {
		return &tracker.ConfigError{Field: "schedule.cron", Msg: "invalid expression", Err: err}
	}
	s.addSchedule(job, sched)
	s.logger.Info("cron job registered", zap.String("job_id", job.ID), zap.String("expr", expr))
	return nil
}

// AddDailyAt schedules job every day at local time "HH:MM".
func (s *Scheduler) AddDailyAt(job Job, hhmm string) error {
	hour, minute, err := parseDailyTime(hhmm)
	if err != nil {
		return err
	}
	return s.AddCronJob(job, fmt.Sprintf("%d %d * * *", minute, hour))
}

// Run starts the timing engine and blocks until ctx is done, then asks
// the engine to stop. It does not wait for in-flight executions.
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	s.logger.Info("scheduler started")
	<-ctx.Done()
	s.cron.Stop()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) addSchedule(job Job, sched cron.Schedule) {
	id := job.ID
	run := job.Run
	logger := s.logger
	s.cron.Schedule(sched, cron.FuncJob(func() {
		if err := run(context.Background()); err != nil {
			logger.Warn("scheduled job failed",
				zap.String("job_id", id),
				zap.Error(err),
			)
		}
	}))
}

func parseDailyTime(hhmm string) (int, int, error) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return 0, 0, &tracker.ConfigError{
			Field: "schedule.daily_at",
			Msg:   fmt.Sprintf("%q must be HH:MM in 24h format", hhmm),
		}
	}
	hour, herr := strconv.Atoi(strings.TrimSpace(parts[0]))
	minute, merr := strconv.Atoi(strings.TrimSpace(parts[1]))
	if herr != nil || merr != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, &tracker.ConfigError{
			Field: "schedule.daily_at",
			Msg:   fmt.Sprintf("%q must be HH:MM in 24h format", hhmm),
		}
	}
	return hour, minute, nil
}

// jitterSchedule fires every period plus a uniform random jitter.
type jitterSchedule struct {
	period time.Duration
	jitter time.Duration
}

// Next implements cron.Schedule.
func (s jitterSchedule) Next(t time.Time) time.Time {
	next := t.Add(s.period)
	if s.jitter > 0 {
		next = next.Add(time.Duration(rand.Int63n(int64(s.jitter))))
	}
	return next
}
