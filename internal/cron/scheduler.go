// Package cron implements the Cron Scheduler (spec §4.8): a 1-second
// tick loop that reloads the job list, evaluates due jobs, persists
// last_run atomically, and dispatches without awaiting. Grounded on
// haasonsaas-nexus/internal/cron/scheduler.go's tick-loop shape (ticker
// in a goroutine, context-cancellable, one mutex-guarded job list) and
// internal/cron/schedule.go's use of robfig/cron/v3 for the cron-form
// parser, trimmed to spec.md's simpler due-evaluation: no NextRun
// precomputation, retries, webhooks, or execution history, none of
// which spec.md names a MODULE for. Persistence is internal/store (C2)
// rather than the teacher's in-memory job slice plus config file, since
// spec.md's jobs are runtime-mutable via cron add/remove (§6 CLI).
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/local/squidbot/internal/store"
	"github.com/local/squidbot/pkg/models"
)

// cronParser parses the standard 5-field form (spec §4.8: "matches the
// five fields"), matching the teacher's own field set minus its added
// SecondOptional/Descriptor extensions, which spec.md's contract doesn't
// call for.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// DispatchFunc delivers one due job into the agent loop. The scheduler
// invokes it in its own goroutine and never waits for it to return
// (spec §4.8: "invoke ... without awaiting it on the tick path").
type DispatchFunc func(ctx context.Context, job models.CronJob)

// Scheduler runs the 1-second tick loop described in spec §4.8.
type Scheduler struct {
	store    *store.Store
	dispatch DispatchFunc
	logger   *slog.Logger

	tickInterval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New creates a Scheduler. dispatch must not be nil.
func New(st *store.Store, dispatch DispatchFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:        st,
		dispatch:     dispatch,
		logger:       logger.With("component", "cron_scheduler"),
		tickInterval: time.Second,
	}
}

// Start launches the tick loop in the background and returns immediately
// (spec §4.8: "start() returns immediately").
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case now := <-ticker.C:
				s.tick(runCtx, now)
			}
		}
	}()
}

// Stop cancels the tick loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// tick reloads jobs, evaluates due ones, and dispatches them. All
// exceptions inside a tick are suppressed so one failing job never
// stalls the scheduler (spec §4.8).
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("cron tick panicked", "error", r)
		}
	}()

	jobs, err := s.store.LoadCronJobs()
	if err != nil {
		s.logger.Warn("failed to load cron jobs", "error", err)
		return
	}

	changed := false
	for i := range jobs {
		job := &jobs[i]
		if !job.Enabled {
			continue
		}

		due, err := isDue(*job, now)
		if err != nil {
			s.logger.Warn("invalid cron schedule, skipping job", "job", job.Name, "schedule", job.Schedule, "error", err)
			continue
		}
		if !due {
			continue
		}

		firedAt := now
		job.LastRun = &firedAt
		changed = true

		toDispatch := *job
		go s.safeDispatch(ctx, toDispatch)
	}

	if changed {
		if err := s.store.SaveCronJobs(jobs); err != nil {
			s.logger.Warn("failed to persist cron job last_run", "error", err)
		}
	}
}

func (s *Scheduler) safeDispatch(ctx context.Context, job models.CronJob) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("cron dispatch panicked", "job", job.Name, "error", r)
		}
	}()
	s.dispatch(ctx, job)
}

// isDue implements spec §4.8's due evaluation for both schedule forms.
func isDue(job models.CronJob, now time.Time) (bool, error) {
	loc := time.UTC
	if job.Timezone != "" {
		l, err := time.LoadLocation(job.Timezone)
		if err != nil {
			return false, fmt.Errorf("load timezone %q: %w", job.Timezone, err)
		}
		loc = l
	}
	localNow := now.In(loc)

	if seconds, ok := parseIntervalSeconds(job.Schedule); ok {
		if job.LastRun == nil {
			return true, nil
		}
		return localNow.Sub(job.LastRun.In(loc)) >= time.Duration(seconds)*time.Second, nil
	}

	schedule, err := cronParser.Parse(job.Schedule)
	if err != nil {
		return false, fmt.Errorf("parse cron schedule %q: %w", job.Schedule, err)
	}

	nowMinute := localNow.Truncate(time.Minute)
	if job.LastRun != nil {
		lastMinute := job.LastRun.In(loc).Truncate(time.Minute)
		if !lastMinute.Before(nowMinute) {
			return false, nil
		}
	}

	// schedule.Next(t) returns the earliest matching time strictly after
	// t; asking from one second before the current minute tells us
	// whether the fields match nowMinute itself.
	return schedule.Next(nowMinute.Add(-time.Second)).Equal(nowMinute), nil
}

// parseIntervalSeconds recognizes spec §4.8's interval form: "every N"
// (seconds), optionally with a trailing unit suffix like "every 30s".
func parseIntervalSeconds(schedule string) (int, bool) {
	const prefix = "every "
	trimmed := strings.TrimSpace(schedule)
	if !strings.HasPrefix(trimmed, prefix) {
		return 0, false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, prefix))
	rest = strings.TrimSuffix(rest, "s")
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
