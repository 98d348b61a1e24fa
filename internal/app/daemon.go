package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	sd "github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"

	"github.com/wtshilac/random-web-scraper/internal/config"
	logx "github.com/wtshilac/random-web-scraper/pkg/logx"
)

// runState guards against overlapping cycles when a cycle outlasts the
// schedule interval: overlapping runs would read a stale known-id snapshot
// and duplicate notifications, so late ticks are skipped.
type runState struct {
	mu      sync.Mutex
	running bool
}

func (s *runState) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *runState) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// cronParser accepts the standard 5-field spec plus descriptors (@hourly,
// @every 10m, ...).
func cronParser() cron.Parser {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// ValidateSchedule reports whether spec parses as a cron schedule.
func ValidateSchedule(spec string) error {
	_, err := cronParser().Parse(spec)
	return err
}

// RunDaemon schedules cycles with the configured cron spec until ctx is
// done. The config manager publishes validated file edits; they are applied
// between cycles, and a schedule change restarts the cron runner.
func (a *App) RunDaemon(ctx context.Context, mgr *config.Manager) error {
	a.mu.Lock()
	spec := a.cfg.Schedule
	a.mu.Unlock()
	if spec == "" {
		return fmt.Errorf("daemon mode requires a schedule")
	}

	state := &runState{}
	job := func() {
		if !state.tryAcquire() {
			a.log.Warn("previous cycle still running; skipping tick")
			return
		}
		defer state.release()
		a.RunCycle(ctx)
	}

	c, err := startCron(spec, job)
	if err != nil {
		return err
	}
	a.log.Info("daemon started", logx.String("schedule", spec))

	// Under systemd, report readiness and feed the watchdog if one is set.
	_, _ = sd.SdNotify(false, sd.SdNotifyReady)
	var watchdog <-chan time.Time
	if interval, err := sd.SdWatchdogEnabled(false); err == nil && interval > 0 {
		t := time.NewTicker(interval / 2)
		defer t.Stop()
		watchdog = t.C
	}

	var reloads chan *config.Config
	if mgr != nil {
		reloads = mgr.Subscribe(1)
		defer mgr.Unsubscribe(reloads)
		go func() { _ = mgr.Watch(ctx) }()
	}

	for {
		select {
		case <-ctx.Done():
			_, _ = sd.SdNotify(false, sd.SdNotifyStopping)
			stopCtx := c.Stop()
			// Let an in-flight cycle drain, bounded.
			select {
			case <-stopCtx.Done():
			case <-time.After(30 * time.Second):
				a.log.Warn("cycle did not drain before shutdown deadline")
			}
			return nil

		case <-watchdog:
			_, _ = sd.SdNotify(false, sd.SdNotifyWatchdog)

		case cfg, ok := <-reloads:
			if !ok || cfg == nil {
				reloads = nil
				continue
			}
			if err := a.Apply(cfg); err != nil {
				a.log.Warn("config apply failed; keeping previous wiring", logx.Err(err))
				continue
			}
			if cfg.Schedule != "" && cfg.Schedule != spec {
				next, err := startCron(cfg.Schedule, job)
				if err != nil {
					a.log.Warn("new schedule rejected; keeping previous", logx.String("schedule", cfg.Schedule), logx.Err(err))
					continue
				}
				<-c.Stop().Done()
				c = next
				spec = cfg.Schedule
				a.log.Info("schedule updated", logx.String("schedule", spec))
			}
		}
	}
}

func startCron(spec string, job func()) (*cron.Cron, error) {
	parser := cronParser()
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	c := cron.New(cron.WithParser(parser))
	c.Schedule(sched, cron.FuncJob(job))
	c.Start()
	return c, nil
}
