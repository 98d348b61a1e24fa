package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wtshilac/random-web-scraper/internal/app"
	"github.com/wtshilac/random-web-scraper/internal/config"
	logx "github.com/wtshilac/random-web-scraper/pkg/logx"
)

func main() {
	var (
		cfgPath  string
		once     bool
		schedule string
	)
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (yaml or json)")
	flag.BoolVar(&once, "once", false, "run a single cycle and exit even if a schedule is configured")
	flag.StringVar(&schedule, "schedule", "", "cron spec; overrides the config schedule")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		// Startup misconfiguration (notably a missing store credential) is
		// the one fatal condition; nothing has run yet.
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	if schedule != "" {
		cfg.Schedule = schedule
	}
	if once {
		cfg.Schedule = ""
	}
	if cfg.Schedule != "" {
		if err := app.ValidateSchedule(cfg.Schedule); err != nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			os.Exit(1)
		}
	}

	logs, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})
	defer logs.Close()

	a, err := app.New(cfg, logs, log)
	if err != nil {
		log.Error("startup failed", logx.Err(err))
		os.Exit(1)
	}
	defer a.Close()

	if cfg.Schedule == "" {
		// Single-shot: the external scheduler owns periodicity and mutual
		// exclusion. Exit 0 whether or not changes were found.
		a.RunCycle(ctx)
		return
	}

	mgr := config.NewManager(cfgPath, log.With(logx.String("comp", "config")))
	mgr.Commit(cfg)
	if err := a.RunDaemon(ctx, mgr); err != nil {
		log.Error("daemon failed", logx.Err(err))
		os.Exit(1)
	}
}
