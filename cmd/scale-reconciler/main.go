// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Command scale-reconciler resolves the current scaling action and applies
// it to every managed workload. By default it performs a single tick and
// exits (the external-scheduler-driven invocation model); --cron runs it
// under an in-process cron schedule instead, for local and development use.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	pflag "github.com/spf13/pflag"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/config"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/log"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/stage"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/cluster"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/reconciler"
)

func main() {
	dryRun := pflag.Bool("dry-run", false, "use the in-memory fake cluster instead of a live one (overrides DRY_RUN)")
	cronMode := pflag.Bool("cron", false, "run under an in-process cron schedule instead of a single tick")
	cronSpec := pflag.String("cron-spec", "* * * * *", "cron schedule used with --cron")
	pflag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}
	useDryRun := cfg.DryRun || *dryRun

	c, err := stage.BuildCluster(cfg, useDryRun)
	if err != nil {
		log.Fatalf("building cluster client: %v", err)
	}

	if !*cronMode {
		tick(cfg, c)
		return
	}
	runUnderCron(cfg, c, *cronSpec)
}

func tick(cfg *config.Config, c cluster.API) {
	result, err := stage.Reconcile(context.Background(), cfg, c)
	if err != nil {
		log.Fatalf("reconcile: %v", err)
	}
	logResult(result)
}

func runUnderCron(cfg *config.Config, c cluster.API, spec string) {
	sched := cron.New()
	_, err := sched.AddFunc(spec, func() {
		result, rerr := stage.Reconcile(context.Background(), cfg, c)
		if rerr != nil {
			log.Errorf("reconcile tick failed: %v", rerr)
			return
		}
		logResult(result)
	})
	if err != nil {
		log.Fatalf("invalid cron spec %q: %v", spec, err)
	}

	sched.Start()
	log.Infof("scale-reconciler running under cron schedule %q", spec)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	stopCtx := sched.Stop()
	<-stopCtx.Done()
}

func logResult(result *reconciler.Result) {
	log.Infof("reconcile tick: action=%s scaled_up=%d scaled_down=%d skipped=%d capped=%t",
		result.Action, result.ScaledUp, result.ScaledDown, result.Skipped, result.ActionsCapped)
}
