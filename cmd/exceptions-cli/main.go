// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Command exceptions-cli is the umbrella entrypoint hosting every pipeline
// stage behind one binary: validate, build-raw, dedupe, activate, reconcile.
// It is equivalent to invoking the matching standalone cmd/ binary; it
// exists so operators can reach any stage without tracking five separate
// executables.
package main

import (
	"context"
	"fmt"
	"os"

	pflag "github.com/spf13/pflag"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/config"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/log"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/stage"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/validator"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	subcommand := os.Args[1]
	os.Args = append([]string{os.Args[0]}, os.Args[2:]...)

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	switch subcommand {
	case "validate":
		os.Exit(runValidate(cfg))
	case "build-raw":
		os.Exit(runBuildRaw(cfg))
	case "dedupe":
		os.Exit(runDedupe(cfg))
	case "activate":
		os.Exit(runActivate(cfg))
	case "reconcile":
		os.Exit(runReconcile(cfg))
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: exceptions-cli <validate|build-raw|dedupe|activate|reconcile> [flags]")
}

func runValidate(cfg *config.Config) int {
	pflag.Parse()
	req, err := stage.Validate(cfg)
	if err == nil {
		log.Infof("validated registration: %d workload(s)", len(req.Workloads))
		return 0
	}
	if verr, ok := err.(*validator.ValidationError); ok {
		for _, p := range verr.Problems {
			fmt.Fprintln(os.Stderr, "- "+p)
		}
		return 1
	}
	log.Errorf("validator: %v", err)
	return 1
}

func runBuildRaw(cfg *config.Config) int {
	createdBy := pflag.String("created-by", "unknown", "identity publishing this batch")
	sourceJob := pflag.String("source-job", "manual", "CI job name that triggered this batch")
	sourceBuild := pflag.String("source-build", "0", "CI build number that triggered this batch")
	pflag.Parse()

	result, err := stage.BuildRawFromEnv(cfg, *createdBy, *sourceJob, *sourceBuild)
	if err != nil {
		log.Errorf("build-raw: %v", err)
		return 1
	}
	log.Infof("published %d raw record(s) (req_id=%s)", len(result.Files.Records), result.ReqID)
	return 0
}

func runDedupe(cfg *config.Config) int {
	pflag.Parse()
	result, err := stage.Dedupe(cfg)
	if err != nil {
		log.Errorf("dedupe: %v", err)
		return 1
	}
	if result.Skipped {
		log.Warn("dedupe: output lock busy, run skipped cleanly")
		return 0
	}
	log.Infof("polished %d exception(s), %d invalid record(s)", len(result.Polished), len(result.Invalid))
	return 0
}

func runActivate(cfg *config.Config) int {
	pflag.Parse()
	result, err := stage.Activate(cfg)
	if err != nil {
		log.Errorf("activate: %v", err)
		return 1
	}
	log.Infof("activated %d exception(s) for today", len(result.Active))
	return 0
}

func runReconcile(cfg *config.Config) int {
	dryRun := pflag.Bool("dry-run", false, "use the in-memory fake cluster instead of a live one")
	pflag.Parse()

	c, err := stage.BuildCluster(cfg, cfg.DryRun || *dryRun)
	if err != nil {
		log.Errorf("building cluster client: %v", err)
		return 1
	}
	result, err := stage.Reconcile(context.Background(), cfg, c)
	if err != nil {
		log.Errorf("reconcile: %v", err)
		return 1
	}
	log.Infof("reconcile tick: action=%s scaled_up=%d scaled_down=%d skipped=%d",
		result.Action, result.ScaledUp, result.ScaledDown, result.Skipped)
	return 0
}
