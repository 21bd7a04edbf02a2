// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Command dedupe-exceptions aggregates every raw record in the lookback
// window into one polished record per (namespace, workload) and publishes
// the polished set, the invalid set, and the CSV/markdown/HTML digests.
package main

import (
	"os"

	pflag "github.com/spf13/pflag"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/config"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/log"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/metrics"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/stage"
)

func main() {
	textfile := pflag.String("metrics-textfile", "", "path to write a node-exporter textfile metrics dump (overrides METRICS_TEXTFILE)")
	pflag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	result, err := stage.Dedupe(cfg)
	if err != nil {
		log.Fatalf("dedupe: %v", err)
	}
	if result.Skipped {
		log.Warn("dedupe: output lock busy, run skipped cleanly")
		return
	}

	log.Infof("polished %d exception(s), %d invalid record(s)", len(result.Polished), len(result.Invalid))
	log.Infof("digests written: %s, %s, %s", result.DigestCSVPath, result.DigestWebexMDPath, result.DigestHTMLPath)

	path := *textfile
	if path == "" {
		path = os.Getenv("METRICS_TEXTFILE")
	}
	if path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			log.Errorf("writing metrics textfile: %v", err)
		}
	}
}
