// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Command build-raw validates a registration payload, expands it into raw
// records under RAW_ROOT, and runs the retention sweep.
package main

import (
	"os"

	pflag "github.com/spf13/pflag"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/config"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/log"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/stage"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/validator"
)

func main() {
	createdBy := pflag.String("created-by", "unknown", "identity publishing this batch")
	sourceJob := pflag.String("source-job", "manual", "CI job name that triggered this batch")
	sourceBuild := pflag.String("source-build", "0", "CI build number that triggered this batch")
	pflag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	result, err := stage.BuildRawFromEnv(cfg, *createdBy, *sourceJob, *sourceBuild)
	if err != nil {
		if verr, ok := err.(*validator.ValidationError); ok {
			for _, p := range verr.Problems {
				log.Errorf("validation: %s", p)
			}
			os.Exit(1)
		}
		log.Fatalf("build-raw: %v", err)
	}

	log.Infof("published %d raw record(s) (req_id=%s) to %s", len(result.Files.Records), result.ReqID, result.Files.JSONLPath)
	if result.GC.Skipped {
		log.Warn("retention sweep skipped: could not acquire RAW_ROOT lock")
	} else {
		log.Infof("retention sweep deleted %d stale artifact(s)", len(result.GC.Deleted))
	}
}
