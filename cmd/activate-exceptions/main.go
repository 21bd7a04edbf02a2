// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Command activate-exceptions projects the polished exception set published
// by dedupe-exceptions onto today, publishing the active set the scaling
// reconciler reads.
package main

import (
	pflag "github.com/spf13/pflag"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/config"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/log"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/stage"
)

func main() {
	pflag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	result, err := stage.Activate(cfg)
	if err != nil {
		log.Fatalf("activate: %v", err)
	}

	log.Infof("activated %d exception(s) for today; published %s", len(result.Active), result.ActiveJSONLPath)
}
