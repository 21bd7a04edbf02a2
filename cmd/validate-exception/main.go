// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Command validate-exception checks a registration payload (read from the
// EXEC_* environment variables) and reports every problem found, without
// publishing anything.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	pflag "github.com/spf13/pflag"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/config"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/log"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/stage"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/validator"
)

func main() {
	asJSON := pflag.Bool("json", false, "print validation problems as a JSON array")
	pflag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	os.Exit(run(cfg, *asJSON))
}

func run(cfg *config.Config, asJSON bool) int {
	req, err := stage.Validate(cfg)
	if err == nil {
		log.Infof("validated registration: %d workload(s), requester=%s, end_date=%s",
			len(req.Workloads), req.Requester, req.EndDate)
		return 0
	}

	verr, ok := err.(*validator.ValidationError)
	if !ok {
		log.Errorf("validator: %v", err)
		return 1
	}

	if asJSON || cfg.DebugDumpRaw {
		data, _ := json.Marshal(verr.Problems)
		fmt.Println(string(data))
	} else {
		for _, p := range verr.Problems {
			fmt.Fprintln(os.Stderr, "- "+p)
		}
	}
	return 1
}
