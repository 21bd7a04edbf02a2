// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Package validator implements the request validator: it takes the raw
// environment-variable registration payload and either returns a validated
// Request ready for the raw builder, or the full list of problems found
// (never fail-fast on the first error).
package validator

import (
	"strings"
	"time"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/clockutil"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/config"
)

// WorkloadRef is one parsed "<ns> | <workload>" line.
type WorkloadRef struct {
	NS       string
	Workload string
}

// Request is the validated registration payload, ready to be expanded into
// per-workload raw records by the raw builder.
type Request struct {
	On247        bool
	OnOutWorktime bool
	Requester    string
	Reason       string
	EndDate      string // normalized YYYY-MM-DD
	EndInput     string // original user-supplied string
	Workloads    []WorkloadRef
}

// ValidationError collects every problem found in one run, so the caller
// can report them all at once instead of failing on the first.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

// Validate checks the registration payload carried on cfg and returns a
// Request, or a *ValidationError listing every problem found.
func Validate(cfg *config.Config) (*Request, error) {
	var problems []string

	if !cfg.ExecOn247 && !cfg.ExecOnOut {
		problems = append(problems, "at least one of EXEC_ON_247 or EXEC_ON_OUT must be true")
	}
	if strings.TrimSpace(cfg.ExecRequester) == "" {
		problems = append(problems, "EXEC_REQUESTER must not be empty")
	}
	if strings.TrimSpace(cfg.ExecReason) == "" {
		problems = append(problems, "EXEC_REASON must not be empty")
	}

	var normalizedEnd string
	endInput := strings.TrimSpace(cfg.ExecEndDate)
	if endInput == "" {
		problems = append(problems, "EXEC_END_DATE must not be empty")
	} else {
		parsed, err := parseDate(endInput)
		if err != nil {
			problems = append(problems, "EXEC_END_DATE is not a valid YYYYMMDD or YYYY-MM-DD date: "+endInput)
		} else {
			normalizedEnd = parsed.Format("2006-01-02")
			today := clockutil.Today()
			maxDate := today.AddDate(0, 0, cfg.MaxDaysAllowed)
			if parsed.Before(today) || parsed.After(maxDate) {
				problems = append(problems, "EXEC_END_DATE "+normalizedEnd+" must be within [today, today+MAX_DAYS_ALLOWED]")
			}
		}
	}

	workloads, workloadProblems := parseWorkloadList(cfg.ExecWorkloadList)
	problems = append(problems, workloadProblems...)
	if len(workloads) == 0 {
		problems = append(problems, "EXEC_WORKLOAD_LIST must contain at least one '<ns> | <workload>' entry")
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	return &Request{
		On247:         cfg.ExecOn247,
		OnOutWorktime: cfg.ExecOnOut,
		Requester:     cfg.ExecRequester,
		Reason:        cfg.ExecReason,
		EndDate:       normalizedEnd,
		EndInput:      endInput,
		Workloads:     workloads,
	}, nil
}

func parseDate(raw string) (time.Time, error) {
	loc := clockutil.Location()
	if t, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		return t, nil
	}
	return time.ParseInLocation("20060102", raw, loc)
}

func parseWorkloadList(raw string) ([]WorkloadRef, []string) {
	var refs []WorkloadRef
	var problems []string

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "|", 2)
		if len(parts) != 2 {
			problems = append(problems, "workload line missing mandatory '|' separator: "+line)
			continue
		}
		ns := strings.TrimSpace(parts[0])
		wl := strings.TrimSpace(parts[1])
		if ns == "" || wl == "" {
			problems = append(problems, "workload line has an empty namespace or workload: "+line)
			continue
		}
		refs = append(refs, WorkloadRef{NS: ns, Workload: wl})
	}
	return refs, problems
}
