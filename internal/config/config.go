// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Package config centralizes parsing of every environment variable that
// drives the pipeline into a single typed Config, with defaulting and
// light range validation applied up front so every stage reads already-
// sane values instead of re-parsing strings.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/errs"
)

// Config holds every environment-variable-driven setting used across the
// validator, raw builder, deduplicator, activator and reconciler. Not every
// stage reads every field.
type Config struct {
	// Paths
	RawRoot        string
	OutDir         string
	StateRoot      string
	ManagedNSFile  string
	DenyNSFile     string
	HolidaysFile   string

	// Policy
	RetainDays     int
	LookbackDays   int
	MaxDays        int
	MaxDaysAllowed int
	TimeZone       string
	Today          string
	HolidayMode    string

	// Action
	Action          string
	TargetDown      int32
	DefaultUp       int32
	DownHPAHandling string

	// Concurrency
	JitterUpBulkS    int
	JitterUpExcS     int
	JitterDownS      int
	HystMin          int
	KubectlTimeoutS  int
	MaxActionsPerRun int

	// Registration payload
	ExecOn247        bool
	ExecOnOut        bool
	ExecRequester    string
	ExecReason       string
	ExecEndDate      string
	ExecWorkloadList string

	// Auth / RBAC
	KubeconfigFile   string
	KubeContext      string
	StrictPatch      bool
	AllowUnknownNS   bool

	// Debug
	Debug            bool
	DryRun           bool
	RetentionDryRun  bool
	FilterNS         string
	FilterWL         string
	DebugDumpRaw     bool
	DebugDumpGroups  bool
}

const (
	DownHPASkip  = "skip"
	DownHPAForce = "force"

	HolidayModeHardOff = "hard_off"
	HolidayModeNone    = "none"

	ActionAuto             = "auto"
	ActionWeekdayPrestart  = "weekday_prestart"
	ActionWeekdayEnterOut  = "weekday_enter_out"
	ActionWeekendPre       = "weekend_pre"
	ActionWeekendClose     = "weekend_close"
	ActionNoop             = "noop"
)

// FromEnv builds a Config from the process environment, applying the
// defaults named in §6/§4 wherever a variable is unset or empty.
func FromEnv() (*Config, error) {
	c := &Config{
		RawRoot:       os.Getenv("RAW_ROOT"),
		OutDir:        os.Getenv("OUT_DIR"),
		StateRoot:     os.Getenv("STATE_ROOT"),
		ManagedNSFile: os.Getenv("MANAGED_NS_FILE"),
		DenyNSFile:    os.Getenv("DENY_NS_FILE"),
		HolidaysFile:  os.Getenv("HOLIDAYS_FILE"),

		TimeZone:    envOr("TZ", "Asia/Bangkok"),
		Today:       os.Getenv("TODAY"),
		HolidayMode: envOr("HOLIDAY_MODE", HolidayModeHardOff),

		Action:          envOr("ACTION", ActionAuto),
		DownHPAHandling: envOr("DOWN_HPA_HANDLING", DownHPASkip),

		ExecRequester:    os.Getenv("EXEC_REQUESTER"),
		ExecReason:       os.Getenv("EXEC_REASON"),
		ExecEndDate:      os.Getenv("EXEC_END_DATE"),
		ExecWorkloadList: os.Getenv("EXEC_WORKLOAD_LIST"),

		KubeconfigFile: os.Getenv("KUBECONFIG_FILE"),
		KubeContext:    os.Getenv("KUBE_CONTEXT"),

		FilterNS: os.Getenv("FILTER_NS"),
		FilterWL: os.Getenv("FILTER_WL"),
	}

	var err error
	if c.RetainDays, err = envInt("RETAIN_DAYS", 90); err != nil {
		return nil, err
	}
	if c.LookbackDays, err = envInt("LOOKBACK_DAYS", 90); err != nil {
		return nil, err
	}
	if c.MaxDays, err = envInt("MAX_DAYS", 60); err != nil {
		return nil, err
	}
	if c.MaxDaysAllowed, err = envInt("MAX_DAYS_ALLOWED", 60); err != nil {
		return nil, err
	}

	targetDown, err := envInt("TARGET_DOWN", 0)
	if err != nil {
		return nil, err
	}
	c.TargetDown = int32(targetDown)

	defaultUp, err := envInt("DEFAULT_UP", 1)
	if err != nil {
		return nil, err
	}
	c.DefaultUp = int32(defaultUp)

	if c.JitterUpBulkS, err = envInt("JITTER_UP_BULK_S", 5); err != nil {
		return nil, err
	}
	if c.JitterUpExcS, err = envInt("JITTER_UP_EXC_S", 2); err != nil {
		return nil, err
	}
	if c.JitterDownS, err = envInt("JITTER_DOWN_S", 1); err != nil {
		return nil, err
	}
	if c.HystMin, err = envInt("HYST_MIN", 0); err != nil {
		return nil, err
	}
	if c.KubectlTimeoutS, err = envInt("KUBECTL_TIMEOUT", 30); err != nil {
		return nil, err
	}
	if c.MaxActionsPerRun, err = envInt("MAX_ACTIONS_PER_RUN", 0); err != nil {
		return nil, err
	}

	c.ExecOn247 = envBool("EXEC_ON_247", false)
	c.ExecOnOut = envBool("EXEC_ON_OUT", false)
	c.StrictPatch = envBool("STRICT_PATCH", false)
	c.AllowUnknownNS = envBool("ALLOW_UNKNOWN_NS", false)
	c.Debug = envBool("DEBUG", false)
	c.DryRun = envBool("DRY_RUN", false)
	c.RetentionDryRun = envBool("RETENTION_DRY_RUN", false)
	c.DebugDumpRaw = envBool("DEBUG_DUMP_RAW", false)
	c.DebugDumpGroups = envBool("DEBUG_DUMP_GROUPS", false)

	if c.MaxDays < 0 || c.MaxDaysAllowed < 0 || c.RetainDays < 0 || c.LookbackDays < 0 {
		return nil, errs.NewError().WithCode(errs.CodeLackOfConfig).WithMessage("policy windows must be non-negative")
	}

	return c, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, errs.WrapError(err, "invalid integer for "+key, errs.CodeLackOfConfig)
	}
	return v, nil
}

func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}
