// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearExceptionEnv(t *testing.T) {
	t.Helper()
	vars := []string{
		"RAW_ROOT", "OUT_DIR", "STATE_ROOT", "MANAGED_NS_FILE", "DENY_NS_FILE", "HOLIDAYS_FILE",
		"RETAIN_DAYS", "LOOKBACK_DAYS", "MAX_DAYS", "MAX_DAYS_ALLOWED", "TZ", "TODAY", "HOLIDAY_MODE",
		"ACTION", "TARGET_DOWN", "DEFAULT_UP", "DOWN_HPA_HANDLING",
		"JITTER_UP_BULK_S", "JITTER_UP_EXC_S", "JITTER_DOWN_S", "HYST_MIN", "KUBECTL_TIMEOUT", "MAX_ACTIONS_PER_RUN",
		"EXEC_ON_247", "EXEC_ON_OUT", "EXEC_REQUESTER", "EXEC_REASON", "EXEC_END_DATE", "EXEC_WORKLOAD_LIST",
		"KUBECONFIG_FILE", "KUBE_CONTEXT", "STRICT_PATCH", "ALLOW_UNKNOWN_NS",
		"DEBUG", "DRY_RUN", "RETENTION_DRY_RUN", "FILTER_NS", "FILTER_WL", "DEBUG_DUMP_RAW", "DEBUG_DUMP_GROUPS",
	}
	for _, v := range vars {
		t.Setenv(v, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearExceptionEnv(t)

	c, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 90, c.RetainDays)
	assert.Equal(t, 90, c.LookbackDays)
	assert.Equal(t, 60, c.MaxDays)
	assert.Equal(t, 60, c.MaxDaysAllowed)
	assert.Equal(t, "Asia/Bangkok", c.TimeZone)
	assert.Equal(t, ActionAuto, c.Action)
	assert.Equal(t, int32(0), c.TargetDown)
	assert.Equal(t, int32(1), c.DefaultUp)
	assert.Equal(t, 5, c.JitterUpBulkS)
	assert.Equal(t, 2, c.JitterUpExcS)
	assert.Equal(t, 1, c.JitterDownS)
	assert.False(t, c.Debug)
	assert.False(t, c.DryRun)
	assert.Equal(t, HolidayModeHardOff, c.HolidayMode)
	assert.Equal(t, DownHPASkip, c.DownHPAHandling)
}

func TestFromEnv_OverridesApply(t *testing.T) {
	clearExceptionEnv(t)
	t.Setenv("RAW_ROOT", "/data/exceptions/raw")
	t.Setenv("MAX_DAYS", "30")
	t.Setenv("TARGET_DOWN", "2")
	t.Setenv("DEBUG", "true")
	t.Setenv("ACTION", "weekend_close")

	c, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/data/exceptions/raw", c.RawRoot)
	assert.Equal(t, 30, c.MaxDays)
	assert.Equal(t, int32(2), c.TargetDown)
	assert.True(t, c.Debug)
	assert.Equal(t, "weekend_close", c.Action)
}

func TestFromEnv_InvalidIntegerFails(t *testing.T) {
	clearExceptionEnv(t)
	t.Setenv("MAX_DAYS", "not-a-number")

	_, err := FromEnv()
	require.Error(t, err)
}

func TestFromEnv_NegativeWindowRejected(t *testing.T) {
	clearExceptionEnv(t)
	t.Setenv("MAX_DAYS", "-1")

	_, err := FromEnv()
	require.Error(t, err)
}
