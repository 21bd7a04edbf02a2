// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package clockutil

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocation_DefaultsToBangkok(t *testing.T) {
	os.Unsetenv("TZ")
	loc := Location()
	assert.Equal(t, "Asia/Bangkok", loc.String())
}

func TestLocation_HonorsTZ(t *testing.T) {
	t.Setenv("TZ", "UTC")
	loc := Location()
	assert.Equal(t, "UTC", loc.String())
}

func TestLocation_FallsBackOnUnknownZone(t *testing.T) {
	t.Setenv("TZ", "Not/AZone")
	loc := Location()
	assert.Equal(t, time.UTC, loc)
}

func TestToday_HonorsOverride(t *testing.T) {
	t.Setenv("TZ", "UTC")
	t.Setenv("TODAY", "2026-07-30")

	got := Today()
	assert.Equal(t, 2026, got.Year())
	assert.Equal(t, time.July, got.Month())
	assert.Equal(t, 30, got.Day())
	assert.Equal(t, 0, got.Hour())
}

func TestToday_IgnoresMalformedOverride(t *testing.T) {
	t.Setenv("TZ", "UTC")
	t.Setenv("TODAY", "not-a-date")

	got := Today()
	now := time.Now().In(time.UTC)
	assert.Equal(t, now.Year(), got.Year())
	assert.Equal(t, now.YearDay(), got.YearDay())
}

func TestDaysBetween(t *testing.T) {
	loc := time.UTC
	a := time.Date(2026, 7, 1, 23, 0, 0, 0, loc)
	b := time.Date(2026, 7, 10, 1, 0, 0, 0, loc)
	require.Equal(t, 9, DaysBetween(a, b))
	require.Equal(t, -9, DaysBetween(b, a))
	require.Equal(t, 0, DaysBetween(a, a))
}
