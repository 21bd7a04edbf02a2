// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Package holidays resolves day classification (weekday/weekend/holiday)
// used by the scaling reconciler's action-window predicates.
package holidays

import (
	"time"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/patternfile"
)

// Calendar answers day-classification questions against a loaded holiday
// set.
type Calendar struct {
	set patternfile.HolidaySet
}

// Load reads the holidays file at path (ISO dates, one per line).
func Load(path string) (*Calendar, error) {
	set, err := patternfile.LoadHolidays(path)
	if err != nil {
		return nil, err
	}
	return &Calendar{set: set}, nil
}

// IsHoliday reports whether t's calendar date is a configured holiday.
func (c *Calendar) IsHoliday(t time.Time) bool {
	if c == nil {
		return false
	}
	return c.set.IsHoliday(t.Format("2006-01-02"))
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
