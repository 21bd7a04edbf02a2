// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Package clockutil centralizes the "what is today" and "what time is it"
// authority shared by every stage: a configured time zone (default
// Asia/Bangkok) plus an optional TODAY=YYYY-MM-DD override for tests and
// simulated runs.
package clockutil

import (
	"os"
	"time"
)

const defaultTimeZone = "Asia/Bangkok"

// Location resolves the configured time zone from TZ, falling back to
// Asia/Bangkok, and finally to UTC if the zone database entry is missing.
func Location() *time.Location {
	name := os.Getenv("TZ")
	if name == "" {
		name = defaultTimeZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Now returns the current wall-clock time in the configured time zone.
func Now() time.Time {
	return time.Now().In(Location())
}

// Today returns today's calendar date at midnight in the configured time
// zone, honoring a TODAY=YYYY-MM-DD override when set (for tests and
// simulated runs).
func Today() time.Time {
	loc := Location()
	if override := os.Getenv("TODAY"); override != "" {
		if t, err := time.ParseInLocation("2006-01-02", override, loc); err == nil {
			return t
		}
	}
	now := time.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
}

// DaysBetween returns the whole number of calendar days from a to b (b-a),
// comparing dates only (time-of-day is ignored).
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
