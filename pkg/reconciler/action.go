// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package reconciler

import (
	"time"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/config"
)

// ActionHolidayHardOff is the internal action token used when a holiday
// forces a cluster-wide scale-down regardless of the time-of-day window.
const ActionHolidayHardOff = "holiday_hard_off"

// ResolveAction determines which reconciler action applies "now", honoring
// an explicit ACTION override, the auto window table, and holiday forcing.
func ResolveAction(cfg *config.Config, now time.Time, isHoliday bool) string {
	if isHoliday && cfg.HolidayMode == config.HolidayModeHardOff {
		return ActionHolidayHardOff
	}
	if cfg.Action != config.ActionAuto {
		return cfg.Action
	}
	return autoAction(now)
}

func autoAction(now time.Time) string {
	weekday := now.Weekday()
	isWeekend := weekday == time.Saturday || weekday == time.Sunday
	minutesOfDay := now.Hour()*60 + now.Minute()

	inWindow := func(startH, startM, endH, endM int) bool {
		start := startH*60 + startM
		end := endH*60 + endM
		return minutesOfDay >= start && minutesOfDay <= end
	}

	if !isWeekend {
		if inWindow(7, 10, 8, 5) {
			return config.ActionWeekdayPrestart
		}
		if inWindow(17, 55, 18, 5) {
			return config.ActionWeekdayEnterOut
		}
		return config.ActionNoop
	}

	if inWindow(8, 45, 9, 5) {
		return config.ActionWeekendPre
	}
	if inWindow(19, 55, 20, 5) {
		return config.ActionWeekendClose
	}
	return config.ActionNoop
}

// IsFastExit reports whether action requires no cluster contact at all.
func IsFastExit(action string) bool {
	return action == config.ActionNoop
}
