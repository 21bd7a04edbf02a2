// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package reconciler

import (
	"time"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/config"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/exceptions"
)

// ModeAt resolves the effective exception mode for (ns, name) at today,
// considering both the specific active record and any namespace-level
// wildcard, each contributing only while its end_date has not passed. A
// live 247 contributor always wins over a live out_worktime contributor.
func ModeAt(ns, name string, active []exceptions.ActiveRecord, today string) string {
	live := func(a exceptions.ActiveRecord) bool { return a.EndDate >= today }

	has247, hasOut := false, false
	for _, a := range active {
		if a.NS != ns || !live(a) {
			continue
		}
		if a.Workload != name && a.Workload != exceptions.WildcardToken {
			continue
		}
		switch a.Mode {
		case exceptions.Mode247:
			has247 = true
		case exceptions.ModeOutWorktime:
			hasOut = true
		}
	}

	switch {
	case has247:
		return exceptions.Mode247
	case hasOut:
		return exceptions.ModeOutWorktime
	default:
		return "none"
	}
}

// WantUp reports whether action calls for the given mode to be scaled up.
func WantUp(action, mode string) bool {
	switch action {
	case config.ActionWeekdayPrestart:
		return true
	case config.ActionWeekdayEnterOut, config.ActionWeekendPre:
		return mode == exceptions.Mode247 || mode == exceptions.ModeOutWorktime
	case config.ActionWeekendClose:
		return mode == exceptions.Mode247
	case ActionHolidayHardOff:
		return false
	default:
		return false
	}
}

// Direction is the scale direction chosen for one workload.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionUp
	DirectionDown
)

// WorkloadState is the input the decision needs about one workload.
type WorkloadState struct {
	Current     int32
	HasHPA      bool
	HPAMin      int32
	PrevReplicas int32
}

// Decision is the outcome of evaluating one workload against the current
// action.
type Decision struct {
	Direction   Direction
	Target      int32
	JitterBound time.Duration
}

// Decide applies §4.E steps 2-5 to one workload: compute want_up, then
// resolve the scale target and jitter bound, or DirectionNone if no action
// is warranted.
func Decide(action, mode string, state WorkloadState, cfg *config.Config) Decision {
	wantUp := WantUp(action, mode)

	if wantUp && state.Current == 0 {
		target := cfg.DefaultUp
		if state.HasHPA {
			target = state.HPAMin
			if target < 1 {
				target = 1
			}
		} else if state.PrevReplicas >= 1 {
			target = state.PrevReplicas
		}
		bound := time.Duration(cfg.JitterUpExcS) * time.Second
		if action == config.ActionWeekdayPrestart {
			bound = time.Duration(cfg.JitterUpBulkS) * time.Second
		}
		return Decision{Direction: DirectionUp, Target: target, JitterBound: bound}
	}

	if !wantUp && state.Current > cfg.TargetDown {
		if action == config.ActionWeekendPre {
			return Decision{Direction: DirectionNone}
		}
		isForcingAction := action == config.ActionWeekdayEnterOut || action == config.ActionWeekendClose || action == ActionHolidayHardOff
		if state.HasHPA && cfg.DownHPAHandling == config.DownHPASkip && !isForcingAction {
			return Decision{Direction: DirectionNone}
		}
		return Decision{
			Direction:   DirectionDown,
			Target:      cfg.TargetDown,
			JitterBound: time.Duration(cfg.JitterDownS) * time.Second,
		}
	}

	return Decision{Direction: DirectionNone}
}
