// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Package reconciler implements the scaling reconciler: it resolves the
// current action, enumerates every managed namespace's Deployments and
// StatefulSets, and for each one applies the exception-mode precedence and
// up/down decision rules, scaling through the abstract cluster.API and
// persisting replica state across scale-downs.
package reconciler

import (
	"context"
	"math/rand"
	"time"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/clockutil"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/config"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/errs"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/log"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/metrics"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/patternfile"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/replicastate"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/cluster"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/exceptions"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/holidays"
)

// Reconciler ties together the cluster API, namespace matcher, holiday
// calendar and replica-state store for one tick.
type Reconciler struct {
	Cluster   cluster.API
	Matcher   *patternfile.NamespaceMatcher
	Calendar  *holidays.Calendar
	State     *replicastate.Store
	Active    []exceptions.ActiveRecord
	Config    *config.Config
	Sleep     func(time.Duration)
}

// Result summarizes one reconciler run.
type Result struct {
	Action        string
	ScaledUp      int
	ScaledDown    int
	Skipped       int
	ActionsCapped bool
}

// Run executes one reconciler tick. The replica-state lock acquired by
// replicastate.Load is always released before Run returns, whether via an
// explicit Flush on the normal/fast-exit paths or this deferred Unlock on
// an error path that never reaches one.
func Run(ctx context.Context, r *Reconciler) (*Result, error) {
	defer r.State.Unlock()

	now := clockutil.Now()
	isHoliday := r.Calendar.IsHoliday(now)
	action := ResolveAction(r.Config, now, isHoliday)

	if IsFastExit(action) {
		if err := r.State.Flush(); err != nil {
			return nil, err
		}
		return &Result{Action: action}, nil
	}

	sleepFn := r.Sleep
	if sleepFn == nil {
		sleepFn = time.Sleep
	}

	namespaces, err := r.Cluster.ListNamespaces(ctx)
	if err != nil {
		return nil, errs.WrapError(err, "listing cluster namespaces", errs.CodeK8SError)
	}
	managed := r.Matcher.Select(namespaces)

	today := clockutil.Today().Format("2006-01-02")
	result := &Result{Action: action}
	actionsTaken := 0

runLoop:
	for _, ns := range managed {
		workloads, err := r.Cluster.ListWorkloads(ctx, ns)
		if err != nil {
			log.Errorf("reconciler: listing workloads in %s: %v", ns, err)
			continue
		}
		hpas, err := r.Cluster.ListHPAs(ctx, ns)
		if err != nil {
			log.Errorf("reconciler: listing HPAs in %s: %v", ns, err)
			hpas = nil
		}

		for _, w := range workloads {
			mode := ModeAt(ns, w.Name, r.Active, today)

			hpaMin, hasHPA := lookupHPAMin(hpas, w.Kind, w.Name)
			prevReplicas := int32(0)
			if entry, ok := r.State.Get(ns, string(w.Kind), w.Name); ok {
				prevReplicas = entry.PrevReplicas
			}

			decision := Decide(action, mode, WorkloadState{
				Current:      w.Replicas,
				HasHPA:       hasHPA,
				HPAMin:       hpaMin,
				PrevReplicas: prevReplicas,
			}, r.Config)

			switch decision.Direction {
			case DirectionUp:
				sleepJitter(sleepFn, decision.JitterBound)
				if err := r.Cluster.Scale(ctx, ns, w.Kind, w.Name, decision.Target); err != nil {
					log.Errorf("reconciler: scaling up %s/%s: %v", ns, w.Name, err)
					continue
				}
				entry, _ := r.State.Get(ns, string(w.Kind), w.Name)
				entry.LastUp = float64(now.Unix())
				r.State.Set(ns, string(w.Kind), w.Name, entry)
				metrics.ReconcilerActionsTotal.WithLabelValues("up").Inc()
				result.ScaledUp++
				actionsTaken++
			case DirectionDown:
				sleepJitter(sleepFn, decision.JitterBound)
				if err := r.Cluster.Scale(ctx, ns, w.Kind, w.Name, decision.Target); err != nil {
					log.Errorf("reconciler: scaling down %s/%s: %v", ns, w.Name, err)
					continue
				}
				r.State.Set(ns, string(w.Kind), w.Name, exceptions.ReplicaStateEntry{
					PrevReplicas: w.Replicas,
					LastDown:     float64(now.Unix()),
				})
				metrics.ReconcilerActionsTotal.WithLabelValues("down").Inc()
				result.ScaledDown++
				actionsTaken++
			default:
				result.Skipped++
				continue
			}

			if r.Config.MaxActionsPerRun > 0 && actionsTaken >= r.Config.MaxActionsPerRun {
				result.ActionsCapped = true
				break runLoop
			}
		}
	}

	if err := r.State.Flush(); err != nil {
		return result, err
	}
	return result, nil
}

func sleepJitter(sleepFn func(time.Duration), bound time.Duration) {
	if bound <= 0 {
		return
	}
	sleepFn(time.Duration(rand.Int63n(int64(bound))))
}

func lookupHPAMin(hpas []cluster.HPARef, kind cluster.WorkloadKind, name string) (int32, bool) {
	for _, h := range hpas {
		if h.TargetKind == kind && h.TargetName == name {
			return h.MinReplicas, true
		}
	}
	return 0, false
}
