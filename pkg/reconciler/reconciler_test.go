// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/config"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/patternfile"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/replicastate"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/cluster"
	fakecluster "github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/cluster/fake"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/exceptions"
)

func matcherAllowingAll(t *testing.T) *patternfile.NamespaceMatcher {
	t.Helper()
	dir := t.TempDir()
	managed := filepath.Join(dir, "managed.txt")
	require.NoError(t, os.WriteFile(managed, []byte(".*\n"), 0o644))
	m, err := patternfile.NewNamespaceMatcher(managed, filepath.Join(dir, "deny.txt"))
	require.NoError(t, err)
	return m
}

func emptyState(t *testing.T) *replicastate.Store {
	t.Helper()
	s, err := replicastate.Load(filepath.Join(t.TempDir(), "replicas.json"))
	require.NoError(t, err)
	return s
}

func baseReconcilerCfg() *config.Config {
	return &config.Config{
		Action:           config.ActionWeekdayPrestart,
		HolidayMode:      config.HolidayModeNone,
		DefaultUp:        1,
		TargetDown:       0,
		JitterUpBulkS:    0,
		JitterUpExcS:     0,
		JitterDownS:      0,
		DownHPAHandling:  config.DownHPAForce,
		MaxActionsPerRun: 0,
	}
}

func TestRun_ScalesUpExceptionWorkloadFromZero(t *testing.T) {
	t.Setenv("TODAY", "2026-08-03")

	c := fakecluster.New()
	c.AddNamespace("team-a")
	c.AddWorkload(cluster.Workload{NS: "team-a", Kind: cluster.KindDeployment, Name: "api", Replicas: 0})

	cfg := baseReconcilerCfg()
	cfg.Action = config.ActionWeekdayEnterOut

	active := []exceptions.ActiveRecord{
		{NS: "team-a", Workload: "api", Mode: exceptions.ModeOutWorktime, EndDate: "2026-08-10"},
	}

	r := &Reconciler{
		Cluster: c,
		Matcher: matcherAllowingAll(t),
		State:   emptyState(t),
		Active:  active,
		Config:  cfg,
		Sleep:   func(time.Duration) {},
	}

	result, err := Run(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ScaledUp)
	assert.Equal(t, 0, result.ScaledDown)
	require.Len(t, c.ScaleCalls, 1)
	assert.Equal(t, int32(1), c.ScaleCalls[0].Replicas)
}

func TestRun_ScalesDownWorkloadWithNoActiveException(t *testing.T) {
	t.Setenv("TODAY", "2026-08-03")

	c := fakecluster.New()
	c.AddNamespace("team-a")
	c.AddWorkload(cluster.Workload{NS: "team-a", Kind: cluster.KindDeployment, Name: "api", Replicas: 3})

	cfg := baseReconcilerCfg()
	cfg.Action = config.ActionWeekdayEnterOut

	r := &Reconciler{
		Cluster: c,
		Matcher: matcherAllowingAll(t),
		State:   emptyState(t),
		Active:  nil,
		Config:  cfg,
		Sleep:   func(time.Duration) {},
	}

	result, err := Run(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ScaledDown)
	require.Len(t, c.ScaleCalls, 1)
	assert.Equal(t, int32(0), c.ScaleCalls[0].Replicas)

	entry, ok := r.State.Get("team-a", string(cluster.KindDeployment), "api")
	require.True(t, ok)
	assert.Equal(t, int32(3), entry.PrevReplicas)
}

func TestRun_ScaleUpAfterScaleDownRestoresPrevReplicas(t *testing.T) {
	t.Setenv("TODAY", "2026-08-03")

	c := fakecluster.New()
	c.AddNamespace("team-a")
	c.AddWorkload(cluster.Workload{NS: "team-a", Kind: cluster.KindDeployment, Name: "api", Replicas: 0})

	state := emptyState(t)
	state.Set("team-a", string(cluster.KindDeployment), "api", exceptions.ReplicaStateEntry{PrevReplicas: 5})

	cfg := baseReconcilerCfg()
	cfg.Action = config.ActionWeekdayPrestart

	r := &Reconciler{
		Cluster: c,
		Matcher: matcherAllowingAll(t),
		State:   state,
		Active:  nil,
		Config:  cfg,
		Sleep:   func(time.Duration) {},
	}

	result, err := Run(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ScaledUp)
	require.Len(t, c.ScaleCalls, 1)
	assert.Equal(t, int32(5), c.ScaleCalls[0].Replicas)
}

func TestRun_HPAAwareUpTarget(t *testing.T) {
	t.Setenv("TODAY", "2026-08-03")

	c := fakecluster.New()
	c.AddNamespace("team-b")
	c.AddWorkload(cluster.Workload{NS: "team-b", Kind: cluster.KindDeployment, Name: "web", Replicas: 0})
	c.AddHPA(cluster.HPARef{NS: "team-b", Name: "web-hpa", TargetKind: cluster.KindDeployment, TargetName: "web", MinReplicas: 3})

	cfg := baseReconcilerCfg()
	cfg.Action = config.ActionWeekdayPrestart

	r := &Reconciler{
		Cluster: c,
		Matcher: matcherAllowingAll(t),
		State:   emptyState(t),
		Active:  nil,
		Config:  cfg,
		Sleep:   func(time.Duration) {},
	}

	result, err := Run(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ScaledUp)
	require.Len(t, c.ScaleCalls, 1)
	assert.Equal(t, int32(3), c.ScaleCalls[0].Replicas)
}

func TestRun_WildcardExceptionDominatesOverPrecedence(t *testing.T) {
	t.Setenv("TODAY", "2026-08-03")

	c := fakecluster.New()
	c.AddNamespace("team-a")
	c.AddWorkload(cluster.Workload{NS: "team-a", Kind: cluster.KindDeployment, Name: "api", Replicas: 2})
	c.AddWorkload(cluster.Workload{NS: "team-a", Kind: cluster.KindDeployment, Name: "worker", Replicas: 2})

	cfg := baseReconcilerCfg()
	cfg.Action = config.ActionWeekendClose

	active := []exceptions.ActiveRecord{
		{NS: "team-a", Workload: exceptions.WildcardToken, Mode: exceptions.Mode247, EndDate: "2026-08-20"},
	}

	r := &Reconciler{
		Cluster: c,
		Matcher: matcherAllowingAll(t),
		State:   emptyState(t),
		Active:  active,
		Config:  cfg,
		Sleep:   func(time.Duration) {},
	}

	result, err := Run(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ScaledDown)
	assert.Equal(t, 2, result.Skipped)
	assert.Empty(t, c.ScaleCalls)
}

func TestRun_MaxActionsPerRunCaps(t *testing.T) {
	t.Setenv("TODAY", "2026-08-03")

	c := fakecluster.New()
	c.AddNamespace("team-a")
	for i := 0; i < 3; i++ {
		c.AddWorkload(cluster.Workload{NS: "team-a", Kind: cluster.KindDeployment, Name: "svc" + string(rune('a'+i)), Replicas: 2})
	}

	cfg := baseReconcilerCfg()
	cfg.Action = config.ActionWeekdayEnterOut
	cfg.MaxActionsPerRun = 1

	r := &Reconciler{
		Cluster: c,
		Matcher: matcherAllowingAll(t),
		State:   emptyState(t),
		Active:  nil,
		Config:  cfg,
		Sleep:   func(time.Duration) {},
	}

	result, err := Run(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, result.ActionsCapped)
	assert.Equal(t, 1, result.ScaledDown)
	assert.Len(t, c.ScaleCalls, 1)
}

func TestRun_NoopActionTakesNoClusterAction(t *testing.T) {
	c := fakecluster.New()
	c.AddNamespace("team-a")
	c.AddWorkload(cluster.Workload{NS: "team-a", Kind: cluster.KindDeployment, Name: "api", Replicas: 2})

	cfg := baseReconcilerCfg()
	cfg.Action = config.ActionNoop

	r := &Reconciler{
		Cluster: c,
		Matcher: matcherAllowingAll(t),
		State:   emptyState(t),
		Active:  nil,
		Config:  cfg,
		Sleep:   func(time.Duration) {},
	}

	result, err := Run(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, config.ActionNoop, result.Action)
	assert.Empty(t, c.ScaleCalls)
}

func TestRun_IsIdempotentOnSecondInvocation(t *testing.T) {
	t.Setenv("TODAY", "2026-08-03")

	c := fakecluster.New()
	c.AddNamespace("team-a")
	c.AddWorkload(cluster.Workload{NS: "team-a", Kind: cluster.KindDeployment, Name: "api", Replicas: 0})

	active := []exceptions.ActiveRecord{
		{NS: "team-a", Workload: "api", Mode: exceptions.ModeOutWorktime, EndDate: "2026-08-10"},
	}

	cfg := baseReconcilerCfg()
	cfg.Action = config.ActionWeekdayEnterOut

	r := &Reconciler{
		Cluster: c,
		Matcher: matcherAllowingAll(t),
		State:   emptyState(t),
		Active:  active,
		Config:  cfg,
		Sleep:   func(time.Duration) {},
	}

	first, err := Run(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, 1, first.ScaledUp)

	second, err := Run(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, 0, second.ScaledUp)
	assert.Equal(t, 0, second.ScaledDown)
	assert.Len(t, c.ScaleCalls, 1)
}
