// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Package fake provides an in-memory implementation of cluster.API for
// dry-run invocations and tests, so the reconciler's decision logic can be
// exercised without a live cluster.
package fake

import (
	"context"
	"sync"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/errs"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/cluster"
)

// Cluster is an in-memory cluster.API backed by maps, guarded by a mutex so
// it is safe for concurrent use.
type Cluster struct {
	mu         sync.Mutex
	namespaces []string
	workloads  map[string]cluster.Workload // key: ns|kind|name
	hpas       map[string][]cluster.HPARef // key: ns
	ScaleCalls []ScaleCall
}

// ScaleCall records one Scale invocation, for test assertions.
type ScaleCall struct {
	NS       string
	Kind     cluster.WorkloadKind
	Name     string
	Replicas int32
}

// New builds an empty fake cluster.
func New() *Cluster {
	return &Cluster{
		workloads: map[string]cluster.Workload{},
		hpas:      map[string][]cluster.HPARef{},
	}
}

func key(ns string, kind cluster.WorkloadKind, name string) string {
	return ns + "|" + string(kind) + "|" + name
}

// AddNamespace registers a namespace as visible to ListNamespaces.
func (c *Cluster) AddNamespace(ns string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.namespaces = append(c.namespaces, ns)
}

// AddWorkload registers a workload with its current replica count.
func (c *Cluster) AddWorkload(w cluster.Workload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workloads[key(w.NS, w.Kind, w.Name)] = w
}

// AddHPA registers an HPA targeting a workload.
func (c *Cluster) AddHPA(h cluster.HPARef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hpas[h.NS] = append(c.hpas[h.NS], h)
}

func (c *Cluster) ListNamespaces(_ context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.namespaces...), nil
}

func (c *Cluster) ListWorkloads(_ context.Context, ns string) ([]cluster.Workload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []cluster.Workload
	for _, w := range c.workloads {
		if w.NS == ns {
			out = append(out, w)
		}
	}
	return out, nil
}

func (c *Cluster) ListHPAs(_ context.Context, ns string) ([]cluster.HPARef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]cluster.HPARef(nil), c.hpas[ns]...), nil
}

func (c *Cluster) GetReplicas(_ context.Context, ns string, kind cluster.WorkloadKind, name string) (int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.workloads[key(ns, kind, name)]
	if !ok {
		return 0, errs.NewError().WithCode(errs.CodeK8SError).WithMessage("workload not found: " + key(ns, kind, name))
	}
	return w.Replicas, nil
}

func (c *Cluster) Scale(_ context.Context, ns string, kind cluster.WorkloadKind, name string, replicas int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(ns, kind, name)
	w, ok := c.workloads[k]
	if !ok {
		return errs.NewError().WithCode(errs.CodeK8SError).WithMessage("workload not found: " + k)
	}
	w.Replicas = replicas
	c.workloads[k] = w
	c.ScaleCalls = append(c.ScaleCalls, ScaleCall{NS: ns, Kind: kind, Name: name, Replicas: replicas})
	return nil
}
