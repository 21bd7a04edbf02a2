// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Package cluster defines the abstract contract the scaling reconciler
// uses to talk to a workload orchestrator: list namespaces, list scalable
// workloads and their HPAs, read and patch replica counts. It is
// deliberately not bound to any one client implementation — pkg/cluster/k8s
// backs it with client-go and controller-runtime, pkg/cluster/fake backs it
// with an in-memory map for dry-run and tests.
package cluster

import "context"

// WorkloadKind enumerates the scalable controller kinds the reconciler
// understands.
type WorkloadKind string

const (
	KindDeployment  WorkloadKind = "Deployment"
	KindStatefulSet WorkloadKind = "StatefulSet"
)

// Workload identifies one scalable controller object and its current
// replica count.
type Workload struct {
	NS       string
	Kind     WorkloadKind
	Name     string
	Replicas int32
}

// HPARef describes a horizontal autoscaler bound to a workload.
type HPARef struct {
	NS              string
	Name            string
	TargetKind      WorkloadKind
	TargetName      string
	MinReplicas     int32
}

// API is the cluster operations the reconciler needs. Every call accepts a
// context for timeout/cancellation.
type API interface {
	// ListNamespaces returns every namespace visible to the caller.
	ListNamespaces(ctx context.Context) ([]string, error)

	// ListWorkloads returns every Deployment and StatefulSet in ns.
	ListWorkloads(ctx context.Context, ns string) ([]Workload, error)

	// ListHPAs returns every HorizontalPodAutoscaler in ns.
	ListHPAs(ctx context.Context, ns string) ([]HPARef, error)

	// GetReplicas reads the current replica count of kind/name in ns.
	GetReplicas(ctx context.Context, ns string, kind WorkloadKind, name string) (int32, error)

	// Scale patches kind/name in ns to the given replica count.
	Scale(ctx context.Context, ns string, kind WorkloadKind, name string, replicas int32) error
}
