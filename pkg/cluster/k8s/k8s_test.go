// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package k8s

import (
	"context"
	"testing"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/cluster"
)

func replicasPtr(n int32) *int32 { return &n }

func TestListWorkloads_ReturnsDeploymentsAndStatefulSets(t *testing.T) {
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "team-a"}}
	dep := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Namespace: "team-a", Name: "api"},
		Spec:       appsv1.DeploymentSpec{Replicas: replicasPtr(2)},
	}
	sts := &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{Namespace: "team-a", Name: "queue"},
		Spec:       appsv1.StatefulSetSpec{Replicas: replicasPtr(1)},
	}

	fc := fake.NewClientBuilder().WithScheme(scheme.Scheme).WithObjects(ns, dep, sts).Build()
	c := &Cluster{client: fc}

	workloads, err := c.ListWorkloads(context.Background(), "team-a")
	require.NoError(t, err)
	assert.Len(t, workloads, 2)
}

func TestGetReplicas_Deployment(t *testing.T) {
	dep := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Namespace: "team-a", Name: "api"},
		Spec:       appsv1.DeploymentSpec{Replicas: replicasPtr(3)},
	}
	fc := fake.NewClientBuilder().WithScheme(scheme.Scheme).WithObjects(dep).Build()
	c := &Cluster{client: fc}

	replicas, err := c.GetReplicas(context.Background(), "team-a", cluster.KindDeployment, "api")
	require.NoError(t, err)
	assert.Equal(t, int32(3), replicas)
}

func TestScale_PatchesReplicas(t *testing.T) {
	dep := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Namespace: "team-a", Name: "api"},
		Spec:       appsv1.DeploymentSpec{Replicas: replicasPtr(0)},
	}
	fc := fake.NewClientBuilder().WithScheme(scheme.Scheme).WithObjects(dep).Build()
	c := &Cluster{client: fc}

	require.NoError(t, c.Scale(context.Background(), "team-a", cluster.KindDeployment, "api", 5))

	replicas, err := c.GetReplicas(context.Background(), "team-a", cluster.KindDeployment, "api")
	require.NoError(t, err)
	assert.Equal(t, int32(5), replicas)
}
