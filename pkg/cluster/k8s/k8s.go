// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Package k8s implements cluster.API against a live Kubernetes cluster
// using a controller-runtime client, following the client-go +
// controller-runtime wiring pattern used by the jobs package.
package k8s

import (
	"context"
	"strconv"

	appsv1 "k8s.io/api/apps/v1"
	autoscalingv2 "k8s.io/api/autoscaling/v2"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/errs"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/cluster"
)

// Cluster implements cluster.API against a live cluster via a
// controller-runtime client.Client.
type Cluster struct {
	client client.Client
}

// NewFromKubeconfig builds a Cluster from an explicit kubeconfig file and
// context name, falling back to in-cluster config when kubeconfigPath is
// empty.
func NewFromKubeconfig(kubeconfigPath, kubeContext string) (*Cluster, error) {
	restCfg, err := loadRestConfig(kubeconfigPath, kubeContext)
	if err != nil {
		return nil, err
	}

	c, err := client.New(restCfg, client.Options{Scheme: scheme.Scheme})
	if err != nil {
		return nil, errs.WrapError(err, "initializing cluster client", errs.CodeInitializeError)
	}
	return &Cluster{client: c}, nil
}

func loadRestConfig(kubeconfigPath, kubeContext string) (*rest.Config, error) {
	if kubeconfigPath == "" {
		cfg, err := rest.InClusterConfig()
		if err != nil {
			return nil, errs.WrapError(err, "loading in-cluster config", errs.CodeInitializeError)
		}
		return cfg, nil
	}

	loadingRules := &clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfigPath}
	overrides := &clientcmd.ConfigOverrides{}
	if kubeContext != "" {
		overrides.CurrentContext = kubeContext
	}
	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
	if err != nil {
		return nil, errs.WrapError(err, "loading kubeconfig "+kubeconfigPath, errs.CodeInitializeError)
	}
	return cfg, nil
}

func (c *Cluster) ListNamespaces(ctx context.Context) ([]string, error) {
	var list corev1.NamespaceList
	if err := c.client.List(ctx, &list); err != nil {
		return nil, errs.WrapError(err, "listing namespaces", errs.CodeK8SError)
	}
	names := make([]string, 0, len(list.Items))
	for _, ns := range list.Items {
		names = append(names, ns.Name)
	}
	return names, nil
}

func (c *Cluster) ListWorkloads(ctx context.Context, ns string) ([]cluster.Workload, error) {
	var out []cluster.Workload

	var deployments appsv1.DeploymentList
	if err := c.client.List(ctx, &deployments, client.InNamespace(ns)); err != nil {
		return nil, errs.WrapError(err, "listing deployments in "+ns, errs.CodeK8SError)
	}
	for _, d := range deployments.Items {
		replicas := int32(0)
		if d.Spec.Replicas != nil {
			replicas = *d.Spec.Replicas
		}
		out = append(out, cluster.Workload{NS: ns, Kind: cluster.KindDeployment, Name: d.Name, Replicas: replicas})
	}

	var statefulSets appsv1.StatefulSetList
	if err := c.client.List(ctx, &statefulSets, client.InNamespace(ns)); err != nil {
		return nil, errs.WrapError(err, "listing statefulsets in "+ns, errs.CodeK8SError)
	}
	for _, s := range statefulSets.Items {
		replicas := int32(0)
		if s.Spec.Replicas != nil {
			replicas = *s.Spec.Replicas
		}
		out = append(out, cluster.Workload{NS: ns, Kind: cluster.KindStatefulSet, Name: s.Name, Replicas: replicas})
	}

	return out, nil
}

func (c *Cluster) ListHPAs(ctx context.Context, ns string) ([]cluster.HPARef, error) {
	var list autoscalingv2.HorizontalPodAutoscalerList
	if err := c.client.List(ctx, &list, client.InNamespace(ns)); err != nil {
		return nil, errs.WrapError(err, "listing HPAs in "+ns, errs.CodeK8SError)
	}

	out := make([]cluster.HPARef, 0, len(list.Items))
	for _, h := range list.Items {
		minReplicas := int32(1)
		if h.Spec.MinReplicas != nil {
			minReplicas = *h.Spec.MinReplicas
		}
		out = append(out, cluster.HPARef{
			NS:          ns,
			Name:        h.Name,
			TargetKind:  cluster.WorkloadKind(h.Spec.ScaleTargetRef.Kind),
			TargetName:  h.Spec.ScaleTargetRef.Name,
			MinReplicas: minReplicas,
		})
	}
	return out, nil
}

func (c *Cluster) GetReplicas(ctx context.Context, ns string, kind cluster.WorkloadKind, name string) (int32, error) {
	switch kind {
	case cluster.KindDeployment:
		var d appsv1.Deployment
		if err := c.client.Get(ctx, client.ObjectKey{Namespace: ns, Name: name}, &d); err != nil {
			return 0, errs.WrapError(err, "getting deployment "+ns+"/"+name, errs.CodeK8SError)
		}
		return derefInt32(d.Spec.Replicas), nil
	case cluster.KindStatefulSet:
		var s appsv1.StatefulSet
		if err := c.client.Get(ctx, client.ObjectKey{Namespace: ns, Name: name}, &s); err != nil {
			return 0, errs.WrapError(err, "getting statefulset "+ns+"/"+name, errs.CodeK8SError)
		}
		return derefInt32(s.Spec.Replicas), nil
	default:
		return 0, errs.NewError().WithCode(errs.CodeK8SError).WithMessage("unsupported workload kind: " + string(kind))
	}
}

func (c *Cluster) Scale(ctx context.Context, ns string, kind cluster.WorkloadKind, name string, replicas int32) error {
	patch := []byte(`{"spec":{"replicas":` + strconv.Itoa(int(replicas)) + `}}`)
	var obj client.Object
	switch kind {
	case cluster.KindDeployment:
		obj = &appsv1.Deployment{}
	case cluster.KindStatefulSet:
		obj = &appsv1.StatefulSet{}
	default:
		return errs.NewError().WithCode(errs.CodeK8SError).WithMessage("unsupported workload kind: " + string(kind))
	}
	obj.SetNamespace(ns)
	obj.SetName(name)

	if err := c.client.Patch(ctx, obj, client.RawPatch(types.MergePatchType, patch)); err != nil {
		return errs.WrapError(err, "scaling "+ns+"/"+name+" to "+strconv.Itoa(int(replicas)), errs.CodeK8SError)
	}
	return nil
}

func derefInt32(p *int32) int32 {
	if p == nil {
		return 0
	}
	return *p
}
