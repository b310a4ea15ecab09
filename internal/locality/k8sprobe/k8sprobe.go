// Package k8sprobe is an optional NODE-scope discovery provider for
// the locality tree (spec §4.J): when a kubeconfig or in-cluster
// config is reachable, it groups units by their host's Kubernetes
// node topology labels instead of the default prober, the simulated
// node tags of internal/xtransport's World.NodeOf, the same "discover placement, build a tree"
// shape as a cluster-map bootstrap aimed at hardware topology instead
// of storage-node topology.
/*
 * Copyright (c) 2021-2023, NVIDIA CORPORATION. All rights reserved.
 */
package k8sprobe

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/parcio/dartrt/cmn"
)

// ZoneLabel and RegionLabel are the well-known topology labels used to
// bucket nodes into locality groups when no finer signal is available.
const (
	ZoneLabel   = "topology.kubernetes.io/zone"
	RegionLabel = "topology.kubernetes.io/region"
)

// Provider discovers Kubernetes node topology for locality-tree
// construction. A nil Provider is valid and every method on it
// reports cmn.ErrNotFound, so callers can unconditionally try the k8s
// path and fall back to the default prober on failure.
type Provider struct {
	clientset kubernetes.Interface
}

// NewProvider builds a Provider from an in-cluster service account
// config when running inside a pod, or from kubeconfigPath otherwise.
// It returns cmn.ErrNotFound when neither is reachable, the expected
// outcome for the common case of a non-Kubernetes deployment.
func NewProvider(kubeconfigPath string) (*Provider, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfigPath)
		if err != nil {
			return nil, cmn.WrapError("k8sprobe", cmn.ErrNotFound, err)
		}
	}
	cs, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, cmn.WrapError("k8sprobe", cmn.ErrNotFound, err)
	}
	return &Provider{clientset: cs}, nil
}

// NodeTopology returns, for every cluster node, a topology string
// combining region and zone labels, keyed by node name (the hostname
// the reference transport's co-location prober also keys on).
func (p *Provider) NodeTopology(ctx context.Context) (map[string]string, error) {
	if p == nil || p.clientset == nil {
		return nil, cmn.NewError("k8sprobe.NodeTopology", cmn.ErrNotFound, "no cluster reachable")
	}
	list, err := p.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, cmn.WrapError("k8sprobe.NodeTopology", cmn.ErrOther, err)
	}
	topo := make(map[string]string, len(list.Items))
	for _, n := range list.Items {
		topo[n.Name] = topologyKey(n)
	}
	return topo, nil
}

func topologyKey(n corev1.Node) string {
	region := n.Labels[RegionLabel]
	zone := n.Labels[ZoneLabel]
	if region == "" && zone == "" {
		return n.Name
	}
	return fmt.Sprintf("%s/%s", region, zone)
}

// GroupIndex assigns each hostname in hosts an integer NODE-scope
// group id, units sharing a topology key landing in the same group,
// first-seen order, the shape locality.NewTree's nodeOf callback
// expects. Hosts absent from topo (not a cluster node, e.g. the
// caller itself) get their own singleton group.
func GroupIndex(hosts []string, topo map[string]string) []int {
	keyIndex := make(map[string]int)
	groups := make([]int, len(hosts))
	for i, h := range hosts {
		key, ok := topo[h]
		if !ok {
			key = "host:" + h
		}
		idx, seen := keyIndex[key]
		if !seen {
			idx = len(keyIndex)
			keyIndex[key] = idx
		}
		groups[i] = idx
	}
	return groups
}
