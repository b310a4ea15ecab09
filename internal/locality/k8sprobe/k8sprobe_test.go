/*
 * Copyright (c) 2021-2023, NVIDIA CORPORATION. All rights reserved.
 */
package k8sprobe

import "testing"

func TestGroupIndexSharesGroupsByTopologyKey(t *testing.T) {
	hosts := []string{"n0", "n1", "n2", "n3"}
	topo := map[string]string{
		"n0": "us-east-1/a",
		"n1": "us-east-1/a",
		"n2": "us-east-1/b",
		"n3": "us-east-1/b",
	}
	groups := GroupIndex(hosts, topo)
	if groups[0] != groups[1] {
		t.Fatalf("n0, n1 expected same group, got %v", groups)
	}
	if groups[2] != groups[3] {
		t.Fatalf("n2, n3 expected same group, got %v", groups)
	}
	if groups[0] == groups[2] {
		t.Fatalf("n0 and n2 expected different groups, got %v", groups)
	}
}

func TestGroupIndexUnknownHostGetsSingletonGroup(t *testing.T) {
	hosts := []string{"n0", "unknown"}
	topo := map[string]string{"n0": "us-east-1/a"}
	groups := GroupIndex(hosts, topo)
	if groups[0] == groups[1] {
		t.Fatalf("unknown host should not share a group with n0, got %v", groups)
	}
}

func TestNewProviderFailsFastWithoutACluster(t *testing.T) {
	if _, err := NewProvider("/nonexistent/kubeconfig"); err == nil {
		t.Fatal("expected an error with no reachable cluster or kubeconfig")
	}
}
