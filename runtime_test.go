package dartrt

import (
	"sync"
	"testing"

	"github.com/parcio/dartrt/dtype"
	"github.com/parcio/dartrt/internal/locality"
	"github.com/parcio/dartrt/internal/locality/k8sprobe"
	"github.com/parcio/dartrt/internal/xtransport"
)

func bootRuntimes(n int) []*Runtime {
	world := xtransport.NewWorld(n, nil)
	rts := make([]*Runtime, n)
	for i := range rts {
		rt, err := Init(world, i, 32)
		if err != nil {
			panic(err)
		}
		rts[i] = rt
	}
	return rts
}

func TestInitBootstrapsAllTeam(t *testing.T) {
	rts := bootRuntimes(3)
	for i, rt := range rts {
		size, err := rt.TeamSize(AllTeam)
		if err != nil {
			t.Fatal(err)
		}
		if size != 3 {
			t.Fatalf("unit %d: TeamSize = %d, want 3", i, size)
		}
		rank, err := rt.MyRank(AllTeam)
		if err != nil {
			t.Fatal(err)
		}
		if rank != i {
			t.Fatalf("unit %d: MyRank = %d", i, rank)
		}
	}
}

func TestFacadeRoundTripAndCollectives(t *testing.T) {
	n := 3
	rts := bootRuntimes(n)

	// Collective alloc_segment.
	segIDs := make([]int16, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			segIDs[i], errs[i] = rts[i].AllocSegment(AllTeam, 4, 4, false)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}

	g := GPtr{UnitID: 0, TeamID: AllTeam, SegmentID: segIDs[0]}
	src := []byte{1, 2, 3, 4}
	if err := rts[1].Put(g, src, 1, dtype.UInt32); err != nil {
		t.Fatal(err)
	}
	if err := rts[1].Flush(g); err != nil {
		t.Fatal(err)
	}
	dst := make([]byte, 4)
	if err := rts[0].Get(dst, g, 1, dtype.UInt32); err != nil {
		t.Fatal(err)
	}
	if string(dst) != string(src) {
		t.Fatalf("round trip mismatch: got %v, want %v", dst, src)
	}

	// Barrier, collective again.
	barrierErrs := make([]error, n)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			barrierErrs[i] = rts[i].Barrier(AllTeam)
		}()
	}
	wg.Wait()
	for _, err := range barrierErrs {
		if err != nil {
			t.Fatal(err)
		}
	}

	for _, rt := range rts {
		if err := rt.Finalize(); err != nil {
			t.Fatal(err)
		}
	}
}

// TestWithK8sProbeFallsBackWhenClusterUnreachable exercises the real
// WithK8sProbe path (it calls into internal/locality/k8sprobe, not a
// stub): with no reachable cluster, the nil-clientset Provider's
// NodeTopology fails, and Init must fall back to the default
// placement prober rather than erroring out.
func TestWithK8sProbeFallsBackWhenClusterUnreachable(t *testing.T) {
	n := 2
	world := xtransport.NewWorld(n, nil)
	hostnames := []string{"h0", "h1"}
	var provider k8sprobe.Provider // zero value: no clientset, discovery always fails

	rt, err := Init(world, 0, 32, WithK8sProbe(&provider, hostnames))
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Finalize()

	size, err := rt.TeamSize(AllTeam)
	if err != nil {
		t.Fatal(err)
	}
	if size != n {
		t.Fatalf("TeamSize = %d, want %d", size, n)
	}
}

// TestWithNodeOfOverridesLocalityGrouping exercises WithNodeOf
// directly, the lower-level hook WithK8sProbe itself builds on.
func TestWithNodeOfOverridesLocalityGrouping(t *testing.T) {
	n := 4
	world := xtransport.NewWorld(n, nil)
	nodeOf := func(rank int) int { return rank / 2 }

	rt, err := Init(world, 0, 32, WithNodeOf(nodeOf))
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Finalize()

	tree, err := rt.Locality(AllTeam)
	if err != nil {
		t.Fatal(err)
	}
	tags, err := tree.ScopeDomains(".", locality.Node)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 2 {
		t.Fatalf("ScopeDomains(NODE) = %v, want 2 tags", tags)
	}
}
