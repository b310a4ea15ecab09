package rma

import (
	"sync"
	"testing"

	"github.com/parcio/dartrt/internal/xtransport"
	"github.com/parcio/dartrt/team"
)

func newAllTeamWorld(n int, coLocated bool) (*xtransport.World, []*team.Registry) {
	var nodes []int
	if coLocated {
		nodes = make([]int, n)
	}
	world := xtransport.NewWorld(n, nodes)
	regs := make([]*team.Registry, n)
	for i := 0; i < n; i++ {
		regs[i] = team.NewRegistry(world, i, 32)
	}
	return world, regs
}

func TestAllocSegmentReplicatedAcrossMembers(t *testing.T) {
	n := 4
	_, regs := newAllTeamWorld(n, false)
	segIDs := make([]int16, n)
	var wg sync.WaitGroup
	for u := 0; u < n; u++ {
		u := u
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm, err := regs[u].Lookup(team.All)
			if err != nil {
				t.Error(err)
				return
			}
			id, err := AllocSegment(tm, 1000, 4, false)
			if err != nil {
				t.Error(err)
				return
			}
			segIDs[u] = id
		}()
	}
	wg.Wait()
	for u := 1; u < n; u++ {
		if segIDs[u] != segIDs[0] {
			t.Fatalf("segment ids diverge across members: %v", segIDs)
		}
	}

	tm0, _ := regs[0].Lookup(team.All)
	for u := 0; u < n; u++ {
		if _, err := tm0.Segments.LookupDisp(segIDs[0], u); err != nil {
			t.Errorf("rank 0's segment table missing member %d: %v", u, err)
		}
	}
}

func TestFreeSegmentThenLookupFails(t *testing.T) {
	_, regs := newAllTeamWorld(1, false)
	tm, _ := regs[0].Lookup(team.All)
	id, err := AllocSegment(tm, 10, 4, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := FreeSegment(tm, id); err != nil {
		t.Fatal(err)
	}
	if _, err := tm.Segments.LookupDisp(id, 0); err == nil {
		t.Fatal("expected error after FreeSegment")
	}
}
