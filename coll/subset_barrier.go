package coll

import (
	"sort"
	"time"

	"github.com/parcio/dartrt/internal/metrics"
	"github.com/parcio/dartrt/team"
)

// subsetBarrierTag is the runtime-owned tag reserved for subset-barrier
// rendezvous messages, distinct from any tag a caller's own send/recv
// traffic might use (spec §4.I).
const subsetBarrierTag = -2

// SubsetBarrier rendezvouses every unit in S (world ranks), a two-phase
// two-sided barrier restricted to that subset (spec §4.I). Units not
// in S return immediately without participating. The member with the
// smallest world id in S acts as root.
func SubsetBarrier(teams *team.Registry, s []int) error {
	self, err := worldSelf(teams)
	if err != nil {
		return err
	}
	member := false
	for _, u := range s {
		if u == self {
			member = true
			break
		}
	}
	if !member {
		return nil
	}

	sorted := append([]int(nil), s...)
	sort.Ints(sorted)
	root := sorted[0]
	world := teams.World()

	metrics.SubsetBarrierParticipants.Observe(float64(len(sorted)))
	start := time.Now()
	defer func() {
		metrics.BarrierLatency.WithLabelValues("subset_barrier").Observe(time.Since(start).Seconds())
	}()

	if self == root {
		for _, u := range sorted[1:] {
			world.Recv(root, subsetBarrierTag, u)
		}
		for _, u := range sorted[1:] {
			if err := world.Send(u, subsetBarrierTag, root, []byte{0}); err != nil {
				return err
			}
		}
		return nil
	}

	if err := world.Send(root, subsetBarrierTag, self, []byte{0}); err != nil {
		return err
	}
	world.Recv(self, subsetBarrierTag, root)
	return nil
}
