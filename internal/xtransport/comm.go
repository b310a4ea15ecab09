package xtransport

import (
	"sync"

	"github.com/parcio/dartrt/cmn"
)

// Comm is a sub-communicator: an ordered subset of world ranks sharing
// barrier/collective rendezvous state (spec §4.C "sub-group handle").
// Collectives are matched across members by call sequence rather than
// by name: spec §5 requires every member to invoke collectives on a
// team "in the same order", so the Nth call on every member is the
// same logical collective instance, keyed here by an auto-incrementing
// index that every member advances once per collective.
type Comm struct {
	world   *World
	members []int // world ranks, team-rank ordered

	mu    sync.Mutex
	next  int64
	calls map[int64]*collCall
}

func NewComm(world *World, members []int) *Comm {
	return &Comm{world: world, members: members, calls: make(map[int64]*collCall)}
}

func (c *Comm) Size() int                  { return len(c.members) }
func (c *Comm) WorldRank(teamRank int) int { return c.members[teamRank] }

// NextCallIndex mints the shared sequence index for one logical
// collective invocation. Every member of the team must call it exactly
// once, in identical program order, for the same logical call — the
// ordering guarantee spec §5 places on the caller, not the runtime.
// All members share this Comm and its counter: the n calls for the k-th
// collective draw raw values k*n .. k*n+n-1 (no member leaves an
// exchange before all n have arrived, so they never interleave with the
// next collective's calls), and dividing by n hands each member k.
func (c *Comm) NextCallIndex() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.next / int64(len(c.members))
	c.next++
	return idx
}

type collCall struct {
	mu       sync.Mutex
	cond     *sync.Cond
	n        int
	arrived  int
	departed int
	in       []interface{}
	out      []interface{}
	ready    bool
}

func (c *Comm) sequenced(idx int64, n int) *collCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	cc, ok := c.calls[idx]
	if !ok {
		cc = &collCall{n: n, in: make([]interface{}, n), out: make([]interface{}, n)}
		cc.cond = sync.NewCond(&cc.mu)
		c.calls[idx] = cc
	}
	return cc
}

func (c *Comm) forget(idx int64) {
	c.mu.Lock()
	delete(c.calls, idx)
	c.mu.Unlock()
}

// exchange is the generic rendezvous underneath every collective: each
// of n callers contributes `in`; once all have arrived, the combine
// callback (run once, by whichever caller happens to be the last
// arriver) derives the per-member `out` slice entirely from `ins` —
// never from closure-captured state — since only `out[teamRank]` is
// guaranteed visible back on the calling goroutine that is not the
// one that ran combine.
func (c *Comm) exchange(teamRank int, idx int64, in interface{}, combine func(ins []interface{}) []interface{}) interface{} {
	cc := c.sequenced(idx, len(c.members))
	cc.mu.Lock()
	cc.in[teamRank] = in
	cc.arrived++
	if cc.arrived == cc.n {
		cc.out = combine(cc.in)
		cc.ready = true
		cc.cond.Broadcast()
	} else {
		for !cc.ready {
			cc.cond.Wait()
		}
	}
	out := cc.out[teamRank]
	cc.departed++
	done := cc.departed == cc.n
	cc.mu.Unlock()
	if done {
		c.forget(idx)
	}
	return out
}

// Barrier rendezvouses all members with no data exchange.
func (c *Comm) Barrier(teamRank int, idx int64) error {
	c.exchange(teamRank, idx, nil, func(ins []interface{}) []interface{} {
		return make([]interface{}, len(ins))
	})
	return nil
}

// Bcast sends root's `in` (ignored on non-root callers) to every member.
func (c *Comm) Bcast(teamRank, root int, in []byte, idx int64) []byte {
	res := c.exchange(teamRank, idx, in, func(ins []interface{}) []interface{} {
		out := make([]interface{}, len(ins))
		for i := range out {
			out[i] = ins[root]
		}
		return out
	})
	if res == nil {
		return nil
	}
	return res.([]byte)
}

// Gather collects every member's `in` into root's returned slice
// (nil on non-root callers).
func (c *Comm) Gather(teamRank, root int, in []byte, idx int64) [][]byte {
	res := c.exchange(teamRank, idx, in, func(ins []interface{}) []interface{} {
		cp := make([][]byte, len(ins))
		for i, v := range ins {
			if v != nil {
				cp[i] = v.([]byte)
			}
		}
		out := make([]interface{}, len(ins))
		out[root] = cp
		return out
	})
	if res == nil {
		return nil
	}
	return res.([][]byte)
}

// Scatter hands member i root's in[i] (in is read only on root callers).
func (c *Comm) Scatter(teamRank, root int, in [][]byte, idx int64) []byte {
	var contrib interface{}
	if teamRank == root {
		contrib = in
	}
	res := c.exchange(teamRank, idx, contrib, func(ins []interface{}) []interface{} {
		parts := ins[root].([][]byte)
		out := make([]interface{}, len(ins))
		for i := range out {
			if i < len(parts) {
				out[i] = parts[i]
			}
		}
		return out
	})
	if res == nil {
		return nil
	}
	return res.([]byte)
}

// Allgather collects every member's `in` and hands the full set to all.
func (c *Comm) Allgather(teamRank int, in []byte, idx int64) [][]byte {
	res := c.exchange(teamRank, idx, in, func(ins []interface{}) []interface{} {
		cp := make([][]byte, len(ins))
		for i, v := range ins {
			cp[i] = v.([]byte)
		}
		out := make([]interface{}, len(ins))
		for i := range out {
			out[i] = cp
		}
		return out
	})
	return res.([][]byte)
}

// Reduce combines every member's `in` with fold (left fold in rank
// order, dst-accumulates-src semantics) and hands the result to root only.
func (c *Comm) Reduce(teamRank, root int, in []byte, fold func(acc, next []byte), idx int64) []byte {
	res := c.exchange(teamRank, idx, in, func(ins []interface{}) []interface{} {
		acc := make([]byte, len(ins[0].([]byte)))
		copy(acc, ins[0].([]byte))
		for i := 1; i < len(ins); i++ {
			fold(acc, ins[i].([]byte))
		}
		out := make([]interface{}, len(ins))
		out[root] = acc
		return out
	})
	if res == nil {
		return nil
	}
	return res.([]byte)
}

// Allreduce combines every member's `in` and hands the result to all.
func (c *Comm) Allreduce(teamRank int, in []byte, fold func(acc, next []byte), idx int64) []byte {
	res := c.exchange(teamRank, idx, in, func(ins []interface{}) []interface{} {
		acc := make([]byte, len(ins[0].([]byte)))
		copy(acc, ins[0].([]byte))
		for i := 1; i < len(ins); i++ {
			fold(acc, ins[i].([]byte))
		}
		out := make([]interface{}, len(ins))
		for i := range out {
			out[i] = acc
		}
		return out
	})
	return res.([]byte)
}

// CheckRank validates a team rank against the spec §4.E "destination
// unit id is in range for the team" rule shared by every op.
func (c *Comm) CheckRank(rank int) error {
	if rank < 0 || rank >= len(c.members) {
		return cmn.NewError("comm", cmn.ErrInval, "rank out of range for team")
	}
	return nil
}
