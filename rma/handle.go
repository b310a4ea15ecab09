package rma

import (
	"github.com/parcio/dartrt/internal/metrics"
	"github.com/parcio/dartrt/internal/xtransport"
)

type handleState int

const (
	stateActive handleState = iota
	stateFlushed
	stateDone
)

// Handle is the non-blocking operation token of spec §4.F: one
// sub-request per chunkSpans span (more than two once a transfer
// exceeds 2*CHUNK elements), the destination rank and window they
// target, and whether a flush is still owed before the op's effect is
// remotely visible.
type Handle struct {
	destRank   int
	window     *xtransport.Window
	needsFlush bool
	subReqs    []*xtransport.Request
	state      handleState
}

// newHandle returns nil for a zero-sub-request op — "a handle with
// zero sub-requests is a completed no-op" (spec §3) — so the fast
// paths that complete synchronously can just return a nil handle.
func newHandle(destRank int, window *xtransport.Window, needsFlush bool, subReqs []*xtransport.Request) *Handle {
	if len(subReqs) == 0 {
		return nil
	}
	metrics.HandlesActive.Inc()
	return &Handle{destRank: destRank, window: window, needsFlush: needsFlush, subReqs: subReqs}
}

func (h *Handle) localDone() bool {
	for _, r := range h.subReqs {
		if done, _ := r.Test(); !done {
			return false
		}
	}
	return true
}

func (h *Handle) waitLocal() error {
	for _, r := range h.subReqs {
		if err := r.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// Wait drives h Active -> Flushed -> Done, then frees it and nils the
// caller's reference. A nil handle is a no-op returning OK (spec §4.F).
func Wait(hp **Handle) error {
	if hp == nil || *hp == nil {
		return nil
	}
	h := *hp
	if err := h.waitLocal(); err != nil {
		*hp = nil
		metrics.HandlesActive.Dec()
		return err
	}
	h.state = stateFlushed
	if h.needsFlush {
		if err := h.window.Flush(h.destRank); err != nil {
			*hp = nil
			metrics.HandlesActive.Dec()
			return err
		}
	}
	h.state = stateDone
	*hp = nil
	metrics.HandlesActive.Dec()
	return nil
}

// Waitall drives every handle in hs to Done in place, nilling each
// slot as it completes; a nil entry is a no-op.
func Waitall(hs []*Handle) error {
	for i := range hs {
		if err := Wait(&hs[i]); err != nil {
			return err
		}
	}
	return nil
}

// Test reports whether h is fully complete (local completion, plus a
// flush if one is owed); on completion it frees h and nils the
// caller's reference, same as Wait but without blocking — it may
// observe "not yet finished" and leave the handle Active (spec §4.F).
func Test(hp **Handle) (bool, error) {
	if hp == nil || *hp == nil {
		return true, nil
	}
	h := *hp
	if !h.localDone() {
		return false, nil
	}
	if h.needsFlush {
		if err := h.window.Flush(h.destRank); err != nil {
			return false, err
		}
	}
	*hp = nil
	metrics.HandlesActive.Dec()
	return true, nil
}

// Testall reports whether every handle in hs has completed, nilling
// the ones that have; it does not stop early, so partial progress
// across independent handles is not lost between calls.
func Testall(hs []*Handle) (bool, error) {
	allDone := true
	for i := range hs {
		done, err := Test(&hs[i])
		if err != nil {
			return false, err
		}
		if !done {
			allDone = false
		}
	}
	return allDone, nil
}

// TestLocal reports only local completion: remote visibility is not
// promised until a later Wait/Test or flush (spec §4.F). It never
// blocks and never frees h.
func TestLocal(h *Handle) bool {
	if h == nil {
		return true
	}
	return h.localDone()
}

// TestallLocal reports local completion across every handle in hs.
func TestallLocal(hs []*Handle) bool {
	for _, h := range hs {
		if !TestLocal(h) {
			return false
		}
	}
	return true
}
