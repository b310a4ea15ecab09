package xtransport

import (
	"sync"

	"github.com/parcio/dartrt/cmn"
	"github.com/parcio/dartrt/dtype"
)

// Window is one team's typed remote-accessible memory: a per-member
// byte arena plus a lock guarding every RMA access to that member's
// arena, standing in for the transport's own window memory-model
// guarantees (spec §6 "typed windows with per-unit displacements").
type Window struct {
	world   *World
	members []int // world ranks, team-rank ordered
	mu      []sync.Mutex
	arena   [][]byte
}

// NewWindow allocates an (initially empty) window over the given
// team-ordered world ranks.
func NewWindow(world *World, members []int) *Window {
	return &Window{
		world:   world,
		members: members,
		mu:      make([]sync.Mutex, len(members)),
		arena:   make([][]byte, len(members)),
	}
}

func (win *Window) Size() int { return len(win.members) }

// Alloc grows the calling team-rank's own arena by nbytes and returns
// the displacement (byte offset) of the new region — every member
// calls this during a collective segment allocation (spec §4.B/§4.C),
// each computing only its own displacement; the segment table then
// carries the full per-member array after an allgather of these values.
func (win *Window) Alloc(rank int, nbytes int) int64 {
	win.mu[rank].Lock()
	defer win.mu[rank].Unlock()
	disp := int64(len(win.arena[rank]))
	win.arena[rank] = append(win.arena[rank], make([]byte, nbytes)...)
	return disp
}

func (win *Window) checkRank(rank int) error {
	if rank < 0 || rank >= len(win.members) {
		return cmn.NewError("window", cmn.ErrInval, "rank out of range for team")
	}
	return nil
}

// Get copies nbytes from rank's arena at disp into dst.
func (win *Window) Get(dst []byte, rank int, disp int64, nbytes int) error {
	if err := win.checkRank(rank); err != nil {
		return err
	}
	win.mu[rank].Lock()
	defer win.mu[rank].Unlock()
	if disp+int64(nbytes) > int64(len(win.arena[rank])) {
		return cmn.NewError("window.Get", cmn.ErrInval, "out-of-range displacement")
	}
	copy(dst, win.arena[rank][disp:disp+int64(nbytes)])
	return nil
}

// Put copies src into rank's arena at disp.
func (win *Window) Put(rank int, disp int64, src []byte) error {
	if err := win.checkRank(rank); err != nil {
		return err
	}
	win.mu[rank].Lock()
	defer win.mu[rank].Unlock()
	if disp+int64(len(src)) > int64(len(win.arena[rank])) {
		return cmn.NewError("window.Put", cmn.ErrInval, "out-of-range displacement")
	}
	copy(win.arena[rank][disp:], src)
	return nil
}

// Accumulate combines src into rank's arena at disp using op,
// elementwise over count elements of type t (spec §4.E: "no fast
// paths (must use transport to guarantee atomicity)").
func (win *Window) Accumulate(rank int, disp int64, src []byte, t dtype.Type, op dtype.Op, count int) error {
	if err := win.checkRank(rank); err != nil {
		return err
	}
	win.mu[rank].Lock()
	defer win.mu[rank].Unlock()
	sz := dtype.Size(t) * count
	if disp+int64(sz) > int64(len(win.arena[rank])) {
		return cmn.NewError("window.Accumulate", cmn.ErrInval, "out-of-range displacement")
	}
	dst := win.arena[rank][disp : disp+int64(sz)]
	dtype.Combine(op, dst, src, t, count)
	return nil
}

// FetchAndOp atomically applies op to the single element at disp,
// returning the pre-op value in prev.
func (win *Window) FetchAndOp(rank int, disp int64, value []byte, t dtype.Type, op dtype.Op, prev []byte) error {
	if err := win.checkRank(rank); err != nil {
		return err
	}
	win.mu[rank].Lock()
	defer win.mu[rank].Unlock()
	sz := dtype.Size(t)
	if disp+int64(sz) > int64(len(win.arena[rank])) {
		return cmn.NewError("window.FetchAndOp", cmn.ErrInval, "out-of-range displacement")
	}
	dst := win.arena[rank][disp : disp+int64(sz)]
	copy(prev, dst)
	dtype.Combine(op, dst, value, t, 1)
	return nil
}

// CompareAndSwap atomically swaps the element at disp to newVal iff it
// currently equals expected, returning the pre-swap value in prev.
func (win *Window) CompareAndSwap(rank int, disp int64, newVal, expected []byte, t dtype.Type, prev []byte) error {
	if err := win.checkRank(rank); err != nil {
		return err
	}
	win.mu[rank].Lock()
	defer win.mu[rank].Unlock()
	sz := dtype.Size(t)
	if disp+int64(sz) > int64(len(win.arena[rank])) {
		return cmn.NewError("window.CompareAndSwap", cmn.ErrInval, "out-of-range displacement")
	}
	dst := win.arena[rank][disp : disp+int64(sz)]
	copy(prev, dst)
	if bytesEqual(dst, expected) {
		copy(dst, newVal)
	}
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Flush/FlushLocal/Sync are no-ops in this reference transport: every
// Get/Put/Accumulate above already completed synchronously under the
// per-rank lock by the time the call returns, so there is nothing left
// to drain. A networked transport's Flush would block here instead;
// the call still has to exist so higher layers exercise the full
// synchronization protocol of spec §4.G against *something*.
func (win *Window) Flush(int) error      { return nil }
func (win *Window) FlushAll() error      { return nil }
func (win *Window) FlushLocal(int) error { return nil }
func (win *Window) FlushLocalAll() error { return nil }
func (win *Window) Sync() error          { return nil }

// Request is a non-blocking sub-request handle (spec §4.F): in this
// synchronous reference transport the operation has already completed
// by the time the Request is constructed, so Wait/Test are trivial —
// a real transport would poll or block on a completion queue here.
type Request struct{ err error }

func (r *Request) Wait() error      { return r.err }
func (r *Request) Test() (bool, error) { return true, r.err }

// Rget/Rput issue the same Get/Put synchronously and hand back an
// already-complete Request, matching the contract's Rget/Rput entry
// points without requiring real asynchrony from this reference backend.
func (win *Window) Rget(dst []byte, rank int, disp int64, nbytes int) *Request {
	return &Request{err: win.Get(dst, rank, disp, nbytes)}
}

func (win *Window) Rput(rank int, disp int64, src []byte) *Request {
	return &Request{err: win.Put(rank, disp, src)}
}
