package xtransport

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/parcio/dartrt/cmn"
)

// shmArenaBytes is the fixed capacity of each member's shared-memory
// arena. The reference transport never frees shared-memory segments
// individually (teardown happens only at Close), so a bump allocator
// over a fixed region is enough to exercise the fast path.
const shmArenaBytes = 1 << 20

// ShmWindow backs the shared-memory fast path of spec §4.E for
// co-located team members with anonymous mmap-ed regions rather than
// plain Go slices — the closest a single-process reference transport
// can come to modeling a real transport's shared-memory segment.
type ShmWindow struct {
	members []int
	mu      []sync.Mutex
	arena   [][]byte
	used    []int64
}

// NewShmWindow mmaps one arena per team member. Non-co-located members
// still get an arena (simplifies indexing); only co-located members
// are ever routed to it by the RMA engine.
func NewShmWindow(members []int) (*ShmWindow, error) {
	w := &ShmWindow{
		members: members,
		mu:      make([]sync.Mutex, len(members)),
		arena:   make([][]byte, len(members)),
		used:    make([]int64, len(members)),
	}
	for i := range members {
		m, err := unix.Mmap(-1, 0, shmArenaBytes, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
		if err != nil {
			_ = w.Close()
			return nil, cmn.WrapError("ShmWindow.New", cmn.ErrOther, err)
		}
		w.arena[i] = m
	}
	return w, nil
}

// Close unmaps every member arena.
func (w *ShmWindow) Close() error {
	var first error
	for _, a := range w.arena {
		if a == nil {
			continue
		}
		if err := unix.Munmap(a); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Alloc bump-allocates nbytes within rank's shared-memory arena.
func (w *ShmWindow) Alloc(rank, nbytes int) (int64, error) {
	w.mu[rank].Lock()
	defer w.mu[rank].Unlock()
	disp := w.used[rank]
	if disp+int64(nbytes) > int64(len(w.arena[rank])) {
		return 0, cmn.NewError("ShmWindow.Alloc", cmn.ErrOther, "shared-memory arena exhausted")
	}
	w.used[rank] += int64(nbytes)
	return disp, nil
}

func (w *ShmWindow) checkRange(rank int, disp int64, n int) error {
	if rank < 0 || rank >= len(w.arena) {
		return cmn.NewError("ShmWindow", cmn.ErrInval, "rank out of range")
	}
	if disp < 0 || disp+int64(n) > int64(len(w.arena[rank])) {
		return cmn.NewError("ShmWindow", cmn.ErrInval, "out-of-range displacement")
	}
	return nil
}

// Get memcpy's rank's shared arena at disp into dst, the direct path
// co-located RMA takes instead of a transport call.
func (w *ShmWindow) Get(dst []byte, rank int, disp int64, n int) error {
	if err := w.checkRange(rank, disp, n); err != nil {
		return err
	}
	w.mu[rank].Lock()
	defer w.mu[rank].Unlock()
	copy(dst, w.arena[rank][disp:disp+int64(n)])
	return nil
}

// Put memcpy's src into rank's shared arena at disp.
func (w *ShmWindow) Put(rank int, disp int64, src []byte) error {
	if err := w.checkRange(rank, disp, len(src)); err != nil {
		return err
	}
	w.mu[rank].Lock()
	defer w.mu[rank].Unlock()
	copy(w.arena[rank][disp:], src)
	return nil
}
