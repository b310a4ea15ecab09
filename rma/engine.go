package rma

import (
	"github.com/parcio/dartrt/cmn"
	"github.com/parcio/dartrt/dtype"
	"github.com/parcio/dartrt/internal/metrics"
	"github.com/parcio/dartrt/internal/xtransport"
	"github.com/parcio/dartrt/team"
)

// Engine is one unit's RMA entry point (spec §4.E), resolving global
// pointers through a team registry and routing each op through the
// self/shared-memory/transport fast-path ladder the spec describes.
type Engine struct {
	teams *team.Registry
}

func NewEngine(teams *team.Registry) *Engine { return &Engine{teams: teams} }

// resolve validates gptr g against its team (spec: "fail ERR_INVAL if
// unknown" team, "destination unit id is in range for the team") and
// returns the team record plus g's absolute window displacement.
func (e *Engine) resolve(g team.GPtr) (*team.Team, int64, error) {
	tm, err := e.teams.Lookup(g.TeamID)
	if err != nil {
		return nil, 0, err
	}
	if err := tm.Comm.CheckRank(int(g.UnitID)); err != nil {
		return nil, 0, err
	}
	disp, err := resolveDisp(tm, g)
	if err != nil {
		return nil, 0, err
	}
	return tm, disp, nil
}

// Get is the blocking get of spec §4.E: self-target and shared-memory
// fast paths memcpy directly; otherwise the chunked transport path.
func (e *Engine) Get(dst []byte, g team.GPtr, nelem int64, t dtype.Type) error {
	tm, disp, err := e.resolve(g)
	if err != nil {
		return err
	}
	rank := int(g.UnitID)
	elemSize := dtype.Size(t)
	if elemSize == 0 {
		return cmn.NewError("rma.Get", cmn.ErrInval, "unrecognized dtype")
	}

	if rank == tm.MyRank {
		return chunkedGet(dst, elemSize, nelem, rank, disp, tm.Window.Get)
	}
	if shmDisp, ok, err := shmemDisp(tm, g); err != nil {
		return err
	} else if ok {
		shmWin, err := tm.ShmWindow()
		if err != nil {
			return err
		}
		return chunkedGet(dst, elemSize, nelem, rank, shmDisp, shmWin.Get)
	}
	return chunkedGet(dst, elemSize, nelem, rank, disp, tm.Window.Get)
}

// Put is the non-blocking-at-the-transport put of spec §4.E: it
// returns once src may be reused, not once the write is remotely
// visible — a subsequent flush is required for that.
func (e *Engine) Put(g team.GPtr, src []byte, nelem int64, t dtype.Type) error {
	tm, disp, err := e.resolve(g)
	if err != nil {
		return err
	}
	rank := int(g.UnitID)
	elemSize := dtype.Size(t)
	if elemSize == 0 {
		return cmn.NewError("rma.Put", cmn.ErrInval, "unrecognized dtype")
	}

	if rank == tm.MyRank {
		return chunkedPut(src, elemSize, nelem, rank, disp, tm.Window.Put)
	}
	if shmDisp, ok, err := shmemDisp(tm, g); err != nil {
		return err
	} else if ok {
		shmWin, err := tm.ShmWindow()
		if err != nil {
			return err
		}
		return chunkedPut(src, elemSize, nelem, rank, shmDisp, shmWin.Put)
	}
	return chunkedPut(src, elemSize, nelem, rank, disp, tm.Window.Put)
}

// PutBlocking is put followed by a flush on the target (spec §4.E):
// on return, any subsequent access on that unit reflects the write.
func (e *Engine) PutBlocking(g team.GPtr, src []byte, nelem int64, t dtype.Type) error {
	if err := e.Put(g, src, nelem, t); err != nil {
		return err
	}
	tm, err := e.teams.Lookup(g.TeamID)
	if err != nil {
		return err
	}
	return tm.Window.Flush(int(g.UnitID))
}

// Accumulate applies op element-wise into remote memory. There is no
// fast path here (spec §4.E: "must use transport to guarantee
// atomicity"), even for self or co-located targets.
func (e *Engine) Accumulate(g team.GPtr, values []byte, nelem int64, t dtype.Type, op dtype.Op) error {
	tm, disp, err := e.resolve(g)
	if err != nil {
		return err
	}
	rank := int(g.UnitID)
	elemSize := dtype.Size(t)
	if elemSize == 0 {
		return cmn.NewError("rma.Accumulate", cmn.ErrInval, "unrecognized dtype")
	}
	for _, sp := range chunkSpans(nelem) {
		byteOff := sp.elemOffset * int64(elemSize)
		n := int(sp.count)
		chunk := values[byteOff : byteOff+int64(n)*int64(elemSize)]
		if err := tm.Window.Accumulate(rank, disp+byteOff, chunk, t, op, n); err != nil {
			return cmn.WrapError("rma.Accumulate", cmn.ErrInval, err)
		}
	}
	return nil
}

// FetchAndOp atomically applies op to the single element gptr names,
// returning the pre-op value in result (spec §4.E).
func (e *Engine) FetchAndOp(g team.GPtr, value, result []byte, t dtype.Type, op dtype.Op) error {
	tm, disp, err := e.resolve(g)
	if err != nil {
		return err
	}
	return tm.Window.FetchAndOp(int(g.UnitID), disp, value, t, op, result)
}

// CompareAndSwap atomically swaps gptr's element to newVal iff it
// currently equals expected, restricted to integral dtypes up to 64
// bits (spec §4.E).
func (e *Engine) CompareAndSwap(g team.GPtr, newVal, expected, result []byte, t dtype.Type) error {
	if !dtype.Integral(t) {
		return cmn.NewError("rma.CompareAndSwap", cmn.ErrInval, "CAS requires an integral dtype up to 64 bits")
	}
	tm, disp, err := e.resolve(g)
	if err != nil {
		return err
	}
	return tm.Window.CompareAndSwap(int(g.UnitID), disp, newVal, expected, t, result)
}

// GetHandle is get's non-blocking counterpart: the chunked
// sub-requests are stored in the returned handle rather than locally
// awaited. A fast-path hit (self or shared-memory) already completed
// the op, so it returns a nil handle (spec §4.E).
func (e *Engine) GetHandle(dst []byte, g team.GPtr, nelem int64, t dtype.Type) (*Handle, error) {
	tm, disp, err := e.resolve(g)
	if err != nil {
		return nil, err
	}
	rank := int(g.UnitID)
	elemSize := dtype.Size(t)
	if elemSize == 0 {
		return nil, cmn.NewError("rma.GetHandle", cmn.ErrInval, "unrecognized dtype")
	}

	if rank == tm.MyRank {
		return nil, chunkedGet(dst, elemSize, nelem, rank, disp, tm.Window.Get)
	}
	if shmDisp, ok, err := shmemDisp(tm, g); err != nil {
		return nil, err
	} else if ok {
		shmWin, err := tm.ShmWindow()
		if err != nil {
			return nil, err
		}
		return nil, chunkedGet(dst, elemSize, nelem, rank, shmDisp, shmWin.Get)
	}

	reqs := make([]*xtransport.Request, 0, 2)
	for _, sp := range chunkSpans(nelem) {
		byteOff := sp.elemOffset * int64(elemSize)
		n := int(sp.count) * elemSize
		reqs = append(reqs, tm.Window.Rget(dst[byteOff:byteOff+int64(n)], rank, disp+byteOff, n))
	}
	return newHandle(rank, tm.Window, false, reqs), nil
}

// PutHandle is put's non-blocking counterpart; needsFlush is always
// true for the returned handle unless a fast path already completed
// the write (spec §4.E).
func (e *Engine) PutHandle(g team.GPtr, src []byte, nelem int64, t dtype.Type) (*Handle, error) {
	tm, disp, err := e.resolve(g)
	if err != nil {
		return nil, err
	}
	rank := int(g.UnitID)
	elemSize := dtype.Size(t)
	if elemSize == 0 {
		return nil, cmn.NewError("rma.PutHandle", cmn.ErrInval, "unrecognized dtype")
	}

	if rank == tm.MyRank {
		return nil, chunkedPut(src, elemSize, nelem, rank, disp, tm.Window.Put)
	}
	if shmDisp, ok, err := shmemDisp(tm, g); err != nil {
		return nil, err
	} else if ok {
		shmWin, err := tm.ShmWindow()
		if err != nil {
			return nil, err
		}
		return nil, chunkedPut(src, elemSize, nelem, rank, shmDisp, shmWin.Put)
	}

	reqs := make([]*xtransport.Request, 0, 2)
	for _, sp := range chunkSpans(nelem) {
		byteOff := sp.elemOffset * int64(elemSize)
		n := int(sp.count) * elemSize
		reqs = append(reqs, tm.Window.Rput(rank, disp+byteOff, src[byteOff:byteOff+int64(n)]))
	}
	return newHandle(rank, tm.Window, true, reqs), nil
}
