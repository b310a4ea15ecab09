package dartrt

import (
	"github.com/parcio/dartrt/dtype"
	"github.com/parcio/dartrt/rma"
	"github.com/parcio/dartrt/team"
)

// GPtr, Handle and dtype.Type are re-exported so callers never need to
// import the internal packages directly.
type (
	GPtr   = team.GPtr
	Handle = rma.Handle
	Type   = dtype.Type
)

// AllTeam is the reserved id of the all-units team, the root of the
// team forest every Runtime bootstraps at Init (spec §3).
const AllTeam = team.All

func (rt *Runtime) Get(dst []byte, g GPtr, nelem int64, t Type) error {
	return rt.engine.Get(dst, g, nelem, t)
}

func (rt *Runtime) Put(g GPtr, src []byte, nelem int64, t Type) error {
	return rt.engine.Put(g, src, nelem, t)
}

func (rt *Runtime) PutBlocking(g GPtr, src []byte, nelem int64, t Type) error {
	return rt.engine.PutBlocking(g, src, nelem, t)
}

func (rt *Runtime) Accumulate(g GPtr, values []byte, nelem int64, t Type, op dtype.Op) error {
	return rt.engine.Accumulate(g, values, nelem, t, op)
}

func (rt *Runtime) FetchAndOp(g GPtr, value, result []byte, t Type, op dtype.Op) error {
	return rt.engine.FetchAndOp(g, value, result, t, op)
}

func (rt *Runtime) CompareAndSwap(g GPtr, newVal, expected, result []byte, t Type) error {
	return rt.engine.CompareAndSwap(g, newVal, expected, result, t)
}

func (rt *Runtime) GetHandle(dst []byte, g GPtr, nelem int64, t Type) (*Handle, error) {
	return rt.engine.GetHandle(dst, g, nelem, t)
}

func (rt *Runtime) PutHandle(g GPtr, src []byte, nelem int64, t Type) (*Handle, error) {
	return rt.engine.PutHandle(g, src, nelem, t)
}

func (rt *Runtime) Flush(g GPtr) error           { return rt.engine.Flush(g) }
func (rt *Runtime) FlushAll(teamID uint16) error { return rt.engine.FlushAll(teamID) }
func (rt *Runtime) FlushLocal(g GPtr) error      { return rt.engine.FlushLocal(g) }
func (rt *Runtime) FlushLocalAll(teamID uint16) error {
	return rt.engine.FlushLocalAll(teamID)
}

// Wait/Waitall/Test/Testall/TestLocal/TestallLocal are handle-lifecycle
// ops (spec §4.F); re-exported verbatim since they operate on Handle
// rather than on a Runtime.
func Wait(hp **Handle) error             { return rma.Wait(hp) }
func Waitall(hs []*Handle) error         { return rma.Waitall(hs) }
func Test(hp **Handle) (bool, error)     { return rma.Test(hp) }
func Testall(hs []*Handle) (bool, error) { return rma.Testall(hs) }
func TestLocal(h *Handle) bool           { return rma.TestLocal(h) }
func TestallLocal(hs []*Handle) bool     { return rma.TestallLocal(hs) }
