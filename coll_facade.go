package dartrt

import (
	"github.com/parcio/dartrt/coll"
	"github.com/parcio/dartrt/dtype"
)

func (rt *Runtime) Barrier(teamID uint16) error { return coll.Barrier(rt.teams, teamID) }

func (rt *Runtime) Bcast(teamID uint16, root int, buf []byte, nelem int64, ty Type) error {
	return coll.Bcast(rt.teams, teamID, root, buf, nelem, ty)
}

func (rt *Runtime) Gather(teamID uint16, root int, sendbuf []byte, nelem int64, ty Type) ([][]byte, error) {
	return coll.Gather(rt.teams, teamID, root, sendbuf, nelem, ty)
}

func (rt *Runtime) Scatter(teamID uint16, root int, in [][]byte, nelem int64, ty Type) ([]byte, error) {
	return coll.Scatter(rt.teams, teamID, root, in, nelem, ty)
}

func (rt *Runtime) Allgather(teamID uint16, sendbuf []byte, nelem int64, ty Type) ([][]byte, error) {
	return coll.Allgather(rt.teams, teamID, sendbuf, nelem, ty)
}

func (rt *Runtime) Allgatherv(teamID uint16, sendbuf []byte, counts []int64, ty Type) ([][]byte, error) {
	return coll.Allgatherv(rt.teams, teamID, sendbuf, counts, ty)
}

func (rt *Runtime) Reduce(teamID uint16, root int, sendbuf []byte, nelem int64, ty Type, op dtype.Op) ([]byte, error) {
	return coll.Reduce(rt.teams, teamID, root, sendbuf, nelem, ty, op)
}

func (rt *Runtime) Allreduce(teamID uint16, sendbuf []byte, nelem int64, ty Type, op dtype.Op) ([]byte, error) {
	return coll.Allreduce(rt.teams, teamID, sendbuf, nelem, ty, op)
}

// AnySource matches a Recv against a sender of any world rank.
const AnySource = coll.AnySource

func (rt *Runtime) Send(to, tag int, data []byte, nelem int64, ty Type) error {
	return coll.Send(rt.teams, to, tag, data, nelem, ty)
}

func (rt *Runtime) Recv(from, tag int, nelem int64, ty Type) ([]byte, error) {
	return coll.Recv(rt.teams, from, tag, nelem, ty)
}

func (rt *Runtime) Sendrecv(to, sendTag int, sendData []byte, sendNelem int64, from, recvTag int, recvNelem int64, ty Type) ([]byte, error) {
	return coll.Sendrecv(rt.teams, to, sendTag, sendData, sendNelem, from, recvTag, recvNelem, ty)
}

// SubsetBarrier rendezvouses every unit in s, a subset of world ranks
// (spec §4.I); units not in s return immediately.
func (rt *Runtime) SubsetBarrier(s []int) error {
	return coll.SubsetBarrier(rt.teams, s)
}
