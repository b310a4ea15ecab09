package coll

import (
	"github.com/parcio/dartrt/cmn"
	"github.com/parcio/dartrt/dtype"
	"github.com/parcio/dartrt/team"
)

// AnySource requests a match on any sender, mirroring MPI_ANY_SOURCE.
const AnySource = -1

// worldSelf returns this unit's world rank, derived from the all-units
// team: send/recv/sendrecv address units directly on that sub-
// communicator (spec §4.H), so team rank and world rank coincide.
func worldSelf(teams *team.Registry) (int, error) {
	t, err := teams.Lookup(team.All)
	if err != nil {
		return 0, err
	}
	return t.MyRank, nil
}

// Send delivers nelem elements of ty to unit `to`, tagged, chunked per
// the shared discipline (spec §4.H).
func Send(teams *team.Registry, to, tag int, data []byte, nelem int64, ty dtype.Type) error {
	self, err := worldSelf(teams)
	if err != nil {
		return err
	}
	world := teams.World()
	elemSize := dtype.Size(ty)
	for _, sp := range chunkSpans(nelem) {
		byteOff := sp.elemOffset * int64(elemSize)
		n := sp.count * int64(elemSize)
		if err := world.Send(to, tag, self, data[byteOff:byteOff+n]); err != nil {
			return cmn.WrapError("coll.Send", cmn.ErrInval, err)
		}
	}
	return nil
}

// Recv blocks for nelem elements of ty tagged `tag` from `from` (or
// AnySource), assembled in address order from the same chunked calls
// Send issued.
func Recv(teams *team.Registry, from, tag int, nelem int64, ty dtype.Type) ([]byte, error) {
	self, err := worldSelf(teams)
	if err != nil {
		return nil, err
	}
	world := teams.World()
	elemSize := dtype.Size(ty)
	buf := make([]byte, nelem*int64(elemSize))
	for _, sp := range chunkSpans(nelem) {
		byteOff := sp.elemOffset * int64(elemSize)
		n := sp.count * int64(elemSize)
		_, chunk := world.Recv(self, tag, from)
		if int64(len(chunk)) != n {
			return nil, cmn.NewError("coll.Recv", cmn.ErrInval, "chunk size mismatch with sender")
		}
		copy(buf[byteOff:byteOff+n], chunk)
	}
	return buf, nil
}

// Sendrecv issues a Send and a Recv on the same call, the way a unit
// exchanging data with a peer avoids a two-step deadlock.
func Sendrecv(teams *team.Registry, to, sendTag int, sendData []byte, sendNelem int64,
	from, recvTag int, recvNelem int64, ty dtype.Type) ([]byte, error) {
	if err := Send(teams, to, sendTag, sendData, sendNelem, ty); err != nil {
		return nil, err
	}
	return Recv(teams, from, recvTag, recvNelem, ty)
}
