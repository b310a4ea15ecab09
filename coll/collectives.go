package coll

import (
	"time"

	"github.com/parcio/dartrt/cmn"
	"github.com/parcio/dartrt/dtype"
	"github.com/parcio/dartrt/internal/metrics"
	"github.com/parcio/dartrt/team"
)

// resolve looks up teamID and validates root against it (spec §4.H:
// "teamid == UNDEFINED -> ERR_INVAL", "root must be a valid team rank").
func resolve(teams *team.Registry, teamID uint16, root int) (*team.Team, error) {
	t, err := teams.Lookup(teamID)
	if err != nil {
		return nil, cmn.WrapError("coll", cmn.ErrInval, err)
	}
	if root >= 0 {
		if err := t.Comm.CheckRank(root); err != nil {
			return nil, cmn.WrapError("coll", cmn.ErrInval, err)
		}
	}
	return t, nil
}

// Barrier rendezvouses every member of teamID with no data exchange.
func Barrier(teams *team.Registry, teamID uint16) error {
	t, err := resolve(teams, teamID, -1)
	if err != nil {
		return err
	}
	start := time.Now()
	err = t.Comm.Barrier(t.MyRank, t.Comm.NextCallIndex())
	metrics.BarrierLatency.WithLabelValues("barrier").Observe(time.Since(start).Seconds())
	return err
}

// Bcast sends root's buf to every member of teamID, chunked. buf is
// read on root and overwritten on every other member.
func Bcast(teams *team.Registry, teamID uint16, root int, buf []byte, nelem int64, ty dtype.Type) error {
	t, err := resolve(teams, teamID, root)
	if err != nil {
		return err
	}
	elemSize := dtype.Size(ty)
	for _, sp := range chunkSpans(nelem) {
		byteOff := sp.elemOffset * int64(elemSize)
		n := sp.count * int64(elemSize)
		chunk := buf[byteOff : byteOff+n]
		out := t.Comm.Bcast(t.MyRank, root, chunk, t.Comm.NextCallIndex())
		if t.MyRank != root {
			copy(chunk, out)
		}
	}
	return nil
}

// Gather collects every member's sendbuf into root's result, in team-
// rank order; non-root callers get a nil result.
func Gather(teams *team.Registry, teamID uint16, root int, sendbuf []byte, nelem int64, ty dtype.Type) ([][]byte, error) {
	t, err := resolve(teams, teamID, root)
	if err != nil {
		return nil, err
	}
	elemSize := dtype.Size(ty)
	var out [][]byte
	if t.MyRank == root {
		out = make([][]byte, t.Comm.Size())
		for i := range out {
			out[i] = make([]byte, nelem*int64(elemSize))
		}
	}
	for _, sp := range chunkSpans(nelem) {
		byteOff := sp.elemOffset * int64(elemSize)
		n := sp.count * int64(elemSize)
		chunkIn := sendbuf[byteOff : byteOff+n]
		res := t.Comm.Gather(t.MyRank, root, chunkIn, t.Comm.NextCallIndex())
		if res != nil {
			for i, v := range res {
				copy(out[i][byteOff:byteOff+n], v)
			}
		}
	}
	return out, nil
}

// Scatter hands member i root's in[i], chunked; in is read only on
// root (and must have an entry per team member).
func Scatter(teams *team.Registry, teamID uint16, root int, in [][]byte, nelem int64, ty dtype.Type) ([]byte, error) {
	t, err := resolve(teams, teamID, root)
	if err != nil {
		return nil, err
	}
	elemSize := dtype.Size(ty)
	result := make([]byte, nelem*int64(elemSize))
	for _, sp := range chunkSpans(nelem) {
		byteOff := sp.elemOffset * int64(elemSize)
		n := sp.count * int64(elemSize)
		var chunkIn [][]byte
		if t.MyRank == root {
			chunkIn = make([][]byte, len(in))
			for i, full := range in {
				chunkIn[i] = full[byteOff : byteOff+n]
			}
		}
		out := t.Comm.Scatter(t.MyRank, root, chunkIn, t.Comm.NextCallIndex())
		copy(result[byteOff:byteOff+n], out)
	}
	return result, nil
}

// Allgather collects every member's sendbuf and hands the full set
// (team-rank order) to every member.
func Allgather(teams *team.Registry, teamID uint16, sendbuf []byte, nelem int64, ty dtype.Type) ([][]byte, error) {
	t, err := resolve(teams, teamID, -1)
	if err != nil {
		return nil, err
	}
	elemSize := dtype.Size(ty)
	out := make([][]byte, t.Comm.Size())
	for i := range out {
		out[i] = make([]byte, nelem*int64(elemSize))
	}
	for _, sp := range chunkSpans(nelem) {
		byteOff := sp.elemOffset * int64(elemSize)
		n := sp.count * int64(elemSize)
		chunkIn := sendbuf[byteOff : byteOff+n]
		res := t.Comm.Allgather(t.MyRank, chunkIn, t.Comm.NextCallIndex())
		for i, v := range res {
			copy(out[i][byteOff:byteOff+n], v)
		}
	}
	return out, nil
}

// Allgatherv is allgather with a per-member element count: spec §4.H
// bounds each per-peer count (and, implicitly, its displacement into
// the concatenated result) by CHUNK rather than chunking the transfer
// itself, since the variable-length exchange already fits one
// transport call per member.
func Allgatherv(teams *team.Registry, teamID uint16, sendbuf []byte, counts []int64, ty dtype.Type) ([][]byte, error) {
	t, err := resolve(teams, teamID, -1)
	if err != nil {
		return nil, err
	}
	if len(counts) != t.Comm.Size() {
		return nil, cmn.NewError("coll.Allgatherv", cmn.ErrInval, "counts must have one entry per team member")
	}
	var disp int64
	for _, c := range counts {
		if c < 0 || c > dtype.MaxContigElements {
			return nil, cmn.NewError("coll.Allgatherv", cmn.ErrInval, "per-peer count exceeds CHUNK")
		}
		disp += c
		if disp > dtype.MaxContigElements {
			return nil, cmn.NewError("coll.Allgatherv", cmn.ErrInval, "cumulative displacement exceeds CHUNK")
		}
	}
	elemSize := dtype.Size(ty)
	want := counts[t.MyRank] * int64(elemSize)
	if int64(len(sendbuf)) != want {
		return nil, cmn.NewError("coll.Allgatherv", cmn.ErrInval, "sendbuf length does not match this member's count")
	}
	res := t.Comm.Allgather(t.MyRank, sendbuf, t.Comm.NextCallIndex())
	out := make([][]byte, len(res))
	for i, v := range res {
		cp := make([]byte, len(v))
		copy(cp, v)
		out[i] = cp
	}
	return out, nil
}

// Reduce folds every member's sendbuf with op and hands the result to
// root only. Not chunked: spec §4.H rejects nelem > CHUNK outright,
// since reduction operators over CHUNK-sized spans cannot be composed
// without an extra accumulator buffer.
func Reduce(teams *team.Registry, teamID uint16, root int, sendbuf []byte, nelem int64, ty dtype.Type, op dtype.Op) ([]byte, error) {
	t, err := resolve(teams, teamID, root)
	if err != nil {
		return nil, err
	}
	if nelem > dtype.MaxContigElements {
		return nil, cmn.NewError("coll.Reduce", cmn.ErrInval, "nelem exceeds CHUNK; reduce is not chunked")
	}
	fold := func(acc, next []byte) { dtype.Combine(op, acc, next, ty, int(nelem)) }
	res := t.Comm.Reduce(t.MyRank, root, sendbuf, fold, t.Comm.NextCallIndex())
	return res, nil
}

// Allreduce folds every member's sendbuf with op and hands the result
// to every member. Same CHUNK restriction as Reduce.
func Allreduce(teams *team.Registry, teamID uint16, sendbuf []byte, nelem int64, ty dtype.Type, op dtype.Op) ([]byte, error) {
	t, err := resolve(teams, teamID, -1)
	if err != nil {
		return nil, err
	}
	if nelem > dtype.MaxContigElements {
		return nil, cmn.NewError("coll.Allreduce", cmn.ErrInval, "nelem exceeds CHUNK; allreduce is not chunked")
	}
	fold := func(acc, next []byte) { dtype.Combine(op, acc, next, ty, int(nelem)) }
	res := t.Comm.Allreduce(t.MyRank, sendbuf, fold, t.Comm.NextCallIndex())
	return res, nil
}
