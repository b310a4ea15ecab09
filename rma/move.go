package rma

import (
	"github.com/parcio/dartrt/cmn"
	"github.com/parcio/dartrt/internal/metrics"
	"github.com/parcio/dartrt/team"
)

type getter func(dst []byte, rank int, disp int64, nbytes int) error
type putter func(rank int, disp int64, src []byte) error

// chunkedGet drives fn over the spec §4.E chunking plan for nelem
// elements of elemSize bytes, assembling dst in address order.
func chunkedGet(dst []byte, elemSize int, nelem int64, rank int, baseDisp int64, fn getter) error {
	for _, sp := range chunkSpans(nelem) {
		byteOff := sp.elemOffset * int64(elemSize)
		n := int(sp.count) * elemSize
		if err := fn(dst[byteOff:byteOff+int64(n)], rank, baseDisp+byteOff, n); err != nil {
			return cmn.WrapError("rma", cmn.ErrInval, err)
		}
		metrics.RMABytes.WithLabelValues("get").Add(float64(n))
		metrics.RMAChunks.WithLabelValues("get").Inc()
	}
	return nil
}

// chunkedPut is chunkedGet's write-side counterpart.
func chunkedPut(src []byte, elemSize int, nelem int64, rank int, baseDisp int64, fn putter) error {
	for _, sp := range chunkSpans(nelem) {
		byteOff := sp.elemOffset * int64(elemSize)
		n := int(sp.count) * elemSize
		if err := fn(rank, baseDisp+byteOff, src[byteOff:byteOff+int64(n)]); err != nil {
			return cmn.WrapError("rma", cmn.ErrInval, err)
		}
		metrics.RMABytes.WithLabelValues("put").Add(float64(n))
		metrics.RMAChunks.WithLabelValues("put").Inc()
	}
	return nil
}

// shmemDisp resolves the shared-memory displacement for gptr g when
// the shared-memory fast path applies: shared_windows is enabled, the
// target unit is co-located, and g names a collective segment (segid
// 0, the private pool, was never registered for shared memory).
func shmemDisp(tm *team.Team, g team.GPtr) (int64, bool, error) {
	if !cmn.GCO().SharedWindows {
		return 0, false, nil
	}
	rank := int(g.UnitID)
	if tm.SharedMem[rank] < 0 || g.SegmentID == 0 {
		return 0, false, nil
	}
	base, ok, err := tm.Segments.LookupShmemBase(g.SegmentID, rank)
	if err != nil || !ok {
		return 0, false, err
	}
	return int64(base) + int64(g.Offset), true, nil
}

// resolveDisp computes the absolute window displacement a global
// pointer names: segment 0 is the private local pool, addressed
// directly by offset; any other segment id resolves through the
// team's segment table (spec §3).
func resolveDisp(tm *team.Team, g team.GPtr) (int64, error) {
	if g.SegmentID == 0 {
		return int64(g.Offset), nil
	}
	base, err := tm.Segments.LookupDisp(g.SegmentID, int(g.UnitID))
	if err != nil {
		return 0, err
	}
	return base + int64(g.Offset), nil
}
