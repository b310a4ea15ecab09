// Package coll is the collective and point-to-point layer (spec §4.H):
// barrier, broadcast, scatter, gather, allgather, allgatherv, reduce,
// and allreduce over a team, plus send/recv/sendrecv on the all-units
// team and the subset-barrier rendezvous (spec §4.I). Every op shares
// the chunking discipline of the RMA engine.
package coll

import "github.com/parcio/dartrt/dtype"

// chunkSpan is one transport call's worth of a chunked transfer: count
// elements starting at elemOffset base elements into the transfer.
type chunkSpan struct {
	elemOffset int64
	count      int64
}

// chunkSpans mirrors the rma package's chunking plan: CHUNK-sized
// spans in address order, then one remainder span (omitted if zero).
func chunkSpans(nelem int64) []chunkSpan {
	plan := dtype.Plan(nelem)
	spans := make([]chunkSpan, 0, plan.NumChunks+1)
	var off int64
	for i := int64(0); i < plan.NumChunks; i++ {
		spans = append(spans, chunkSpan{elemOffset: off, count: dtype.MaxContigElements})
		off += dtype.MaxContigElements
	}
	if plan.Remainder > 0 {
		spans = append(spans, chunkSpan{elemOffset: off, count: plan.Remainder})
	}
	return spans
}
