// Package rma is the RMA engine and handle lifecycle of spec §4.E/§4.F:
// get/put/accumulate/fetch-and-op/compare-and-swap, chunked per the
// transport's CHUNK limit, with local-copy and shared-memory fast
// paths layered over the team package's window and segment table.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package rma

import "github.com/parcio/dartrt/dtype"

// chunkSpan is one transport call's worth of a chunked transfer:
// count elements starting at elemOffset base elements into the
// transfer (spec §4.E "Offset advance is in BASE elements, not bytes").
type chunkSpan struct {
	elemOffset int64
	count      int64
}

// chunkSpans lays out the transport calls of a chunked transfer (spec
// §4.E): one call per CHUNK-element span in address order, then one
// remainder call (omitted if zero). The CHUNK spans are not merged into
// a single call of the chunk aggregate type, so a transfer of nelem
// elements takes nelem/CHUNK calls plus the remainder call.
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
