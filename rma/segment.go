package rma

import (
	"encoding/binary"

	"github.com/parcio/dartrt/cmn"
	"github.com/parcio/dartrt/team"
)

// AllocSegment performs the collective allocation spec §3 describes:
// every member contributes its own displacement (via the team's
// window), the displacements are exchanged with an allgather so every
// member's segment table ends up identical (invariant I2), and — when
// useShm is set — co-located members additionally get a shared-memory
// displacement for the fast path of spec §4.E.
func AllocSegment(tm *team.Team, count, elemSize int, useShm bool) (int16, error) {
	if count < 0 || elemSize <= 0 {
		return 0, cmn.NewError("rma.AllocSegment", cmn.ErrInval, "invalid count/elemSize")
	}
	nbytes := count * elemSize
	disp := tm.Window.Alloc(tm.MyRank, nbytes)

	idx := tm.Comm.NextCallIndex()
	dispBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(dispBytes, uint64(disp))
	gathered := tm.Comm.Allgather(tm.MyRank, dispBytes, idx)

	disps := make([]int64, len(gathered))
	for i, b := range gathered {
		disps[i] = int64(binary.LittleEndian.Uint64(b))
	}

	shmemBase := make([]uintptr, tm.Size())
	hasShmem := make([]bool, tm.Size())
	if useShm {
		shmWin, err := tm.ShmWindow()
		if err != nil {
			return 0, cmn.WrapError("rma.AllocSegment", cmn.ErrOther, err)
		}
		if tm.SharedMem[tm.MyRank] >= 0 {
			shmDisp, err := shmWin.Alloc(tm.MyRank, nbytes)
			if err != nil {
				return 0, cmn.WrapError("rma.AllocSegment", cmn.ErrOther, err)
			}
			shmDispBytes := make([]byte, 8)
			binary.LittleEndian.PutUint64(shmDispBytes, uint64(shmDisp))
			shmGathered := tm.Comm.Allgather(tm.MyRank, shmDispBytes, tm.Comm.NextCallIndex())
			for i, b := range shmGathered {
				if tm.SharedMem[i] >= 0 {
					hasShmem[i] = true
					shmemBase[i] = uintptr(binary.LittleEndian.Uint64(b))
				}
			}
		} else {
			// Still must take part in the matching allgather (spec §5
			// ordering guarantee: every member invokes collectives in
			// the same order) even though this rank contributes nothing.
			tm.Comm.Allgather(tm.MyRank, make([]byte, 8), tm.Comm.NextCallIndex())
		}
	}

	segID := tm.AllocSegmentID(tm.Comm.NextCallIndex())
	if err := tm.Segments.Insert(segID, disps, shmemBase, hasShmem, count, elemSize); err != nil {
		return 0, err
	}
	return segID, nil
}

// FreeSegment performs the collective deallocation of spec §3. The
// caller must ensure no live global pointer still names segID.
func FreeSegment(tm *team.Team, segID int16) error {
	return tm.Segments.Remove(segID)
}
