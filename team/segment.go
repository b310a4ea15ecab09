package team

import (
	"encoding/binary"
	"sync"

	xxhash "github.com/OneOfOne/xxhash"

	"github.com/parcio/dartrt/cmn"
)

// segTableBuckets is the bucket count of the segment table's hash
// index. Segment ids fit in 16 bits (spec §4.B), so a few dozen
// buckets keeps chains short without a resizing scheme.
const segTableBuckets = 61

type segment struct {
	disp      []int64   // per-member displacement, team-rank ordered
	shmemBase []uintptr // per-member shared-memory base, 0 if none
	hasShmem  []bool
	count     int
	elemSize  int
}

type segBucketEntry struct {
	segid int16
	seg   *segment
	next  *segBucketEntry
}

// SegmentTable is one team's registry of collective allocations (spec
// §4.B). Lookup keys off an xxhash of the segment id into a fixed
// bucket array, giving the O(1) lookup the spec requires without
// reaching for the language's native map for what is, in the original,
// a fixed-capacity array indexed by a 16-bit id.
type SegmentTable struct {
	mu      sync.RWMutex
	buckets [segTableBuckets]*segBucketEntry
}

func NewSegmentTable() *SegmentTable { return &SegmentTable{} }

func bucketFor(segid int16) int {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(segid))
	return int(xxhash.Checksum64(b[:]) % segTableBuckets)
}

// Insert registers segid with its per-member displacements and, for
// co-located members, shared-memory base pointers (spec §4.B). Every
// member of the owning team calls Insert with identical arguments
// during a collective allocation (invariant I2).
func (t *SegmentTable) Insert(segid int16, disp []int64, shmemBase []uintptr, hasShmem []bool, count, elemSize int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	b := bucketFor(segid)
	for e := t.buckets[b]; e != nil; e = e.next {
		if e.segid == segid {
			return cmn.NewError("SegmentTable.Insert", cmn.ErrInval, "segment id already live")
		}
	}
	t.buckets[b] = &segBucketEntry{
		segid: segid,
		seg: &segment{
			disp:      disp,
			shmemBase: shmemBase,
			hasShmem:  hasShmem,
			count:     count,
			elemSize:  elemSize,
		},
		next: t.buckets[b],
	}
	return nil
}

func (t *SegmentTable) find(segid int16) *segment {
	for e := t.buckets[bucketFor(segid)]; e != nil; e = e.next {
		if e.segid == segid {
			return e.seg
		}
	}
	return nil
}

// LookupDisp returns the displacement of rank's share of segid.
func (t *SegmentTable) LookupDisp(segid int16, rank int) (int64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	seg := t.find(segid)
	if seg == nil {
		return 0, cmn.NewError("SegmentTable.LookupDisp", cmn.ErrInval, "unknown segment id")
	}
	if rank < 0 || rank >= len(seg.disp) {
		return 0, cmn.NewError("SegmentTable.LookupDisp", cmn.ErrInval, "rank out of range")
	}
	return seg.disp[rank], nil
}

// LookupShmemBase returns rank's shared-memory base pointer for segid,
// if one was recorded (co-located members only).
func (t *SegmentTable) LookupShmemBase(segid int16, rank int) (uintptr, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	seg := t.find(segid)
	if seg == nil {
		return 0, false, cmn.NewError("SegmentTable.LookupShmemBase", cmn.ErrInval, "unknown segment id")
	}
	if rank < 0 || rank >= len(seg.shmemBase) {
		return 0, false, cmn.NewError("SegmentTable.LookupShmemBase", cmn.ErrInval, "rank out of range")
	}
	return seg.shmemBase[rank], seg.hasShmem[rank], nil
}

// ElemInfo returns segid's element count and element size.
func (t *SegmentTable) ElemInfo(segid int16) (count, elemSize int, err error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	seg := t.find(segid)
	if seg == nil {
		return 0, 0, cmn.NewError("SegmentTable.ElemInfo", cmn.ErrInval, "unknown segment id")
	}
	return seg.count, seg.elemSize, nil
}

// Remove drops segid. The caller (the collective deallocation path)
// must ensure no live global pointer still names segid (spec §3).
func (t *SegmentTable) Remove(segid int16) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	b := bucketFor(segid)
	var prev *segBucketEntry
	for e := t.buckets[b]; e != nil; e = e.next {
		if e.segid == segid {
			if prev == nil {
				t.buckets[b] = e.next
			} else {
				prev.next = e.next
			}
			return nil
		}
		prev = e
	}
	return cmn.NewError("SegmentTable.Remove", cmn.ErrInval, "unknown segment id")
}
