// Package team implements the segment table, team registry, and global
// pointer of spec §4.B/§4.C/§4.D: per-team bookkeeping layered directly
// on top of the reference transport's World/Window/Comm.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package team

import "encoding/binary"

// Undefined is the reserved "no team" team id (spec §4.H: "teamid ==
// UNDEFINED -> ERR_INVAL").
const Undefined uint16 = 0

// All is the reserved id of the all-units team, the root of the team
// forest (spec §3).
const All uint16 = 1

// GPtr is the 128-bit global pointer value type of spec §3/§4.D: a pure
// value carrying (unit, team, segment, offset). Segment id 0 names the
// per-unit local allocation pool.
type GPtr struct {
	UnitID    uint16
	TeamID    uint16
	SegmentID int16
	Flags     uint16
	Offset    uint64
}

// Null returns the all-zero global pointer.
func Null() GPtr { return GPtr{} }

// IsNull reports whether g has every field zero (spec §3).
func (g GPtr) IsNull() bool { return g == GPtr{} }

// IncrAddr advances g by nbytes, the only arithmetic the spec permits
// on a global pointer ("adds a byte count to offset only").
func (g GPtr) IncrAddr(nbytes int64) GPtr {
	g.Offset += uint64(nbytes)
	return g
}

// SetUnit returns a copy of g retargeted at a different unit, keeping
// every other field (team, segment, offset) unchanged.
func (g GPtr) SetUnit(unit uint16) GPtr {
	g.UnitID = unit
	return g
}

// wireSize is the byte length of the spec §6 wire format: 2+2+2+2+8.
const wireSize = 16

// MarshalBinary encodes g per spec §6: little-endian, fields in order
// unit_id(u16), team_id(u16), segment_id(i16), flags(u16), offset(u64).
func (g GPtr) MarshalBinary() ([]byte, error) {
	b := make([]byte, wireSize)
	binary.LittleEndian.PutUint16(b[0:2], g.UnitID)
	binary.LittleEndian.PutUint16(b[2:4], g.TeamID)
	binary.LittleEndian.PutUint16(b[4:6], uint16(g.SegmentID))
	binary.LittleEndian.PutUint16(b[6:8], g.Flags)
	binary.LittleEndian.PutUint64(b[8:16], g.Offset)
	return b, nil
}

// UnmarshalBinary decodes the wire format produced by MarshalBinary. A
// persisted global pointer is only meaningful within the runtime
// instance that produced it (spec §6): team and segment ids are not
// stable across runs, so this never validates against a live registry.
func (g *GPtr) UnmarshalBinary(b []byte) error {
	if len(b) != wireSize {
		return errShortBuffer
	}
	g.UnitID = binary.LittleEndian.Uint16(b[0:2])
	g.TeamID = binary.LittleEndian.Uint16(b[2:4])
	g.SegmentID = int16(binary.LittleEndian.Uint16(b[4:6]))
	g.Flags = binary.LittleEndian.Uint16(b[6:8])
	g.Offset = binary.LittleEndian.Uint64(b[8:16])
	return nil
}

type wireError string

func (e wireError) Error() string { return string(e) }

const errShortBuffer = wireError("team: global pointer wire buffer must be 16 bytes")
