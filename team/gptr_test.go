package team

import "testing"

func TestGPtrNull(t *testing.T) {
	if !Null().IsNull() {
		t.Fatal("Null() must be IsNull")
	}
	g := GPtr{UnitID: 1}
	if g.IsNull() {
		t.Fatal("non-zero gptr must not be IsNull")
	}
}

func TestGPtrIncrAddrSetUnit(t *testing.T) {
	g := GPtr{UnitID: 2, TeamID: 3, SegmentID: 1, Offset: 100}
	g2 := g.IncrAddr(40)
	if g2.Offset != 140 {
		t.Fatalf("IncrAddr: got offset %d, want 140", g2.Offset)
	}
	if g2.UnitID != g.UnitID || g2.TeamID != g.TeamID || g2.SegmentID != g.SegmentID {
		t.Fatal("IncrAddr must not touch unit/team/segment")
	}
	g3 := g.SetUnit(9)
	if g3.UnitID != 9 || g3.Offset != g.Offset {
		t.Fatal("SetUnit must only change unit id")
	}
}

func TestGPtrWireRoundTrip(t *testing.T) {
	g := GPtr{UnitID: 0xABCD, TeamID: 7, SegmentID: -1, Flags: 0x55, Offset: 0x0102030405060708}
	b, err := g.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 16 {
		t.Fatalf("wire size = %d, want 16", len(b))
	}
	var g2 GPtr
	if err := g2.UnmarshalBinary(b); err != nil {
		t.Fatal(err)
	}
	if g2 != g {
		t.Fatalf("round trip mismatch: got %+v, want %+v", g2, g)
	}
}

func TestGPtrUnmarshalShortBuffer(t *testing.T) {
	var g GPtr
	if err := g.UnmarshalBinary([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for short buffer")
	}
}
