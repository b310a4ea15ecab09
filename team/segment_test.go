package team

import "testing"

func TestSegmentTableInsertLookup(t *testing.T) {
	st := NewSegmentTable()
	disp := []int64{0, 100, 200}
	shmem := []uintptr{0, 0x1000, 0}
	has := []bool{false, true, false}
	if err := st.Insert(1, disp, shmem, has, 3, 4); err != nil {
		t.Fatal(err)
	}
	d, err := st.LookupDisp(1, 1)
	if err != nil || d != 100 {
		t.Fatalf("LookupDisp(1,1) = %d, %v; want 100, nil", d, err)
	}
	base, ok, err := st.LookupShmemBase(1, 1)
	if err != nil || !ok || base != 0x1000 {
		t.Fatalf("LookupShmemBase(1,1) = %v, %v, %v", base, ok, err)
	}
	_, ok, err = st.LookupShmemBase(1, 0)
	if err != nil || ok {
		t.Fatalf("rank 0 must not report shmem: ok=%v err=%v", ok, err)
	}
}

func TestSegmentTableDuplicateInsert(t *testing.T) {
	st := NewSegmentTable()
	if err := st.Insert(5, []int64{0}, []uintptr{0}, []bool{false}, 1, 8); err != nil {
		t.Fatal(err)
	}
	if err := st.Insert(5, []int64{0}, []uintptr{0}, []bool{false}, 1, 8); err == nil {
		t.Fatal("expected error inserting a live segment id twice")
	}
}

func TestSegmentTableRemoveThenLookup(t *testing.T) {
	st := NewSegmentTable()
	if err := st.Insert(2, []int64{0}, []uintptr{0}, []bool{false}, 1, 4); err != nil {
		t.Fatal(err)
	}
	if err := st.Remove(2); err != nil {
		t.Fatal(err)
	}
	if _, err := st.LookupDisp(2, 0); err == nil {
		t.Fatal("expected ERR_INVAL after remove")
	}
	if err := st.Remove(2); err == nil {
		t.Fatal("expected error removing an already-removed segment id")
	}
}

func TestSegmentTableOutOfRangeRank(t *testing.T) {
	st := NewSegmentTable()
	if err := st.Insert(9, []int64{0, 1}, []uintptr{0, 0}, []bool{false, false}, 2, 4); err != nil {
		t.Fatal(err)
	}
	if _, err := st.LookupDisp(9, 5); err == nil {
		t.Fatal("expected ERR_INVAL for out-of-range rank")
	}
}
