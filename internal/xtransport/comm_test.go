package xtransport

import (
	"encoding/binary"
	"sync"
	"testing"
)

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func TestBarrierReleasesAllMembers(t *testing.T) {
	w := NewWorld(4, nil)
	c := NewComm(w, []int{0, 1, 2, 3})
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Barrier(r, 0); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
}

func TestBcastFromRoot(t *testing.T) {
	w := NewWorld(3, nil)
	c := NewComm(w, []int{0, 1, 2})
	got := make([][]byte, 3)
	var wg sync.WaitGroup
	for r := 0; r < 3; r++ {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			var in []byte
			if r == 1 {
				in = []byte("payload")
			}
			got[r] = c.Bcast(r, 1, in, 0)
		}()
	}
	wg.Wait()
	for r, b := range got {
		if string(b) != "payload" {
			t.Errorf("rank %d got %q, want %q", r, b, "payload")
		}
	}
}

func TestGatherToRoot(t *testing.T) {
	w := NewWorld(4, nil)
	c := NewComm(w, []int{0, 1, 2, 3})
	results := make([][][]byte, 4)
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[r] = c.Gather(r, 2, u32(uint32(r)), 0)
		}()
	}
	wg.Wait()
	for r := 0; r < 4; r++ {
		if r == 2 {
			if len(results[r]) != 4 {
				t.Fatalf("root gather len = %d, want 4", len(results[r]))
			}
			for i, b := range results[r] {
				if binary.LittleEndian.Uint32(b) != uint32(i) {
					t.Errorf("gathered[%d] = %v, want %d", i, b, i)
				}
			}
		} else if results[r] != nil {
			t.Errorf("non-root rank %d got non-nil result", r)
		}
	}
}

func TestScatterFromRoot(t *testing.T) {
	w := NewWorld(3, nil)
	c := NewComm(w, []int{0, 1, 2})
	parts := [][]byte{u32(10), u32(20), u32(30)}
	got := make([][]byte, 3)
	var wg sync.WaitGroup
	for r := 0; r < 3; r++ {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			var in [][]byte
			if r == 0 {
				in = parts
			}
			got[r] = c.Scatter(r, 0, in, 0)
		}()
	}
	wg.Wait()
	for r := 0; r < 3; r++ {
		if binary.LittleEndian.Uint32(got[r]) != uint32((r+1)*10) {
			t.Errorf("scatter[%d] = %v", r, got[r])
		}
	}
}

func TestAllgatherSymmetric(t *testing.T) {
	w := NewWorld(3, nil)
	c := NewComm(w, []int{0, 1, 2})
	got := make([][][]byte, 3)
	var wg sync.WaitGroup
	for r := 0; r < 3; r++ {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[r] = c.Allgather(r, u32(uint32(r*100)), 0)
		}()
	}
	wg.Wait()
	for r := 0; r < 3; r++ {
		if len(got[r]) != 3 {
			t.Fatalf("allgather[%d] len = %d", r, len(got[r]))
		}
		for i, b := range got[r] {
			if binary.LittleEndian.Uint32(b) != uint32(i*100) {
				t.Errorf("allgather[%d][%d] = %v", r, i, b)
			}
		}
	}
}

func sumFold(acc, next []byte) {
	binary.LittleEndian.PutUint32(acc, binary.LittleEndian.Uint32(acc)+binary.LittleEndian.Uint32(next))
}

func TestReduceAndAllreduceSum(t *testing.T) {
	w := NewWorld(4, nil)
	c := NewComm(w, []int{0, 1, 2, 3})
	reduced := make([][]byte, 4)
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			reduced[r] = c.Reduce(r, 3, u32(uint32(r+1)), sumFold, 0)
		}()
	}
	wg.Wait()
	if binary.LittleEndian.Uint32(reduced[3]) != 10 {
		t.Fatalf("reduce sum = %v, want 10", reduced[3])
	}
	for r := 0; r < 3; r++ {
		if reduced[r] != nil {
			t.Errorf("non-root reduce result must be nil, got %v", reduced[r])
		}
	}

	allreduced := make([][]byte, 4)
	var wg2 sync.WaitGroup
	for r := 0; r < 4; r++ {
		r := r
		wg2.Add(1)
		go func() {
			defer wg2.Done()
			allreduced[r] = c.Allreduce(r, u32(uint32(r+1)), sumFold, 1)
		}()
	}
	wg2.Wait()
	for r := 0; r < 4; r++ {
		if binary.LittleEndian.Uint32(allreduced[r]) != 10 {
			t.Errorf("allreduce[%d] = %v, want 10", r, allreduced[r])
		}
	}
}

func TestSequentialCallsDoNotInterfere(t *testing.T) {
	w := NewWorld(2, nil)
	c := NewComm(w, []int{0, 1})
	for round := 0; round < 5; round++ {
		round := round
		idx := c.NextCallIndex()
		var wg sync.WaitGroup
		got := make([][]byte, 2)
		for r := 0; r < 2; r++ {
			r := r
			wg.Add(1)
			go func() {
				defer wg.Done()
				got[r] = c.Bcast(r, 0, u32(uint32(round)), idx)
			}()
		}
		wg.Wait()
		for r := 0; r < 2; r++ {
			if binary.LittleEndian.Uint32(got[r]) != uint32(round) {
				t.Fatalf("round %d rank %d got %v", round, r, got[r])
			}
		}
	}
}
