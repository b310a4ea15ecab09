// Package cmn - debug-build-only assertions, modeled on aistore's
// cmn/debug package (debug.Assert / debug.AssertNoErr / debug.AssertMutexLocked).
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"fmt"
	"sync"
)

// Debug toggles assertion checking. Production builds of the teacher
// compile these out entirely via a build tag; dartrt keeps a runtime
// switch instead since the spec carries no build-tag convention of its
// own, defaulting on (matching the teacher's debug-build default).
var Debug = true

func Assert(cond bool, args ...interface{}) {
	if Debug && !cond {
		panic(fmt.Sprintf("assertion failed: %v", args))
	}
}

func AssertNoErr(err error) {
	if Debug && err != nil {
		panic("assertion failed: " + err.Error())
	}
}

// AssertMutexLocked documents a precondition (as in ais/gconfig.go's
// updateGCO); TryLock returning true means the mutex was NOT held.
func AssertMutexLocked(m *sync.Mutex) {
	if !Debug {
		return
	}
	if m.TryLock() {
		m.Unlock()
		panic("assertion failed: mutex not locked")
	}
}
