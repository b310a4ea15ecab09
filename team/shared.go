package team

import (
	"encoding/binary"
	"sync"

	"github.com/parcio/dartrt/internal/xtransport"
)

// sharedTeamState is the part of a team's local record that must be
// the SAME object across every member's Team — the window (remote-
// accessible memory) and the sub-communicator (a rendezvous primitive)
// are not bookkeeping a unit can independently replicate, the way a
// real deployment's per-process memory or a real transport's
// communicator context would be a single addressable thing every
// member's calls resolve to. The reference transport is one process
// simulating many units as goroutines, so "the same thing" is realized
// here as one shared Go object rather than as separate-process memory
// reached over the wire.
type sharedTeamState struct {
	window *xtransport.Window
	comm   *xtransport.Comm

	mu        sync.Mutex
	shmWindow *xtransport.ShmWindow
}

func newSharedTeamState(world *xtransport.World, members []int) *sharedTeamState {
	return &sharedTeamState{
		window: xtransport.NewWindow(world, members),
		comm:   xtransport.NewComm(world, members),
	}
}

func (s *sharedTeamState) shmem(members []int) (*xtransport.ShmWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shmWindow == nil {
		w, err := xtransport.NewShmWindow(members)
		if err != nil {
			return nil, err
		}
		s.shmWindow = w
	}
	return s.shmWindow, nil
}

// sharedRegistry keys sharedTeamState by the world it belongs to, plus
// either a minted team id or, before a team id exists yet (the
// CreateFrom mint step), a canonical encoding of its member set.
type sharedRegistry struct {
	mu    sync.Mutex
	byID  map[*xtransport.World]map[uint16]*sharedTeamState
	byKey map[*xtransport.World]map[string]*sharedTeamState
}

var shared = sharedRegistry{
	byID:  make(map[*xtransport.World]map[uint16]*sharedTeamState),
	byKey: make(map[*xtransport.World]map[string]*sharedTeamState),
}

func memberSetKey(members []int) string {
	b := make([]byte, 0, len(members)*4)
	for _, m := range members {
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uint32(m))
		b = append(b, tmp[:]...)
	}
	return string(b)
}

// forID returns (creating if absent) the shared state for an already-
// known team id — the common case, used by every team whose id is
// established before any member builds its local Team record.
func (sr *sharedRegistry) forID(world *xtransport.World, id uint16, members []int) *sharedTeamState {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	m, ok := sr.byID[world]
	if !ok {
		m = make(map[uint16]*sharedTeamState)
		sr.byID[world] = m
	}
	s, ok := m[id]
	if !ok {
		s = newSharedTeamState(world, members)
		m[id] = s
	}
	return s
}

// forKey is forID's counterpart for the id-not-yet-known CreateFrom
// mint step: every member of the same logical CreateFrom call passes
// an identical members slice (spec §5 ordering guarantee), so keying
// on its contents lets them converge on the same shared state before
// any of them knows the freshly minted id.
func (sr *sharedRegistry) forKey(world *xtransport.World, members []int) *sharedTeamState {
	key := memberSetKey(members)
	sr.mu.Lock()
	defer sr.mu.Unlock()
	m, ok := sr.byKey[world]
	if !ok {
		m = make(map[string]*sharedTeamState)
		sr.byKey[world] = m
	}
	s, ok := m[key]
	if !ok {
		s = newSharedTeamState(world, members)
		m[key] = s
	}
	return s
}

// promote re-files a mint-step shared state under its now-known team
// id, and forgets the member-set key so a later, unrelated CreateFrom
// call over the same member set does not reuse stale Comm/Window state.
func (sr *sharedRegistry) promote(world *xtransport.World, members []int, id uint16) {
	key := memberSetKey(members)
	sr.mu.Lock()
	defer sr.mu.Unlock()
	byKey, ok := sr.byKey[world]
	if !ok {
		return
	}
	s, ok := byKey[key]
	if !ok {
		return
	}
	delete(byKey, key)
	m, ok := sr.byID[world]
	if !ok {
		m = make(map[uint16]*sharedTeamState)
		sr.byID[world] = m
	}
	m[id] = s
}
