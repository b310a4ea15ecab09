package team

import (
	"encoding/binary"
	"sync"

	"github.com/parcio/dartrt/cmn"
	"github.com/parcio/dartrt/cmn/nlog"
	"github.com/parcio/dartrt/internal/locality"
	"github.com/parcio/dartrt/internal/xtransport"
)

// Team is one unit's local record of a team (spec §3): the ordered
// member list, this unit's rank within it, its window and
// sub-communicator, its segment table, and its co-location map.
type Team struct {
	ID       uint16
	Members  []int // world ranks, team-rank ordered
	MyRank   int
	Window   *xtransport.Window
	Comm     *xtransport.Comm
	Segments *SegmentTable
	// SharedMem[r] is the local shared-memory rank of team-rank r, or
	// -1 if r is not co-located with this unit (spec §3 shared_mem_map).
	SharedMem []int
	ParentID  uint16
	HasParent bool
	// Locality is this team's placement tree (spec §3 "Locality
	// domain"), built at team creation from the reference transport's
	// simulated hardware-placement info. Every member builds its own
	// tree independently from identical collective input, the same
	// per-member-copy discipline the segment table uses (I2).
	Locality *locality.Tree

	mu        sync.Mutex
	nextSegID int16
	shared    *sharedTeamState
}

// ShmWindow lazily mmaps this team's shared-memory arenas (spec §4.E
// shared-mem fast path), so teams that never exercise the fast path
// (shared_windows=off, or no co-located members) never pay for it. The
// mmap'd arenas live on the team's shared state, not the Team struct,
// so every member's call returns the same window.
func (t *Team) ShmWindow() (*xtransport.ShmWindow, error) {
	return t.shared.shmem(t.Members)
}

// Size is the member count of the team (spec §4.C size(team_id)).
func (t *Team) Size() int { return len(t.Members) }

// AllocSegmentID mints the next segment id for a collective allocation
// on this team. Rank 0 takes the next value of its local counter (ids
// of freed segments are not handed out again) and broadcasts it over the team's Comm so
// every member's segment table inserts under the same id — the same
// rank-0-mints/broadcasts pattern team creation uses for team ids.
func (t *Team) AllocSegmentID(callIdx int64) int16 {
	var payload []byte
	if t.MyRank == 0 {
		t.mu.Lock()
		t.nextSegID++
		id := t.nextSegID
		t.mu.Unlock()
		payload = make([]byte, 2)
		binary.LittleEndian.PutUint16(payload, uint16(id))
	}
	b := t.Comm.Bcast(t.MyRank, 0, payload, callIdx)
	return int16(binary.LittleEndian.Uint16(b))
}

// Registry is one unit's process-local team registry (spec §4.C): the
// module-private registry design note 9 calls for, with explicit
// init(transport)/finalize() lifecycle. It is NOT shared across units —
// each simulated unit in the reference transport owns its own Registry
// over the same shared World, exactly as each rank in a real deployment
// owns its own process-local copy of this bookkeeping (invariant I2
// requires the *contents* to match across members, not the storage).
type Registry struct {
	world       *xtransport.World
	selfWorldRk int
	nodeOf      func(rank int) int

	mu     sync.RWMutex
	teams  map[uint16]*Team
	maxLen int
}

// RegistryOption customizes a Registry at construction time, before the
// all-units team (and its locality tree) is built.
type RegistryOption func(*Registry)

// WithNodeOf overrides the NODE-scope placement prober locality trees
// are built from (default: the reference transport's own
// World.NodeOf), letting an external discovery provider (e.g.
// internal/locality/k8sprobe) supply real cluster topology instead of
// the transport's simulated placement tags.
func WithNodeOf(fn func(rank int) int) RegistryOption {
	return func(r *Registry) { r.nodeOf = fn }
}

// NewRegistry creates the registry for the unit at selfWorldRank and
// immediately bootstraps the all-units team (team id All, spec §3
// "Teams form a forest rooted at the all-units team").
func NewRegistry(world *xtransport.World, selfWorldRank int, maxTeams int, opts ...RegistryOption) *Registry {
	r := &Registry{
		world:       world,
		selfWorldRk: selfWorldRank,
		nodeOf:      world.NodeOf,
		teams:       make(map[uint16]*Team, maxTeams),
		maxLen:      maxTeams,
	}
	for _, opt := range opts {
		opt(r)
	}
	members := make([]int, world.Size())
	for i := range members {
		members[i] = i
	}
	r.teams[All] = r.build(All, Undefined, false, members)
	return r
}

// build constructs this unit's local Team record. When id is already
// known (the common case), its window and sub-communicator are the
// shared instance every other member's build() call for the same
// (world, id) converges on; when id is not yet known (the CreateFrom
// mint step, id == 0), they are shared by member-set key instead, and
// the caller is responsible for promoting that entry once the real id
// is minted.
func (r *Registry) build(id, parent uint16, hasParent bool, members []int) *Team {
	myRank := -1
	for i, m := range members {
		if m == r.selfWorldRk {
			myRank = i
			break
		}
	}
	var state *sharedTeamState
	if id != Undefined {
		state = shared.forID(r.world, id, members)
	} else {
		state = shared.forKey(r.world, members)
	}
	shmem := make([]int, len(members))
	local := 0
	for i, m := range members {
		if r.world.CoLocated(r.selfWorldRk, m) {
			shmem[i] = local
			local++
		} else {
			shmem[i] = -1
		}
	}
	tree, err := locality.NewTree(id, members, r.nodeOf, r.world.Hostname())
	if err != nil {
		nlog.Errorf("team: failed to build locality tree for team %d: %v", id, err)
	}
	return &Team{
		ID: id, Members: members, MyRank: myRank, Window: state.window, Comm: state.comm,
		Segments: NewSegmentTable(), SharedMem: shmem,
		ParentID: parent, HasParent: hasParent,
		Locality: tree,
		shared:   state,
	}
}

// CreateFrom builds a new team from member_set, a subset of parent's
// members (spec §4.C). Every member of member_set must call this with
// identical arguments, in identical program order relative to other
// collectives on parent (spec §5 ordering guarantee): rank 0 of the new
// team mints the id from the shared World counter and broadcasts it
// over the freshly built Comm before any member registers the team.
func (r *Registry) CreateFrom(parentID uint16, members []int) (uint16, error) {
	if _, err := r.Lookup(parentID); err != nil {
		return 0, cmn.WrapError("team.CreateFrom", cmn.ErrInval, err)
	}
	t := r.build(0, parentID, true, members)
	if t.MyRank < 0 {
		return 0, cmn.NewError("team.CreateFrom", cmn.ErrInval, "caller is not a member of member_set")
	}

	var payload []byte
	if t.MyRank == 0 {
		id := r.world.NextTeamID()
		payload = make([]byte, 2)
		binary.LittleEndian.PutUint16(payload, id)
	}
	idBytes := t.Comm.Bcast(t.MyRank, 0, payload, t.Comm.NextCallIndex())
	id := binary.LittleEndian.Uint16(idBytes)
	t.ID = id
	shared.promote(r.world, members, id)

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.teams) >= r.maxLen {
		return 0, cmn.NewError("team.CreateFrom", cmn.ErrInval, "max_team_domains exceeded")
	}
	r.teams[id] = t
	nlog.Debugf("team: created team %d (parent=%d size=%d)", id, parentID, len(members))
	return id, nil
}

// Destroy releases teamID's local record (spec design note 9: "Teams
// are resources released by finalize", and per-call by explicit
// destroy). Every member is expected to call Destroy collectively;
// the bookkeeping removal itself is purely local.
func (r *Registry) Destroy(teamID uint16) error {
	if teamID == All {
		return cmn.NewError("team.Destroy", cmn.ErrInval, "cannot destroy the all-units team")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[teamID]
	if !ok {
		return cmn.NewError("team.Destroy", cmn.ErrInval, "unknown team id")
	}
	if t.Locality != nil {
		t.Locality.Close()
	}
	delete(r.teams, teamID)
	return nil
}

// Lookup resolves teamID to its local record (spec §4.E "fail
// ERR_INVAL if unknown").
func (r *Registry) Lookup(teamID uint16) (*Team, error) {
	if teamID == Undefined {
		return nil, cmn.NewError("team.Lookup", cmn.ErrInval, "team id is UNDEFINED")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.teams[teamID]
	if !ok {
		return nil, cmn.NewError("team.Lookup", cmn.ErrInval, "unknown team id")
	}
	return t, nil
}

// World returns the shared transport this registry's teams are built
// over, for layers above team (coll's point-to-point ops) that need to
// address units by world rank rather than team rank.
func (r *Registry) World() *xtransport.World { return r.world }

func (r *Registry) Size(teamID uint16) (int, error) {
	t, err := r.Lookup(teamID)
	if err != nil {
		return 0, err
	}
	return t.Size(), nil
}

func (r *Registry) MyRank(teamID uint16) (int, error) {
	t, err := r.Lookup(teamID)
	if err != nil {
		return 0, err
	}
	return t.MyRank, nil
}

// Finalize tears down every team but All (design note 9's explicit
// init/finalize lifecycle).
func (r *Registry) Finalize() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.teams {
		if id != All {
			if t.Locality != nil {
				t.Locality.Close()
			}
			delete(r.teams, id)
		}
	}
}
