// Package dartrt is the runtime's public facade: the surface a
// higher-level container library would import, wrapping the internal
// team/rma/coll/locality packages behind a single Runtime handle (spec
// §9 design note: "a single module-private registry with explicit
// lifecycle init(transport)/finalize()").
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package dartrt

import (
	"context"

	"github.com/parcio/dartrt/cmn"
	"github.com/parcio/dartrt/cmn/nlog"
	"github.com/parcio/dartrt/dtype"
	"github.com/parcio/dartrt/internal/locality"
	"github.com/parcio/dartrt/internal/locality/k8sprobe"
	"github.com/parcio/dartrt/internal/xtransport"
	"github.com/parcio/dartrt/rma"
	"github.com/parcio/dartrt/team"
)

// Runtime is one unit's handle on the PGAS runtime: its team registry
// and RMA engine, layered over a transport (spec §6 "choice of
// underlying transport ... external collaborator"; here, the reference
// in-process transport).
type Runtime struct {
	world  *xtransport.World
	teams  *team.Registry
	engine *rma.Engine
}

// InitOption customizes Init's bootstrap of the all-units team.
type InitOption func(*initConfig)

type initConfig struct {
	nodeOf func(rank int) int
}

// WithNodeOf overrides the NODE-scope placement prober the all-units
// team's locality tree is built from; see team.WithNodeOf.
func WithNodeOf(fn func(rank int) int) InitOption {
	return func(c *initConfig) { c.nodeOf = fn }
}

// WithK8sProbe builds the NODE-scope placement prober from Kubernetes
// node topology labels instead of the default prober, the reference
// transport's simulated node tags (World.NodeOf; spec §4.J domain
// stack): hostnames[i] is the
// Kubernetes node name the unit at world rank i runs on. Discovery
// failure (no reachable cluster, as is the common case outside a pod)
// is logged and silently falls back to the default prober rather than
// failing Init, since k8s placement is an optional enrichment.
func WithK8sProbe(provider *k8sprobe.Provider, hostnames []string) InitOption {
	return func(c *initConfig) {
		topo, err := provider.NodeTopology(context.Background())
		if err != nil {
			nlog.Warnf("dartrt: k8s node topology unavailable, using default placement prober: %v", err)
			return
		}
		groups := k8sprobe.GroupIndex(hostnames, topo)
		c.nodeOf = func(rank int) int {
			if rank < 0 || rank >= len(groups) {
				return rank
			}
			return groups[rank]
		}
	}
}

// Init boots the runtime for one unit (spec §9 "init(transport)"):
// registers the closed set of element types against the transport, then
// bootstraps the all-units team. selfWorldRank identifies this unit
// within world; maxTeamDomains bounds how many teams this unit's
// registry may hold concurrently (spec §6 max_team_domains).
func Init(world *xtransport.World, selfWorldRank, maxTeamDomains int, opts ...InitOption) (*Runtime, error) {
	if err := dtype.Init(world); err != nil {
		return nil, err
	}
	cfg := &initConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	var teamOpts []team.RegistryOption
	if cfg.nodeOf != nil {
		teamOpts = append(teamOpts, team.WithNodeOf(cfg.nodeOf))
	}
	teams := team.NewRegistry(world, selfWorldRank, maxTeamDomains, teamOpts...)
	return &Runtime{world: world, teams: teams, engine: rma.NewEngine(teams)}, nil
}

// Finalize tears down every team but All, then the type registry (spec
// §9 "Teams are resources released by finalize").
func (rt *Runtime) Finalize() error {
	rt.teams.Finalize()
	return dtype.Finalize()
}

// Teams returns the runtime's team registry, for callers that need the
// lower-level team/*team.Team record directly (e.g. to reach Locality).
func (rt *Runtime) Teams() *team.Registry { return rt.teams }

// CreateTeam builds a new team from a subset of parent's members (spec
// §4.C); every member of members must call this collectively.
func (rt *Runtime) CreateTeam(parent uint16, members []int) (uint16, error) {
	return rt.teams.CreateFrom(parent, members)
}

// DestroyTeam releases teamID's local record; every member is expected
// to call this collectively.
func (rt *Runtime) DestroyTeam(teamID uint16) error {
	return rt.teams.Destroy(teamID)
}

func (rt *Runtime) TeamSize(teamID uint16) (int, error) { return rt.teams.Size(teamID) }
func (rt *Runtime) MyRank(teamID uint16) (int, error)   { return rt.teams.MyRank(teamID) }

// Locality returns teamID's placement tree (spec §4.J).
func (rt *Runtime) Locality(teamID uint16) (*locality.Tree, error) {
	tm, err := rt.teams.Lookup(teamID)
	if err != nil {
		return nil, err
	}
	if tm.Locality == nil {
		return nil, cmn.NewError("dartrt.Locality", cmn.ErrOther, "locality tree unavailable")
	}
	return tm.Locality, nil
}

// AllocSegment collectively allocates count elements of elemSize bytes
// on teamID (spec §4.B); every member must call this in lockstep.
func (rt *Runtime) AllocSegment(teamID uint16, count, elemSize int, useShm bool) (int16, error) {
	tm, err := rt.teams.Lookup(teamID)
	if err != nil {
		return 0, err
	}
	return rma.AllocSegment(tm, count, elemSize, useShm)
}

// FreeSegment releases a previously allocated segment (spec §4.B).
func (rt *Runtime) FreeSegment(teamID uint16, segID int16) error {
	tm, err := rt.teams.Lookup(teamID)
	if err != nil {
		return err
	}
	return rma.FreeSegment(tm, segID)
}
