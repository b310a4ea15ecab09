package rma

import "github.com/parcio/dartrt/team"

// pokeTag is an otherwise-unused tag/source pair passed to Iprobe
// purely to poke transport progress after a flush (spec §4.G): the
// reference transport has nothing to drain, but a networked transport
// would use exactly this call to pump its completion queue.
const pokeTag = -1

// Flush forces remote completion of every outstanding write to gptr's
// unit on the window gptr.segment_id implies, then a window sync, then
// pokes transport progress via Iprobe (spec §4.G).
func (e *Engine) Flush(g team.GPtr) error {
	tm, err := e.teams.Lookup(g.TeamID)
	if err != nil {
		return err
	}
	if err := tm.Comm.CheckRank(int(g.UnitID)); err != nil {
		return err
	}
	if err := tm.Window.Flush(int(g.UnitID)); err != nil {
		return err
	}
	if err := tm.Window.Sync(); err != nil {
		return err
	}
	e.teams.World().Iprobe(tm.Members[tm.MyRank], pokeTag, pokeTag)
	return nil
}

// FlushAll is Flush for every peer on teamID's window.
func (e *Engine) FlushAll(teamID uint16) error {
	tm, err := e.teams.Lookup(teamID)
	if err != nil {
		return err
	}
	if err := tm.Window.FlushAll(); err != nil {
		return err
	}
	if err := tm.Window.Sync(); err != nil {
		return err
	}
	e.teams.World().Iprobe(tm.Members[tm.MyRank], pokeTag, pokeTag)
	return nil
}

// FlushLocal guarantees only that writes to gptr's unit are locally
// complete (the source buffer may be reused); remote visibility is not
// promised (spec §4.G).
func (e *Engine) FlushLocal(g team.GPtr) error {
	tm, err := e.teams.Lookup(g.TeamID)
	if err != nil {
		return err
	}
	if err := tm.Comm.CheckRank(int(g.UnitID)); err != nil {
		return err
	}
	return tm.Window.FlushLocal(int(g.UnitID))
}

// FlushLocalAll is FlushLocal for every peer on teamID's window.
func (e *Engine) FlushLocalAll(teamID uint16) error {
	tm, err := e.teams.Lookup(teamID)
	if err != nil {
		return err
	}
	return tm.Window.FlushLocalAll()
}
