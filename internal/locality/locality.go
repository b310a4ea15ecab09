// Package locality implements the locality tree of spec §4.J: a
// dotted-integer-tagged tree of placement domains, queried by
// scope_domains/domain_at and reshaped by split/group/group_subdomains.
// The tree is realized as a flat arena keyed by tag in an in-memory
// buntdb database — the same "store all nodes in a flat arena keyed by
// tag" design note the spec calls out, chosen over a pointer tree so
// domain_at is a direct keyed lookup and scope_domains is a key scan
// rather than a hand-rolled walk/allocator.
/*
 * Copyright (c) 2021-2023, NVIDIA CORPORATION. All rights reserved.
 */
package locality

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/buntdb"

	"github.com/parcio/dartrt/cmn"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Scope is a locality domain's level in the tree (spec §3 "Locality
// domain" glossary entry).
type Scope int

const (
	Global Scope = iota
	Node
	Module
	NUMA
	Core
	Group
)

func (s Scope) String() string {
	switch s {
	case Global:
		return "global"
	case Node:
		return "node"
	case Module:
		return "module"
	case NUMA:
		return "numa"
	case Core:
		return "core"
	case Group:
		return "group"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// Domain is one node of the tree (spec §3). Parent/children are
// addressed by tag rather than pointer, matching the flat-arena storage.
type Domain struct {
	Tag           string `json:"tag"`
	Scope         Scope  `json:"scope"`
	Level         uint16 `json:"level"`
	RelativeIndex uint16 `json:"relative_index"`
	TeamID        uint16 `json:"team_id"`
	UnitIDs       []int  `json:"unit_ids"`
	NumNodes      int    `json:"num_nodes"`
	Host          string `json:"host"`
	HWInfo        string `json:"hwinfo"`
	ChildTags     []string `json:"child_tags"`
}

func (d *Domain) clone() *Domain {
	cp := *d
	cp.UnitIDs = append([]int(nil), d.UnitIDs...)
	cp.ChildTags = append([]string(nil), d.ChildTags...)
	return &cp
}

// Tree is one team's locality tree, built at team creation and torn
// down with it (spec §3 Lifecycle).
type Tree struct {
	db     *buntdb.DB
	teamID uint16
	mu     sync.Mutex
}

const rootTag = "."

// NewTree builds the tree for a team from its exchanged hardware info:
// one GLOBAL root whose immediate children are NODE domains, one per
// distinct value nodeOf returns, each owning the team ranks that share
// it (spec §3 "built at team creation from exchanged hardware info").
func NewTree(teamID uint16, members []int, nodeOf func(worldRank int) int, host string) (*Tree, error) {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, cmn.WrapError("locality.NewTree", cmn.ErrOther, err)
	}
	t := &Tree{db: db, teamID: teamID}

	nodeOrder := make([]int, 0)
	groups := make(map[int][]int) // node tag -> team ranks
	for rank, worldRank := range members {
		n := nodeOf(worldRank)
		if _, ok := groups[n]; !ok {
			nodeOrder = append(nodeOrder, n)
		}
		groups[n] = append(groups[n], rank)
	}

	root := &Domain{Tag: rootTag, Scope: Global, Level: 0, RelativeIndex: 0, TeamID: teamID, Host: host, NumNodes: len(nodeOrder)}
	for i := range members {
		root.UnitIDs = append(root.UnitIDs, i)
	}
	childTags := make([]string, 0, len(nodeOrder))
	for i, n := range nodeOrder {
		tag := rootTag + strconv.Itoa(i)
		childTags = append(childTags, tag)
		node := &Domain{
			Tag: tag, Scope: Node, Level: 1, RelativeIndex: uint16(i), TeamID: teamID,
			UnitIDs: groups[n], NumNodes: 1, Host: host,
		}
		if err := t.put(node); err != nil {
			db.Close()
			return nil, err
		}
	}
	root.ChildTags = childTags
	if err := t.put(root); err != nil {
		db.Close()
		return nil, err
	}
	return t, nil
}

// Close releases the tree's backing store (spec §3 "destroyed with
// team").
func (t *Tree) Close() error { return t.db.Close() }

func (t *Tree) put(d *Domain) error {
	buf, err := json.Marshal(d)
	if err != nil {
		return cmn.WrapError("locality", cmn.ErrOther, err)
	}
	return t.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(d.Tag, string(buf), nil)
		return err
	})
}

func (t *Tree) get(tag string) (*Domain, error) {
	var raw string
	err := t.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(tag)
		if err != nil {
			return err
		}
		raw = v
		return nil
	})
	if err == buntdb.ErrNotFound {
		return nil, cmn.NewError("locality", cmn.ErrNotFound, "no domain at tag "+tag)
	}
	if err != nil {
		return nil, cmn.WrapError("locality", cmn.ErrOther, err)
	}
	var d Domain
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, cmn.WrapError("locality", cmn.ErrOther, err)
	}
	return &d, nil
}

func (t *Tree) del(tag string) error {
	return t.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(tag)
		return err
	})
}

// DomainAt descends root, parsing tag's dotted components one at a
// time (spec §4.J "O(depth) descent parsing components"), failing
// ERR_NOTFOUND on an out-of-range index or a premature leaf.
func (t *Tree) DomainAt(tag string) (*Domain, error) {
	comps, err := parseTag(tag)
	if err != nil {
		return nil, err
	}
	cur, err := t.get(rootTag)
	if err != nil {
		return nil, err
	}
	for _, idx := range comps {
		if idx < 0 || idx >= len(cur.ChildTags) {
			return nil, cmn.NewError("locality.DomainAt", cmn.ErrNotFound, "index out of range descending to "+tag)
		}
		cur, err = t.get(cur.ChildTags[idx])
		if err != nil {
			return nil, cmn.NewError("locality.DomainAt", cmn.ErrNotFound, "premature leaf descending to "+tag)
		}
	}
	return cur, nil
}

// parseTag splits a dotted-integer tag ("." is the root) into its
// relative-index components.
func parseTag(tag string) ([]int, error) {
	if tag == rootTag || tag == "" {
		return nil, nil
	}
	if !strings.HasPrefix(tag, rootTag) {
		return nil, cmn.NewError("locality.parseTag", cmn.ErrInval, "tag must start with \".\"")
	}
	parts := strings.Split(strings.TrimPrefix(tag, rootTag), ".")
	comps := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, cmn.NewError("locality.parseTag", cmn.ErrInval, "malformed tag component "+p)
		}
		comps[i] = n
	}
	return comps, nil
}

func relIndexOf(tag string) uint16 {
	i := strings.LastIndex(tag, ".")
	n, _ := strconv.Atoi(tag[i+1:])
	return uint16(n)
}

func levelOf(tag string) uint16 {
	if tag == rootTag {
		return 0
	}
	return uint16(strings.Count(tag, "."))
}

func isChild(parent, maybeChild string) bool {
	if parent == rootTag {
		return levelOf(maybeChild) == 1
	}
	return strings.HasPrefix(maybeChild, parent+".") && levelOf(maybeChild) == levelOf(parent)+1
}

// ScopeDomains collects, via an ascending key scan of the arena (spec
// §4.J "pre-order recursion collecting tags of descendants whose scope
// matches"), the tags of every descendant of root whose scope is s.
func (t *Tree) ScopeDomains(root string, s Scope) ([]string, error) {
	if _, err := t.DomainAt(root); err != nil {
		return nil, err
	}
	prefix := root + "."
	if root == rootTag {
		prefix = rootTag
	}
	var tags []string
	err := t.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("*", func(key, value string) bool {
			if key == root || !strings.HasPrefix(key, prefix) {
				return true
			}
			var d Domain
			if err := json.UnmarshalFromString(value, &d); err != nil {
				return true
			}
			if d.Scope == s {
				tags = append(tags, key)
			}
			return true
		})
	})
	if err != nil {
		return nil, cmn.WrapError("locality.ScopeDomains", cmn.ErrOther, err)
	}
	sort.Slice(tags, func(i, j int) bool { return compareTags(tags[i], tags[j]) < 0 })
	return tags, nil
}

// compareTags orders two dotted tags by their numeric components, so
// that ".2" sorts before ".10" (lexical string order would not).
func compareTags(a, b string) int {
	pa, _ := parseTag(a)
	pb, _ := parseTag(b)
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if pa[i] != pb[i] {
			return pa[i] - pb[i]
		}
	}
	return len(pa) - len(pb)
}

