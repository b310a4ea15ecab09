package locality

import (
	"sort"
	"strconv"
	"strings"

	"github.com/parcio/dartrt/cmn"
)

// Split partitions root's scope-level descendants into numParts
// balanced groups (spec §4.J): ceil-size groups, with the last group
// absorbing the remainder via the corrected formula `num_domains -
// g*max` (spec §9 open-question resolution; the source's `(g*max) -
// num_domains` underflows for most inputs).
func (t *Tree) Split(root string, s Scope, numParts int) ([][]string, error) {
	if numParts <= 0 {
		return nil, cmn.NewError("locality.Split", cmn.ErrInval, "num_parts must be positive")
	}
	domains, err := t.ScopeDomains(root, s)
	if err != nil {
		return nil, err
	}
	total := len(domains)
	max := (total + numParts - 1) / numParts
	groups := make([][]string, numParts)
	for g := 0; g < numParts; g++ {
		start := g * max
		if start > total {
			start = total
		}
		end := start + max
		if g == numParts-1 || end > total {
			end = total
		}
		groups[g] = append([]string(nil), domains[start:end]...)
	}
	return groups, nil
}

// GroupSubdomains is the immediate-children variant of group (spec
// §4.J): every tag in subsetTags must already be an immediate child of
// parent. It sorts subsetTags, partitions parent's children into
// pre-existing groups / chosen / remaining in one pass, reparents
// chosen under a freshly appended GROUP node, and renumbers remaining
// to close the gap — pre-existing groups keep their tags unchanged.
func (t *Tree) GroupSubdomains(parent string, subsetTags []string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.groupSubdomains(parent, subsetTags)
}

// groupSubdomains is GroupSubdomains' body, callable without taking
// t.mu for use from within Group (which already holds it).
func (t *Tree) groupSubdomains(parent string, subsetTags []string) (string, error) {
	p, err := t.DomainAt(parent)
	if err != nil {
		return "", err
	}
	want := make(map[string]bool, len(subsetTags))
	sorted := append([]string(nil), subsetTags...)
	sort.Slice(sorted, func(i, j int) bool { return compareTags(sorted[i], sorted[j]) < 0 })
	for _, tag := range sorted {
		want[tag] = true
	}

	var existingGroups, remaining, chosen []string
	for _, c := range p.ChildTags {
		child, err := t.get(c)
		if err != nil {
			return "", err
		}
		switch {
		case child.Scope == Group:
			existingGroups = append(existingGroups, c)
		case want[c]:
			chosen = append(chosen, c)
		default:
			remaining = append(remaining, c)
		}
	}
	if len(chosen) != len(subsetTags) {
		return "", cmn.NewError("locality.GroupSubdomains", cmn.ErrNotFound, "subset contains a tag that is not a child of parent")
	}

	newIndex := len(existingGroups) + len(remaining)
	groupTag := childTag(parent, newIndex)

	// Move chosen aside first, so renumbering remaining cannot
	// overwrite a chosen subtree still stored at its target tag.
	chosenByTag := make(map[string]string, len(chosen))
	for _, c := range chosen {
		tmp := "~" + c
		if err := t.renameSubtree(c, tmp); err != nil {
			return "", err
		}
		chosenByTag[c] = tmp
	}

	// Renumber remaining in place, closing the gap left by chosen.
	newRemaining := make([]string, len(remaining))
	for i, oldTag := range remaining {
		newTag := childTag(parent, len(existingGroups)+i)
		if err := t.renameSubtree(oldTag, newTag); err != nil {
			return "", err
		}
		newRemaining[i] = newTag
	}

	// Reparent chosen (sorted order) under the new group, by tag.
	newChosen := make([]string, 0, len(sorted))
	var unitIDs []int
	numNodes := 0
	for i, tag := range sorted {
		oldTag := chosenByTag[tag]
		newTag := childTag(groupTag, i)
		if err := t.renameSubtree(oldTag, newTag); err != nil {
			return "", err
		}
		d, err := t.get(newTag)
		if err != nil {
			return "", err
		}
		unitIDs = append(unitIDs, d.UnitIDs...)
		numNodes += d.NumNodes
		newChosen = append(newChosen, newTag)
	}

	group := &Domain{
		Tag: groupTag, Scope: Group, Level: p.Level + 1, RelativeIndex: uint16(newIndex),
		TeamID: p.TeamID, UnitIDs: unitIDs, NumNodes: numNodes, Host: p.Host, ChildTags: newChosen,
	}
	if err := t.put(group); err != nil {
		return "", err
	}

	p.ChildTags = append(append(append([]string(nil), existingGroups...), newRemaining...), groupTag)
	if err := t.put(p); err != nil {
		return "", err
	}
	return groupTag, nil
}

// Group is group_subdomains' general form (spec §4.J): the subdomains
// named by tags may sit anywhere in the tree, not only as immediate
// children of a common parent. It finds the lowest common ancestor of
// tags, and either delegates to GroupSubdomains when every tag is an
// immediate child of that ancestor, or copies the ancestor's subtree
// and prunes away every branch that does not lead to a selected tag.
func (t *Tree) Group(specs [][]string) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(specs))
	for _, tags := range specs {
		if len(tags) == 0 {
			return nil, cmn.NewError("locality.Group", cmn.ErrInval, "empty group spec")
		}
		lca := lowestCommonAncestor(tags)
		allImmediate := true
		for _, tag := range tags {
			if !isChild(lca, tag) {
				allImmediate = false
				break
			}
		}
		if allImmediate {
			tag, err := t.groupSubdomains(lca, tags)
			if err != nil {
				return nil, err
			}
			out = append(out, tag)
			continue
		}
		tag, err := t.groupByCopy(lca, tags)
		if err != nil {
			return nil, err
		}
		out = append(out, tag)
	}
	return out, nil
}

// groupByCopy handles a Group spec whose lca is an ancestor, not the
// immediate parent, of some selected tag: it copies lca's subtree,
// keeping only the branches on a path to a selected tag (selected tags
// themselves copied whole), and appends the copy as lca's new last
// (GROUP-scope) child.
func (t *Tree) groupByCopy(lca string, selected []string) (string, error) {
	p, err := t.get(lca)
	if err != nil {
		return "", err
	}
	newIndex := len(p.ChildTags)
	groupTag := childTag(lca, newIndex)

	childTags, unitIDs, numNodes, err := t.copyPruned(lca, groupTag, selected)
	if err != nil {
		return "", err
	}
	group := &Domain{
		Tag: groupTag, Scope: Group, Level: p.Level + 1, RelativeIndex: uint16(newIndex),
		TeamID: p.TeamID, UnitIDs: unitIDs, NumNodes: numNodes, Host: p.Host, ChildTags: childTags,
	}
	if err := t.put(group); err != nil {
		return "", err
	}
	p.ChildTags = append(p.ChildTags, groupTag)
	return groupTag, t.put(p)
}

// copyPruned copies src's children (under dst) that lie on a path to a
// selected tag, recursively, returning dst's new child tags plus the
// union of copied unit ids / node counts. A selected tag itself is
// copied whole, unpruned.
func (t *Tree) copyPruned(src, dst string, selected []string) ([]string, []int, int, error) {
	srcDom, err := t.get(src)
	if err != nil {
		return nil, nil, 0, err
	}
	var keep []string
	for _, c := range srcDom.ChildTags {
		for _, sel := range selected {
			if c == sel || strings.HasPrefix(sel, c+".") {
				keep = append(keep, c)
				break
			}
		}
	}
	var childTags []string
	var unitIDs []int
	numNodes := 0
	for i, c := range keep {
		newChildTag := childTag(dst, i)
		isExact := false
		for _, sel := range selected {
			if sel == c {
				isExact = true
				break
			}
		}
		if isExact {
			if err := t.copyWhole(c, newChildTag); err != nil {
				return nil, nil, 0, err
			}
		} else {
			sub, subUnits, subNodes, err := t.copyPruned(c, newChildTag, selected)
			if err != nil {
				return nil, nil, 0, err
			}
			cd, err := t.get(c)
			if err != nil {
				return nil, nil, 0, err
			}
			cp := cd.clone()
			cp.Tag, cp.Level, cp.RelativeIndex = newChildTag, levelOf(newChildTag), relIndexOf(newChildTag)
			cp.ChildTags, cp.UnitIDs, cp.NumNodes = sub, subUnits, subNodes
			if err := t.put(cp); err != nil {
				return nil, nil, 0, err
			}
		}
		d, err := t.get(newChildTag)
		if err != nil {
			return nil, nil, 0, err
		}
		childTags = append(childTags, newChildTag)
		unitIDs = append(unitIDs, d.UnitIDs...)
		numNodes += d.NumNodes
	}
	return childTags, unitIDs, numNodes, nil
}

// copyWhole duplicates the subtree rooted at src to dst verbatim,
// re-tagging every node but changing nothing else.
func (t *Tree) copyWhole(src, dst string) error {
	d, err := t.get(src)
	if err != nil {
		return err
	}
	cp := d.clone()
	cp.Tag = dst
	cp.Level = levelOf(dst)
	cp.RelativeIndex = relIndexOf(dst)
	newChildren := make([]string, len(d.ChildTags))
	for i, c := range d.ChildTags {
		newChildren[i] = childTag(dst, i)
		if err := t.copyWhole(c, newChildren[i]); err != nil {
			return err
		}
	}
	cp.ChildTags = newChildren
	return t.put(cp)
}

// renameSubtree moves the subtree rooted at oldTag to newTag in place,
// rewriting every descendant's tag (and the ChildTags lists that
// reference them) to the new prefix.
func (t *Tree) renameSubtree(oldTag, newTag string) error {
	if oldTag == newTag {
		return nil
	}
	d, err := t.get(oldTag)
	if err != nil {
		return err
	}
	renamed := make([]string, len(d.ChildTags))
	for i, c := range d.ChildTags {
		renamed[i] = newTag + strings.TrimPrefix(c, oldTag)
	}
	for i, c := range d.ChildTags {
		if err := t.renameSubtree(c, renamed[i]); err != nil {
			return err
		}
	}
	d.Tag = newTag
	d.Level = levelOf(newTag)
	d.RelativeIndex = relIndexOf(newTag)
	d.ChildTags = renamed
	if err := t.put(d); err != nil {
		return err
	}
	return t.del(oldTag)
}

func childTag(parent string, idx int) string {
	if parent == rootTag {
		return rootTag + strconv.Itoa(idx)
	}
	return parent + "." + strconv.Itoa(idx)
}

// lowestCommonAncestor returns the longest dotted-tag prefix shared by
// every tag in tags, always itself a valid tag (".'" at worst).
func lowestCommonAncestor(tags []string) string {
	lca := tags[0]
	for _, tag := range tags[1:] {
		lca = commonPrefix(lca, tag)
	}
	return lca
}

// commonPrefix returns the longest shared dotted-component prefix of
// two tags, e.g. (".1.2.3", ".1.2.4") -> ".1.2".
func commonPrefix(a, b string) string {
	pa, _ := parseTag(a)
	pb, _ := parseTag(b)
	n := len(pa)
	if len(pb) < n {
		n = len(pb)
	}
	i := 0
	for i < n && pa[i] == pb[i] {
		i++
	}
	if i == 0 {
		return rootTag
	}
	var b2 strings.Builder
	b2.WriteString(rootTag)
	for _, c := range pa[:i] {
		if b2.Len() > 1 {
			b2.WriteByte('.')
		}
		b2.WriteString(strconv.Itoa(c))
	}
	return b2.String()
}
