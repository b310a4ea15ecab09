package locality

import "testing"

func flatNodeOf(nodes []int) func(int) int {
	return func(rank int) int { return nodes[rank] }
}

func TestNewTreeBuildsOneNodePerDistinctPlacement(t *testing.T) {
	members := []int{0, 1, 2, 3, 4, 5, 6, 7}
	tree, err := NewTree(1, members, flatNodeOf([]int{0, 0, 0, 0, 1, 1, 1, 1}), "host")
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	tags, err := tree.ScopeDomains(".", Node)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 2 {
		t.Fatalf("got %d node domains, want 2", len(tags))
	}
	root, err := tree.DomainAt(".")
	if err != nil {
		t.Fatal(err)
	}
	if len(root.UnitIDs) != 8 {
		t.Fatalf("root unit count = %d, want 8", len(root.UnitIDs))
	}
}

// TestSplitUsesCorrectedRemainderFormula pins the spec §9 open-question
// resolution: the last group's size is num_domains - g*max, not the
// source's underflowing (g*max) - num_domains.
func TestSplitUsesCorrectedRemainderFormula(t *testing.T) {
	members := make([]int, 7)
	nodes := make([]int, 7)
	for i := range members {
		members[i] = i
		nodes[i] = i // 7 distinct NODE domains
	}
	tree, err := NewTree(1, members, flatNodeOf(nodes), "host")
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	groups, err := tree.Split(".", Node, 3)
	if err != nil {
		t.Fatal(err)
	}
	// 7 domains / 3 parts -> max=3, groups of 3,3,1.
	sizes := []int{len(groups[0]), len(groups[1]), len(groups[2])}
	want := []int{3, 3, 1}
	for i := range want {
		if sizes[i] != want[i] {
			t.Fatalf("group sizes = %v, want %v", sizes, want)
		}
	}
}

func TestGroupSubdomainsRenumbersRemainingAndKeepsGroupsLast(t *testing.T) {
	members := make([]int, 5)
	nodes := make([]int, 5)
	for i := range members {
		members[i] = i
		nodes[i] = i
	}
	tree, err := NewTree(1, members, flatNodeOf(nodes), "host")
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	// Group nodes .0 and .2 together; .1, .3, .4 remain and must be
	// renumbered to close the gap, with the group always last (I6).
	groupTag, err := tree.GroupSubdomains(".", []string{".0", ".2"})
	if err != nil {
		t.Fatal(err)
	}
	root, err := tree.DomainAt(".")
	if err != nil {
		t.Fatal(err)
	}
	if root.ChildTags[len(root.ChildTags)-1] != groupTag {
		t.Fatalf("group tag %s is not last child: %v", groupTag, root.ChildTags)
	}
	if len(root.ChildTags) != 4 { // 3 remaining + 1 group
		t.Fatalf("root has %d children, want 4", len(root.ChildTags))
	}
	grp, err := tree.DomainAt(groupTag)
	if err != nil {
		t.Fatal(err)
	}
	if grp.Scope != Group {
		t.Fatalf("scope = %v, want Group", grp.Scope)
	}
	if len(grp.ChildTags) != 2 {
		t.Fatalf("group has %d children, want 2", len(grp.ChildTags))
	}
}

func TestDomainAtErrors(t *testing.T) {
	members := []int{0, 1}
	tree, err := NewTree(1, members, flatNodeOf([]int{0, 1}), "host")
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	if _, err := tree.DomainAt(".5"); err == nil {
		t.Fatal("expected ERR_NOTFOUND for out-of-range index")
	}
	if _, err := tree.DomainAt(".0.0"); err == nil {
		t.Fatal("expected ERR_NOTFOUND descending past a leaf")
	}
	if _, err := tree.DomainAt("bogus"); err == nil {
		t.Fatal("expected ERR_INVAL for a malformed tag")
	}
}
