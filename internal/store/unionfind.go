package store

// nodeUnion is a union-find over node numbers local to one cell, used
// by Connect to decide the renumbering plan before it is applied to
// every object (spec §4.1: "assign the smaller existing number to
// both sides, renumbering every object carrying the larger").
//
// Adapted from the union-by-rank/path-compression structure in
// pkg/reveng.Netlist (there keyed by bsr.PinRef over a fixed pin set
// discovered once; here keyed by int node numbers that are minted
// incrementally as Connect and Instance run), with one behavioral
// difference Connect requires: the root of a union is always the
// smaller of the two node numbers, never an arbitrary side, so the
// live renumbering plan matches the spec's documented rule exactly.
type nodeUnion struct {
	parent map[int]int
	rank   map[int]int
}

func newNodeUnion() *nodeUnion {
	return &nodeUnion{parent: make(map[int]int), rank: make(map[int]int)}
}

func (u *nodeUnion) ensure(n int) {
	if _, ok := u.parent[n]; !ok {
		u.parent[n] = n
		u.rank[n] = 0
	}
}

func (u *nodeUnion) find(n int) int {
	u.ensure(n)
	root := n
	for u.parent[root] != root {
		root = u.parent[root]
	}
	cur := n
	for cur != root {
		next := u.parent[cur]
		u.parent[cur] = root
		cur = next
	}
	return root
}

// union merges the classes of a and b, keeping the smaller node
// number as the surviving root regardless of rank, and returns the
// surviving root.
func (u *nodeUnion) union(a, b int) int {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return ra
	}
	lo, hi := ra, rb
	if hi < lo {
		lo, hi = hi, lo
	}
	u.parent[hi] = lo
	if u.rank[lo] == u.rank[hi] {
		u.rank[lo]++
	}
	return lo
}
