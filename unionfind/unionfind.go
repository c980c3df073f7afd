// Package unionfind implements a disjoint-set (union-find) data structure
// over dense integer indices with path compression and union by rank.
package unionfind

// UnionFind is a disjoint-set structure over the indices [0, N).
type UnionFind struct {
	parent []int
	rank   []int
}

// New returns a UnionFind with n singleton sets {0}, {1}, ..., {n-1}.
func New(n int) *UnionFind {
	u := &UnionFind{
		parent: make([]int, n),
		rank:   make([]int, n),
	}
	for i := range u.parent {
		u.parent[i] = i
	}
	return u
}

// Find returns the representative of x's set, compressing the path from x
// to the root as it goes.
func (u *UnionFind) Find(x int) int {
	if u.parent[x] != x {
		u.parent[x] = u.Find(u.parent[x])
	}
	return u.parent[x]
}

// Union merges the sets containing x and y, using union by rank to keep
// trees shallow.
func (u *UnionFind) Union(x, y int) {
	rootX, rootY := u.Find(x), u.Find(y)
	if rootX == rootY {
		return
	}
	switch {
	case u.rank[rootX] < u.rank[rootY]:
		u.parent[rootX] = rootY
	case u.rank[rootX] > u.rank[rootY]:
		u.parent[rootY] = rootX
	default:
		u.parent[rootY] = rootX
		u.rank[rootX]++
	}
}

// Connected reports whether x and y are in the same set.
func (u *UnionFind) Connected(x, y int) bool {
	return u.Find(x) == u.Find(y)
}

// Sets returns the partition as a slice of index groups, one per set, each
// in ascending index order. Set order in the returned slice is determined
// by each set's smallest member, making it deterministic regardless of
// union order.
func (u *UnionFind) Sets() [][]int {
	rootToGroup := make(map[int][]int)
	var roots []int
	for i := range u.parent {
		r := u.Find(i)
		if _, ok := rootToGroup[r]; !ok {
			roots = append(roots, r)
		}
		rootToGroup[r] = append(rootToGroup[r], i)
	}
	sets := make([][]int, 0, len(roots))
	for _, r := range roots {
		sets = append(sets, rootToGroup[r])
	}
	return sets
}
