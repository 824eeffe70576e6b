/*
 * Filename: unionfind.go
 * Path: modisco
 */

package modisco

import "sort"

// DisjointSet is a union-find over 0..n-1 with path compression and union by
// size. Each root also keeps its members in ascending order.
type DisjointSet struct {
	parent  []int
	size    []int
	members [][]int
}

// NewDisjointSet starts with n singletons
func NewDisjointSet(n int) *DisjointSet {
	r := &DisjointSet{
		parent:  make([]int, n),
		size:    make([]int, n),
		members: make([][]int, n),
	}
	for i := 0; i < n; i++ {
		r.parent[i] = i
		r.size[i] = 1
		r.members[i] = []int{i}
	}
	return r
}

// Find returns the root of x
func (r *DisjointSet) Find(x int) int {
	root := x
	for r.parent[root] != root {
		root = r.parent[root]
	}
	for r.parent[x] != root {
		r.parent[x], x = root, r.parent[x]
	}
	return root
}

// Union joins the sets of a and b and returns the new root
func (r *DisjointSet) Union(a, b int) int {
	ra, rb := r.Find(a), r.Find(b)
	if ra == rb {
		return ra
	}
	if r.size[ra] < r.size[rb] || (r.size[ra] == r.size[rb] && rb < ra) {
		ra, rb = rb, ra
	}
	r.parent[rb] = ra
	r.size[ra] += r.size[rb]
	r.members[ra] = mergeSorted(r.members[ra], r.members[rb])
	r.members[rb] = nil
	return ra
}

// Size returns the size of x's set
func (r *DisjointSet) Size(x int) int {
	return r.size[r.Find(x)]
}

// Members returns the sorted members of x's set, callers must not modify it
func (r *DisjointSet) Members(x int) []int {
	return r.members[r.Find(x)]
}

// Sets lists all sets ordered by their smallest member
func (r *DisjointSet) Sets() [][]int {
	var sets [][]int
	for i := range r.parent {
		if r.parent[i] == i {
			sets = append(sets, r.members[i])
		}
	}
	sort.Slice(sets, func(a, b int) bool {
		return sets[a][0] < sets[b][0]
	})
	return sets
}

func mergeSorted(a, b []int) []int {
	ans := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] < b[j] {
			ans = append(ans, a[i])
			i++
		} else {
			ans = append(ans, b[j])
			j++
		}
	}
	ans = append(ans, a[i:]...)
	return append(ans, b[j:]...)
}
