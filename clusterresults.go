/*
 * Filename: clusterresults.go
 * Path: modisco
 */

package modisco

import "sort"

// ClusterKind names the algorithm that produced a ClusterResults
type ClusterKind string

// Clustering algorithms
const (
	KindLouvain           ClusterKind = "louvain"
	KindCollectComponents ClusterKind = "collect_components"
	KindHDBScan           ClusterKind = "hdbscan"
)

// ClusterResults maps every item to a cluster id, Unassigned for noise
type ClusterResults struct {
	Indices       []int
	Kind          ClusterKind
	Q             float64
	LevelToReturn int
	DistinctSets  [][]int
}

// Remap substitutes cluster ids, ids absent from the mapping are kept. The
// receiver is not modified. DistinctSets, when present, is rebuilt from the
// remapped ids so that merged clusters share one set.
func (r ClusterResults) Remap(mapping map[int]int) ClusterResults {
	ans := ClusterResults{
		Indices:       make([]int, len(r.Indices)),
		Kind:          r.Kind,
		Q:             r.Q,
		LevelToReturn: r.LevelToReturn,
	}
	for i, c := range r.Indices {
		if d, ok := mapping[c]; ok {
			ans.Indices[i] = d
		} else {
			ans.Indices[i] = c
		}
	}
	if r.DistinctSets != nil {
		ans.DistinctSets = ans.Members()
	}
	return ans
}

// NumClusters counts the distinct assigned ids
func (r ClusterResults) NumClusters() int {
	return len(r.Counts())
}

// Counts returns the size of each assigned cluster
func (r ClusterResults) Counts() map[int]int {
	counts := map[int]int{}
	for _, c := range r.Indices {
		if c != Unassigned {
			counts[c]++
		}
	}
	return counts
}

// Members lists the items of every assigned cluster, in ascending cluster id
func (r ClusterResults) Members() [][]int {
	groups := map[int][]int{}
	for i, c := range r.Indices {
		if c != Unassigned {
			groups[c] = append(groups[c], i)
		}
	}
	ids := make([]int, 0, len(groups))
	for c := range groups {
		ids = append(ids, c)
	}
	sort.Ints(ids)
	members := make([][]int, len(ids))
	for k, c := range ids {
		members[k] = groups[c]
	}
	return members
}

// relabelBySize renumbers groups by descending size (ties by smallest
// member), groups under minSize become Unassigned
func relabelBySize(labels []int, minSize int) []int {
	groups := map[int][]int{}
	for i, c := range labels {
		if c != Unassigned {
			groups[c] = append(groups[c], i)
		}
	}
	var keep [][]int
	for _, g := range groups {
		if len(g) >= minSize {
			keep = append(keep, g)
		}
	}
	sort.Slice(keep, func(a, b int) bool {
		if len(keep[a]) != len(keep[b]) {
			return len(keep[a]) > len(keep[b])
		}
		return keep[a][0] < keep[b][0]
	})
	ans := make([]int, len(labels))
	for i := range ans {
		ans[i] = Unassigned
	}
	for c, g := range keep {
		for _, i := range g {
			ans[i] = c
		}
	}
	return ans
}
