/*
 * Filename: hdbscan.go
 * Path: modisco
 */

package modisco

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// HDBScanCluster is density based clustering over mutual reachability
// distances, clusters are picked from the condensed tree by excess of mass
type HDBScanCluster struct {
	MinClusterSize int
	MinSamples     int
	AffToDist      MatrixTransform
}

func (r *HDBScanCluster) clusterer() {}

// condensedEdge links a cluster to a child cluster (child >= N) or to a
// point falling out of it (child < N)
type condensedEdge struct {
	parent int
	child  int
	lambda float64
	size   int
}

// Cluster labels dense regions, points in no selected cluster are Unassigned
func (r *HDBScanCluster) Cluster(aff *mat.Dense) (ClusterResults, error) {
	if aff == nil || aff.IsEmpty() {
		return ClusterResults{}, fmt.Errorf("%w: nothing to cluster", ErrEmptyInput)
	}
	N, c := aff.Dims()
	if N != c {
		return ClusterResults{}, fmt.Errorf("%w: affinity matrix is %dx%d", ErrInvariantViolation, N, c)
	}
	if r.MinClusterSize < 2 {
		return ClusterResults{}, fmt.Errorf("%w: min cluster size %d", ErrConfiguration, r.MinClusterSize)
	}
	A := mat.DenseCopyOf(aff)
	NanToNum(A)
	var dist *mat.Dense
	if r.AffToDist != nil {
		var err error
		if dist, err = r.AffToDist(A); err != nil {
			return ClusterResults{}, err
		}
	} else {
		dist = AffinityToDistance(A)
	}

	labels := make([]int, N)
	for i := range labels {
		labels[i] = Unassigned
	}
	if N < r.MinClusterSize {
		return ClusterResults{Indices: labels, Kind: KindHDBScan}, nil
	}

	mr := mutualReachability(dist, r.MinSamples)
	left, right, height, size := singleLinkage(primMST(mr))
	edges := condenseTree(N, left, right, height, size, r.MinClusterSize)
	for label, points := range selectClusters(N, edges) {
		for _, p := range points {
			labels[p] = label
		}
	}
	return ClusterResults{Indices: relabelBySize(labels, 1), Kind: KindHDBScan}, nil
}

// mutualReachability is max(core_i, core_j, d_ij) on the symmetrized
// distances, core distance being the distance to the minSamples-th nearest
// point counting the point itself
func mutualReachability(dist *mat.Dense, minSamples int) *mat.Dense {
	N, _ := dist.Dims()
	D := mat.NewDense(N, N, nil)
	D.Add(dist, dist.T())
	D.Scale(0.5, D)
	k := minSamples
	if k < 1 {
		k = 1
	}
	if k > N {
		k = N
	}
	core := make([]float64, N)
	for i := 0; i < N; i++ {
		row := append([]float64(nil), D.RawRowView(i)...)
		row[i] = 0
		sort.Float64s(row)
		core[i] = row[k-1]
	}
	for i := 0; i < N; i++ {
		row := D.RawRowView(i)
		for j := 0; j < N; j++ {
			if i == j {
				row[j] = 0
				continue
			}
			row[j] = math.Max(row[j], math.Max(core[i], core[j]))
		}
	}
	return D
}

type mstEdge struct {
	a, b int
	w    float64
}

// primMST builds the minimum spanning tree of a dense distance matrix
func primMST(D *mat.Dense) []mstEdge {
	N, _ := D.Dims()
	inTree := make([]bool, N)
	best := make([]float64, N)
	from := make([]int, N)
	for i := range best {
		best[i] = math.Inf(1)
	}
	edges := make([]mstEdge, 0, N-1)
	cur := 0
	inTree[0] = true
	for len(edges) < N-1 {
		row := D.RawRowView(cur)
		next, nextW := -1, math.Inf(1)
		for j := 0; j < N; j++ {
			if inTree[j] {
				continue
			}
			if row[j] < best[j] {
				best[j], from[j] = row[j], cur
			}
			if best[j] < nextW || next < 0 {
				next, nextW = j, best[j]
			}
		}
		inTree[next] = true
		edges = append(edges, mstEdge{a: from[next], b: next, w: nextW})
		cur = next
	}
	return edges
}

// singleLinkage turns MST edges into a dendrogram. Merge k creates node N+k.
func singleLinkage(edges []mstEdge) (left, right []int, height []float64, size []int) {
	N := len(edges) + 1
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].w < edges[j].w })
	ds := NewDisjointSet(N)
	node := make([]int, N)
	for i := range node {
		node[i] = i
	}
	for k, e := range edges {
		ra, rb := ds.Find(e.a), ds.Find(e.b)
		left = append(left, node[ra])
		right = append(right, node[rb])
		height = append(height, e.w)
		size = append(size, ds.Size(ra)+ds.Size(rb))
		node[ds.Union(ra, rb)] = N + k
	}
	return
}

// condenseTree walks the dendrogram from the root, only splits into two
// children of at least minSize start new clusters. Cluster labels start at N
// with N being the root.
func condenseTree(N int, left, right []int, height []float64, size []int, minSize int) []condensedEdge {
	nodeSize := func(id int) int {
		if id < N {
			return 1
		}
		return size[id-N]
	}
	leaves := func(id int) []int {
		var pts []int
		stack := []int{id}
		for len(stack) > 0 {
			x := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if x < N {
				pts = append(pts, x)
				continue
			}
			stack = append(stack, left[x-N], right[x-N])
		}
		return pts
	}

	root := 2*N - 2
	if N == 1 {
		return nil
	}
	label := map[int]int{root: N}
	nextLabel := N + 1
	var edges []condensedEdge
	queue := []int{root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id < N {
			continue
		}
		k := id - N
		lambda := 1 / math.Max(height[k], EPS)
		L := label[id]
		l, rt := left[k], right[k]
		ls, rs := nodeSize(l), nodeSize(rt)
		switch {
		case ls >= minSize && rs >= minSize:
			for _, child := range []int{l, rt} {
				label[child] = nextLabel
				edges = append(edges, condensedEdge{L, nextLabel, lambda, nodeSize(child)})
				nextLabel++
				queue = append(queue, child)
			}
		case ls < minSize && rs < minSize:
			for _, p := range append(leaves(l), leaves(rt)...) {
				edges = append(edges, condensedEdge{L, p, lambda, 1})
			}
		default:
			big, small := l, rt
			if ls < minSize {
				big, small = rt, l
			}
			label[big] = L
			queue = append(queue, big)
			for _, p := range leaves(small) {
				edges = append(edges, condensedEdge{L, p, lambda, 1})
			}
		}
	}
	return edges
}

// selectClusters picks the clusters of maximal total stability and returns
// their points keyed by cluster label
func selectClusters(N int, edges []condensedEdge) map[int][]int {
	birth := map[int]float64{N: 0}
	children := map[int][]int{}
	maxLabel := N
	for _, e := range edges {
		if e.child >= N {
			birth[e.child] = e.lambda
			children[e.parent] = append(children[e.parent], e.child)
			if e.child > maxLabel {
				maxLabel = e.child
			}
		}
	}
	stability := map[int]float64{}
	for _, e := range edges {
		stability[e.parent] += (e.lambda - birth[e.parent]) * float64(e.size)
	}

	selected := map[int]bool{}
	best := map[int]float64{}
	var deselect func(c int)
	deselect = func(c int) {
		for _, d := range children[c] {
			selected[d] = false
			deselect(d)
		}
	}
	// children always carry larger labels than their parent
	for c := maxLabel; c > N; c-- {
		childSum := 0.0
		for _, d := range children[c] {
			childSum += best[d]
		}
		if len(children[c]) > 0 && childSum > stability[c] {
			best[c] = childSum
			continue
		}
		best[c] = stability[c]
		selected[c] = true
		deselect(c)
	}
	if len(children[N]) == 0 {
		selected[N] = true
	}

	points := map[int][]int{}
	for c, ok := range selected {
		if !ok {
			continue
		}
		stack := []int{c}
		for len(stack) > 0 {
			x := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, e := range edges {
				if e.parent != x {
					continue
				}
				if e.child < N {
					points[c] = append(points[c], e.child)
				} else {
					stack = append(stack, e.child)
				}
			}
		}
	}
	return points
}
