/*
 * Filename: louvain.go
 * Path: modisco
 */

package modisco

import (
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/mat"
)

const (
	// maxLouvainRuns caps the runs of one Louvain call
	maxLouvainRuns = 1000
	// resolution of the modularity objective
	louvainResolution = 1.0
)

// LouvainCluster runs Louvain community detection on an affinity matrix,
// repeating with fresh seeds until the modularity stops improving
type LouvainCluster struct {
	LevelToReturn  int // 0 is the finest partition, -1 the coarsest
	Transform      MatrixTransform
	MinClusterSize int
	MaxClusters    int // 0 for no cap
	ContinRuns     int
	QTol           float64
	TimeLimit      time.Duration
	Seed           uint64
}

func (r *LouvainCluster) clusterer() {}

// Cluster assigns every row of aff to a community
func (r *LouvainCluster) Cluster(aff *mat.Dense) (ClusterResults, error) {
	if aff == nil || aff.IsEmpty() {
		return ClusterResults{}, fmt.Errorf("%w: nothing to cluster", ErrEmptyInput)
	}
	N, c := aff.Dims()
	if N != c {
		return ClusterResults{}, fmt.Errorf("%w: affinity matrix is %dx%d", ErrInvariantViolation, N, c)
	}
	A := mat.DenseCopyOf(aff)
	NanToNum(A)
	if lo := minEntry(A); lo < 0 {
		return ClusterResults{}, fmt.Errorf("%w: negative affinity %g", ErrInvariantViolation, lo)
	}
	if r.Transform != nil {
		var err error
		if A, err = r.Transform(A); err != nil {
			return ClusterResults{}, err
		}
		NanToNum(A)
	}

	g, nEdges := affinityGraph(A)
	var levels [][]int
	var q float64
	if nEdges == 0 {
		levels = [][]int{identityLabels(N)}
	} else {
		levels, q = r.bestRun(g, N)
	}

	level := r.LevelToReturn
	if level < 0 || level >= len(levels) {
		level = len(levels) - 1
	}
	labels := levels[level]
	if r.MaxClusters > 0 {
		for level < len(levels)-1 && countLabels(labels) > r.MaxClusters {
			level++
			labels = levels[level]
		}
		if countLabels(labels) > r.MaxClusters {
			labels = capClusters(A, labels, r.MaxClusters)
		}
	}
	if nEdges > 0 {
		q = community.Q(g, labelsToCommunities(labels), louvainResolution)
	}
	return ClusterResults{
		Indices:       relabelBySize(labels, r.MinClusterSize),
		Kind:          KindLouvain,
		Q:             q,
		LevelToReturn: level,
	}, nil
}

// bestRun repeats Louvain until ContinRuns runs bring no improvement of the
// top level modularity beyond QTol
func (r *LouvainCluster) bestRun(g *simple.WeightedUndirectedGraph, N int) ([][]int, float64) {
	contin := r.ContinRuns
	if contin < 1 {
		contin = 1
	}
	start := time.Now()
	var best [][]int
	bestQ := math.Inf(-1)
	noImprove := 0
	for run := 0; run < maxLouvainRuns && noImprove < contin; run++ {
		levels := louvainLevels(g, N, r.Seed+uint64(run))
		q := community.Q(g, labelsToCommunities(levels[len(levels)-1]), louvainResolution)
		if q > bestQ+r.QTol || best == nil {
			best, bestQ = levels, q
			noImprove = 0
		} else {
			noImprove++
		}
		if r.TimeLimit > 0 && time.Since(start) > r.TimeLimit {
			log.Warningf("Louvain time limit reached after %d runs", run+1)
			break
		}
	}
	return best, bestQ
}

// affinityGraph connects i and j with the mean of the two directed
// affinities when positive
func affinityGraph(A *mat.Dense) (*simple.WeightedUndirectedGraph, int) {
	N, _ := A.Dims()
	g := simple.NewWeightedUndirectedGraph(0, 0)
	for i := 0; i < N; i++ {
		g.AddNode(simple.Node(i))
	}
	nEdges := 0
	for i := 0; i < N; i++ {
		for j := i + 1; j < N; j++ {
			w := (A.At(i, j) + A.At(j, i)) / 2
			if w > 0 {
				g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(i), simple.Node(j), w))
				nEdges++
			}
		}
	}
	return g, nEdges
}

// louvainLevels returns the partitions of one run, finest first. The bottom
// of the gonum hierarchy holds the first pass communities. The top repeats
// its parent's partition and is skipped.
func louvainLevels(g graph.Undirected, N int, seed uint64) [][]int {
	reduced := community.Modularize(g, louvainResolution, rand.NewSource(seed))
	var levels [][]int
	ru, _ := reduced.(*community.ReducedUndirected)
	for ru != nil {
		labels := communitiesToLabels(ru.Communities(), N)
		if n := len(levels); n == 0 || !samePartition(levels[n-1], labels) {
			levels = append(levels, labels)
		}
		ru, _ = ru.Expanded().(*community.ReducedUndirected)
	}
	if len(levels) == 0 {
		levels = append(levels, communitiesToLabels(reduced.Communities(), N))
	}
	for i, j := 0, len(levels)-1; i < j; i, j = i+1, j-1 {
		levels[i], levels[j] = levels[j], levels[i]
	}
	return levels
}

// samePartition tells if two labelings group the items identically
func samePartition(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	ab, ba := map[int]int{}, map[int]int{}
	for i := range a {
		if c, ok := ab[a[i]]; ok && c != b[i] {
			return false
		}
		if c, ok := ba[b[i]]; ok && c != a[i] {
			return false
		}
		ab[a[i]], ba[b[i]] = b[i], a[i]
	}
	return true
}

func communitiesToLabels(comms [][]graph.Node, N int) []int {
	labels := identityLabels(N)
	for c, members := range comms {
		for _, n := range members {
			labels[n.ID()] = c
		}
	}
	return labels
}

func labelsToCommunities(labels []int) [][]graph.Node {
	groups := map[int][]graph.Node{}
	var ids []int
	for i, c := range labels {
		if c == Unassigned {
			continue
		}
		if _, ok := groups[c]; !ok {
			ids = append(ids, c)
		}
		groups[c] = append(groups[c], simple.Node(i))
	}
	sort.Ints(ids)
	comms := make([][]graph.Node, len(ids))
	for k, c := range ids {
		comms[k] = groups[c]
	}
	return comms
}

func identityLabels(N int) []int {
	labels := make([]int, N)
	for i := range labels {
		labels[i] = i
	}
	return labels
}

func countLabels(labels []int) int {
	seen := map[int]bool{}
	for _, c := range labels {
		if c != Unassigned {
			seen[c] = true
		}
	}
	return len(seen)
}

// capClusters keeps the k largest clusters and moves every other item to the
// kept cluster it has the highest summed affinity with
func capClusters(A *mat.Dense, labels []int, k int) []int {
	sizes := map[int]int{}
	for _, c := range labels {
		sizes[c]++
	}
	ids := make([]int, 0, len(sizes))
	for c := range sizes {
		ids = append(ids, c)
	}
	sort.Slice(ids, func(a, b int) bool {
		if sizes[ids[a]] != sizes[ids[b]] {
			return sizes[ids[a]] > sizes[ids[b]]
		}
		return ids[a] < ids[b]
	})
	kept := map[int]bool{}
	for _, c := range ids[:k] {
		kept[c] = true
	}
	ans := append([]int(nil), labels...)
	for i, c := range labels {
		if kept[c] {
			continue
		}
		score := map[int]float64{}
		for j, d := range labels {
			if kept[d] {
				score[d] += A.At(i, j) + A.At(j, i)
			}
		}
		best, bestScore := ids[0], math.Inf(-1)
		for _, d := range ids[:k] {
			if score[d] > bestScore {
				best, bestScore = d, score[d]
			}
		}
		ans[i] = best
	}
	return ans
}

// LouvainMembershipAverage returns a transform that runs Louvain nRuns times
// and replaces each entry by the fraction of runs placing the pair together
func LouvainMembershipAverage(nRuns, level, workers int, seed uint64) MatrixTransform {
	return func(aff *mat.Dense) (*mat.Dense, error) {
		N, _ := aff.Dims()
		g, nEdges := affinityGraph(aff)
		runs := make([][]int, nRuns)
		if nEdges == 0 {
			for k := range runs {
				runs[k] = identityLabels(N)
			}
		} else {
			eg := new(errgroup.Group)
			if workers > 0 {
				eg.SetLimit(workers)
			}
			for k := 0; k < nRuns; k++ {
				k := k
				eg.Go(func() error {
					levels := louvainLevels(g, N, seed+uint64(k))
					lv := level
					if lv < 0 || lv >= len(levels) {
						lv = len(levels) - 1
					}
					runs[k] = levels[lv]
					return nil
				})
			}
			if err := eg.Wait(); err != nil {
				return nil, err
			}
		}

		P := mat.NewDense(N, N, nil)
		for _, labels := range runs {
			groups := map[int][]int{}
			for i, c := range labels {
				groups[c] = append(groups[c], i)
			}
			for _, members := range groups {
				for _, i := range members {
					row := P.RawRowView(i)
					for _, j := range members {
						row[j]++
					}
				}
			}
		}
		if nRuns > 0 {
			P.Scale(1/float64(nRuns), P)
		}
		log.Debugf("Averaged Louvain membership over %d runs", nRuns)
		return P, nil
	}
}
