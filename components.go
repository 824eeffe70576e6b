/*
 * Filename: components.go
 * Path: modisco
 */

package modisco

import (
	"container/heap"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// IncompatibilityCache remembers the pairs that may never end up together.
// It lives for one clustering call and is only touched by one goroutine.
type IncompatibilityCache struct {
	n    int
	bits []uint64
}

// NewIncompatibilityCache makes an empty cache over n items
func NewIncompatibilityCache(n int) *IncompatibilityCache {
	return &IncompatibilityCache{n: n, bits: make([]uint64, (n*(n+1)/2+63)/64)}
}

func (r *IncompatibilityCache) offset(i, j int) int {
	if i > j {
		i, j = j, i
	}
	return j*(j+1)/2 + i
}

// Set marks i and j as incompatible
func (r *IncompatibilityCache) Set(i, j int) {
	k := r.offset(i, j)
	r.bits[k/64] |= 1 << uint(k%64)
}

// Get tells if i and j are incompatible
func (r *IncompatibilityCache) Get(i, j int) bool {
	k := r.offset(i, j)
	return r.bits[k/64]&(1<<uint(k%64)) != 0
}

// transitiveMerge joins items greedily in order of descending score. A join
// is refused when any sampled cross pair of the two sets is incompatible, and
// the refusal is then recorded for every cross pair of the two full sets.
// Sampling takes the first maxCheck members of each set by index.
func transitiveMerge(n int, merges []*merge, cache *IncompatibilityCache, maxCheck int) *DisjointSet {
	ds := NewDisjointSet(n)
	pq := newMergeQueue(merges)
	nJoins, nVetoes := 0, 0
	for pq.Len() > 0 {
		m := heap.Pop(pq).(*merge)
		if ds.Find(m.a) == ds.Find(m.b) || cache.Get(m.a, m.b) {
			continue
		}
		setA, setB := ds.Members(m.a), ds.Members(m.b)
		if !compatibleSets(sample(setA, maxCheck), sample(setB, maxCheck), cache) {
			for _, x := range setA {
				for _, y := range setB {
					cache.Set(x, y)
				}
			}
			nVetoes++
			continue
		}
		ds.Union(m.a, m.b)
		nJoins++
	}
	log.Debugf("Transitive merge: %d joins, %d vetoes", nJoins, nVetoes)
	return ds
}

func sample(set []int, maxCheck int) []int {
	if maxCheck > 0 && len(set) > maxCheck {
		return set[:maxCheck]
	}
	return set
}

func compatibleSets(a, b []int, cache *IncompatibilityCache) bool {
	for _, x := range a {
		for _, y := range b {
			if cache.Get(x, y) {
				return false
			}
		}
	}
	return true
}

// CollectComponents clusters by transitive merging under a join threshold
// and a dealbreaker threshold
type CollectComponents struct {
	DealbreakerThreshold float64
	JoinThreshold        float64
	MinClusterSize       int
	MaxNeighborsToCheck  int
	Transform            MatrixTransform
}

func (r *CollectComponents) clusterer() {}

// Cluster returns sets of at least MinClusterSize items ranked by size
func (r *CollectComponents) Cluster(aff *mat.Dense) (ClusterResults, error) {
	if aff == nil || aff.IsEmpty() {
		return ClusterResults{}, fmt.Errorf("%w: nothing to cluster", ErrEmptyInput)
	}
	N, c := aff.Dims()
	if N != c {
		return ClusterResults{}, fmt.Errorf("%w: affinity matrix is %dx%d", ErrInvariantViolation, N, c)
	}
	if r.DealbreakerThreshold > r.JoinThreshold {
		return ClusterResults{}, fmt.Errorf("%w: dealbreaker threshold %g above join threshold %g",
			ErrConfiguration, r.DealbreakerThreshold, r.JoinThreshold)
	}
	A := mat.DenseCopyOf(aff)
	NanToNum(A)
	if r.Transform != nil {
		var err error
		if A, err = r.Transform(A); err != nil {
			return ClusterResults{}, err
		}
	}

	cache := NewIncompatibilityCache(N)
	var merges []*merge
	for i := 0; i < N; i++ {
		for j := i + 1; j < N; j++ {
			a, b := A.At(i, j), A.At(j, i)
			if a < r.DealbreakerThreshold || b < r.DealbreakerThreshold {
				cache.Set(i, j)
			}
			if score := (a + b) / 2; score >= r.JoinThreshold {
				merges = append(merges, &merge{a: i, b: j, score: score})
			}
		}
	}
	maxCheck := r.MaxNeighborsToCheck
	if maxCheck <= 0 {
		maxCheck = DefaultMaxNeighborsToCheck
	}
	ds := transitiveMerge(N, merges, cache, maxCheck)

	labels := make([]int, N)
	for i := range labels {
		labels[i] = ds.Find(i)
	}
	labels = relabelBySize(labels, r.MinClusterSize)
	res := ClusterResults{Indices: labels, Kind: KindCollectComponents}
	res.DistinctSets = res.Members()
	log.Noticef("Collected %d components from %d items", len(res.DistinctSets), N)
	return res, nil
}
