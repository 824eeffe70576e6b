/*
 * Filename: refine.go
 * Path: modisco
 */

package modisco

import (
	"fmt"
	"sort"

	"github.com/exascience/pargo/parallel"
	"gonum.org/v1/gonum/mat"
)

// PairwiseRefiner recomputes exact alignment similarity for neighbor pairs
type PairwiseRefiner struct {
	Aligner    Aligner
	NumWorkers int
}

// Refine fills (i, j) and (j, i) whenever j is a neighbor of i or the other
// way round, plus the diagonal. All other entries stay zero.
func (r *PairwiseRefiner) Refine(seqlets []*Seqlet, nbrs [][]int) (*mat.Dense, error) {
	N := len(seqlets)
	if N == 0 {
		return nil, fmt.Errorf("%w: no seqlets to refine", ErrEmptyInput)
	}
	if len(nbrs) != N {
		return nil, fmt.Errorf("%w: %d neighbor rows for %d seqlets",
			ErrInvariantViolation, len(nbrs), N)
	}

	type pair struct{ i, j int }
	seen := map[pair]bool{}
	var pairs []pair
	for i := 0; i < N; i++ {
		seen[pair{i, i}] = true
		pairs = append(pairs, pair{i, i})
		for _, j := range nbrs[i] {
			p := pair{i, j}
			if j < i {
				p = pair{j, i}
			}
			if !seen[p] {
				seen[p] = true
				pairs = append(pairs, p)
			}
		}
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].i != pairs[b].i {
			return pairs[a].i < pairs[b].i
		}
		return pairs[a].j < pairs[b].j
	})

	profiles := r.profiles(seqlets)
	P := mat.NewDense(N, N, nil)
	// Each pair writes its own two cells
	parallel.Range(0, len(pairs), r.NumWorkers, func(low, high int) {
		for _, p := range pairs[low:high] {
			s := r.Aligner.AlignProfiles(profiles[p.i], profiles[p.j]).Score
			if !isFinite(s) {
				s = 0
			}
			P.Set(p.i, p.j, s)
			P.Set(p.j, p.i, s)
		}
	})
	log.Noticef("Refined %d seqlet pairs", len(pairs))
	return P, nil
}

func (r *PairwiseRefiner) profiles(seqlets []*Seqlet) []*Profile {
	profiles := make([]*Profile, len(seqlets))
	parallel.Range(0, len(seqlets), r.NumWorkers, func(low, high int) {
		for i := low; i < high; i++ {
			profiles[i] = r.Aligner.Profile(seqlets[i])
		}
	})
	return profiles
}

// SimilarityMatrix aligns every column source against every row source and
// returns the best scores, rows x cols. Invalid alignments score zero.
func SimilarityMatrix(al Aligner, rows, cols []TrackSource, workers int) *mat.Dense {
	if len(rows) == 0 || len(cols) == 0 {
		return nil
	}
	rp := make([]*Profile, len(rows))
	for i, s := range rows {
		rp[i] = al.Profile(s)
	}
	cp := make([]*Profile, len(cols))
	parallel.Range(0, len(cols), workers, func(low, high int) {
		for j := low; j < high; j++ {
			cp[j] = al.Profile(cols[j])
		}
	})
	P := mat.NewDense(len(rows), len(cols), nil)
	parallel.Range(0, len(rows)*len(cols), workers, func(low, high int) {
		for k := low; k < high; k++ {
			i, j := k/len(cols), k%len(cols)
			s := al.AlignProfiles(rp[i], cp[j]).Score
			if !isFinite(s) {
				s = 0
			}
			P.Set(i, j, s)
		}
	})
	return P
}
