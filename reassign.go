/*
 * Filename: reassign.go
 * Path: modisco
 */

package modisco

import (
	"github.com/exascience/pargo/parallel"
)

// Reassignment is the outcome of SeqletReassigner
type Reassignment struct {
	Reassigned []*Pattern // after reassignment and postprocessing
	Final      []*Pattern // after the final flank expansion
	Unassigned []*Seqlet
}

// SeqletReassigner moves seqlets of small patterns and other free seqlets to
// the best matching large pattern
type SeqletReassigner struct {
	Aligner            Aligner
	MinSimilarity      float64
	MinClusterSize     int
	Postprocessor      Postprocessor
	FinalPostprocessor Postprocessor
	NumWorkers         int
}

// Reassign runs a single pass, patterns that stay under MinClusterSize are
// dropped and their seqlets left unassigned
func (r *SeqletReassigner) Reassign(patterns []*Pattern, free []*Seqlet) (*Reassignment, error) {
	var large []*Pattern
	pool := append([]*Seqlet(nil), free...)
	for _, p := range patterns {
		if p.NumSeqlets() >= r.MinClusterSize {
			large = append(large, p)
		} else {
			pool = append(pool, p.Seqlets()...)
		}
	}
	taken := map[string]bool{}
	for _, p := range large {
		for _, s := range p.Seqlets() {
			taken[s.String()] = true
		}
	}
	var candidates []*Seqlet
	for _, s := range DedupSeqlets(pool) {
		if !taken[s.String()] {
			candidates = append(candidates, s)
		}
	}
	ans := &Reassignment{}
	if len(large) == 0 {
		ans.Unassigned = candidates
		log.Warningf("No pattern has %d seqlets, %d seqlets left unassigned",
			r.MinClusterSize, len(candidates))
		return ans, nil
	}

	K, M := len(large), len(candidates)
	profiles := make([]*Profile, K)
	for i, p := range large {
		profiles[i] = r.Aligner.Profile(p)
	}
	best := make([]Alignment, M)
	bestIdx := make([]int, M)
	parallel.Range(0, M, r.NumWorkers, func(low, high int) {
		for j := low; j < high; j++ {
			prof := r.Aligner.Profile(candidates[j])
			bestIdx[j] = Unassigned
			for i := 0; i < K; i++ {
				al := r.Aligner.AlignProfiles(profiles[i], prof)
				if !al.Valid() || al.Score < r.MinSimilarity {
					continue
				}
				if bestIdx[j] == Unassigned || al.Score > best[j].Score {
					best[j], bestIdx[j] = al, i
				}
			}
		}
	})

	added := make([][]AlignedSeqlet, K)
	for i, p := range large {
		added[i] = p.Aligned()
	}
	var unassigned []*Seqlet
	nMoved := 0
	for j, s := range candidates {
		i := bestIdx[j]
		if i == Unassigned {
			unassigned = append(unassigned, s)
			continue
		}
		if best[j].RevComp {
			s = s.RevComp()
		}
		added[i] = append(added[i], AlignedSeqlet{Seqlet: s, Offset: best[j].Offset})
		nMoved++
	}
	log.Noticef("Reassigned %s free seqlets", Percentage(nMoved, M))

	var reassigned []*Pattern
	for i, p := range large {
		if len(added[i]) == p.NumSeqlets() {
			reassigned = append(reassigned, p)
			continue
		}
		q := FromAligned(added[i])
		if r.Postprocessor != nil {
			ps, err := r.Postprocessor.Process([]*Pattern{q})
			if err != nil {
				return nil, err
			}
			if len(ps) == 0 {
				unassigned = append(unassigned, q.Seqlets()...)
				continue
			}
			q = ps[0]
		}
		reassigned = append(reassigned, q)
	}

	var kept []*Pattern
	for _, p := range reassigned {
		if p.NumSeqlets() < r.MinClusterSize {
			log.Warningf("Dropping pattern with %d seqlets after reassignment", p.NumSeqlets())
			unassigned = append(unassigned, p.Seqlets()...)
			continue
		}
		kept = append(kept, p)
	}
	ans.Reassigned = kept
	ans.Unassigned = unassigned
	ans.Final = kept
	if r.FinalPostprocessor != nil && len(kept) > 0 {
		final, err := r.FinalPostprocessor.Process(kept)
		if err != nil {
			return nil, err
		}
		ans.Final = final
	}
	return ans, nil
}
