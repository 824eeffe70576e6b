/*
 * Filename: aggregate.go
 * Path: modisco
 */

package modisco

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// MotifAggregator greedily builds one pattern out of a cluster of seqlets
type MotifAggregator struct {
	Aligner       Aligner
	Postprocessor Postprocessor
	Priority      func(*Seqlet) float64
	BatchSize     int
}

// Aggregate seeds the pattern with the highest priority seqlet and adds the
// others one by one at their best alignment. Returns nil when no pattern
// survives postprocessing.
func (r *MotifAggregator) Aggregate(seqlets []*Seqlet) (*Pattern, error) {
	if len(seqlets) == 0 {
		return nil, nil
	}
	sorted := append([]*Seqlet(nil), seqlets...)
	if r.Priority != nil {
		prio := make(map[*Seqlet]float64, len(sorted))
		for _, s := range sorted {
			prio[s] = r.Priority(s)
		}
		sort.SliceStable(sorted, func(i, j int) bool {
			a, b := sorted[i], sorted[j]
			if prio[a] != prio[b] {
				return prio[a] > prio[b]
			}
			return coordLess(a.Coordinate, b.Coordinate)
		})
	}

	p := NewPattern(sorted[0])
	rest := sorted[1:]
	batchSize := r.BatchSize
	if batchSize <= 0 {
		batchSize = len(rest) + 1
	}
	nSkipped := 0
	for start := 0; start < len(rest); start += batchSize {
		end := start + batchSize
		if end > len(rest) {
			end = len(rest)
		}
		prof := r.Aligner.Profile(p)
		for _, s := range rest[start:end] {
			al := r.Aligner.AlignProfiles(prof, r.Aligner.Profile(s))
			if !al.Valid() {
				nSkipped++
				continue
			}
			if p.Add(s, al) {
				prof = r.Aligner.Profile(p)
			}
		}
		if end < len(rest) {
			var err error
			if p, err = r.postprocess(p); p == nil || err != nil {
				return nil, err
			}
		}
	}
	if nSkipped > 0 {
		log.Debugf("%d seqlets could not be aligned", nSkipped)
	}
	return r.postprocess(p)
}

func (r *MotifAggregator) postprocess(p *Pattern) (*Pattern, error) {
	if r.Postprocessor == nil {
		return p, nil
	}
	ps, err := r.Postprocessor.Process([]*Pattern{p})
	if err != nil || len(ps) == 0 {
		return nil, err
	}
	return ps[0], nil
}

// SignConsistency accepts a pattern when the summed mean of every listed
// track has the expected sign
type SignConsistency struct {
	TrackNames []string
	Signs      []float64
}

// Validate checks that every track has a sign
func (r SignConsistency) Validate() error {
	if len(r.TrackNames) != len(r.Signs) {
		return fmt.Errorf("%w: %d tracks but %d signs",
			ErrConfiguration, len(r.TrackNames), len(r.Signs))
	}
	for _, s := range r.Signs {
		if s != 1 && s != -1 {
			return fmt.Errorf("%w: sign %g is not +1 or -1", ErrConfiguration, s)
		}
	}
	return nil
}

// Check tells if p passes
func (r SignConsistency) Check(p *Pattern) bool {
	for k, name := range r.TrackNames {
		t := p.Track(name)
		if t == nil {
			return false
		}
		if sign(floats.Sum(t.Fwd)) != r.Signs[k] {
			return false
		}
	}
	return true
}
