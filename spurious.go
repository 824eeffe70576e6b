/*
 * Filename: spurious.go
 * Path: modisco
 */

package modisco

import (
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// SpuriousMergeDetector splits patterns made of two dissimilar
// sub-populations of seqlets
type SpuriousMergeDetector struct {
	TrackNames      []string
	Transformer     TrackTransformer
	Bisector        Clusterer
	Threshold       float64
	MinInSubcluster int
	NumWorkers      int
}

// Detect returns the patterns with every spurious merge split apart, in the
// input order
func (r *SpuriousMergeDetector) Detect(patterns []*Pattern) ([]*Pattern, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	parts := make([][]*Pattern, len(patterns))
	eg := new(errgroup.Group)
	if r.NumWorkers > 0 {
		eg.SetLimit(r.NumWorkers)
	}
	for i, p := range patterns {
		i, p := i, p
		eg.Go(func() error {
			var err error
			parts[i], err = r.split(p)
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	var ans []*Pattern
	for i, ps := range parts {
		if len(ps) > 1 {
			log.Noticef("Pattern %d split into %d", i, len(ps))
		}
		ans = append(ans, ps...)
	}
	return ans, nil
}

// split bisects p and recurses into both halves while they look different
func (r *SpuriousMergeDetector) split(p *Pattern) ([]*Pattern, error) {
	n := p.NumSeqlets()
	if n < 2*r.MinInSubcluster || n < 2 {
		return []*Pattern{p}, nil
	}
	aligned := p.Aligned()
	al := &CrossContinJaccardAligner{ComparisonSettings{
		TrackNames:  r.TrackNames,
		Transformer: r.Transformer,
	}}
	profiles := make([]*Profile, n)
	for i, a := range aligned {
		profiles[i] = al.Profile(a.Seqlet)
	}
	M := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s := al.ScoreAt(profiles[i], profiles[j], aligned[j].Offset-aligned[i].Offset, false)
			M.Set(i, j, s)
			M.Set(j, i, s)
		}
	}
	if lo := minEntry(M); lo < 0 {
		M.Apply(func(_, _ int, v float64) float64 { return v - lo }, M)
	}

	res, err := r.Bisector.Cluster(M)
	if err != nil {
		return nil, err
	}
	members := res.Members()
	if len(members) != 2 ||
		len(members[0]) < r.MinInSubcluster || len(members[1]) < r.MinInSubcluster {
		return []*Pattern{p}, nil
	}
	halves := make([]*Pattern, 2)
	for k, idx := range members {
		sub := make([]AlignedSeqlet, len(idx))
		for a, i := range idx {
			sub[a] = aligned[i]
		}
		halves[k] = p.withFrame(sub, p.Len())
	}
	corr := stat.Correlation(r.signal(halves[0]), r.signal(halves[1]), nil)
	if math.IsNaN(corr) || corr >= r.Threshold {
		return []*Pattern{p}, nil
	}
	log.Debugf("Splitting %d seqlets into %d and %d (correlation %.3f)",
		n, len(members[0]), len(members[1]), corr)
	var ans []*Pattern
	for _, h := range halves {
		ps, err := r.split(h)
		if err != nil {
			return nil, err
		}
		ans = append(ans, ps...)
	}
	return ans, nil
}

// signal concatenates the mean tracks compared between halves
func (r *SpuriousMergeDetector) signal(p *Pattern) []float64 {
	var v []float64
	for _, name := range r.TrackNames {
		if t := p.Track(name); t != nil {
			v = append(v, t.Fwd...)
		}
	}
	return v
}
