/*
 * Filename: postprocess.go
 * Path: modisco
 */

package modisco

import (
	"math"
)

// Postprocessor rewrites a list of patterns, dropping the ones that become
// empty
type Postprocessor interface {
	Process(patterns []*Pattern) ([]*Pattern, error)
}

// PostprocessorChain runs postprocessors in order
type PostprocessorChain []Postprocessor

// Process applies every step
func (r PostprocessorChain) Process(patterns []*Pattern) ([]*Pattern, error) {
	var err error
	for _, pp := range r {
		if patterns, err = pp.Process(patterns); err != nil {
			return nil, err
		}
	}
	return patterns, nil
}

// TrimToFracSupport trims each pattern to the span of positions whose
// support reaches MinFrac of the best supported position, but never asks for
// more than MinNum seqlets
type TrimToFracSupport struct {
	MinFrac float64
	MinNum  int
}

// Process trims every pattern
func (r TrimToFracSupport) Process(patterns []*Pattern) ([]*Pattern, error) {
	var ans []*Pattern
	for _, p := range patterns {
		support := p.Support()
		maxSupport := 0
		for _, n := range support {
			if n > maxSupport {
				maxSupport = n
			}
		}
		minNum := r.MinNum
		if minNum > maxSupport {
			minNum = maxSupport
		}
		thr := int(math.Ceil(r.MinFrac * float64(maxSupport)))
		if minNum > thr {
			thr = minNum
		}
		lo, hi := -1, -1
		for i, n := range support {
			if n >= thr {
				if lo < 0 {
					lo = i
				}
				hi = i + 1
			}
		}
		if lo < 0 {
			continue
		}
		if q := p.Trim(lo, hi); q != nil {
			ans = append(ans, q)
		}
	}
	return ans, nil
}

// ExpandSeqletsToFillPattern re-cuts every seqlet so it spans the whole
// pattern plus Flank positions on each side. Seqlets that would run off
// their example are dropped.
type ExpandSeqletsToFillPattern struct {
	TrackSet *TrackSet
	Flank    int
}

// Process expands every pattern
func (r ExpandSeqletsToFillPattern) Process(patterns []*Pattern) ([]*Pattern, error) {
	var ans []*Pattern
	for _, p := range patterns {
		q, err := r.expand(p)
		if err != nil {
			return nil, err
		}
		if q != nil {
			ans = append(ans, q)
		}
	}
	return ans, nil
}

func (r ExpandSeqletsToFillPattern) expand(p *Pattern) (*Pattern, error) {
	L := p.Len()
	var aligned []AlignedSeqlet
	dropped := 0
	for _, a := range p.Aligned() {
		left := a.Offset + r.Flank
		right := L - a.End() + r.Flank
		if !r.fits(a.Seqlet, left, right) {
			dropped++
			continue
		}
		s, err := a.Seqlet.Expand(r.TrackSet, left, right)
		if err != nil {
			return nil, err
		}
		aligned = append(aligned, AlignedSeqlet{Seqlet: s, Offset: 0})
	}
	if dropped > 0 {
		log.Debugf("Expansion dropped %d seqlets running off their example", dropped)
	}
	if len(aligned) == 0 {
		return nil, nil
	}
	return FromAligned(aligned), nil
}

// fits tells if s can grow by left and right in its own orientation
func (r ExpandSeqletsToFillPattern) fits(s *Seqlet, left, right int) bool {
	if s.Coordinate.RevComp {
		left, right = right, left
	}
	return s.Start-left >= 0 && s.End+right <= r.TrackSet.ExampleLen(s.ExampleIdx) &&
		s.End+right > s.Start-left
}

// TrimToBestWindow keeps the window of WindowSize positions with the
// largest summed absolute mean over TrackNames
type TrimToBestWindow struct {
	WindowSize int
	TrackNames []string
}

// Process trims every pattern longer than the window
func (r TrimToBestWindow) Process(patterns []*Pattern) ([]*Pattern, error) {
	var ans []*Pattern
	for _, p := range patterns {
		L := p.Len()
		if L <= r.WindowSize {
			ans = append(ans, p)
			continue
		}
		score := make([]float64, L)
		for _, name := range r.TrackNames {
			t := p.Track(name)
			if t == nil {
				continue
			}
			for i := 0; i < L; i++ {
				score[i] += sumAbs(t.Fwd[i*t.Width : (i+1)*t.Width])
			}
		}
		best, bestStart := math.Inf(-1), 0
		window := 0.0
		for i := 0; i < L; i++ {
			window += score[i]
			if i >= r.WindowSize {
				window -= score[i-r.WindowSize]
			}
			if i >= r.WindowSize-1 && window > best+EPS {
				best, bestStart = window, i-r.WindowSize+1
			}
		}
		if q := p.Trim(bestStart, bestStart+r.WindowSize); q != nil {
			ans = append(ans, q)
		}
	}
	return ans, nil
}

// NewPostprocessor builds trim-to-support, expand, trim-to-window, expand
func NewPostprocessor(ts *TrackSet, cfg *Config, contribTracks []string) PostprocessorChain {
	expand := ExpandSeqletsToFillPattern{TrackSet: ts, Flank: cfg.InitialFlankToAdd}
	return PostprocessorChain{
		TrimToFracSupport{MinFrac: cfg.TrimToFracSupport, MinNum: cfg.MinNumToTrimTo},
		expand,
		TrimToBestWindow{WindowSize: cfg.TrimToWindowSize, TrackNames: contribTracks},
		expand,
	}
}
