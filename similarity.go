/*
 * Filename: similarity.go
 * Path: modisco
 */

package modisco

import (
	"math"
)

// TrackSource is anything with aligned tracks, seqlets and patterns alike
type TrackSource interface {
	Len() int
	Track(name string) *Track
}

// ComparisonSettings picks the tracks to compare and how to normalize them
type ComparisonSettings struct {
	TrackNames  []string
	Transformer TrackTransformer
	MinOverlap  float64
}

// Profile is a TrackSource with its compared tracks normalized, computed once
// and reused for every pair the source takes part in
type Profile struct {
	Len   int
	Width []int
	Fwd   [][]float64
	Rev   [][]float64
	Total []float64 // summed absolute value per track
}

// NewProfile normalizes the compared tracks of src
func (r ComparisonSettings) NewProfile(src TrackSource) *Profile {
	tf := r.Transformer
	if tf == nil {
		tf = IdentityNormalize
	}
	p := &Profile{Len: src.Len()}
	for _, name := range r.TrackNames {
		t := src.Track(name)
		if t == nil {
			log.Errorf("Track `%s` not found", name)
			continue
		}
		fwd := tf(t.Fwd)
		p.Width = append(p.Width, t.Width)
		p.Fwd = append(p.Fwd, fwd)
		p.Rev = append(p.Rev, reverseComplement(fwd, t.Width))
		p.Total = append(p.Total, sumAbs(fwd))
	}
	return p
}

// Alignment places b relative to a: position 0 of b, reverse complemented
// when RevComp is set, sits at position Offset of a
type Alignment struct {
	Score   float64
	Offset  int
	RevComp bool
}

// Valid tells if any offset satisfied the overlap constraint
func (r Alignment) Valid() bool {
	return !math.IsInf(r.Score, -1) && !math.IsNaN(r.Score)
}

// Aligner finds the best sliding alignment of two sources on either strand
type Aligner interface {
	Profile(src TrackSource) *Profile
	AlignProfiles(a, b *Profile) Alignment
	ScoreAt(a, b *Profile, offset int, revcomp bool) float64
}

// Align is a shortcut for one-off comparisons
func Align(al Aligner, a, b TrackSource) Alignment {
	return al.AlignProfiles(al.Profile(a), al.Profile(b))
}

// scoreFunc scores one offset, bStrand being the chosen strand of b
type scoreFunc func(a *Profile, bStrand [][]float64, b *Profile, offset int) float64

// minOverlapLen is the smallest number of shared positions allowed
func minOverlapLen(frac float64, la, lb int) int {
	shorter := la
	if lb < shorter {
		shorter = lb
	}
	m := int(math.Ceil(frac*float64(shorter) - 1e-9))
	if m < 1 {
		m = 1
	}
	return m
}

// overlap returns the a-positions [lo, hi) shared with b at the offset
func overlap(la, lb, offset int) (int, int) {
	lo, hi := offset, offset+lb
	if lo < 0 {
		lo = 0
	}
	if hi > la {
		hi = la
	}
	return lo, hi
}

// slide tries every offset with enough overlap on both strands. Ties go to
// the smaller offset magnitude, then to the forward strand.
func slide(a, b *Profile, minOverlap float64, score scoreFunc) Alignment {
	best := Alignment{Score: math.Inf(-1)}
	if a.Len == 0 || b.Len == 0 {
		return best
	}
	need := minOverlapLen(minOverlap, a.Len, b.Len)
	maxMag := a.Len - 1
	if b.Len-1 > maxMag {
		maxMag = b.Len - 1
	}
	offsets := []int{0}
	for m := 0; m <= maxMag; m++ {
		if m > 0 {
			offsets = []int{-m, m}
		}
		for _, rc := range []bool{false, true} {
			strand := b.Fwd
			if rc {
				strand = b.Rev
			}
			for _, o := range offsets {
				lo, hi := overlap(a.Len, b.Len, o)
				if hi-lo < need {
					continue
				}
				s := score(a, strand, b, o)
				if s > best.Score {
					best = Alignment{Score: s, Offset: o, RevComp: rc}
				}
			}
		}
	}
	return best
}

// continJaccard is the signed continuous Jaccard over the union of the two
// windows, positions outside the overlap count toward the denominator only
func continJaccard(a *Profile, bStrand [][]float64, b *Profile, offset int) float64 {
	lo, hi := overlap(a.Len, b.Len, offset)
	num, den := 0.0, 0.0
	for k := range a.Fwd {
		w := a.Width[k]
		x, y := a.Fwd[k], bStrand[k]
		shared := 0.0
		for p := lo; p < hi; p++ {
			xs := x[p*w : (p+1)*w]
			ys := y[(p-offset)*w : (p-offset+1)*w]
			for c := 0; c < w; c++ {
				ax, ay := math.Abs(xs[c]), math.Abs(ys[c])
				m := math.Min(ax, ay)
				shared += m
				num += m * sign(xs[c]) * sign(ys[c])
			}
		}
		den += a.Total[k] + b.Total[k] - shared
	}
	if den < EPS {
		return 0
	}
	return num / den
}

// crossCorrelation is the dot product over the overlap, summed over tracks
func crossCorrelation(a *Profile, bStrand [][]float64, b *Profile, offset int) float64 {
	lo, hi := overlap(a.Len, b.Len, offset)
	total := 0.0
	for k := range a.Fwd {
		w := a.Width[k]
		x, y := a.Fwd[k], bStrand[k]
		for p := lo; p < hi; p++ {
			q := p - offset
			for c := 0; c < w; c++ {
				total += x[p*w+c] * y[q*w+c]
			}
		}
	}
	return total
}

func scoreAt(a, b *Profile, offset int, revcomp bool, score scoreFunc) float64 {
	lo, hi := overlap(a.Len, b.Len, offset)
	if hi <= lo {
		return 0
	}
	strand := b.Fwd
	if revcomp {
		strand = b.Rev
	}
	return score(a, strand, b, offset)
}

// CrossContinJaccardAligner scores offsets by continuous Jaccard, the exact
// seqlet similarity
type CrossContinJaccardAligner struct {
	ComparisonSettings
}

// Profile normalizes src for this aligner
func (r *CrossContinJaccardAligner) Profile(src TrackSource) *Profile {
	return r.NewProfile(src)
}

// AlignProfiles finds the best offset and strand
func (r *CrossContinJaccardAligner) AlignProfiles(a, b *Profile) Alignment {
	return slide(a, b, r.MinOverlap, continJaccard)
}

// ScoreAt scores one fixed placement
func (r *CrossContinJaccardAligner) ScoreAt(a, b *Profile, offset int, revcomp bool) float64 {
	return scoreAt(a, b, offset, revcomp, continJaccard)
}

// CrossCorrelationAligner scores offsets by summed cross-correlation, used
// to compare patterns with each other. With mean and magnitude normalized
// tracks the best possible score equals the number of tracks.
type CrossCorrelationAligner struct {
	ComparisonSettings
}

// Profile normalizes src for this aligner
func (r *CrossCorrelationAligner) Profile(src TrackSource) *Profile {
	return r.NewProfile(src)
}

// AlignProfiles finds the best offset and strand
func (r *CrossCorrelationAligner) AlignProfiles(a, b *Profile) Alignment {
	return slide(a, b, r.MinOverlap, crossCorrelation)
}

// ScoreAt scores one fixed placement
func (r *CrossCorrelationAligner) ScoreAt(a, b *Profile, offset int, revcomp bool) float64 {
	return scoreAt(a, b, offset, revcomp, crossCorrelation)
}
