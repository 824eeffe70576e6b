/*
 * Filename: embed.go
 * Path: modisco
 */

package modisco

import (
	"fmt"
	"math"
	"sort"
)

// maxEmbeddingDim bounds the dense row buffer used by the cosine kernel
const maxEmbeddingDim = 1 << 24

// SparseVector is a sorted sparse embedding
type SparseVector struct {
	Idx []int
	Val []float64
	Sum float64
}

// Embedding holds both strands of one seqlet
type Embedding struct {
	Fwd SparseVector
	Rev SparseVector
}

// GappedKmerEmbedder turns a seqlet into weighted gapped k-mer counts. Each
// k-mer keeps its first and last base and drops NumGaps interior positions,
// every choice of the dropped positions being a separate template. The weight
// of a k-mer occurrence is the sign adjusted score at its bases.
type GappedKmerEmbedder struct {
	AlphabetSize  int
	KmerLen       int
	NumGaps       int
	NumMismatches int
	BatchSize     int
	OnehotTrack   string
	ScoreTracks   []string
	Signs         []float64

	templates [][]int
}

// Validate checks the k-mer geometry
func (r *GappedKmerEmbedder) Validate() error {
	if r.AlphabetSize < 2 {
		return fmt.Errorf("%w: alphabet size %d", ErrConfiguration, r.AlphabetSize)
	}
	if r.KmerLen < 2 || r.NumGaps < 0 || r.NumGaps > r.KmerLen-2 {
		return fmt.Errorf("%w: k-mer length %d with %d gaps", ErrConfiguration, r.KmerLen, r.NumGaps)
	}
	if r.NumMismatches < 0 || r.NumMismatches > r.KmerLen-r.NumGaps {
		return fmt.Errorf("%w: %d mismatches", ErrConfiguration, r.NumMismatches)
	}
	if len(r.ScoreTracks) != len(r.Signs) {
		return fmt.Errorf("%w: %d score tracks but %d signs",
			ErrConfiguration, len(r.ScoreTracks), len(r.Signs))
	}
	if r.Dim() > maxEmbeddingDim {
		return fmt.Errorf("%w: embedding dimension %d too large", ErrConfiguration, r.Dim())
	}
	return nil
}

// kept is the number of bases per gapped k-mer
func (r *GappedKmerEmbedder) kept() int {
	return r.KmerLen - r.NumGaps
}

// Templates lists the kept offsets of every gapped k-mer template
func (r *GappedKmerEmbedder) Templates() [][]int {
	if r.templates != nil {
		return r.templates
	}
	interior := make([]int, 0, r.KmerLen)
	for i := 1; i < r.KmerLen-1; i++ {
		interior = append(interior, i)
	}
	var templates [][]int
	var rec func(start int, gaps []int)
	rec = func(start int, gaps []int) {
		if len(gaps) == r.NumGaps {
			drop := map[int]bool{}
			for _, g := range gaps {
				drop[g] = true
			}
			var keep []int
			for i := 0; i < r.KmerLen; i++ {
				if !drop[i] {
					keep = append(keep, i)
				}
			}
			templates = append(templates, keep)
			return
		}
		for i := start; i < len(interior); i++ {
			rec(i+1, append(gaps, interior[i]))
		}
	}
	rec(0, nil)
	r.templates = templates
	return templates
}

// Dim is the embedding dimension
func (r *GappedKmerEmbedder) Dim() int {
	return len(r.Templates()) * ipow(r.AlphabetSize, r.kept())
}

// kernelRowSum is the weight each k-mer spreads over itself and its
// mismatch neighbors
func (r *GappedKmerEmbedder) kernelRowSum() float64 {
	m := r.kept()
	total := 0.0
	for k := 0; k <= r.NumMismatches; k++ {
		total += float64(binomial(m, k)) * math.Pow(float64(r.AlphabetSize-1)*0.5, float64(k))
	}
	return total
}

// Embed computes the embeddings of a batch of seqlets
func (r *GappedKmerEmbedder) Embed(seqlets []*Seqlet) ([]Embedding, error) {
	return RunInBatches(seqlets, r.BatchSize, 0, func(batch []*Seqlet) ([]Embedding, error) {
		ans := make([]Embedding, len(batch))
		for i, s := range batch {
			oh := s.Track(r.OnehotTrack)
			if oh == nil {
				return nil, fmt.Errorf("%w: seqlet %s has no track %s",
					ErrConfiguration, s, r.OnehotTrack)
			}
			scores := make([]*Track, len(r.ScoreTracks))
			for k, name := range r.ScoreTracks {
				if scores[k] = s.Track(name); scores[k] == nil {
					return nil, fmt.Errorf("%w: seqlet %s has no track %s",
						ErrConfiguration, s, name)
				}
			}
			ans[i].Fwd = r.embedStrand(oh, scores, false)
			ans[i].Rev = r.embedStrand(oh, scores, true)
		}
		return ans, nil
	})
}

func (r *GappedKmerEmbedder) embedStrand(oh *Track, scores []*Track, rev bool) SparseVector {
	pick := func(t *Track) []float64 {
		if rev {
			return t.Rev
		}
		return t.Fwd
	}
	A := r.AlphabetSize
	L := oh.Len()
	onehot := pick(oh)
	bases := make([]int, L)
	for p := 0; p < L; p++ {
		bases[p] = -1
		best := 0.5
		for c := 0; c < oh.Width && c < A; c++ {
			if v := onehot[p*oh.Width+c]; v > best {
				best, bases[p] = v, c
			}
		}
	}
	// per-position weight at the observed base
	weight := make([]float64, L)
	for k, t := range scores {
		vals := pick(t)
		for p := 0; p < L; p++ {
			if bases[p] < 0 {
				continue
			}
			v := vals[p*t.Width]
			if t.Width > 1 {
				v = vals[p*t.Width+bases[p]]
			}
			weight[p] += r.Signs[k] * v
		}
	}

	block := ipow(A, r.kept())
	counts := map[int]float64{}
	for ti, tpl := range r.Templates() {
		for p := 0; p+r.KmerLen <= L; p++ {
			code, w, ok := 0, 0.0, true
			for _, o := range tpl {
				b := bases[p+o]
				if b < 0 {
					ok = false
					break
				}
				code = code*A + b
				w += weight[p+o]
			}
			if ok {
				counts[ti*block+code] += w
			}
		}
	}
	v := SparseVector{Idx: make([]int, 0, len(counts))}
	for idx := range counts {
		v.Idx = append(v.Idx, idx)
	}
	sort.Ints(v.Idx)
	v.Val = make([]float64, len(v.Idx))
	for i, idx := range v.Idx {
		v.Val[i] = counts[idx]
		v.Sum += v.Val[i]
	}
	return v
}

// expand writes the mismatch-smoothed vector into dst, which must be zeroed
// and Dim() long. Each k-mer spreads 0.5 per mismatch to its neighbors.
func (r *GappedKmerEmbedder) expand(v SparseVector, dst []float64) {
	A := r.AlphabetSize
	m := r.kept()
	block := ipow(A, m)
	digits := make([]int, m)
	for i, idx := range v.Idx {
		base := idx - idx%block
		code := idx % block
		for d := m - 1; d >= 0; d-- {
			digits[d] = code % A
			code /= A
		}
		r.spread(dst, base, digits, 0, r.NumMismatches, v.Val[i])
	}
}

func (r *GappedKmerEmbedder) spread(dst []float64, base int, digits []int, from, left int, w float64) {
	A := r.AlphabetSize
	code := 0
	for _, d := range digits {
		code = code*A + d
	}
	dst[base+code] += w
	if left == 0 {
		return
	}
	for pos := from; pos < len(digits); pos++ {
		orig := digits[pos]
		for b := 0; b < A; b++ {
			if b == orig {
				continue
			}
			digits[pos] = b
			r.spread(dst, base, digits, pos+1, left-1, w*0.5)
		}
		digits[pos] = orig
	}
}

// centeredDot is the kernel inner product after mean centering, with dense
// holding the smoothed version of the first vector
func (r *GappedKmerEmbedder) centeredDot(dense []float64, sumA float64, b SparseVector) float64 {
	dot := 0.0
	for i, idx := range b.Idx {
		dot += dense[idx] * b.Val[i]
	}
	return dot - r.kernelRowSum()*sumA*b.Sum/float64(len(dense))
}

func ipow(a, b int) int {
	ans := 1
	for i := 0; i < b; i++ {
		ans *= a
	}
	return ans
}

func binomial(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	ans := 1
	for i := 0; i < k; i++ {
		ans = ans * (n - i) / (i + 1)
	}
	return ans
}
