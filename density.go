/*
 * Filename: density.go
 * Path: modisco
 */

package modisco

import (
	"fmt"
	"math"
	"sort"

	"github.com/exascience/pargo/parallel"
	"gonum.org/v1/gonum/mat"
)

// AffinityToDistance applies the inverse logistic transform, affinities of
// one or more map to distance zero
func AffinityToDistance(aff *mat.Dense) *mat.Dense {
	r, c := aff.Dims()
	D := mat.NewDense(r, c, nil)
	D.Apply(func(i, j int, v float64) float64 {
		v = math.Max(v, MinAffinity)
		d := math.Log(1/(0.5*v) - 1)
		if math.IsNaN(d) || d < 0 {
			return 0
		}
		return d
	}, aff)
	return D
}

// TsneConditionalProbs converts distances into per-row probabilities over
// the nearest neighbors, with each row's bandwidth found by binary search
// so that the row entropy matches log(perplexity)
func TsneConditionalProbs(dist *mat.Dense, perplexity float64, workers int) *mat.Dense {
	N, _ := dist.Dims()
	k := int(NeighborsPerPerplexity*perplexity + 1)
	if k > N-1 {
		k = N - 1
	}
	P := mat.NewDense(N, N, nil)
	if k <= 0 {
		return P
	}
	desired := math.Log(perplexity)
	parallel.Range(0, N, workers, func(low, high int) {
		for i := low; i < high; i++ {
			row := dist.RawRowView(i)
			nbrs := make([]int, 0, N-1)
			for j := 0; j < N; j++ {
				if j != i {
					nbrs = append(nbrs, j)
				}
			}
			sort.SliceStable(nbrs, func(a, b int) bool {
				return row[nbrs[a]] < row[nbrs[b]]
			})
			nbrs = nbrs[:k]
			d := make([]float64, k)
			for a, j := range nbrs {
				d[a] = row[j]
			}
			probs := binarySearchPerplexity(d, desired)
			out := P.RawRowView(i)
			for a, j := range nbrs {
				out[j] = probs[a]
			}
		}
	})
	return P
}

// binarySearchPerplexity finds beta such that the entropy of exp(-beta * d)
// is close to desired
func binarySearchPerplexity(d []float64, desired float64) []float64 {
	beta, betaMin, betaMax := 1.0, math.Inf(-1), math.Inf(1)
	p := make([]float64, len(d))
	for step := 0; step < PerplexitySteps; step++ {
		sumP := 0.0
		for a, x := range d {
			p[a] = math.Exp(-x * beta)
			sumP += p[a]
		}
		if sumP == 0 {
			sumP = EPS
		}
		sumDP := 0.0
		for a, x := range d {
			p[a] /= sumP
			sumDP += x * p[a]
		}
		entropy := math.Log(sumP) + beta*sumDP
		diff := entropy - desired
		if math.Abs(diff) <= PerplexityTol {
			break
		}
		if diff > 0 {
			betaMin = beta
			if math.IsInf(betaMax, 1) {
				beta *= 2
			} else {
				beta = (beta + betaMax) / 2
			}
		} else {
			betaMax = beta
			if math.IsInf(betaMin, -1) {
				beta /= 2
			} else {
				beta = (beta + betaMin) / 2
			}
		}
	}
	return p
}

// SymmetrizeByAddition returns m + m^T, optionally scaled to sum to one
func SymmetrizeByAddition(m *mat.Dense, probNormalize bool) *mat.Dense {
	N, _ := m.Dims()
	S := mat.NewDense(N, N, nil)
	S.Add(m, m.T())
	if probNormalize {
		total := mat.Sum(S)
		if total > 0 {
			S.Scale(1/total, S)
		}
	}
	return S
}

// DensityAdapter turns a raw affinity matrix into a symmetric closeness
// matrix of t-SNE style joint probabilities
type DensityAdapter struct {
	Perplexity float64
	NumWorkers int
}

// Transform runs distance conversion, conditional probabilities and
// symmetrization. The input is left unchanged.
func (r DensityAdapter) Transform(aff *mat.Dense) (*mat.Dense, error) {
	N, c := aff.Dims()
	if N != c {
		return nil, fmt.Errorf("%w: affinity matrix is %dx%d", ErrInvariantViolation, N, c)
	}
	if r.Perplexity <= 1 {
		return nil, fmt.Errorf("%w: perplexity %g", ErrConfiguration, r.Perplexity)
	}
	A := mat.DenseCopyOf(aff)
	NanToNum(A)
	dist := AffinityToDistance(A)
	A = nil
	cond := TsneConditionalProbs(dist, r.Perplexity, r.NumWorkers)
	dist = nil
	S := SymmetrizeByAddition(cond, true)
	if lo := minEntry(S); lo < 0 {
		return nil, fmt.Errorf("%w: symmetrized matrix has entry %g", ErrInvariantViolation, lo)
	}
	return S, nil
}

// AsTransform exposes the adapter as a matrix transform
func (r DensityAdapter) AsTransform() MatrixTransform {
	return r.Transform
}
