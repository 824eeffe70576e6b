/*
 * Filename: affinity.go
 * Path: modisco
 */

package modisco

import (
	"fmt"
	"math"

	"github.com/exascience/pargo/parallel"
	"gonum.org/v1/gonum/mat"
)

// AffinityComputer builds the coarse affinity matrix from gapped k-mer
// embeddings. Entry (i, j) is the better of the cosine similarities of i's
// forward embedding with j's forward and reverse embeddings.
type AffinityComputer struct {
	Embedder   *GappedKmerEmbedder
	NumWorkers int
}

// Compute returns the N x N coarse affinity matrix
func (r *AffinityComputer) Compute(seqlets []*Seqlet) (*mat.Dense, error) {
	N := len(seqlets)
	if N == 0 {
		return nil, fmt.Errorf("%w: no seqlets to embed", ErrEmptyInput)
	}
	if err := r.Embedder.Validate(); err != nil {
		return nil, err
	}
	embeddings, err := r.Embedder.Embed(seqlets)
	if err != nil {
		return nil, err
	}
	D := r.Embedder.Dim()

	// Norms on both strands
	fwdNorm := make([]float64, N)
	revNorm := make([]float64, N)
	parallel.Range(0, N, r.NumWorkers, func(low, high int) {
		dense := make([]float64, D)
		for i := low; i < high; i++ {
			for _, k := range []bool{false, true} {
				v := embeddings[i].Fwd
				if k {
					v = embeddings[i].Rev
				}
				clear(dense)
				r.Embedder.expand(v, dense)
				n := r.Embedder.centeredDot(dense, v.Sum, v)
				n = math.Sqrt(math.Max(n, 0))
				if k {
					revNorm[i] = n
				} else {
					fwdNorm[i] = n
				}
			}
		}
	})

	P := mat.NewDense(N, N, nil)
	parallel.Range(0, N, r.NumWorkers, func(low, high int) {
		dense := make([]float64, D)
		for i := low; i < high; i++ {
			clear(dense)
			a := embeddings[i].Fwd
			r.Embedder.expand(a, dense)
			row := P.RawRowView(i)
			for j := 0; j < N; j++ {
				ff := cosine(r.Embedder.centeredDot(dense, a.Sum, embeddings[j].Fwd), fwdNorm[i], fwdNorm[j])
				fr := cosine(r.Embedder.centeredDot(dense, a.Sum, embeddings[j].Rev), fwdNorm[i], revNorm[j])
				row[j] = math.Max(ff, fr)
			}
		}
	})
	log.Noticef("Coarse affinity computed for %d seqlets (embedding dim %d)", N, D)
	return P, nil
}

func cosine(dot, na, nb float64) float64 {
	if na < EPS || nb < EPS {
		return 0
	}
	return dot / (na * nb)
}
