/*
 * Filename: neighbors.go
 * Path: modisco
 */

package modisco

import (
	"fmt"

	"github.com/exascience/pargo/parallel"
	"gonum.org/v1/gonum/mat"
)

// NeighborFinder returns, per row, the indices of the K most similar
// other items
type NeighborFinder interface {
	Neighbors(aff *mat.Dense, K int) ([][]int, error)
}

// ExactNeighbors sorts every row, which is deterministic without a seed
type ExactNeighbors struct {
	NumWorkers int
}

// Neighbors returns the top K columns per row, self excluded, ties by index
func (r ExactNeighbors) Neighbors(aff *mat.Dense, K int) ([][]int, error) {
	N, _ := aff.Dims()
	if K >= N {
		return nil, fmt.Errorf("%w: %d neighbors requested from %d seqlets",
			ErrConfiguration, K, N)
	}
	if K <= 0 {
		return nil, fmt.Errorf("%w: %d neighbors requested", ErrConfiguration, K)
	}
	nbrs := make([][]int, N)
	parallel.Range(0, N, r.NumWorkers, func(low, high int) {
		for i := low; i < high; i++ {
			order := argsortDesc(aff.RawRowView(i))
			row := make([]int, 0, K)
			for _, j := range order {
				if j == i {
					continue
				}
				row = append(row, j)
				if len(row) == K {
					break
				}
			}
			nbrs[i] = row
		}
	})
	return nbrs, nil
}
