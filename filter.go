/*
 * Filename: filter.go
 * Path: modisco
 */

package modisco

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// QualityFilter keeps seqlets whose refined affinity row agrees with the
// coarse one
type QualityFilter struct {
	Threshold float64
}

// Mask returns true for rows where the Pearson correlation between the two
// matrices exceeds the threshold. Rows with undefined correlation are dropped.
func (r QualityFilter) Mask(refined, coarse *mat.Dense) ([]bool, error) {
	n1, c1 := refined.Dims()
	n2, c2 := coarse.Dims()
	if n1 != n2 || c1 != c2 {
		return nil, fmt.Errorf("%w: refined %dx%d and coarse %dx%d differ",
			ErrInvariantViolation, n1, c1, n2, c2)
	}
	mask := make([]bool, n1)
	kept := 0
	for i := 0; i < n1; i++ {
		corr := stat.Correlation(refined.RawRowView(i), coarse.RawRowView(i), nil)
		if !math.IsNaN(corr) && corr > r.Threshold {
			mask[i] = true
			kept++
		}
	}
	log.Noticef("Quality filter kept %s seqlets", Percentage(kept, n1))
	return mask, nil
}
