/**
 * Filename: base.go
 * Path: modisco
 */

package modisco

import (
	"fmt"
	"math"
	"os"
	"path"
	"sort"
	"strings"

	logging "github.com/op/go-logging"
	"gonum.org/v1/gonum/mat"
)

const (
	// Version is the current version of modisco
	Version = "0.3.1"
	// MinAffinity is the floor applied before an affinity is turned into a distance
	MinAffinity = 1e-7
	// EPS is used to avoid division by zero in the normalizers
	EPS = 1e-10
	// PerplexityTol is the entropy tolerance of the perplexity binary search
	PerplexityTol = 1e-5
	// PerplexitySteps is the maximum number of binary search steps per row
	PerplexitySteps = 100
	// NeighborsPerPerplexity is how many neighbors are used per unit of perplexity
	NeighborsPerPerplexity = 3
	// DefaultMaxNeighborsToCheck caps the members compared when joining two sets
	DefaultMaxNeighborsToCheck = 500
	// Unassigned is the cluster index given to noise
	Unassigned = -1
)

var log = logging.MustGetLogger("modisco")
var format = logging.MustStringFormatter(
	`%{color}%{time:15:04:05} %{shortfunc} | %{level:.6s} %{color:reset} %{message}`,
)

// Backend is the default stderr output
var Backend = logging.NewLogBackend(os.Stderr, "", 0)

// BackendFormatter contains the fancy debug formatter
var BackendFormatter = logging.NewBackendFormatter(Backend, format)

// RemoveExt returns the substring minus the extension
func RemoveExt(filename string) string {
	return strings.TrimSuffix(filename, path.Ext(filename))
}

// abs gets the absolute value of an int
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// sign returns -1, 0 or 1
func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// sumAbs gets the sum of absolute values for a float64 slice
func sumAbs(a []float64) float64 {
	ans := 0.0
	for _, x := range a {
		ans += math.Abs(x)
	}
	return ans
}

// Percentage prints a human readable message of the percentage
func Percentage(a, b int) string {
	if b == 0 {
		return fmt.Sprintf("%d of %d", a, b)
	}
	return fmt.Sprintf("%d of %d (%.1f %%)", a, b, float64(a)*100./float64(b))
}

// Make2DSliceFloat64 allocates a 2D float64 matrix with shape (m, n)
func Make2DSliceFloat64(m, n int) [][]float64 {
	P := make([][]float64, m)
	for i := 0; i < m; i++ {
		P[i] = make([]float64, n)
	}
	return P
}

// argsortDesc returns the indices that sort a in descending order, ties by index
func argsortDesc(a []float64) []int {
	idx := make([]int, len(a))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return a[idx[i]] > a[idx[j]]
	})
	return idx
}

// NanToNum replaces NaN entries of m with zeros, in place
func NanToNum(m *mat.Dense) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		for j := 0; j < c; j++ {
			if math.IsNaN(row[j]) {
				row[j] = 0
			}
		}
	}
}

// SubMatrix keeps the rows and columns of a square matrix where mask is true
func SubMatrix(m *mat.Dense, mask []bool) *mat.Dense {
	var keep []int
	for i, ok := range mask {
		if ok {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return nil
	}
	P := mat.NewDense(len(keep), len(keep), nil)
	for a, i := range keep {
		src := m.RawRowView(i)
		dst := P.RawRowView(a)
		for b, j := range keep {
			dst[b] = src[j]
		}
	}
	return P
}

// minEntry returns the smallest entry of m
func minEntry(m *mat.Dense) float64 {
	r, c := m.Dims()
	lo := math.Inf(1)
	for i := 0; i < r; i++ {
		for _, x := range m.RawRowView(i)[:c] {
			if x < lo {
				lo = x
			}
		}
	}
	return lo
}
