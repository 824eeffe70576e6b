/*
 * Filename: normalize.go
 * Path: modisco
 */

package modisco

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// TrackTransformer normalizes one track window before comparison. The input
// is never modified.
type TrackTransformer func([]float64) []float64

// IdentityNormalize returns a copy
func IdentityNormalize(a []float64) []float64 {
	return append([]float64(nil), a...)
}

// L1Normalize scales a so that its absolute values sum to one
func L1Normalize(a []float64) []float64 {
	ans := append([]float64(nil), a...)
	total := sumAbs(ans)
	if total < EPS {
		return ans
	}
	floats.Scale(1/total, ans)
	return ans
}

// MeanNormalize subtracts the mean
func MeanNormalize(a []float64) []float64 {
	ans := append([]float64(nil), a...)
	if len(ans) == 0 {
		return ans
	}
	floats.AddConst(-floats.Sum(ans)/float64(len(ans)), ans)
	return ans
}

// MagnitudeNormalize scales a to unit L2 norm
func MagnitudeNormalize(a []float64) []float64 {
	ans := append([]float64(nil), a...)
	norm := floats.Norm(ans, 2)
	if norm < EPS || math.IsNaN(norm) {
		return ans
	}
	floats.Scale(1/norm, ans)
	return ans
}

// ChainTransformers applies the transformers in order
func ChainTransformers(fs ...TrackTransformer) TrackTransformer {
	return func(a []float64) []float64 {
		ans := a
		for _, f := range fs {
			ans = f(ans)
		}
		if len(fs) == 0 {
			ans = IdentityNormalize(a)
		}
		return ans
	}
}
