/*
 * Filename: transform.go
 * Path: modisco
 */

package modisco

import "gonum.org/v1/gonum/mat"

// MatrixTransform maps an affinity matrix to a new one without touching
// its input
type MatrixTransform func(*mat.Dense) (*mat.Dense, error)

// ChainTransforms composes transforms left to right. Each intermediate matrix
// is dropped as soon as the next one is ready.
func ChainTransforms(fs ...MatrixTransform) MatrixTransform {
	return func(m *mat.Dense) (*mat.Dense, error) {
		cur := m
		for _, f := range fs {
			if f == nil {
				continue
			}
			next, err := f(cur)
			if err != nil {
				return nil, err
			}
			cur = next
		}
		return cur, nil
	}
}
