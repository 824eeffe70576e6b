/*
 * Filename: neighbors_test.go
 * Path: modisco
 */

package modisco_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tanghaibao/modisco"
	"gonum.org/v1/gonum/mat"
)

func TestExactNeighbors(t *testing.T) {
	aff := mat.NewDense(4, 4, []float64{
		1, 0.2, 0.9, 0.2,
		0.2, 1, 0.1, 0.7,
		0.9, 0.1, 1, 0.3,
		0.2, 0.7, 0.3, 1,
	})
	nbrs, err := modisco.ExactNeighbors{NumWorkers: 2}.Neighbors(aff, 2)
	if err != nil {
		t.Fatal(err)
	}
	expected := [][]int{{2, 1}, {3, 0}, {0, 3}, {1, 2}}
	if !reflect.DeepEqual(nbrs, expected) {
		t.Fatalf("Expected %v, got %v", expected, nbrs)
	}
}

func TestExactNeighborsTooMany(t *testing.T) {
	_, err := modisco.ExactNeighbors{}.Neighbors(mat.NewDense(3, 3, nil), 3)
	if !errors.Is(err, modisco.ErrConfiguration) {
		t.Fatalf("Expected a configuration error, got %v", err)
	}
}

func TestQualityFilter(t *testing.T) {
	coarse := mat.NewDense(3, 4, []float64{
		1, 0.8, 0.1, 0.0,
		0.8, 1, 0.2, 0.1,
		0.1, 0.2, 1, 0.9,
	})
	refined := mat.NewDense(3, 4, []float64{
		0.9, 0.7, 0.0, 0.1, // agrees
		0.1, 0.1, 0.9, 0.9, // disagrees
		0.5, 0.5, 0.5, 0.5, // constant, undefined correlation
	})
	mask, err := modisco.QualityFilter{Threshold: 0.15}.Mask(refined, coarse)
	if err != nil {
		t.Fatal(err)
	}
	expected := []bool{true, false, false}
	if !reflect.DeepEqual(mask, expected) {
		t.Fatalf("Expected %v, got %v", expected, mask)
	}
	if _, err := (modisco.QualityFilter{}).Mask(refined, mat.NewDense(2, 4, nil)); !errors.Is(err, modisco.ErrInvariantViolation) {
		t.Fatalf("Expected an invariant violation, got %v", err)
	}
}

func TestPairwiseRefiner(t *testing.T) {
	_, seqlets := plantedExamples(t, 4, 11)
	refiner := &modisco.PairwiseRefiner{
		Aligner: &modisco.CrossContinJaccardAligner{ComparisonSettings: modisco.ComparisonSettings{
			TrackNames:  testTracks.Contrib,
			Transformer: modisco.L1Normalize,
			MinOverlap:  0.7,
		}},
		NumWorkers: 2,
	}
	nbrs := make([][]int, len(seqlets))
	nbrs[0] = []int{1, 5}
	P, err := refiner.Refine(seqlets, nbrs)
	if err != nil {
		t.Fatal(err)
	}
	if P.At(0, 1) != P.At(1, 0) || P.At(0, 1) == 0 {
		t.Fatalf("Neighbor pair not filled symmetrically: %g, %g", P.At(0, 1), P.At(1, 0))
	}
	if P.At(2, 3) != 0 {
		t.Fatal("Pairs that are not neighbors should stay zero")
	}
	if P.At(0, 1) <= P.At(0, 5) {
		t.Fatalf("Same motif should score above a different motif: %g vs %g", P.At(0, 1), P.At(0, 5))
	}
	for i := range seqlets {
		if P.At(i, i) < 0.99 {
			t.Fatalf("Self similarity of %d is %g", i, P.At(i, i))
		}
	}
	if _, err := refiner.Refine(seqlets, nbrs[:2]); !errors.Is(err, modisco.ErrInvariantViolation) {
		t.Fatalf("Expected an invariant violation, got %v", err)
	}
}
