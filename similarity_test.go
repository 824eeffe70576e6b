/*
 * Filename: similarity_test.go
 * Path: modisco
 */

package modisco_test

import (
	"math"
	"testing"

	"github.com/tanghaibao/modisco"
)

func jaccardAligner(minOverlap float64) *modisco.CrossContinJaccardAligner {
	return &modisco.CrossContinJaccardAligner{ComparisonSettings: modisco.ComparisonSettings{
		TrackNames:  []string{"x"},
		Transformer: modisco.L1Normalize,
		MinOverlap:  minOverlap,
	}}
}

func TestContinJaccardIdentical(t *testing.T) {
	a := profileSeqlet(t, 0, map[string][]float64{"x": spikes(10, [2]int{2, 0}, [2]int{7, 1})})
	al := modisco.Align(jaccardAligner(0.5), a, a)
	if math.Abs(al.Score-1) > 1e-9 || al.Offset != 0 || al.RevComp {
		t.Fatalf("Expected a perfect forward match at offset 0, got %+v", al)
	}
}

func TestContinJaccardShift(t *testing.T) {
	a := profileSeqlet(t, 0, map[string][]float64{"x": spikes(10, [2]int{5, 0})})
	b := profileSeqlet(t, 1, map[string][]float64{"x": spikes(10, [2]int{3, 0})})
	al := modisco.Align(jaccardAligner(0.5), a, b)
	if al.Offset != 2 || al.RevComp {
		t.Fatalf("Expected offset 2 on the forward strand, got %+v", al)
	}
	if math.Abs(al.Score-1) > 1e-9 {
		t.Fatalf("Expected score 1, got %g", al.Score)
	}
}

func TestContinJaccardRevComp(t *testing.T) {
	a := profileSeqlet(t, 0, map[string][]float64{"x": spikes(10, [2]int{2, 0}, [2]int{7, 1})})
	al := modisco.Align(jaccardAligner(0.5), a, a.RevComp())
	if !al.RevComp || al.Offset != 0 || math.Abs(al.Score-1) > 1e-9 {
		t.Fatalf("Expected a perfect reverse complement match, got %+v", al)
	}
}

func TestContinJaccardAnticorrelated(t *testing.T) {
	v := spikes(10, [2]int{4, 2})
	neg := make([]float64, len(v))
	for i, x := range v {
		neg[i] = -x
	}
	a := profileSeqlet(t, 0, map[string][]float64{"x": v})
	b := profileSeqlet(t, 1, map[string][]float64{"x": neg})
	al := jaccardAligner(0.5)
	got := al.ScoreAt(al.Profile(a), al.Profile(b), 0, false)
	if math.Abs(got+1) > 1e-9 {
		t.Fatalf("Expected -1 for opposite signs, got %g", got)
	}
}

func TestMinOverlapBoundsOffsets(t *testing.T) {
	a := profileSeqlet(t, 0, map[string][]float64{"x": spikes(10, [2]int{0, 0})})
	b := profileSeqlet(t, 1, map[string][]float64{"x": spikes(4, [2]int{3, 0})})
	al := modisco.Align(jaccardAligner(1), a, b)
	if !al.Valid() {
		t.Fatal("Expected a valid alignment")
	}
	if al.Offset < 0 || al.Offset > 6 {
		t.Fatalf("Offset %d lets the short seqlet hang off", al.Offset)
	}
}

func TestCrossCorrelationNormalized(t *testing.T) {
	al := &modisco.CrossCorrelationAligner{ComparisonSettings: modisco.ComparisonSettings{
		TrackNames:  []string{"x", "y"},
		Transformer: modisco.ChainTransformers(modisco.MeanNormalize, modisco.MagnitudeNormalize),
		MinOverlap:  0.7,
	}}
	a := profileSeqlet(t, 0, map[string][]float64{
		"x": spikes(8, [2]int{1, 0}, [2]int{2, 3}),
		"y": spikes(8, [2]int{5, 2}),
	})
	got := modisco.Align(al, a, a)
	if math.Abs(got.Score-2) > 1e-9 {
		t.Fatalf("Expected self similarity equal to the number of tracks, got %g", got.Score)
	}
}
