/*
 * Filename: affinity_test.go
 * Path: modisco
 */

package modisco_test

import (
	"errors"
	"testing"

	"github.com/tanghaibao/modisco"
)

func testEmbedder() *modisco.GappedKmerEmbedder {
	return &modisco.GappedKmerEmbedder{
		AlphabetSize:  4,
		KmerLen:       6,
		NumGaps:       2,
		NumMismatches: 1,
		BatchSize:     3,
		OnehotTrack:   testTracks.Onehot,
		ScoreTracks:   testTracks.Hypothetical,
		Signs:         testTracks.Signs,
	}
}

func TestGappedKmerGeometry(t *testing.T) {
	emb := testEmbedder()
	if err := emb.Validate(); err != nil {
		t.Fatal(err)
	}
	// 2 gaps among 4 interior positions, 4 kept bases
	if n := len(emb.Templates()); n != 6 {
		t.Fatalf("Expected 6 templates, got %d", n)
	}
	if emb.Dim() != 6*256 {
		t.Fatalf("Expected dimension %d, got %d", 6*256, emb.Dim())
	}
	bad := testEmbedder()
	bad.NumGaps = 5
	if err := bad.Validate(); !errors.Is(err, modisco.ErrConfiguration) {
		t.Fatalf("Expected a configuration error, got %v", err)
	}
}

func TestEmbedPreservesOrder(t *testing.T) {
	_, seqlets := plantedExamples(t, 4, 5)
	emb := testEmbedder()
	all, err := emb.Embed(seqlets)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(seqlets) {
		t.Fatalf("Expected %d embeddings, got %d", len(seqlets), len(all))
	}
	one, _ := emb.Embed(seqlets[5:6])
	if len(one[0].Fwd.Idx) != len(all[5].Fwd.Idx) || one[0].Fwd.Sum != all[5].Fwd.Sum {
		t.Fatal("Batching changed an embedding")
	}
}

func TestCoarseAffinity(t *testing.T) {
	nPer := 6
	_, seqlets := plantedExamples(t, nPer, 5)
	ac := &modisco.AffinityComputer{Embedder: testEmbedder(), NumWorkers: 2}
	P, err := ac.Compute(seqlets)
	if err != nil {
		t.Fatal(err)
	}
	N := len(seqlets)
	within, across := 0.0, 0.0
	nWithin, nAcross := 0, 0
	for i := 0; i < N; i++ {
		if P.At(i, i) < 1-1e-6 {
			t.Fatalf("Self affinity of %d is %g", i, P.At(i, i))
		}
		for j := 0; j < N; j++ {
			if i == j {
				continue
			}
			if motifOf(seqlets[i], nPer) == motifOf(seqlets[j], nPer) {
				within += P.At(i, j)
				nWithin++
			} else {
				across += P.At(i, j)
				nAcross++
			}
		}
	}
	within /= float64(nWithin)
	across /= float64(nAcross)
	if within <= across+0.2 {
		t.Fatalf("Expected same motif affinity %g well above %g", within, across)
	}
	if _, err := ac.Compute(nil); !errors.Is(err, modisco.ErrEmptyInput) {
		t.Fatalf("Expected an empty input error, got %v", err)
	}
}
