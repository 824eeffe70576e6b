/*
 * Filename: spurious_test.go
 * Path: modisco
 */

package modisco_test

import (
	"testing"

	"github.com/tanghaibao/modisco"
)

func TestSpuriousMergeSplit(t *testing.T) {
	nPer := 8
	ts, seqlets := plantedExamples(t, nPer, 5)
	pl := newTestPipeline(t, ts)
	var aligned []modisco.AlignedSeqlet
	for _, s := range seqlets {
		aligned = append(aligned, modisco.AlignedSeqlet{Seqlet: s})
	}
	mixed := modisco.FromAligned(aligned)

	ps, err := pl.Spurious.Detect([]*modisco.Pattern{mixed})
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 2 {
		t.Fatalf("Expected the mixture to split in 2, got %d", len(ps))
	}
	for _, p := range ps {
		if c := classes(p, nPer); len(c) != 1 {
			t.Fatalf("Split pattern still mixes classes %v", c)
		}
	}
}

func TestSpuriousMergeKeepsPurePatterns(t *testing.T) {
	nPer := 12
	ts, seqlets := plantedExamples(t, nPer, 5)
	pl := newTestPipeline(t, ts)
	pure := []*modisco.Pattern{
		aggregate(t, pl, seqlets[:nPer]),
		aggregate(t, pl, seqlets[nPer:]),
	}
	ps, err := pl.Spurious.Detect(pure)
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 2 || ps[0] != pure[0] || ps[1] != pure[1] {
		t.Fatalf("Pure patterns should come back untouched, got %d patterns", len(ps))
	}
}

func TestSpuriousMergeEmpty(t *testing.T) {
	ts, _ := plantedExamples(t, 2, 5)
	ps, err := newTestPipeline(t, ts).Spurious.Detect(nil)
	if ps != nil || err != nil {
		t.Fatal("Expected nothing from no patterns")
	}
}
