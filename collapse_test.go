/*
 * Filename: collapse_test.go
 * Path: modisco
 */

package modisco_test

import (
	"math"
	"testing"

	"github.com/tanghaibao/modisco"
)

func TestCollapseKeepsDistinctMotifs(t *testing.T) {
	nPer := 10
	ts, seqlets := plantedExamples(t, nPer, 7)
	pl := newTestPipeline(t, ts)
	patterns := []*modisco.Pattern{
		aggregate(t, pl, seqlets[:nPer]),
		aggregate(t, pl, seqlets[nPer:]),
	}
	merged, hierarchy, err := pl.Collapser.Collapse(patterns, seqlets)
	if err != nil {
		t.Fatal(err)
	}
	if len(merged) != 2 {
		t.Fatalf("Expected 2 patterns, got %d", len(merged))
	}
	if n := hierarchy.NumMerges(); n != 0 {
		t.Fatalf("Expected no merges, got %d", n)
	}
}

func TestCollapseMergesDuplicates(t *testing.T) {
	nPer := 10
	ts, seqlets := plantedExamples(t, nPer, 7)
	pl := newTestPipeline(t, ts)
	merged, hierarchy, err := pl.Collapser.Collapse(duplicates(t, pl, seqlets, nPer), seqlets)
	if err != nil {
		t.Fatal(err)
	}
	if len(merged) != 2 {
		t.Fatalf("Expected the two halves of motif 0 to merge, got %d patterns", len(merged))
	}
	if n := hierarchy.NumMerges(); n != 1 {
		t.Fatalf("Expected a single merge, got %d", n)
	}
	if len(hierarchy.Initial) != 3 {
		t.Fatalf("Hierarchy should start from 3 patterns, got %d", len(hierarchy.Initial))
	}
	total := 0
	for _, p := range merged {
		if c := classes(p, nPer); len(c) != 1 {
			t.Fatalf("Merged pattern mixes classes %v", c)
		}
		total += p.NumSeqlets()
	}
	if total != 2*nPer {
		t.Fatalf("Expected %d seqlets after merging, got %d", 2*nPer, total)
	}
}

func TestCollapseSingle(t *testing.T) {
	ts, seqlets := plantedExamples(t, 6, 7)
	pl := newTestPipeline(t, ts)
	p := aggregate(t, pl, seqlets[:6])
	merged, hierarchy, err := pl.Collapser.Collapse([]*modisco.Pattern{p}, seqlets)
	if err != nil {
		t.Fatal(err)
	}
	if len(merged) != 1 || hierarchy.NumMerges() != 0 {
		t.Fatal("A single pattern has nothing to merge with")
	}
}

// duplicates splits motif 0 into two patterns next to one motif 1 pattern
func duplicates(t *testing.T, pl *modisco.SeqletsToPatterns, seqlets []*modisco.Seqlet, nPer int) []*modisco.Pattern {
	return []*modisco.Pattern{
		aggregate(t, pl, seqlets[:5]),
		aggregate(t, pl, seqlets[nPer:]),
		aggregate(t, pl, seqlets[5:nPer]),
	}
}

func TestCollapseStricterLadderMergesLess(t *testing.T) {
	nPer := 10
	ts, seqlets := plantedExamples(t, nPer, 7)
	pl := newTestPipeline(t, ts)
	base := pl.Collapser.MergeThresholds
	prev := -1
	for step := 0; step <= 4; step++ {
		ladder := make([]modisco.ProbSimThreshold, len(base))
		for i, rung := range base {
			ladder[i] = modisco.ProbSimThreshold{
				Prob: rung.Prob * math.Pow(10, float64(step)),
				Sim:  rung.Sim + 0.05*float64(step),
			}
		}
		pl.Collapser.MergeThresholds = ladder
		_, hierarchy, err := pl.Collapser.Collapse(duplicates(t, pl, seqlets, nPer), seqlets)
		if err != nil {
			t.Fatal(err)
		}
		n := hierarchy.NumMerges()
		if step == 0 && n != 1 {
			t.Fatalf("Expected a single merge with the default ladder, got %d", n)
		}
		if prev >= 0 && n > prev {
			t.Fatalf("Raising the ladder by %d steps gave %d merges, up from %d", step, n, prev)
		}
		prev = n
	}

	pl.Collapser.MergeThresholds = []modisco.ProbSimThreshold{{Prob: 0, Sim: 1e9}}
	merged, hierarchy, err := pl.Collapser.Collapse(duplicates(t, pl, seqlets, nPer), seqlets)
	if err != nil {
		t.Fatal(err)
	}
	if hierarchy.NumMerges() != 0 || len(merged) != 3 {
		t.Fatalf("An unreachable ladder still merged %d times", hierarchy.NumMerges())
	}
}

func TestCollapseDealbreakerVeto(t *testing.T) {
	nPer := 10
	ts, seqlets := plantedExamples(t, nPer, 7)
	pl := newTestPipeline(t, ts)
	// every pair falls under this rung
	pl.Collapser.DealbreakerThresholds = []modisco.ProbSimThreshold{{Prob: 1.1, Sim: 1e9}}
	merged, hierarchy, err := pl.Collapser.Collapse(duplicates(t, pl, seqlets, nPer), seqlets)
	if err != nil {
		t.Fatal(err)
	}
	if n := hierarchy.NumMerges(); n != 0 {
		t.Fatalf("Dealbreaker should veto every merge, got %d", n)
	}
	if len(merged) != 3 {
		t.Fatalf("Expected the 3 patterns to survive, got %d", len(merged))
	}
}
