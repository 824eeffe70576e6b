/*
 * Filename: reassign_test.go
 * Path: modisco
 */

package modisco_test

import (
	"testing"

	"github.com/tanghaibao/modisco"
)

func TestReassign(t *testing.T) {
	nPer := 10
	ts, seqlets := plantedExamples(t, nPer, 11)
	pl := newTestPipeline(t, ts)
	patterns := []*modisco.Pattern{
		aggregate(t, pl, seqlets[:6]),
		aggregate(t, pl, seqlets[nPer:nPer+6]),
		aggregate(t, pl, seqlets[6:8]), // too small, dissolved
	}
	free := append(append([]*modisco.Seqlet(nil), seqlets[8:nPer]...), seqlets[nPer+6:]...)

	ra, err := pl.Reassigner.Reassign(patterns, free)
	if err != nil {
		t.Fatal(err)
	}
	if len(ra.Reassigned) != 2 || len(ra.Final) != 2 {
		t.Fatalf("Expected 2 patterns, got %d reassigned and %d final", len(ra.Reassigned), len(ra.Final))
	}
	total := len(ra.Unassigned)
	for k, p := range ra.Reassigned {
		c := classes(p, nPer)
		if len(c) != 1 || c[k] == 0 {
			t.Fatalf("Pattern %d holds classes %v", k, c)
		}
		total += p.NumSeqlets()
	}
	if total != 2*nPer {
		t.Fatalf("Lost seqlets: %d of %d accounted for", total, 2*nPer)
	}
	cfg := smallConfig()
	for k, p := range ra.Final {
		if want := ra.Reassigned[k].Len() + 2*cfg.FinalFlankToAdd; p.Len() != want {
			t.Fatalf("Final pattern %d has length %d, expected %d", k, p.Len(), want)
		}
	}
}

func TestReassignNoLargePattern(t *testing.T) {
	ts, seqlets := plantedExamples(t, 4, 11)
	pl := newTestPipeline(t, ts)
	small := aggregate(t, pl, seqlets[:3])
	ra, err := pl.Reassigner.Reassign([]*modisco.Pattern{small}, seqlets[3:4])
	if err != nil {
		t.Fatal(err)
	}
	if len(ra.Final) != 0 || len(ra.Unassigned) != 4 {
		t.Fatalf("Expected every seqlet unassigned, got %d patterns and %d seqlets",
			len(ra.Final), len(ra.Unassigned))
	}
}
