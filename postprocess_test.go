/*
 * Filename: postprocess_test.go
 * Path: modisco
 */

package modisco_test

import (
	"testing"

	"github.com/tanghaibao/modisco"
)

// staggered places the seqlets of examples 0 and 1 two positions apart
func staggered(t *testing.T, ts *modisco.TrackSet) *modisco.Pattern {
	p := modisco.NewPattern(cut(t, ts, 0, 30, 40, false))
	p.Add(cut(t, ts, 1, 30, 40, false), modisco.Alignment{Offset: 2})
	return p
}

func TestTrimToFracSupport(t *testing.T) {
	ts, _ := plantedExamples(t, 2, 1)
	ps, err := modisco.TrimToFracSupport{MinFrac: 0.6, MinNum: 1}.Process([]*modisco.Pattern{staggered(t, ts)})
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 1 || ps[0].Len() != 8 {
		t.Fatalf("Expected one pattern of length 8, got %d", len(ps))
	}
	for _, n := range ps[0].Support() {
		if n != 2 {
			t.Fatalf("Support after trimming is %v", ps[0].Support())
		}
	}
}

func TestExpandSeqletsToFillPattern(t *testing.T) {
	ts, _ := plantedExamples(t, 2, 1)
	ps, err := modisco.ExpandSeqletsToFillPattern{TrackSet: ts, Flank: 1}.Process([]*modisco.Pattern{staggered(t, ts)})
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 1 {
		t.Fatalf("Expected one pattern, got %d", len(ps))
	}
	p := ps[0]
	if p.Len() != 14 || p.NumSeqlets() != 2 {
		t.Fatalf("Expected 2 seqlets over 14 positions, got %d over %d", p.NumSeqlets(), p.Len())
	}
	expected := []modisco.Coordinate{
		{ExampleIdx: 0, Start: 29, End: 43},
		{ExampleIdx: 1, Start: 27, End: 41},
	}
	for i, a := range p.Aligned() {
		if a.Offset != 0 || a.Seqlet.Coordinate != expected[i] {
			t.Fatalf("Seqlet %d expanded to %s at offset %d", i, a.Seqlet, a.Offset)
		}
	}
}

func TestExpandDropsSeqletsAtTheEdge(t *testing.T) {
	ts, _ := plantedExamples(t, 2, 1)
	p := modisco.NewPattern(cut(t, ts, 0, 0, 10, false))
	ps, err := modisco.ExpandSeqletsToFillPattern{TrackSet: ts, Flank: 2}.Process([]*modisco.Pattern{p})
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 0 {
		t.Fatalf("Expected the pattern to vanish, got %d", len(ps))
	}

	rc := modisco.NewPattern(cut(t, ts, 0, 70, 80, true))
	if _, err := (modisco.ExpandSeqletsToFillPattern{TrackSet: ts, Flank: 2}).Process([]*modisco.Pattern{rc}); err != nil {
		t.Fatal(err)
	}
}

func TestTrimToBestWindow(t *testing.T) {
	ts, seqlets := plantedExamples(t, 2, 1)
	p := modisco.NewPattern(seqlets[0])
	ps, err := modisco.TrimToBestWindow{WindowSize: 8, TrackNames: testTracks.Contrib}.Process([]*modisco.Pattern{p})
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 1 {
		t.Fatalf("Expected one pattern, got %d", len(ps))
	}
	s := ps[0].Seqlets()[0]
	if s.Start != motifStart || s.End != motifStart+8 {
		t.Fatalf("Expected the window on the motif, got %s", s)
	}

	short := modisco.NewPattern(cut(t, ts, 1, 30, 36, false))
	ps, _ = modisco.TrimToBestWindow{WindowSize: 8, TrackNames: testTracks.Contrib}.Process([]*modisco.Pattern{short})
	if len(ps) != 1 || ps[0].Len() != 6 {
		t.Fatal("Patterns shorter than the window should be left alone")
	}
}

func TestPostprocessorChain(t *testing.T) {
	ts, seqlets := plantedExamples(t, 2, 1)
	cfg := smallConfig()
	chain := modisco.NewPostprocessor(ts, cfg, testTracks.Contrib)
	ps, err := chain.Process([]*modisco.Pattern{modisco.NewPattern(seqlets[0])})
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 1 {
		t.Fatalf("Expected one pattern, got %d", len(ps))
	}
	want := cfg.TrimToWindowSize + 2*cfg.InitialFlankToAdd
	if ps[0].Len() != want {
		t.Fatalf("Expected length %d, got %d", want, ps[0].Len())
	}
}
