/*
 * Filename: seqlet_test.go
 * Path: modisco
 */

package modisco_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tanghaibao/modisco"
)

func TestCreateSeqletRevComp(t *testing.T) {
	ts, _ := plantedExamples(t, 2, 1)
	fwd := cut(t, ts, 0, 30, 40, false)
	rev := cut(t, ts, 0, 30, 40, true)
	for _, name := range ts.TrackNames() {
		if !closeSlices(rev.Track(name).Fwd, fwd.Track(name).Rev) {
			t.Fatalf("Track %s is not reverse complemented", name)
		}
	}
	if back := rev.RevComp(); back.Coordinate != fwd.Coordinate {
		t.Fatalf("Double reverse complement moved the seqlet to %+v", back.Coordinate)
	}
}

func TestSeqletTrim(t *testing.T) {
	ts, _ := plantedExamples(t, 2, 1)
	fwd := cut(t, ts, 0, 30, 40, false).Trim(2, 5)
	if fwd.Start != 32 || fwd.End != 35 {
		t.Fatalf("Forward trim gave %s", fwd)
	}
	rev := cut(t, ts, 0, 30, 40, true).Trim(0, 3)
	if rev.Start != 37 || rev.End != 40 || !rev.Coordinate.RevComp {
		t.Fatalf("Reverse trim gave %+v", rev.Coordinate)
	}
	direct := cut(t, ts, 0, 37, 40, true)
	for _, name := range ts.TrackNames() {
		if !closeSlices(rev.Track(name).Fwd, direct.Track(name).Fwd) {
			t.Fatalf("Trimmed track %s differs from a direct cut", name)
		}
	}
}

func TestSeqletExpand(t *testing.T) {
	ts, _ := plantedExamples(t, 2, 1)
	fwd, err := cut(t, ts, 1, 30, 40, false).Expand(ts, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if fwd.Start != 28 || fwd.End != 43 {
		t.Fatalf("Forward expand gave %s", fwd)
	}
	rev, err := cut(t, ts, 1, 30, 40, true).Expand(ts, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if rev.Start != 27 || rev.End != 42 {
		t.Fatalf("Reverse expand gave %s", rev)
	}
	shrunk, err := cut(t, ts, 1, 30, 40, false).Expand(ts, -2, -3)
	if err != nil || shrunk.Start != 32 || shrunk.End != 37 {
		t.Fatalf("Negative expand gave %v, %v", shrunk, err)
	}
	if _, err := cut(t, ts, 1, 0, 10, false).Expand(ts, 1, 0); !errors.Is(err, modisco.ErrConfiguration) {
		t.Fatalf("Expected an error past the example start, got %v", err)
	}
}

func TestDedupAndSortSeqlets(t *testing.T) {
	ts, seqlets := plantedExamples(t, 2, 1)
	dup := append(append([]*modisco.Seqlet(nil), seqlets...), cut(t, ts, 2, seqletStart, seqletEnd, true))
	if got := modisco.DedupSeqlets(dup); len(got) != len(seqlets) {
		t.Fatalf("Expected %d seqlets after dedup, got %d", len(seqlets), len(got))
	}

	short := cut(t, ts, 3, 0, 5, false)
	sorted := append([]*modisco.Seqlet{short}, seqlets...)
	modisco.SortSeqlets(sorted, testTracks.Contrib)
	if sorted[len(sorted)-1] != short {
		t.Fatal("Faint seqlet should sort last")
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].TotalAbs(testTracks.Contrib) > sorted[i-1].TotalAbs(testTracks.Contrib) {
			t.Fatal("Seqlets not sorted by total signal")
		}
	}
}

func TestCoordinatesRoundTrip(t *testing.T) {
	ts, seqlets := plantedExamples(t, 2, 1)
	seqlets = append(seqlets, cut(t, ts, 1, 5, 25, true))
	filename := filepath.Join(t.TempDir(), "seqlets.tsv.gz")
	if err := modisco.WriteCoordinates(filename, seqlets); err != nil {
		t.Fatal(err)
	}
	coords, err := modisco.ReadCoordinates(filename)
	if err != nil {
		t.Fatal(err)
	}
	var expected []modisco.Coordinate
	for _, s := range seqlets {
		expected = append(expected, s.Coordinate)
	}
	if !reflect.DeepEqual(coords, expected) {
		t.Fatalf("Expected %v, got %v", expected, coords)
	}
}

func TestReadCoordinates(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.tsv")
	os.WriteFile(good, []byte("# example start end strand\n0\t10\t30\n\n2 5 25 -\n"), 0644)
	coords, err := modisco.ReadCoordinates(good)
	if err != nil {
		t.Fatal(err)
	}
	expected := []modisco.Coordinate{
		{ExampleIdx: 0, Start: 10, End: 30},
		{ExampleIdx: 2, Start: 5, End: 25, RevComp: true},
	}
	if !reflect.DeepEqual(coords, expected) {
		t.Fatalf("Expected %v, got %v", expected, coords)
	}

	for _, text := range []string{"0\t10\n", "0\tten\t30\n"} {
		bad := filepath.Join(dir, "bad.tsv")
		os.WriteFile(bad, []byte(text), 0644)
		if _, err := modisco.ReadCoordinates(bad); !errors.Is(err, modisco.ErrConfiguration) {
			t.Fatalf("Expected a configuration error for %q, got %v", text, err)
		}
	}
}
