/*
 * Filename: store_test.go
 * Path: modisco
 */

package modisco_test

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/tanghaibao/modisco"
)

func testResults(t *testing.T) (*modisco.TrackSet, *modisco.SeqletsToPatternsResults) {
	ts, seqlets := plantedExamples(t, 2, 1)
	p := modisco.NewPattern(cut(t, ts, 0, 30, 40, false))
	p.Add(cut(t, ts, 1, 30, 40, false), modisco.Alignment{Offset: 2})
	p.Add(cut(t, ts, 2, 32, 44, false), modisco.Alignment{Offset: 1, RevComp: true})
	return ts, &modisco.SeqletsToPatternsResults{
		Success:        true,
		State:          modisco.Done,
		Patterns:       []*modisco.Pattern{p},
		MergedPatterns: []*modisco.Pattern{p},
		ClusterResults: &modisco.ClusterResults{Indices: []int{0, 0, 1, modisco.Unassigned}},
		Seqlets:        seqlets,
		TotalTime:      1500 * time.Millisecond,
	}
}

func TestResultsStoreRoundTrip(t *testing.T) {
	store, err := modisco.OpenResultsStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()
	ts, res := testResults(t)
	cfg := smallConfig()

	id, err := store.SaveResults(ctx, "planted", res, cfg)
	if err != nil {
		t.Fatal(err)
	}
	run, err := store.LoadResults(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if run.Name != "planted" || !run.Success || run.State != "DONE" || run.TotalTime != res.TotalTime {
		t.Fatalf("Unexpected run summary %+v", run.RunSummary)
	}
	if loaded, err := modisco.ParseConfig([]byte(run.Config)); err != nil || !reflect.DeepEqual(loaded, cfg) {
		t.Fatalf("Stored config does not parse back: %v", err)
	}
	if len(run.Patterns) != 2 || run.Patterns[0].Stage != modisco.StageFinal || run.Patterns[1].Stage != modisco.StageMerged {
		t.Fatalf("Expected a final and a merged pattern, got %d", len(run.Patterns))
	}

	p := res.Patterns[0]
	stored := run.Patterns[0]
	if stored.Length != p.Len() || len(stored.Seqlets) != p.NumSeqlets() {
		t.Fatalf("Stored pattern has length %d and %d seqlets", stored.Length, len(stored.Seqlets))
	}
	for _, name := range p.TrackNames() {
		if !closeSlices(stored.Tracks[name].Fwd, p.Track(name).Fwd) {
			t.Fatalf("Track %s changed in storage", name)
		}
	}
	rebuilt, err := stored.Rebuild(ts)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(offsets(rebuilt), offsets(p)) || rebuilt.Len() != p.Len() {
		t.Fatalf("Rebuilt offsets %v, expected %v", offsets(rebuilt), offsets(p))
	}
	for _, name := range p.TrackNames() {
		if !closeSlices(rebuilt.Track(name).Fwd, p.Track(name).Fwd) {
			t.Fatalf("Rebuilt track %s differs", name)
		}
	}

	if len(run.Clusters) != len(res.Seqlets) {
		t.Fatalf("Expected %d cluster assignments, got %d", len(res.Seqlets), len(run.Clusters))
	}
	for i, a := range run.Clusters {
		if a.Coordinate != res.Seqlets[i].Coordinate || a.Cluster != res.ClusterResults.Indices[i] {
			t.Fatalf("Assignment %d is %+v", i, a)
		}
	}
}

func TestResultsStoreListRuns(t *testing.T) {
	store, err := modisco.OpenResultsStore(filepath.Join(t.TempDir(), "db", "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()
	_, res := testResults(t)
	failed := &modisco.SeqletsToPatternsResults{State: modisco.Failed}

	first, err := store.SaveResults(ctx, "first", res, smallConfig())
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.SaveResults(ctx, "second", failed, smallConfig())
	if err != nil {
		t.Fatal(err)
	}
	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != second || runs[1].ID != first {
		t.Fatalf("Expected the newest run first, got %+v", runs)
	}
	if runs[0].Success || runs[0].State != "FAILED" {
		t.Fatalf("Failed run stored as %+v", runs[0])
	}
	run, err := store.LoadResults(ctx, second)
	if err != nil {
		t.Fatal(err)
	}
	if len(run.Patterns) != 0 || len(run.Clusters) != 0 {
		t.Fatal("A failed run has no patterns")
	}
	if _, err := store.LoadResults(ctx, second+1); err == nil {
		t.Fatal("Expected an error for a missing run")
	}
}
