/*
 * Filename: fixture_test.go
 * Path: modisco
 */

package modisco_test

import (
	"testing"
	"time"

	"github.com/tanghaibao/modisco"
	"golang.org/x/exp/rand"
)

const (
	exampleLen  = 80
	motifStart  = 35
	seqletStart = 30
	seqletEnd   = 50
)

// motifs planted in the two classes of synthetic examples, neither is the
// reverse complement of the other
var motifs = []string{"GATTACAG", "CCTTGGAA"}

var testTracks = modisco.TrackSpec{
	Onehot:       "sequence",
	Contrib:      []string{"task0"},
	Hypothetical: []string{"task0_hypothetical"},
	Signs:        []float64{1},
}

// plantedExamples builds nPer examples per motif. Contribution is high on
// the motif and faint elsewhere. Example k*nPer+i carries motifs[k].
func plantedExamples(t *testing.T, nPer int, seed int64) (*modisco.TrackSet, []*modisco.Seqlet) {
	return plantedSignedExamples(t, nPer, seed, []float64{1, 1})
}

// plantedSignedExamples is plantedExamples with the scores of class k
// multiplied by signs[k]
func plantedSignedExamples(t *testing.T, nPer int, seed int64, signs []float64) (*modisco.TrackSet, []*modisco.Seqlet) {
	rng := rand.New(rand.NewSource(uint64(seed)))
	var onehot, contrib, hyp []*modisco.Track
	var coords []modisco.Coordinate
	for k, motif := range motifs {
		for i := 0; i < nPer; i++ {
			seq := make([]byte, exampleLen)
			for p := range seq {
				seq[p] = modisco.Alphabet[rng.Intn(4)]
			}
			copy(seq[motifStart:], motif)
			oh := modisco.Onehot(seq)
			scores := make([]float64, len(oh))
			for p := 0; p < exampleLen; p++ {
				score := 0.05 * rng.Float64()
				if p >= motifStart && p < motifStart+len(motif) {
					score = 1 + 0.1*rng.Float64()
				}
				for c := 0; c < 4; c++ {
					scores[p*4+c] = oh[p*4+c] * score * signs[k]
				}
			}
			onehot = append(onehot, mustTrack(t, testTracks.Onehot, oh))
			contrib = append(contrib, mustTrack(t, testTracks.Contrib[0], scores))
			hyp = append(hyp, mustTrack(t, testTracks.Hypothetical[0], append([]float64(nil), scores...)))
			coords = append(coords, modisco.Coordinate{
				ExampleIdx: k*nPer + i, Start: seqletStart, End: seqletEnd,
			})
		}
	}
	ts := modisco.NewTrackSet()
	for _, tr := range []struct {
		name   string
		tracks []*modisco.Track
	}{
		{testTracks.Onehot, onehot},
		{testTracks.Contrib[0], contrib},
		{testTracks.Hypothetical[0], hyp},
	} {
		if err := ts.AddTrack(tr.name, tr.tracks); err != nil {
			t.Fatal(err)
		}
	}
	seqlets, err := ts.CreateSeqlets(coords)
	if err != nil {
		t.Fatal(err)
	}
	return ts, seqlets
}

func mustTrack(t *testing.T, name string, fwd []float64) *modisco.Track {
	tr, err := modisco.NewTrack(name, fwd, 4)
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

// smallConfig scales the defaults down to a few dozen seqlets
func smallConfig() *modisco.Config {
	cfg := modisco.DefaultConfig()
	cfg.NumCores = 2
	cfg.KmerLen = 6
	cfg.NumGaps = 2
	cfg.NumMismatches = 1
	cfg.NearestNeighborsToCompute = 20
	cfg.TsnePerplexity = 5
	round := modisco.RoundConfig{
		MembershipRuns: []modisco.LouvainRun{{Runs: 4, Level: -1}},
		ContinRuns:     2,
	}
	cfg.Rounds = []modisco.RoundConfig{round, round}
	cfg.LouvainMinClusterSize = 3
	cfg.LouvainTimeLimit = 30 * time.Second
	cfg.MinNumToTrimTo = 5
	cfg.TrimToWindowSize = 12
	cfg.InitialFlankToAdd = 4
	cfg.FinalFlankToAdd = 4
	cfg.FinalMinClusterSize = 5
	cfg.SpuriousMergeContinRuns = 2
	return cfg
}

// motifOf tells which planted class an example belongs to
func motifOf(s *modisco.Seqlet, nPer int) int {
	return s.ExampleIdx / nPer
}

// profileSeqlet builds a seqlet directly from values, width 4
func profileSeqlet(t *testing.T, ex int, values map[string][]float64) *modisco.Seqlet {
	tracks := map[string]*modisco.Track{}
	L := 0
	for name, v := range values {
		tracks[name] = mustTrack(t, name, v)
		L = len(v) / 4
	}
	s, err := modisco.NewSeqlet(modisco.Coordinate{ExampleIdx: ex, Start: 0, End: L}, tracks)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// spikes returns a length L, width 4 track with value 1 at each (position,
// channel) pair
func spikes(L int, at ...[2]int) []float64 {
	v := make([]float64, L*4)
	for _, pc := range at {
		v[pc[0]*4+pc[1]] = 1
	}
	return v
}

func newTestPipeline(t *testing.T, ts *modisco.TrackSet) *modisco.SeqletsToPatterns {
	pl, err := modisco.NewSeqletsToPatterns(smallConfig(), ts, testTracks)
	if err != nil {
		t.Fatal(err)
	}
	return pl
}

// aggregate builds a pattern out of seqlets with the pipeline aggregator
func aggregate(t *testing.T, pl *modisco.SeqletsToPatterns, seqlets []*modisco.Seqlet) *modisco.Pattern {
	p, err := pl.Aggregator.Aggregate(seqlets)
	if err != nil {
		t.Fatal(err)
	}
	if p == nil {
		t.Fatal("Aggregation left no pattern")
	}
	return p
}

// classes lists the planted classes found among the seqlets of p
func classes(p *modisco.Pattern, nPer int) map[int]int {
	ans := map[int]int{}
	for _, s := range p.Seqlets() {
		ans[motifOf(s, nPer)]++
	}
	return ans
}
