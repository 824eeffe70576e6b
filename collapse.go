/*
 * Filename: collapse.go
 * Path: modisco
 */

package modisco

import (
	"math"

	"github.com/exascience/pargo/parallel"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// minDistanceSigma floors the spread of a pattern's own seqlet distances
const minDistanceSigma = 1e-7

// ProbSimThreshold is one rung of a merge or dealbreaker ladder
type ProbSimThreshold struct {
	Prob float64 `mapstructure:"prob" yaml:"prob"`
	Sim  float64 `mapstructure:"sim" yaml:"sim"`
}

// MergeLevel records one collapsing pass. Groups[k] lists the indices of the
// previous level's patterns that form Patterns[k].
type MergeLevel struct {
	Groups   [][]int
	Patterns []*Pattern
}

// MergeHierarchy logs which patterns were merged, level by level
type MergeHierarchy struct {
	Initial []*Pattern
	Levels  []MergeLevel
}

// NumMerges counts pairwise merges over all levels
func (r *MergeHierarchy) NumMerges() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, lv := range r.Levels {
		for _, g := range lv.Groups {
			n += len(g) - 1
		}
	}
	return n
}

// PatternCollapser merges patterns whose seqlets are statistically
// indistinguishable and whose consensus tracks align well
type PatternCollapser struct {
	SeqletAligner         Aligner
	PatternAligner        Aligner
	MergeThresholds       []ProbSimThreshold
	DealbreakerThresholds []ProbSimThreshold
	Postprocessor         Postprocessor
	MaxNeighborsToCheck   int
	NumWorkers            int
}

// Collapse merges until no pair qualifies
func (r *PatternCollapser) Collapse(patterns []*Pattern, seqlets []*Seqlet) ([]*Pattern, *MergeHierarchy, error) {
	hierarchy := &MergeHierarchy{Initial: patterns}
	for iter := 0; len(patterns) > 1; iter++ {
		groups, err := r.mergeGroups(patterns, seqlets)
		if err != nil {
			return nil, nil, err
		}
		if len(groups) == len(patterns) {
			break
		}
		level := MergeLevel{Groups: groups}
		for _, g := range groups {
			merged, err := r.mergeGroup(patterns, g)
			if err != nil {
				return nil, nil, err
			}
			level.Patterns = append(level.Patterns, merged)
		}
		log.Noticef("Collapse iteration %d: %d patterns merged into %d",
			iter, len(patterns), len(level.Patterns))
		hierarchy.Levels = append(hierarchy.Levels, level)
		patterns = level.Patterns
	}
	return patterns, hierarchy, nil
}

// mergeGroups decides which patterns go together in this pass
func (r *PatternCollapser) mergeGroups(patterns []*Pattern, seqlets []*Seqlet) ([][]int, error) {
	K := len(patterns)
	prob := r.mergeProbabilities(patterns, seqlets)

	profiles := make([]*Profile, K)
	for i, p := range patterns {
		profiles[i] = r.PatternAligner.Profile(p)
	}
	sim := Make2DSliceFloat64(K, K)
	parallel.Range(0, K*K, r.NumWorkers, func(low, high int) {
		for k := low; k < high; k++ {
			i, j := k/K, k%K
			if i >= j {
				continue
			}
			s := r.PatternAligner.AlignProfiles(profiles[i], profiles[j]).Score
			if !isFinite(s) {
				s = math.Inf(-1)
			}
			sim[i][j] = s
		}
	})

	cache := NewIncompatibilityCache(K)
	var merges []*merge
	for i := 0; i < K; i++ {
		for j := i + 1; j < K; j++ {
			p, s := prob[i][j], sim[i][j]
			if anyBelow(r.DealbreakerThresholds, p, s) {
				cache.Set(i, j)
				continue
			}
			if anyAbove(r.MergeThresholds, p, s) {
				merges = append(merges, &merge{a: i, b: j, score: s})
				log.Debugf("Patterns %d and %d mergeable (prob %.3g, sim %.3f)", i, j, p, s)
			}
		}
	}
	maxCheck := r.MaxNeighborsToCheck
	if maxCheck <= 0 {
		maxCheck = DefaultMaxNeighborsToCheck
	}
	return transitiveMerge(K, merges, cache, maxCheck).Sets(), nil
}

func anyAbove(ladder []ProbSimThreshold, prob, sim float64) bool {
	for _, t := range ladder {
		if prob > t.Prob && sim > t.Sim {
			return true
		}
	}
	return false
}

func anyBelow(ladder []ProbSimThreshold, prob, sim float64) bool {
	for _, t := range ladder {
		if prob < t.Prob && sim < t.Sim {
			return true
		}
	}
	return false
}

// mergeProbabilities fits a normal to the distances between each pattern and
// its own seqlets. p[i][j] is the larger of the mean survival of j's seqlets
// under i's fit and the reverse.
func (r *PatternCollapser) mergeProbabilities(patterns []*Pattern, seqlets []*Seqlet) [][]float64 {
	K := len(patterns)
	var population []*Seqlet
	population = append(population, seqlets...)
	for _, p := range patterns {
		population = append(population, p.Seqlets()...)
	}
	population = DedupSeqlets(population)
	index := make(map[string]int, len(population))
	for i, s := range population {
		index[s.String()] = i
	}
	own := make([][]int, K)
	for i, p := range patterns {
		for _, s := range p.Seqlets() {
			own[i] = append(own[i], index[s.String()])
		}
	}

	rows := make([]TrackSource, K)
	for i, p := range patterns {
		rows[i] = p
	}
	cols := make([]TrackSource, len(population))
	for i, s := range population {
		cols[i] = s
	}
	dist := AffinityToDistance(SimilarityMatrix(r.SeqletAligner, rows, cols, r.NumWorkers))

	fits := make([]distuv.Normal, K)
	for i := range patterns {
		d := make([]float64, len(own[i]))
		for a, s := range own[i] {
			d[a] = dist.At(i, s)
		}
		mu, sigma := stat.MeanStdDev(d, nil)
		if math.IsNaN(sigma) || sigma < minDistanceSigma {
			sigma = minDistanceSigma
		}
		fits[i] = distuv.Normal{Mu: mu, Sigma: sigma}
	}
	survival := func(i, j int) float64 {
		total := 0.0
		for _, s := range own[j] {
			total += fits[i].Survival(dist.At(i, s))
		}
		return total / float64(len(own[j]))
	}
	prob := Make2DSliceFloat64(K, K)
	for i := 0; i < K; i++ {
		for j := i + 1; j < K; j++ {
			p := math.Max(survival(i, j), survival(j, i))
			prob[i][j], prob[j][i] = p, p
		}
	}
	return prob
}

// mergeGroup folds a group into its largest member, ties to the first
func (r *PatternCollapser) mergeGroup(patterns []*Pattern, group []int) (*Pattern, error) {
	leader := group[0]
	for _, i := range group {
		if patterns[i].NumSeqlets() > patterns[leader].NumSeqlets() {
			leader = i
		}
	}
	if len(group) == 1 {
		return patterns[leader], nil
	}
	merged := patterns[leader]
	for _, i := range group {
		if i == leader {
			continue
		}
		al := Align(r.PatternAligner, merged, patterns[i])
		if !al.Valid() {
			log.Warningf("Pattern %d does not align to pattern %d, merging unaligned", i, leader)
			al = Alignment{}
		}
		merged = merged.Merge(patterns[i], al)
	}
	if r.Postprocessor == nil {
		return merged, nil
	}
	ps, err := r.Postprocessor.Process([]*Pattern{merged})
	if err != nil {
		return nil, err
	}
	if len(ps) == 0 {
		return merged, nil
	}
	return ps[0], nil
}
