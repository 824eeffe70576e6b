/*
 * Filename: pipeline.go
 * Path: modisco
 */

package modisco

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
)

// State is a stage of the seqlets to patterns state machine
type State int

// States in the order they are visited
const (
	RoundClustering State = iota
	Split
	Merge
	Reassign
	Done
	Failed
)

func (r State) String() string {
	switch r {
	case RoundClustering:
		return "ROUND_CLUSTERING"
	case Split:
		return "SPLIT"
	case Merge:
		return "MERGE"
	case Reassign:
		return "REASSIGN"
	case Done:
		return "DONE"
	case Failed:
		return "FAILED"
	}
	return fmt.Sprintf("State(%d)", int(r))
}

// TrackSpec names the tracks the pipeline works on. Contrib, Hypothetical
// and Signs go together, one entry per contribution track.
type TrackSpec struct {
	Onehot       string
	Contrib      []string
	Hypothetical []string
	Signs        []float64
	Other        []string
}

// SeqletsToPatternsResults is the outcome of a run. A failed run has the
// same shape with Success unset, check it before reading the patterns.
type SeqletsToPatternsResults struct {
	Success            bool
	State              State
	Patterns           []*Pattern
	ClusterResults     *ClusterResults
	TotalTime          time.Duration
	Seqlets            []*Seqlet // filtered seqlets of the last round
	MergedPatterns     []*Pattern
	MergeHierarchy     *MergeHierarchy
	ReassignedPatterns []*Pattern
	EliminatedPatterns []*Pattern
	Unassigned         []*Seqlet
}

// RoundResult is what one clustering round produces
type RoundResult struct {
	Seqlets        []*Seqlet
	ClusterResults ClusterResults
	Motifs         []*Pattern
	Eliminated     []*Pattern
}

// SeqletsToPatterns runs the clustering rounds and the split, merge and
// reassign stages
type SeqletsToPatterns struct {
	Config     *Config
	Tracks     TrackSpec
	Coarse     *AffinityComputer
	Neighbors  NeighborFinder
	Refiner    *PairwiseRefiner
	Filter     QualityFilter
	Density    DensityAdapter
	Clusterers []Clusterer
	Aggregator *MotifAggregator
	Signs      SignConsistency
	Spurious   *SpuriousMergeDetector
	Collapser  *PatternCollapser
	Reassigner *SeqletReassigner
	Observer   Observer
}

// NewSeqletsToPatterns wires every stage from the config. All parameter
// errors surface here, before any computation.
func NewSeqletsToPatterns(cfg *Config, ts *TrackSet, spec TrackSpec) (*SeqletsToPatterns, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(spec.Contrib) == 0 {
		return nil, fmt.Errorf("%w: no contribution tracks", ErrConfiguration)
	}
	if len(spec.Contrib) != len(spec.Hypothetical) || len(spec.Contrib) != len(spec.Signs) {
		return nil, fmt.Errorf("%w: %d contribution tracks, %d hypothetical tracks and %d signs",
			ErrConfiguration, len(spec.Contrib), len(spec.Hypothetical), len(spec.Signs))
	}
	all := append([]string{spec.Onehot}, spec.Contrib...)
	all = append(all, spec.Hypothetical...)
	all = append(all, spec.Other...)
	for _, name := range all {
		if !ts.HasTrack(name) {
			return nil, fmt.Errorf("%w: track %s not loaded", ErrConfiguration, name)
		}
	}
	signs := SignConsistency{TrackNames: spec.Contrib, Signs: spec.Signs}
	if err := signs.Validate(); err != nil {
		return nil, err
	}

	workers := cfg.NumCores
	seqletSettings := ComparisonSettings{
		TrackNames:  append(append(append([]string(nil), spec.Hypothetical...), spec.Contrib...), spec.Other...),
		Transformer: L1Normalize,
		MinOverlap:  cfg.MinOverlap,
	}
	seqletAligner := &CrossContinJaccardAligner{seqletSettings}
	patternAligner := &CrossCorrelationAligner{ComparisonSettings{
		TrackNames:  append(append([]string(nil), spec.Contrib...), spec.Other...),
		Transformer: ChainTransformers(MeanNormalize, MagnitudeNormalize),
		MinOverlap:  cfg.MinOverlap,
	}}

	clusterers := make([]Clusterer, len(cfg.Rounds))
	for i, round := range cfg.Rounds {
		var steps []MatrixTransform
		for _, run := range round.MembershipRuns {
			steps = append(steps, LouvainMembershipAverage(run.Runs, run.Level, workers, cfg.Seed))
		}
		membership := ChainTransforms(steps...)
		switch round.Clusterer {
		case KindCollectComponents:
			clusterers[i] = &CollectComponents{
				DealbreakerThreshold: cfg.ComponentsDealbreakerThreshold,
				JoinThreshold:        cfg.ComponentsJoinThreshold,
				MinClusterSize:       cfg.LouvainMinClusterSize,
				MaxNeighborsToCheck:  cfg.MaxNeighborsToCheck,
				Transform:            membership,
			}
		case KindHDBScan:
			clusterers[i] = &HDBScanCluster{
				MinClusterSize: cfg.HDBScanMinClusterSize,
				MinSamples:     cfg.HDBScanMinSamples,
				AffToDist: ChainTransforms(membership, func(m *mat.Dense) (*mat.Dense, error) {
					return AffinityToDistance(m), nil
				}),
			}
		default:
			clusterers[i] = &LouvainCluster{
				LevelToReturn:  cfg.FinalLouvainLevel,
				Transform:      membership,
				MinClusterSize: cfg.LouvainMinClusterSize,
				ContinRuns:     round.ContinRuns,
				QTol:           cfg.LouvainQTol,
				TimeLimit:      cfg.LouvainTimeLimit,
				Seed:           cfg.Seed,
			}
		}
		log.Debugf("Round %d clusters with %T", i+1, clusterers[i])
	}

	nTracks := float64(len(spec.Contrib) + len(spec.Other))
	scale := func(ladder []ProbSimThreshold) []ProbSimThreshold {
		ans := make([]ProbSimThreshold, len(ladder))
		for i, t := range ladder {
			ans[i] = ProbSimThreshold{Prob: t.Prob, Sim: t.Sim * nTracks}
		}
		return ans
	}
	postprocessor := NewPostprocessor(ts, cfg, spec.Contrib)

	return &SeqletsToPatterns{
		Config: cfg,
		Tracks: spec,
		Coarse: &AffinityComputer{
			Embedder: &GappedKmerEmbedder{
				AlphabetSize:  cfg.AlphabetSize,
				KmerLen:       cfg.KmerLen,
				NumGaps:       cfg.NumGaps,
				NumMismatches: cfg.NumMismatches,
				BatchSize:     cfg.EmbedBatchSize,
				OnehotTrack:   spec.Onehot,
				ScoreTracks:   spec.Hypothetical,
				Signs:         spec.Signs,
			},
			NumWorkers: workers,
		},
		Neighbors:  ExactNeighbors{NumWorkers: workers},
		Refiner:    &PairwiseRefiner{Aligner: seqletAligner, NumWorkers: workers},
		Filter:     QualityFilter{Threshold: cfg.AffmatCorrelationThreshold},
		Density:    DensityAdapter{Perplexity: cfg.TsnePerplexity, NumWorkers: workers},
		Clusterers: clusterers,
		Aggregator: &MotifAggregator{
			Aligner:       seqletAligner,
			Postprocessor: postprocessor,
			Priority:      func(s *Seqlet) float64 { return s.TotalAbs(spec.Contrib) },
			BatchSize:     cfg.AggregateBatchSize,
		},
		Signs: signs,
		Spurious: &SpuriousMergeDetector{
			TrackNames:  spec.Contrib,
			Transformer: L1Normalize,
			Bisector: &LouvainCluster{
				LevelToReturn:  1,
				MaxClusters:    2,
				MinClusterSize: 1,
				ContinRuns:     cfg.SpuriousMergeContinRuns,
				TimeLimit:      cfg.LouvainTimeLimit,
				Seed:           cfg.Seed,
			},
			Threshold:       cfg.SpuriousMergeThreshold,
			MinInSubcluster: cfg.FinalMinClusterSize,
			NumWorkers:      workers,
		},
		Collapser: &PatternCollapser{
			SeqletAligner:         seqletAligner,
			PatternAligner:        patternAligner,
			MergeThresholds:       scale(cfg.MergeThresholds),
			DealbreakerThresholds: scale(cfg.DealbreakerThresholds),
			Postprocessor:         postprocessor,
			MaxNeighborsToCheck:   cfg.MaxNeighborsToCheck,
			NumWorkers:            workers,
		},
		Reassigner: &SeqletReassigner{
			Aligner:            seqletAligner,
			MinSimilarity:      cfg.MinSimilarityForAssignment,
			MinClusterSize:     cfg.FinalMinClusterSize,
			Postprocessor:      postprocessor[1:],
			FinalPostprocessor: ExpandSeqletsToFillPattern{TrackSet: ts, Flank: cfg.FinalFlankToAdd},
			NumWorkers:         workers,
		},
		Observer: LogObserver{},
	}, nil
}

// RunRound clusters the seqlets and aggregates every cluster. Empty input
// and an empty filtered set give ErrEmptyInput.
func (r *SeqletsToPatterns) RunRound(roundIdx int, seqlets []*Seqlet) (*RoundResult, error) {
	if roundIdx < 0 || roundIdx >= len(r.Clusterers) {
		return nil, fmt.Errorf("%w: round %d of %d", ErrConfiguration, roundIdx+1, len(r.Clusterers))
	}
	N := len(seqlets)
	if N == 0 {
		return nil, fmt.Errorf("%w: no seqlets entering round %d", ErrEmptyInput, roundIdx+1)
	}
	round := roundIdx + 1
	log.Noticef("(Round %d) num seqlets: %d", round, N)
	timer := newStageTimer(r.Observer, round)

	affmat, err := r.Coarse.Compute(seqlets)
	if err != nil {
		return nil, err
	}
	timer.done("embedding and coarse affinity")

	filtered := seqlets
	K := r.Config.NearestNeighborsToCompute
	if K > N-1 {
		log.Warningf("(Round %d) only %d seqlets, computing %d nearest neighbors instead of %d",
			round, N, N-1, K)
		K = N - 1
	}
	if !r.Config.SkipFineGrained && K > 0 {
		nbrs, err := r.Neighbors.Neighbors(affmat, K)
		if err != nil {
			return nil, err
		}
		refined, err := r.Refiner.Refine(seqlets, nbrs)
		if err != nil {
			return nil, err
		}
		mask := make([]bool, N)
		if roundIdx == 0 || r.Config.FilterBeyondFirstRound {
			if mask, err = r.Filter.Mask(refined, affmat); err != nil {
				return nil, err
			}
		} else {
			for i := range mask {
				mask[i] = true
			}
		}
		filtered = nil
		for i, ok := range mask {
			if ok {
				filtered = append(filtered, seqlets[i])
			}
		}
		affmat = SubMatrix(refined, mask)
		refined = nil
		if affmat == nil {
			return nil, fmt.Errorf("%w: no seqlets left after filtering in round %d", ErrEmptyInput, round)
		}
	}
	timer.done("fine-grained affinity")

	density, err := r.Density.Transform(affmat)
	if err != nil {
		return nil, err
	}
	affmat = nil
	timer.done("density adaptation")

	cr, err := r.Clusterers[roundIdx].Cluster(density)
	if err != nil {
		return nil, err
	}
	density = nil
	if len(cr.Indices) != len(filtered) {
		return nil, fmt.Errorf("%w: %d cluster indices for %d seqlets",
			ErrInvariantViolation, len(cr.Indices), len(filtered))
	}
	log.Noticef("(Round %d) got %d clusters, counts %v", round, cr.NumClusters(), cr.Counts())
	timer.done("clustering")

	rr := &RoundResult{Seqlets: filtered, ClusterResults: cr}
	for c, members := range cr.Members() {
		cluster := make([]*Seqlet, len(members))
		for k, i := range members {
			cluster[k] = filtered[i]
		}
		motif, err := r.Aggregator.Aggregate(cluster)
		if err != nil {
			return nil, err
		}
		if motif == nil {
			continue
		}
		if r.Signs.Check(motif) {
			rr.Motifs = append(rr.Motifs, motif)
		} else {
			log.Warningf("Dropping cluster %d with %d seqlets due to sign disagreement",
				c, motif.NumSeqlets())
			rr.Eliminated = append(rr.Eliminated, motif)
		}
	}
	timer.done("aggregation")
	return rr, nil
}

// Run drives the state machine. Only configuration and invariant errors are
// returned, running out of seqlets or patterns yields a failed result.
func (r *SeqletsToPatterns) Run(seqlets []*Seqlet) (*SeqletsToPatternsResults, error) {
	start := time.Now()
	failed := func(state State) *SeqletsToPatternsResults {
		log.Warningf("No surviving seqlets or patterns at %s", state)
		return &SeqletsToPatternsResults{State: Failed, TotalTime: time.Since(start)}
	}

	seqlets = append([]*Seqlet(nil), seqlets...)
	var last *RoundResult
	var eliminated []*Pattern
	for roundIdx := range r.Clusterers {
		SortSeqlets(seqlets, r.Tracks.Contrib)
		rr, err := r.RunRound(roundIdx, seqlets)
		if errors.Is(err, ErrEmptyInput) {
			return failed(RoundClustering), nil
		}
		if err != nil {
			return nil, err
		}
		last = rr
		eliminated = append(eliminated, rr.Eliminated...)
		var next []*Seqlet
		for _, m := range rr.Motifs {
			next = append(next, m.Seqlets()...)
		}
		seqlets = DedupSeqlets(next)
		log.Noticef("(Round %d) got %d motifs", roundIdx+1, len(rr.Motifs))
	}

	timer := newStageTimer(r.Observer, 0)
	split, err := r.Spurious.Detect(last.Motifs)
	if err != nil {
		return nil, err
	}
	if len(split) == 0 {
		return failed(Split), nil
	}
	timer.done("spurious merge detection")

	merged, hierarchy, err := r.Collapser.Collapse(split, seqlets)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].NumSeqlets() > merged[j].NumSeqlets()
	})
	log.Noticef("Got %d patterns after merging", len(merged))
	timer.done("pattern merging")

	var free []*Seqlet
	for _, p := range eliminated {
		free = append(free, p.Seqlets()...)
	}
	ra, err := r.Reassigner.Reassign(merged, DedupSeqlets(free))
	if err != nil {
		return nil, err
	}
	log.Noticef("Got %d patterns after reassignment", len(ra.Final))
	timer.done("seqlet reassignment")

	cr := last.ClusterResults
	return &SeqletsToPatternsResults{
		Success:            true,
		State:              Done,
		Patterns:           ra.Final,
		ClusterResults:     &cr,
		TotalTime:          time.Since(start),
		Seqlets:            last.Seqlets,
		MergedPatterns:     merged,
		MergeHierarchy:     hierarchy,
		ReassignedPatterns: ra.Reassigned,
		EliminatedPatterns: eliminated,
		Unassigned:         ra.Unassigned,
	}, nil
}
