/*
 * Filename: config.go
 * Path: modisco
 */

package modisco

import (
	"fmt"
	"io"
	"time"

	"github.com/shenwei356/xopen"
	"gopkg.in/yaml.v3"
)

// LouvainRun is one membership averaging step: Runs Louvain runs, each
// reporting the partition at Level
type LouvainRun struct {
	Runs  int `mapstructure:"runs" yaml:"runs"`
	Level int `mapstructure:"level" yaml:"level"`
}

// RoundConfig holds the clustering settings of one round. Clusterer picks
// the algorithm, empty means louvain. The membership runs feed every
// algorithm, ContinRuns is read by louvain only.
type RoundConfig struct {
	Clusterer      ClusterKind  `mapstructure:"clusterer" yaml:"clusterer,omitempty"`
	MembershipRuns []LouvainRun `mapstructure:"membership_runs" yaml:"membership_runs"`
	ContinRuns     int          `mapstructure:"contin_runs" yaml:"contin_runs"`
}

// Config holds every parameter of seqlets to patterns. Loaded by viper in
// the CLI and stored as YAML with each run.
type Config struct {
	NumCores   int     `mapstructure:"n_cores" yaml:"n_cores"`
	Seed       uint64  `mapstructure:"seed" yaml:"seed"`
	MinOverlap float64 `mapstructure:"min_overlap_while_sliding" yaml:"min_overlap_while_sliding"`

	// gapped k-mer embedding
	AlphabetSize   int `mapstructure:"alphabet_size" yaml:"alphabet_size"`
	KmerLen        int `mapstructure:"kmer_len" yaml:"kmer_len"`
	NumGaps        int `mapstructure:"num_gaps" yaml:"num_gaps"`
	NumMismatches  int `mapstructure:"num_mismatches" yaml:"num_mismatches"`
	EmbedBatchSize int `mapstructure:"embed_batch_size" yaml:"embed_batch_size"`

	NearestNeighborsToCompute  int     `mapstructure:"nearest_neighbors_to_compute" yaml:"nearest_neighbors_to_compute"`
	AffmatCorrelationThreshold float64 `mapstructure:"affmat_correlation_threshold" yaml:"affmat_correlation_threshold"`
	FilterBeyondFirstRound     bool    `mapstructure:"filter_beyond_first_round" yaml:"filter_beyond_first_round"`
	SkipFineGrained            bool    `mapstructure:"skip_fine_grained" yaml:"skip_fine_grained"`

	TsnePerplexity        float64       `mapstructure:"tsne_perplexity" yaml:"tsne_perplexity"`
	Rounds                []RoundConfig `mapstructure:"rounds" yaml:"rounds"`
	FinalLouvainLevel     int           `mapstructure:"final_louvain_level_to_return" yaml:"final_louvain_level_to_return"`
	LouvainMinClusterSize int           `mapstructure:"louvain_min_cluster_size" yaml:"louvain_min_cluster_size"`
	LouvainQTol           float64       `mapstructure:"louvain_q_tol" yaml:"louvain_q_tol"`
	LouvainTimeLimit      time.Duration `mapstructure:"louvain_time_limit" yaml:"louvain_time_limit"`

	// rounds with clusterer collect_components or hdbscan
	ComponentsJoinThreshold        float64 `mapstructure:"collect_components_join_threshold" yaml:"collect_components_join_threshold"`
	ComponentsDealbreakerThreshold float64 `mapstructure:"collect_components_dealbreaker_threshold" yaml:"collect_components_dealbreaker_threshold"`
	HDBScanMinClusterSize          int     `mapstructure:"hdbscan_min_cluster_size" yaml:"hdbscan_min_cluster_size"`
	HDBScanMinSamples              int     `mapstructure:"hdbscan_min_samples" yaml:"hdbscan_min_samples"`

	TrimToFracSupport  float64 `mapstructure:"frac_support_to_trim_to" yaml:"frac_support_to_trim_to"`
	MinNumToTrimTo     int     `mapstructure:"min_num_to_trim_to" yaml:"min_num_to_trim_to"`
	TrimToWindowSize   int     `mapstructure:"trim_to_window_size" yaml:"trim_to_window_size"`
	InitialFlankToAdd  int     `mapstructure:"initial_flank_to_add" yaml:"initial_flank_to_add"`
	AggregateBatchSize int     `mapstructure:"aggregate_batch_size" yaml:"aggregate_batch_size"`

	MergeThresholds            []ProbSimThreshold `mapstructure:"prob_and_pertrack_sim_merge_thresholds" yaml:"prob_and_pertrack_sim_merge_thresholds"`
	DealbreakerThresholds      []ProbSimThreshold `mapstructure:"prob_and_pertrack_sim_dealbreaker_thresholds" yaml:"prob_and_pertrack_sim_dealbreaker_thresholds"`
	MaxNeighborsToCheck        int                `mapstructure:"max_neighbors_to_check" yaml:"max_neighbors_to_check"`
	SpuriousMergeThreshold     float64            `mapstructure:"threshold_for_spurious_merge_detection" yaml:"threshold_for_spurious_merge_detection"`
	SpuriousMergeContinRuns    int                `mapstructure:"spurious_merge_contin_runs" yaml:"spurious_merge_contin_runs"`
	MinSimilarityForAssignment float64            `mapstructure:"min_similarity_for_seqlet_assignment" yaml:"min_similarity_for_seqlet_assignment"`
	FinalMinClusterSize        int                `mapstructure:"final_min_cluster_size" yaml:"final_min_cluster_size"`
	FinalFlankToAdd            int                `mapstructure:"final_flank_to_add" yaml:"final_flank_to_add"`
}

// DefaultConfig returns the factory defaults
func DefaultConfig() *Config {
	round := RoundConfig{
		MembershipRuns: []LouvainRun{{Runs: 200, Level: -1}},
		ContinRuns:     50,
	}
	return &Config{
		NumCores:   4,
		Seed:       1234,
		MinOverlap: 0.7,

		AlphabetSize:   4,
		KmerLen:        8,
		NumGaps:        3,
		NumMismatches:  2,
		EmbedBatchSize: 20,

		NearestNeighborsToCompute:  500,
		AffmatCorrelationThreshold: 0.15,

		TsnePerplexity:        10,
		Rounds:                []RoundConfig{round, round},
		FinalLouvainLevel:     1,
		LouvainMinClusterSize: 10,
		LouvainTimeLimit:      2000 * time.Second,

		ComponentsJoinThreshold:        0.5,
		ComponentsDealbreakerThreshold: 0.1,
		HDBScanMinClusterSize:          10,
		HDBScanMinSamples:              5,

		TrimToFracSupport:  0.2,
		MinNumToTrimTo:     30,
		TrimToWindowSize:   30,
		InitialFlankToAdd:  10,
		AggregateBatchSize: 50,

		MergeThresholds: []ProbSimThreshold{
			{0.0001, 0.84}, {0.00001, 0.87}, {0.000001, 0.9},
		},
		DealbreakerThresholds: []ProbSimThreshold{
			{0.1, 0.75}, {0.01, 0.8}, {0.001, 0.83}, {0.0000001, 0.9},
		},
		MaxNeighborsToCheck:        DefaultMaxNeighborsToCheck,
		SpuriousMergeThreshold:     0.8,
		SpuriousMergeContinRuns:    20,
		MinSimilarityForAssignment: 0.2,
		FinalMinClusterSize:        30,
		FinalFlankToAdd:            10,
	}
}

// Validate rejects parameters that cannot work
func (r *Config) Validate() error {
	switch {
	case r.NumCores < 1:
		return fmt.Errorf("%w: n_cores must be positive, got %d", ErrConfiguration, r.NumCores)
	case r.MinOverlap <= 0 || r.MinOverlap > 1:
		return fmt.Errorf("%w: min overlap %g outside (0, 1]", ErrConfiguration, r.MinOverlap)
	case r.NearestNeighborsToCompute < 1:
		return fmt.Errorf("%w: %d nearest neighbors", ErrConfiguration, r.NearestNeighborsToCompute)
	case r.TsnePerplexity <= 1:
		return fmt.Errorf("%w: perplexity %g", ErrConfiguration, r.TsnePerplexity)
	case len(r.Rounds) == 0:
		return fmt.Errorf("%w: at least one clustering round is needed", ErrConfiguration)
	case r.TrimToWindowSize < 1:
		return fmt.Errorf("%w: window size %d", ErrConfiguration, r.TrimToWindowSize)
	case r.InitialFlankToAdd < 0 || r.FinalFlankToAdd < 0:
		return fmt.Errorf("%w: negative flank", ErrConfiguration)
	case r.TrimToFracSupport < 0 || r.TrimToFracSupport > 1:
		return fmt.Errorf("%w: support fraction %g", ErrConfiguration, r.TrimToFracSupport)
	case r.FinalMinClusterSize < 1:
		return fmt.Errorf("%w: final min cluster size %d", ErrConfiguration, r.FinalMinClusterSize)
	}
	for i, round := range r.Rounds {
		switch round.Clusterer {
		case "", KindLouvain:
		case KindCollectComponents:
			if r.ComponentsDealbreakerThreshold > r.ComponentsJoinThreshold {
				return fmt.Errorf("%w: dealbreaker threshold %g above join threshold %g",
					ErrConfiguration, r.ComponentsDealbreakerThreshold, r.ComponentsJoinThreshold)
			}
		case KindHDBScan:
			if r.HDBScanMinClusterSize < 2 || r.HDBScanMinSamples < 1 {
				return fmt.Errorf("%w: hdbscan min cluster size %d, min samples %d",
					ErrConfiguration, r.HDBScanMinClusterSize, r.HDBScanMinSamples)
			}
		default:
			return fmt.Errorf("%w: round %d has unknown clusterer %q", ErrConfiguration, i+1, round.Clusterer)
		}
		if round.ContinRuns < 1 {
			return fmt.Errorf("%w: round %d has %d contin runs", ErrConfiguration, i+1, round.ContinRuns)
		}
		for _, run := range round.MembershipRuns {
			if run.Runs < 1 {
				return fmt.Errorf("%w: round %d has a step with %d runs", ErrConfiguration, i+1, run.Runs)
			}
		}
	}
	emb := GappedKmerEmbedder{
		AlphabetSize:  r.AlphabetSize,
		KmerLen:       r.KmerLen,
		NumGaps:       r.NumGaps,
		NumMismatches: r.NumMismatches,
	}
	return emb.Validate()
}

// YAML serializes the config, the record kept with every stored run
func (r *Config) YAML() (string, error) {
	b, err := yaml.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseConfig reads YAML on top of the defaults
func ParseConfig(text []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(text, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return cfg, cfg.Validate()
}

// LoadConfig reads a YAML config file (optionally gzipped)
func LoadConfig(filename string) (*Config, error) {
	fh, err := xopen.Ropen(filename)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	text, err := io.ReadAll(fh)
	if err != nil {
		return nil, err
	}
	log.Noticef("Load config from `%s`", filename)
	return ParseConfig(text)
}
