/*
 * Filename: run.go
 * Path: modisco/cmd
 */

package main

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tanghaibao/modisco"
)

const hypSuffix = "_hypothetical"

// runCmd clusters seqlets into patterns
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Cluster seqlets into patterns",
	Long: `Load the sequences and score tracks, cut the seqlets listed in the
seqlet file and run seqlets to patterns. Tracks are npy arrays shaped
(examples, length) or (examples, length, channels).`,
	Example: `  modisco run --fasta seqs.fa --contrib task0=contrib.npy --hyp task0=hyp.npy \
    --signs 1 --seqlets seqlets.tsv --out patterns --db runs.db`,
	RunE: runRun,
}

func init() {
	flags := runCmd.Flags()
	flags.String("fasta", "", "FASTA file with one record per example")
	flags.String("onehot", "", "one-hot npy array, used when --fasta is not given")
	flags.StringArray("contrib", nil, "contribution track as name=file.npy, repeatable")
	flags.StringArray("hyp", nil, "hypothetical contribution track as name=file.npy, one per --contrib")
	flags.StringArray("other", nil, "other comparison track as name=file.npy, repeatable")
	flags.Float64Slice("signs", nil, "expected sign (1 or -1) of each contribution track")
	flags.String("seqlets", "", "seqlet coordinates, example start end [strand]")
	flags.StringP("config", "c", "", "YAML config overriding the defaults")
	flags.StringP("out", "o", "", "directory to write the pattern tracks to")
	flags.String("name", "", "run name kept in the database")
	flags.Uint64("seed", 1234, "random seed for Louvain")
	flags.Int("n-cores", 4, "number of workers")

	viper.BindPFlag("config", flags.Lookup("config"))
	viper.BindPFlag("seed", flags.Lookup("seed"))
	viper.BindPFlag("n_cores", flags.Lookup("n-cores"))

	rootCmd.AddCommand(runCmd)
}

// parseNamed splits name=file
func parseNamed(arg string) (string, string, error) {
	words := strings.SplitN(arg, "=", 2)
	if len(words) != 2 || words[0] == "" || words[1] == "" {
		return "", "", fmt.Errorf("expected name=file, got %q", arg)
	}
	return words[0], words[1], nil
}

func loadConfig() (*modisco.Config, error) {
	cfg := modisco.DefaultConfig()
	if file := viper.GetString("config"); file != "" {
		var err error
		if cfg, err = modisco.LoadConfig(file); err != nil {
			return nil, err
		}
	}
	// flags and MODISCO_ variables win over the config file
	if viper.IsSet("seed") {
		cfg.Seed = viper.GetUint64("seed")
	}
	if viper.IsSet("n_cores") {
		cfg.NumCores = viper.GetInt("n_cores")
	}
	return cfg, cfg.Validate()
}

func loadTracks(cmd *cobra.Command) (*modisco.TrackSet, modisco.TrackSpec, error) {
	flags := cmd.Flags()
	ts := modisco.NewTrackSet()
	spec := modisco.TrackSpec{Onehot: "sequence"}

	var onehot []*modisco.Track
	var err error
	fasta, _ := flags.GetString("fasta")
	npy, _ := flags.GetString("onehot")
	switch {
	case fasta != "":
		onehot, err = modisco.OnehotFromFasta(spec.Onehot, fasta)
	case npy != "":
		onehot, err = modisco.LoadNpyTrack(spec.Onehot, npy)
	default:
		err = fmt.Errorf("one of --fasta or --onehot is required")
	}
	if err != nil {
		return nil, spec, err
	}
	if err = ts.AddTrack(spec.Onehot, onehot); err != nil {
		return nil, spec, err
	}

	load := func(arg, suffix string) (string, error) {
		name, file, err := parseNamed(arg)
		if err != nil {
			return "", err
		}
		name += suffix
		tracks, err := modisco.LoadNpyTrack(name, file)
		if err != nil {
			return "", err
		}
		return name, ts.AddTrack(name, tracks)
	}
	contribs, _ := flags.GetStringArray("contrib")
	hyps, _ := flags.GetStringArray("hyp")
	others, _ := flags.GetStringArray("other")
	for _, arg := range contribs {
		name, err := load(arg, "")
		if err != nil {
			return nil, spec, err
		}
		spec.Contrib = append(spec.Contrib, name)
	}
	for _, arg := range hyps {
		name, err := load(arg, hypSuffix)
		if err != nil {
			return nil, spec, err
		}
		spec.Hypothetical = append(spec.Hypothetical, name)
	}
	for _, arg := range others {
		name, err := load(arg, "")
		if err != nil {
			return nil, spec, err
		}
		spec.Other = append(spec.Other, name)
	}
	spec.Signs, _ = flags.GetFloat64Slice("signs")
	if len(spec.Signs) == 0 {
		for range spec.Contrib {
			spec.Signs = append(spec.Signs, 1)
		}
	}
	return ts, spec, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	banner("Load tracks")
	ts, spec, err := loadTracks(cmd)
	if err != nil {
		return err
	}
	seqletFile, _ := cmd.Flags().GetString("seqlets")
	if seqletFile == "" {
		return fmt.Errorf("--seqlets is required")
	}
	coords, err := modisco.ReadCoordinates(seqletFile)
	if err != nil {
		return err
	}
	seqlets, err := ts.CreateSeqlets(coords)
	if err != nil {
		return err
	}

	banner(fmt.Sprintf("Seqlets to patterns on %d seqlets", len(seqlets)))
	pipeline, err := modisco.NewSeqletsToPatterns(cfg, ts, spec)
	if err != nil {
		return err
	}
	res, err := pipeline.Run(seqlets)
	if err != nil {
		return err
	}
	if res.Success {
		for k, p := range res.Patterns {
			log.Noticef("Pattern %d: %d seqlets, length %d", k, p.NumSeqlets(), p.Len())
		}
	} else {
		log.Warningf("Seqlets to patterns ended in state %s", res.State)
	}

	if out, _ := cmd.Flags().GetString("out"); out != "" && res.Success {
		names := append([]string{spec.Onehot}, spec.Contrib...)
		names = append(names, spec.Hypothetical...)
		if err := modisco.WritePatterns(out, res.Patterns, names); err != nil {
			return err
		}
	}
	if db := viper.GetString("db"); db != "" {
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = modisco.RemoveExt(path.Base(seqletFile))
		}
		store, err := modisco.OpenResultsStore(db)
		if err != nil {
			return err
		}
		defer store.Close()
		if _, err := store.SaveResults(context.Background(), name, res, cfg); err != nil {
			return err
		}
	}
	return nil
}
