/*
 * Filename: runs.go
 * Path: modisco/cmd
 */

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tanghaibao/modisco"
)

// runsCmd lists the runs kept in the database
var runsCmd = &cobra.Command{
	Use:     "runs",
	Short:   "List stored runs",
	Aliases: []string{"ls", "list"},
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		runs, err := store.ListRuns(context.Background())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tName\tState\tTime\tCreated")
		for _, r := range runs {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.Name, r.State, r.TotalTime,
				humanize.Time(r.CreatedAt))
		}
		return w.Flush()
	},
}

// showCmd prints the patterns of one run
var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show the patterns of a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return err
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		run, err := store.LoadResults(context.Background(), id)
		if err != nil {
			return err
		}
		fmt.Printf("Run %d `%s`: %s in %s\n", run.ID, run.Name, run.State, run.TotalTime)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "Stage\tRank\tLength\tSeqlets")
		for _, p := range run.Patterns {
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", p.Stage, p.Rank, p.Length,
				humanize.Comma(int64(len(p.Seqlets))))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		clusters := map[int]int{}
		for _, a := range run.Clusters {
			clusters[a.Cluster]++
		}
		unassigned := clusters[modisco.Unassigned]
		delete(clusters, modisco.Unassigned)
		fmt.Printf("Last round: %d seqlets in %d clusters, %d unassigned\n",
			len(run.Clusters), len(clusters), unassigned)
		return nil
	},
}

func openStore() (*modisco.ResultsStore, error) {
	db := viper.GetString("db")
	if db == "" {
		return nil, fmt.Errorf("--db is required")
	}
	return modisco.OpenResultsStore(db)
}

func init() {
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(showCmd)
}
