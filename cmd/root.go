/*
 * Filename: root.go
 * Path: modisco/cmd
 */

package main

import (
	logging "github.com/op/go-logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tanghaibao/modisco"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "modisco",
	Short: "Discover motifs from base-resolution contribution scores",
	Long: `Cluster seqlets, short high-contribution regions, into motif patterns.
Seqlets go through rounds of Louvain clustering on a refined affinity
graph, then patterns are split, merged and seqlets are reassigned.`,
	Version: modisco.Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if viper.GetBool("verbose") {
			logging.SetLevel(logging.DEBUG, "")
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

func init() {
	viper.SetEnvPrefix("MODISCO")
	viper.AutomaticEnv()
	rootCmd.PersistentFlags().String("db", "", "SQLite database keeping the runs")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug messages")
	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}
