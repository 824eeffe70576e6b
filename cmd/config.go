/*
 * Filename: config.go
 * Path: modisco/cmd
 */

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tanghaibao/modisco"
)

// configCmd prints the default config, a starting point for --config
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the default config as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := modisco.DefaultConfig().YAML()
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
