package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/atsim"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of atsim",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "atsim version %s\n", strings.TrimSpace(atsim.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
