package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/realign"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of realign",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "realign version %s\n", strings.TrimSpace(realign.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
