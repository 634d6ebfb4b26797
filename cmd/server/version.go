package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rl1809/obesho/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", config.ServiceName, config.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
