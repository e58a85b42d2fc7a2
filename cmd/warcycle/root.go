package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "warcycle",
	Short: "Turn-cycle strategy game server",
	Long: `warcycle hosts server-authoritative strategy game sessions: a fixed
number of cycles, each split into preparation, action, resolution and
intermission phases, with a prioritized action queue and stochastic combat
resolution.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(versionCmd)
}
