package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmoreas/warcycle/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build metadata",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}
