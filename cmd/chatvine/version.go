package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mbaleeiro/chatvine"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("chatvine v%s\n", chatvine.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
