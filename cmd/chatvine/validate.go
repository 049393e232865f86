package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mbaleeiro/chatvine/internal/validator"
	"github.com/mbaleeiro/chatvine/pkg/flow"
)

var validateCmd = &cobra.Command{
	Use:   "validate <flow.json>",
	Short: "Check a flow document for consistency",
	Long:  `Parses a flow document and reports structural problems: dangling edges, unreachable nodes, stale keyword handles, conditions that never parse.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(args[0]); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Flow is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	f, err := flow.Deserialize(data)
	if err != nil {
		return err
	}
	return validator.ValidateFlow(f)
}
