package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mbaleeiro/chatvine/internal/presentation/graph"
	"github.com/mbaleeiro/chatvine/pkg/flow"
	"github.com/mbaleeiro/chatvine/pkg/layout"
)

var arrangeCmd = &cobra.Command{
	Use:   "arrange <flow.json>",
	Short: "Auto-arrange a flow's node positions",
	Long:  `Computes the hierarchical layout for a flow document and writes it back in place. Optionally renders the result as SVG or Mermaid.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svgPath, _ := cmd.Flags().GetString("svg")
		mermaid, _ := cmd.Flags().GetBool("mermaid")
		if err := runArrange(args[0], svgPath, mermaid); err != nil {
			fmt.Printf("Arrange failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(arrangeCmd)
	arrangeCmd.Flags().String("svg", "", "Write an SVG preview of the arranged flow")
	arrangeCmd.Flags().Bool("mermaid", false, "Print a Mermaid diagram of the flow")
}

func runArrange(path, svgPath string, mermaid bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	f, err := flow.Deserialize(data)
	if err != nil {
		return err
	}

	res := layout.Arrange(f)
	layout.Apply(f, res)
	for _, d := range res.Diagnostics {
		fmt.Printf("warning: %s -> %s: %s\n", d.Source, d.Target, d.Detail)
	}

	out, err := flow.Serialize(f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return err
	}
	fmt.Printf("Arranged %d nodes\n", len(res.Positions))

	if svgPath != "" {
		file, err := os.Create(svgPath)
		if err != nil {
			return err
		}
		defer file.Close()
		graph.RenderSVG(file, f)
		fmt.Printf("SVG written to %s\n", svgPath)
	}
	if mermaid {
		fmt.Print(graph.GenerateMermaid(f))
	}
	return nil
}
