package main

import (
	"context"
	"fmt"
	"os"

	"github.com/arbordev/arbor"
	"github.com/arbordev/arbor/internal/presentation/graph"
	"github.com/arbordev/arbor/internal/validator"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the scene dependency graph",
	Long:  `Scans the project and outputs a Mermaid diagram (graph TD) of scene-to-scene references, marking missing dependencies.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")
		if !cmd.Flags().Changed("dir") && len(args) > 0 {
			dir = args[0]
		}

		eng, err := arbor.New(dir)
		if err != nil {
			fmt.Printf("Error initializing arbor: %v\n", err)
			os.Exit(1)
		}

		paths, err := sceneFiles(dir)
		if err != nil {
			fmt.Printf("Error scanning project: %v\n", err)
			os.Exit(1)
		}

		// Preflight fills the dependency graph; issues still render.
		if _, err := validator.ValidateProject(context.Background(), eng.Cache(), paths); err != nil {
			fmt.Printf("Error building graph: %v\n", err)
			os.Exit(1)
		}

		fmt.Print(graph.GenerateMermaid(eng.Graph(), nil))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
