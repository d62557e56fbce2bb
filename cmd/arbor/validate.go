package main

import (
	"context"
	"fmt"
	"os"

	"github.com/arbordev/arbor"
	"github.com/arbordev/arbor/internal/logging"
	"github.com/arbordev/arbor/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every scene file for consistency",
	Long:  `Scans all scene files in the project, builds the dependency graph, and reports malformed files, reference cycles, and missing dependencies.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Project is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	if !cmd.Flags().Changed("dir") && len(args) > 0 {
		dir = args[0]
	}

	level, err := logging.ParseLevel(mustString(cmd, "log-level"))
	if err != nil {
		return err
	}

	eng, err := arbor.New(dir, arbor.WithLogger(logging.New(level)))
	if err != nil {
		return fmt.Errorf("failed to init engine: %w", err)
	}

	paths, err := sceneFiles(dir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no scene files found under %s", dir)
	}

	report, err := validator.ValidateProject(context.Background(), eng.Cache(), paths)
	if err != nil {
		return err
	}
	fmt.Printf("Scanned %d scene files\n", report.Scanned)
	return report.Err()
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}
