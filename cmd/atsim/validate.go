package main

import (
	"fmt"
	"os"

	"github.com/aretw0/atsim/pkg/adapters/file"
	"github.com/aretw0/atsim/pkg/engine"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Check model files for consistency",
	Long:  `Loads a model file, or every model in a directory, and reports structural errors and scripts that do not compile.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) > 0 {
			path = args[0]
		} else {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			path = cfg.ModelsDir
		}

		n, err := runValidate(path)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d model(s) valid\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(path string) (int, error) {
	checker := engine.New()
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}

	if !info.IsDir() {
		model, err := file.ReadModel(path)
		if err != nil {
			return 0, err
		}
		if err := checker.Check(model); err != nil {
			return 0, err
		}
		return 1, nil
	}

	models, err := file.LoadModels(path)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, model := range models.All() {
		if err := checker.Check(model); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
