package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gopkg.in/yaml.v3"
)

var showYAML bool

var showCmd = &cobra.Command{
	Use:   "show <workflow-id>",
	Short: "Show a workflow's steps and cleanup plan",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showYAML, "yaml", false, "print the full definition as YAML")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	_, _, closer, loader, err := setup()
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	def, err := loader.Load(args[0])
	if err != nil {
		return err
	}

	if showYAML {
		out, err := yaml.Marshal(def)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	}

	meta := def.Metadata
	fmt.Printf("%s (%s)\n", meta.Name, meta.ID)
	fmt.Printf("Category: %s\n", meta.Category)
	if meta.Description != "" {
		fmt.Println(meta.Description)
	}
	if meta.EstimatedDuration > 0 {
		fmt.Printf("Estimated duration: %s\n", meta.EstimatedDuration)
	}
	if meta.CostEstimate != nil {
		fmt.Printf("Cost: %s (up to $%.2f)\n", meta.CostEstimate.Description, meta.CostEstimate.MaxCostUSD)
	}
	for _, pre := range meta.Prerequisites {
		fmt.Printf("Requires (%s): %s\n", pre.Type, pre.Description)
	}

	fmt.Printf("\nSteps (%d):\n", len(def.Steps))
	for i, step := range def.Steps {
		fmt.Printf("  %d. %s: %s [%s]\n", i+1, step.ID, step.Name, step.Command.Key())
		if budget := step.Retry.Budget(1); budget > 1 {
			fmt.Printf("     retries: up to %d attempts\n", budget)
		}
	}

	if len(def.Cleanup) > 0 {
		fmt.Printf("\nCleanup (%d):\n", len(def.Cleanup))
		for _, cd := range def.Cleanup {
			fmt.Printf("  - %s\n", cd.Command.Key())
		}
	}

	return nil
}
