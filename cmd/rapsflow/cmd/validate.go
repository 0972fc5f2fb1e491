package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raps-stack/rapsflow/internal/raps"
	"github.com/raps-stack/rapsflow/internal/workflow"
)

var validateCommands bool

var validateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Validate workflow definitions",
	Long: `Validate workflow definition files without running them.

With no arguments, validates everything in the workflows directory.
Checks structure, step ID uniqueness, and that every command is in the
supported command set.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateCommands, "commands", false, "list the supported command set and exit")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	if validateCommands {
		for _, key := range raps.KnownCommands() {
			fmt.Println(key)
		}
		return nil
	}

	_, _, closer, loader, err := setup()
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	if len(args) == 0 {
		defs, err := loader.Discover()
		if err != nil {
			return err
		}
		for _, def := range defs {
			fmt.Printf("ok %s (%s)\n", def.Metadata.ID, def.Path)
		}
		fmt.Printf("%d workflow(s) valid\n", len(defs))
		return nil
	}

	failed := 0
	for _, path := range args {
		def, err := workflow.LoadFile(path)
		if err != nil {
			fmt.Printf("FAIL %s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Printf("ok %s (%s)\n", def.Metadata.ID, path)
	}
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed validation", failed)
	}
	return nil
}
