package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/raps-stack/rapsflow/internal/types"
)

var (
	listCategory string
	listJSON     bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available workflows",
	Long: `List workflow definitions discovered in the workflows directory.

Examples:
  rapsflow list
  rapsflow list --category object-storage
  rapsflow list --json`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listCategory, "category", "", "filter by category")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	_, _, closer, loader, err := setup()
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	defs, err := loader.Discover()
	if err != nil {
		return err
	}

	if listCategory != "" {
		cat := types.Category(listCategory)
		if !cat.Valid() {
			return fmt.Errorf("unknown category %q", listCategory)
		}
		filtered := defs[:0]
		for _, def := range defs {
			if def.Metadata.Category == cat {
				filtered = append(filtered, def)
			}
		}
		defs = filtered
	}

	if listJSON {
		metas := make([]types.Metadata, 0, len(defs))
		for _, def := range defs {
			metas = append(metas, def.Metadata)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(metas)
	}

	if len(defs) == 0 {
		fmt.Println("No workflows found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCATEGORY\tSTEPS\tNAME")
	for _, def := range defs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			def.Metadata.ID, def.Metadata.Category, len(def.Steps), def.Metadata.Name)
	}
	return w.Flush()
}
