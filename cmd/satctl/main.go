// Command satctl inspects the SAT taxonomy, builds roadmaps and filters
// question banks from the command line.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "satctl",
		Short:         "SAT prep taxonomy and roadmap tool",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().Bool("json", false, "Print JSON instead of text")

	root.AddCommand(newTaxonomyCmd())
	root.AddCommand(newRoadmapCmd())
	root.AddCommand(newQuestionsCmd())
	return root
}

// printJSON writes v when --json is set and reports whether it did.
func printJSON(cmd *cobra.Command, v any) (bool, error) {
	asJSON, _ := cmd.Flags().GetBool("json")
	if !asJSON {
		return false, nil
	}
	return true, writeJSON(cmd.OutOrStdout(), v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
