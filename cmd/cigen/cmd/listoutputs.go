package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cigen-dev/cigen/internal/pipeline"
)

var listOutputsProvider string

var listOutputsCmd = &cobra.Command{
	Use:   "list-outputs",
	Short: "Enumerate files that would be written",
	RunE:  runListOutputs,
}

func init() {
	listOutputsCmd.Flags().StringVar(&listOutputsProvider, "provider", "", "provider to emit for (default: config's provider)")
	rootCmd.AddCommand(listOutputsCmd)
}

func runListOutputs(cmd *cobra.Command, args []string) error {
	paths, err := pipeline.Outputs(model, listOutputsProvider)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}
