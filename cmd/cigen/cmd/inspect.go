package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect resolved pipeline state",
}

var inspectCacheCmd = &cobra.Command{
	Use:   "cache <workflow/job[@arch]>",
	Short: "Print the cache keys that would be used by a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspectCache,
}

func init() {
	inspectCmd.AddCommand(inspectCacheCmd)
	rootCmd.AddCommand(inspectCmd)
}

func runInspectCache(cmd *cobra.Command, args []string) error {
	workflow, job, arch, err := parseJobRef(args[0])
	if err != nil {
		return err
	}
	id, ok := model.Graph.Lookup(workflow, job, arch)
	if !ok {
		return fmt.Errorf("no such node %s/%s@%s", workflow, job, arch)
	}
	plan := model.Plans[id]
	for _, c := range plan.Caches {
		fmt.Printf("%s\t%s\n", c.Name, c.Resolved.Key)
		for _, rk := range c.Resolved.RestoreKeys {
			fmt.Printf("%s\trestore:%s\n", c.Name, rk)
		}
	}
	return nil
}
