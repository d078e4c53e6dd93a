package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cigen-dev/cigen/internal/pipeline"
)

var hashJobFlag string

var hashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Print the canonical job hash",
	RunE:  runHash,
}

func init() {
	hashCmd.Flags().StringVar(&hashJobFlag, "job", "", "workflow/job[@arch] to hash")
	rootCmd.AddCommand(hashCmd)
}

func runHash(cmd *cobra.Command, args []string) error {
	workflow, job, arch, err := parseJobRef(hashJobFlag)
	if err != nil {
		return err
	}
	digest, err := pipeline.Hash(model, workflow, job, arch)
	if err != nil {
		return err
	}
	fmt.Println(string(digest))
	return nil
}

// parseJobRef parses the `workflow/job[@arch]` syntax spec.md §6 names for
// --job. arch defaults to "", which names a node only when the config
// declares no architectures at all: internal/graph's archesFor gives a job
// without its own architectures the config's first architecture.
func parseJobRef(ref string) (workflow, job, arch string, err error) {
	wf, rest, ok := strings.Cut(ref, "/")
	if !ok {
		return "", "", "", fmt.Errorf("--job must be workflow/job[@arch], got %q", ref)
	}
	job, arch, _ = strings.Cut(rest, "@")
	return wf, job, arch, nil
}
