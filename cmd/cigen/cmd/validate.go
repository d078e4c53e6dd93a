package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cigen-dev/cigen/internal/diag"
	"github.com/cigen-dev/cigen/internal/pipeline"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run schema and graph checks without emitting",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	diags := pipeline.Validate(model)
	logDiagnostics(diags)
	if n := countErrors(diags); n > 0 {
		return &validationFailedError{count: n}
	}
	return nil
}

// validationFailedError maps `cigen validate` to exit code 2 (spec.md §6)
// without forcing every internal/diag.Diagnostic it summarizes into one of
// the taxonomy's single-cause error types.
type validationFailedError struct{ count int }

func (e *validationFailedError) Error() string {
	return fmt.Sprintf("validation failed: %d error(s)", e.count)
}

func countErrors(diags []diag.Diagnostic) int {
	n := 0
	for _, d := range diags {
		if d.Severity == diag.SeverityError {
			n++
		}
	}
	return n
}
