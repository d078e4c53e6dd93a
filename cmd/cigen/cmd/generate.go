package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cigen-dev/cigen/internal/graph"
	"github.com/cigen-dev/cigen/internal/pipeline"
)

var (
	genProvider  string
	genWorkflow  string
	genOutputDir string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Render provider-native CI configuration",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genProvider, "provider", "", "provider to emit for (default: config's provider)")
	generateCmd.Flags().StringVar(&genWorkflow, "workflow", "", "restrict emission to one workflow")
	generateCmd.Flags().StringVar(&genOutputDir, "output-dir", "", "override output_path")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	skipped, err := skippedNodesFromEnv(model.Graph)
	if err != nil {
		return err
	}

	files, diags, err := pipeline.Generate(model, genProvider, skipped)
	logDiagnostics(diags)
	if err != nil {
		return err
	}

	outDir := genOutputDir
	if outDir == "" {
		outDir = model.Config.OutputPath
	}
	if outDir == "" {
		outDir = "."
	}

	for relPath, content := range files {
		if genWorkflow != "" && !belongsToWorkflow(relPath, genWorkflow) {
			continue
		}
		dest := filepath.Join(outDir, relPath)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("generate: %w", err)
		}
		if err := os.WriteFile(dest, content, 0o644); err != nil {
			return fmt.Errorf("generate: %w", err)
		}
		log.Info().Str("path", dest).Msg("wrote file")
	}
	return nil
}

func belongsToWorkflow(relPath, workflow string) bool {
	return filepath.Base(relPath) == workflow+".yml" || filepath.Base(filepath.Dir(relPath)) == workflow
}

// skippedNodesFromEnv reads CIGEN_SKIP_JOBS_FILE, per spec.md §6: "path to
// newline-separated `<job>_<arch>` list consumed by the emitter to prune
// nodes." Absent the env var, nothing is skipped.
func skippedNodesFromEnv(g *graph.Graph) (map[graph.NodeId]bool, error) {
	path := os.Getenv("CIGEN_SKIP_JOBS_FILE")
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading CIGEN_SKIP_JOBS_FILE: %w", err)
	}
	names := map[string]bool{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		names[line] = true
	}
	return pipeline.SkippedNodesFromList(g, names), nil
}
