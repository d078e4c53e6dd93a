package synth

import (
	"fmt"
	"strings"

	"github.com/cigen-dev/cigen/internal/cachekey"
	"github.com/cigen-dev/cigen/internal/model"
)

// synthesizeSteps builds the nine-phase ordered step list from spec.md
// §4.6. Every phase appends zero or more model.Step values; later phases
// never reorder earlier ones.
func synthesizeSteps(cfg *model.Config, job *model.Job, p *JobPlan) ([]model.Step, error) {
	var steps []model.Step

	// 1. Git checkout.
	if !job.NoCheckout {
		steps = append(steps, model.Step{Kind: model.StepKindCheckout, Checkout: &model.CheckoutStep{}})
	}

	// 2. Skip-check.
	if p.HasSkipCheck {
		steps = append(steps, runStep("skip check", skipCheckCommand(p.SkipCacheKey)))
	}

	// 3. Cache restore, one per declared cache.
	for _, c := range p.Caches {
		steps = append(steps, model.Step{Kind: model.StepKindRestoreCache, RestoreCache: &model.RestoreCacheStep{Name: c.Name}})
	}

	// Explicit restore_cache entries (convenience restores that don't
	// necessarily back a declared `cache:` block, per RestoreCacheEntry).
	for _, rc := range job.RestoreCache {
		steps = append(steps, model.Step{Kind: model.StepKindRestoreCache, RestoreCache: &model.RestoreCacheStep{Name: rc.Name}})
	}

	// 4. Package install.
	for _, pkg := range job.Packages {
		cmd, err := installCommandFor(pkg)
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", job.ID, err)
		}
		steps = append(steps, runStep(fmt.Sprintf("install %s packages", pkg), cmd))
	}

	// 5. User steps, with uses(command) references inlined. store_test_results
	// and store_artifacts are pulled out here and replayed at phase 9.
	userSteps, forwarded, err := expandUserSteps(cfg, job.Steps, map[string]bool{})
	if err != nil {
		return nil, fmt.Errorf("job %q: %w", job.ID, err)
	}
	steps = append(steps, userSteps...)

	// 6. Cache-path validation for every non-optional path.
	for _, c := range p.Caches {
		if cmd := validateCachePathsCommand(c); cmd != "" {
			steps = append(steps, runStep(fmt.Sprintf("validate %s cache paths", c.Name), cmd))
		}
	}

	// 7. Cache save, same order and keys as phase 3.
	for _, c := range p.Caches {
		steps = append(steps, model.Step{Kind: model.StepKindSaveCache, SaveCache: &model.SaveCacheStep{Name: c.Name}})
	}

	// 8. Exists-marker, only meaningful alongside a skip-check.
	if p.HasSkipCheck {
		steps = append(steps, runStep("record success marker", existsMarkerCommand(p.SkipCacheKey)))
	}

	// 9. Artifact/test-result upload, forwarded in canonical form.
	steps = append(steps, forwarded...)

	return steps, nil
}

func skipCheckCommand(skipKey string) string {
	return fmt.Sprintf(`cigen skipcache check %q`, skipKey)
}

func existsMarkerCommand(skipKey string) string {
	return fmt.Sprintf(`cigen skipcache mark %q`, skipKey)
}

func validateCachePathsCommand(c ResolvedCache) string {
	var required []string
	for _, path := range c.Resolved.Paths {
		required = append(required, path)
	}
	if len(required) == 0 {
		return ""
	}
	var checks []string
	for _, path := range required {
		checks = append(checks, fmt.Sprintf("test -e %q", path))
	}
	return strings.Join(checks, " && ")
}

// installCommandFor derives the install command for a package manager
// name declared under `packages:`, per spec.md §4.6 item 4.
func installCommandFor(pkg string) (string, error) {
	cmd := cachekey.InstallCommand(pkg)
	if cmd == "" {
		return "", fmt.Errorf("unknown package manager %q", pkg)
	}
	return cmd, nil
}

// expandUserSteps inlines uses(command) references from the commands
// library (recursively, guarding against self-reference with seen), leaves
// uses(module) steps untouched for the plugin host to resolve, and splits
// store_test_results/store_artifacts out into a separate forwarded list
// so the caller can replay them at the very end of the step list.
func expandUserSteps(cfg *model.Config, in []model.Step, seen map[string]bool) (normal, forwarded []model.Step, err error) {
	for _, s := range in {
		switch s.Kind {
		case model.StepKindStoreTestResults, model.StepKindStoreArtifacts:
			forwarded = append(forwarded, s)
		case model.StepKindUsesCommand:
			name := s.UsesCommand.Command
			if seen[name] {
				return nil, nil, fmt.Errorf("command %q: self-referential uses chain", name)
			}
			cmd, ok := cfg.Commands[name]
			if !ok {
				return nil, nil, fmt.Errorf("uses: unknown command %q", name)
			}
			expandedCmdSteps := substituteParameters(cmd.Steps, mergeDefaults(cmd.Parameters, s.UsesCommand.Parameters))
			nested := map[string]bool{name: true}
			for k := range seen {
				nested[k] = true
			}
			n, f, err := expandUserSteps(cfg, expandedCmdSteps, nested)
			if err != nil {
				return nil, nil, err
			}
			normal = append(normal, n...)
			forwarded = append(forwarded, f...)
		default:
			normal = append(normal, s)
		}
	}
	return normal, forwarded, nil
}

// mergeDefaults layers a command's ParamSpec defaults under the caller's
// supplied parameter values.
func mergeDefaults(specs []model.ParamSpec, supplied map[string]string) map[string]string {
	merged := map[string]string{}
	for _, s := range specs {
		if s.Default != "" {
			merged[s.Name] = s.Default
		}
	}
	for k, v := range supplied {
		merged[k] = v
	}
	return merged
}

// substituteParameters replaces ${name} tokens in run-step commands and
// names with the resolved parameter values. Only RunStep fields are
// templated; other step kinds carry no free-text fields worth expanding.
func substituteParameters(steps []model.Step, params map[string]string) []model.Step {
	out := make([]model.Step, len(steps))
	for i, s := range steps {
		out[i] = s
		if s.Kind == model.StepKindRun && s.Run != nil {
			r := *s.Run
			r.Command = substituteTokens(r.Command, params)
			r.Name = substituteTokens(r.Name, params)
			out[i].Run = &r
		}
	}
	return out
}

func substituteTokens(s string, params map[string]string) string {
	for k, v := range params {
		s = strings.ReplaceAll(s, "${"+k+"}", v)
	}
	return s
}
