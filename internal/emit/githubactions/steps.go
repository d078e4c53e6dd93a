package githubactions

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cigen-dev/cigen/internal/cachekey"
	"github.com/cigen-dev/cigen/internal/emit"
	"github.com/cigen-dev/cigen/internal/model"
	"github.com/cigen-dev/cigen/internal/synth"
)

// setupActionFor maps a `packages:` entry to the GitHub-hosted runtime
// setup action spec.md's S1 scenario names explicitly ("checkout ->
// setup-node -> cache restore ..."). CircleCI needs no equivalent — its
// runtime comes from the job's docker image — so this table lives in the
// GitHub emitter only, not in internal/synth's provider-neutral plan.
var setupActionFor = map[string]string{
	"node":   "actions/setup-node@v4",
	"ruby":   "ruby/setup-ruby@v1",
	"python": "actions/setup-python@v5",
	"rust":   "dtolnay/rust-toolchain@stable",
}

var setupVersionInput = map[string]string{
	"node":   "node-version",
	"ruby":   "ruby-version",
	"python": "python-version",
}

// buildSteps translates a JobPlan's provider-neutral steps into GitHub
// Actions step nodes, preserving declaration order (spec.md §5) and
// injecting the runtime setup-action steps spec.md's S1 scenario expects
// immediately before the first cache-restore step.
func buildSteps(cfg *model.Config, job *model.Job, plan *synth.JobPlan, isMatrix bool) (*yaml.Node, error) {
	var items []*yaml.Node
	setupInjected := false
	gated := false // true once the skip-check step has run; gates every subsequent step

	for _, s := range plan.Steps {
		if !setupInjected && s.Kind == model.StepKindRestoreCache {
			for _, pkg := range job.Packages {
				items = append(items, setupStep(pkg, plan, gated))
			}
			setupInjected = true
		}

		n, becameGate, err := buildStep(plan, s, isMatrix, gated)
		if err != nil {
			return nil, err
		}
		if becameGate {
			gated = true
		}
		if n != nil {
			items = append(items, n)
		}
	}
	return emit.Seq(items...), nil
}

func setupStep(pkg string, plan *synth.JobPlan, gated bool) *yaml.Node {
	action, ok := setupActionFor[pkg]
	if !ok {
		return emit.Map(emit.Scalar("run"), emit.Scalar("echo no setup action for "+pkg))
	}
	pairs := []*yaml.Node{emit.Scalar("uses"), emit.Scalar(action)}
	if input, ok := setupVersionInput[pkg]; ok {
		if v := versionFor(plan, pkg); v != "" {
			pairs = append(pairs, emit.Scalar("with"), emit.Map(emit.Scalar(input), emit.Scalar(v)))
		}
	}
	return maybeGate(emit.Map(pairs...), gated)
}

// versionFor looks up the resolved runtime version for pkg from the
// job's cache resolutions (cachekey.Resolve already probed it while
// building the cache key's version segment).
func versionFor(plan *synth.JobPlan, pkg string) string {
	cacheName := cachekey.PackageToCache[pkg]
	for _, c := range plan.Caches {
		if c.Name != cacheName {
			continue
		}
		for _, v := range c.Resolved.Versions {
			if v.Tool == pkg {
				return v.Version
			}
		}
	}
	return ""
}

func buildStep(plan *synth.JobPlan, s model.Step, isMatrix bool, alreadyGated bool) (n *yaml.Node, becameSkipGate bool, err error) {
	switch s.Kind {
	case model.StepKindCheckout:
		return emit.Map(emit.Scalar("uses"), emit.Scalar("actions/checkout@v4")), false, nil

	case model.StepKindRun:
		if isSkipCheck(s) {
			return skipCheckStep(s), true, nil
		}
		pairs := []*yaml.Node{emit.Scalar("run"), emit.Scalar(s.Run.Command)}
		if s.Run.Name != "" {
			pairs = append([]*yaml.Node{emit.Scalar("name"), emit.Scalar(s.Run.Name)}, pairs...)
		}
		return maybeGate(emit.Map(pairs...), alreadyGated), false, nil

	case model.StepKindRestoreCache:
		c := cacheByName(plan, s.RestoreCache.Name)
		if c == nil {
			return maybeGate(emit.Map(
				emit.Scalar("uses"), emit.Scalar("actions/cache/restore@v4"),
				emit.Scalar("with"), emit.Map(emit.Scalar("key"), emit.Scalar(s.RestoreCache.Name)),
			), alreadyGated), false, nil
		}
		pairs := []*yaml.Node{
			emit.Scalar("id"), emit.Scalar(cacheStepID(c.Name)),
			emit.Scalar("uses"), emit.Scalar("actions/cache/restore@v4"),
			emit.Scalar("with"), emit.Map(
				emit.Scalar("path"), emit.SeqStrings(c.Resolved.Paths),
				emit.Scalar("key"), emit.Scalar(templatizeArch(c.Resolved.Key, isMatrix)),
				emit.Scalar("restore-keys"), emit.Scalar(templatizeArchLines(c.Resolved.RestoreKeys, isMatrix)),
			),
		}
		return maybeGate(emit.Map(pairs...), alreadyGated), false, nil

	case model.StepKindSaveCache:
		c := cacheByName(plan, s.SaveCache.Name)
		if c == nil {
			return nil, false, fmt.Errorf("save_cache: unresolved cache %q", s.SaveCache.Name)
		}
		pairs := []*yaml.Node{
			emit.Scalar("if"), emit.Scalar(gateExpr(fmt.Sprintf("steps.%s.outputs.cache-hit != 'true'", cacheStepID(c.Name)), alreadyGated)),
			emit.Scalar("uses"), emit.Scalar("actions/cache/save@v4"),
			emit.Scalar("with"), emit.Map(
				emit.Scalar("path"), emit.SeqStrings(c.Resolved.Paths),
				emit.Scalar("key"), emit.Scalar(templatizeArch(c.Resolved.Key, isMatrix)),
			),
		}
		return emit.Map(pairs...), false, nil

	case model.StepKindStoreTestResults:
		return maybeGate(emit.Map(
			emit.Scalar("if"), emit.Scalar("always()"),
			emit.Scalar("uses"), emit.Scalar("actions/upload-artifact@v4"),
			emit.Scalar("with"), emit.Map(
				emit.Scalar("name"), emit.Scalar("test-results"),
				emit.Scalar("path"), emit.Scalar(s.StoreTestResults.Path),
			),
		), false), false, nil

	case model.StepKindStoreArtifacts:
		return maybeGate(emit.Map(
			emit.Scalar("uses"), emit.Scalar("actions/upload-artifact@v4"),
			emit.Scalar("with"), emit.Map(
				emit.Scalar("name"), emit.Scalar("artifacts"),
				emit.Scalar("path"), emit.Scalar(s.StoreArtifacts.Path),
			),
		), alreadyGated), false, nil

	case model.StepKindUsesModule:
		pairs := []*yaml.Node{emit.Scalar("uses"), emit.Scalar(s.UsesModule.Module)}
		if len(s.UsesModule.Parameters) > 0 {
			pairs = append(pairs, emit.Scalar("with"), emit.SortedMap(stringMapNodes(s.UsesModule.Parameters)))
		}
		return maybeGate(emit.Map(pairs...), alreadyGated), false, nil

	case model.StepKindUsesCommand:
		return nil, false, fmt.Errorf("uses(command) step %q reached the emitter unexpanded", s.UsesCommand.Command)

	default:
		return nil, false, fmt.Errorf("unrecognized step kind %q", s.Kind)
	}
}

// isSkipCheck identifies the synthesizer's skip-check run step by the
// literal name internal/synth always gives it (skipCheckCommand's
// caller in internal/synth/steps.go: runStep("skip check", ...)).
func isSkipCheck(s model.Step) bool {
	return s.Kind == model.StepKindRun && s.Run != nil && s.Run.Name == "skip check"
}

// skipCheckStep realizes spec.md §4.7's GitHub early-exit gate: the step
// captures its shell command's result into a `skip` output via
// $GITHUB_OUTPUT, which every later step's if: then consults.
func skipCheckStep(s model.Step) *yaml.Node {
	script := fmt.Sprintf(
		`if %s; then echo "skip=true" >> "$GITHUB_OUTPUT"; else echo "skip=false" >> "$GITHUB_OUTPUT"; fi`,
		s.Run.Command,
	)
	return emit.Map(
		emit.Scalar("id"), emit.Scalar("skip_check"),
		emit.Scalar("name"), emit.Scalar(s.Run.Name),
		emit.Scalar("run"), emit.Scalar(script),
	)
}

const skipGateCondition = "steps.skip_check.outputs.skip != 'true'"

// maybeGate attaches the skip-check if: condition to a step node once the
// skip-check step has already run — spec.md §4.7: "subsequent steps are
// gated by if: steps.skip_check.outputs.skip != 'true'."
func maybeGate(n *yaml.Node, gated bool) *yaml.Node {
	if !gated {
		return n
	}
	return prependPair(n, emit.Scalar("if"), emit.Scalar(skipGateCondition))
}

// gateExpr combines an existing if: condition with the skip gate when one
// applies.
func gateExpr(expr string, gated bool) string {
	if !gated {
		return expr
	}
	return skipGateCondition + " && (" + expr + ")"
}

func prependPair(n *yaml.Node, key, val *yaml.Node) *yaml.Node {
	content := append([]*yaml.Node{key, val}, n.Content...)
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: content}
}

func cacheByName(plan *synth.JobPlan, name string) *synth.ResolvedCache {
	for i := range plan.Caches {
		if plan.Caches[i].Name == name {
			return &plan.Caches[i]
		}
	}
	return nil
}

func cacheStepID(name string) string { return "cache-" + name }

// templatizeArch replaces the sanitized architecture segment of a
// resolved cache key with GitHub's matrix expression, per spec.md §4.7's
// GitHub scenario S2: "single job definition using ${{ matrix.arch }}
// wherever the arch enters the cache key."
func templatizeArch(key string, isMatrix bool) string {
	if !isMatrix {
		return key
	}
	parts := strings.Split(key, "-")
	if len(parts) > 2 {
		parts[2] = "${{ matrix.arch }}"
	}
	return strings.Join(parts, "-")
}

func templatizeArchLines(keys []string, isMatrix bool) string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = templatizeArch(k, isMatrix)
	}
	return strings.Join(out, "\n")
}
