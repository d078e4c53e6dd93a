package circleci

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/cigen-dev/cigen/internal/emit"
	"github.com/cigen-dev/cigen/internal/model"
	"github.com/cigen-dev/cigen/internal/synth"
)

// buildSteps translates a JobPlan's provider-neutral steps into CircleCI
// step nodes, in the order the synthesizer produced them (spec.md §5:
// "within a job, step declaration order is preserved").
func buildSteps(plan *synth.JobPlan) (*yaml.Node, error) {
	var items []*yaml.Node
	for _, s := range plan.Steps {
		n, err := buildStep(plan, s)
		if err != nil {
			return nil, err
		}
		if n != nil {
			items = append(items, n)
		}
	}
	return emit.Seq(items...), nil
}

func buildStep(plan *synth.JobPlan, s model.Step) (*yaml.Node, error) {
	switch s.Kind {
	case model.StepKindCheckout:
		return emit.Scalar("checkout"), nil
	case model.StepKindRun:
		pairs := []*yaml.Node{emit.Scalar("command"), emit.Scalar(s.Run.Command)}
		if s.Run.Name != "" {
			pairs = append([]*yaml.Node{emit.Scalar("name"), emit.Scalar(s.Run.Name)}, pairs...)
		}
		return emit.Map(emit.Scalar("run"), emit.Map(pairs...)), nil
	case model.StepKindRestoreCache:
		keys := restoreKeysFor(plan, s.RestoreCache.Name)
		return emit.Map(emit.Scalar("restore_cache"), emit.Map(
			emit.Scalar("keys"), emit.SeqStrings(keys),
		)), nil
	case model.StepKindSaveCache:
		c := cacheByName(plan, s.SaveCache.Name)
		if c == nil {
			return nil, fmt.Errorf("save_cache: unresolved cache %q", s.SaveCache.Name)
		}
		return emit.Map(emit.Scalar("save_cache"), emit.Map(
			emit.Scalar("key"), emit.Scalar(c.Resolved.Key),
			emit.Scalar("paths"), emit.SeqStrings(c.Resolved.Paths),
		)), nil
	case model.StepKindStoreTestResults:
		return emit.Map(emit.Scalar("store_test_results"), emit.Map(
			emit.Scalar("path"), emit.Scalar(s.StoreTestResults.Path),
		)), nil
	case model.StepKindStoreArtifacts:
		return emit.Map(emit.Scalar("store_artifacts"), emit.Map(
			emit.Scalar("path"), emit.Scalar(s.StoreArtifacts.Path),
		)), nil
	case model.StepKindUsesModule:
		pairs := make([]*yaml.Node, 0, len(s.UsesModule.Parameters)*2)
		for k, v := range s.UsesModule.Parameters {
			pairs = append(pairs, emit.Scalar(k), emit.Scalar(v))
		}
		return emit.Map(emit.Scalar(s.UsesModule.Module), emit.SortedMap(pairsToMap(pairs))), nil
	case model.StepKindUsesCommand:
		// internal/synth already inlines uses(command) references into
		// their underlying steps; reaching this case means a command
		// referenced itself or was otherwise left unexpanded.
		return nil, fmt.Errorf("uses(command) step %q reached the emitter unexpanded", s.UsesCommand.Command)
	default:
		return nil, fmt.Errorf("unrecognized step kind %q", s.Kind)
	}
}

func pairsToMap(pairs []*yaml.Node) map[string]*yaml.Node {
	m := map[string]*yaml.Node{}
	for i := 0; i+1 < len(pairs); i += 2 {
		m[pairs[i].Value] = pairs[i+1]
	}
	return m
}

func cacheByName(plan *synth.JobPlan, name string) *synth.ResolvedCache {
	for i := range plan.Caches {
		if plan.Caches[i].Name == name {
			return &plan.Caches[i]
		}
	}
	return nil
}

func restoreKeysFor(plan *synth.JobPlan, name string) []string {
	if c := cacheByName(plan, name); c != nil {
		return c.Resolved.RestoreKeys
	}
	// restore_cache entries not backed by a declared cache: block (see
	// model.Job.RestoreCache) have no computed key material — fall back
	// to the bare name as a best-effort literal key.
	return []string{name}
}
