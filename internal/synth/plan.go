// Package synth implements spec.md §4.6, the Step Synthesizer (C7): for
// every graph node it produces the ordered, provider-neutral step list —
// checkout, skip-check, cache restore, package install, user steps,
// cache-path validation, cache save, exists-marker, artifact/test-result
// upload — leaving the translation into provider YAML entirely to
// internal/emit. Grounded on the teacher's imageEngine.Plan in
// src/build/engines/image.go: resolve defaults, expand templated fields,
// build an ordered step list, return one Plan value per unit of work.
package synth

import (
	"context"
	"fmt"
	"sort"

	"github.com/cigen-dev/cigen/internal/cachekey"
	"github.com/cigen-dev/cigen/internal/hash"
	"github.com/cigen-dev/cigen/internal/model"
)

// JobPlan is the fully synthesized, provider-neutral form of one
// (workflow, job, arch) node: its ordered step list plus the cache
// resolutions and hash the emitter needs to realize cache actions and the
// skip-check gate.
type JobPlan struct {
	Workflow string
	JobID    string
	Arch     string
	Job      *model.Job

	Steps []model.Step

	JobHash      hash.Digest
	SkipCacheKey string
	HasSkipCheck bool

	Caches []ResolvedCache // sorted by cache name
}

// ResolvedCache pairs a job's cache name with its resolved key material.
type ResolvedCache struct {
	Name     string
	Decl     model.CacheDecl
	Resolved cachekey.Resolved
}

// Plan builds the JobPlan for one node. rootDir is the project root (for
// tracked-file listing and version/checksum probing); osInfo identifies
// the runner platform the cache key is built against.
func Plan(ctx context.Context, rootDir string, cfg *model.Config, wf *model.Workflow, job *model.Job, arch string, osInfo cachekey.OSInfo) (*JobPlan, error) {
	p := &JobPlan{
		Workflow: wf.Name,
		JobID:    job.ID,
		Arch:     arch,
		Job:      job,
	}

	caches, err := resolveCaches(ctx, rootDir, job, cfg, arch, osInfo)
	if err != nil {
		return nil, err
	}
	p.Caches = caches

	digest, err := hash.Job(rootDir, cfg, wf.Name, job, arch)
	if err != nil {
		return nil, err
	}
	p.JobHash = digest
	p.SkipCacheKey = hash.SkipCacheKey(wf.Name, job.ID, arch, digest)
	p.HasSkipCheck = wantsSkipCheck(cfg, wf, job)

	steps, err := synthesizeSteps(cfg, job, p)
	if err != nil {
		return nil, err
	}
	p.Steps = steps
	return p, nil
}

// wantsSkipCheck implements spec.md §4.6 item 2's gating condition: only
// jobs declaring source_files, and only when the workflow isn't a CircleCI
// dynamic-setup workflow (which filters nodes out before the job config is
// even generated, making an in-job skip redundant).
func wantsSkipCheck(cfg *model.Config, wf *model.Workflow, job *model.Job) bool {
	if job.SourceFiles == nil {
		return false
	}
	if wf.Dynamic && cfg.Provider == "circleci" {
		return false
	}
	return true
}

func resolveCaches(ctx context.Context, rootDir string, job *model.Job, cfg *model.Config, arch string, osInfo cachekey.OSInfo) ([]ResolvedCache, error) {
	names := make([]string, 0, len(job.Cache))
	for name := range job.Cache {
		names = append(names, name)
	}
	sort.Strings(names) // declaration order is lost to the Go map; sorted order keeps output deterministic

	out := make([]ResolvedCache, 0, len(names))
	for _, name := range names {
		decl := job.Cache[name]
		resolved, err := cachekey.Resolve(ctx, rootDir, name, decl, cfg.CacheDefs, arch, osInfo)
		if err != nil {
			return nil, fmt.Errorf("job %q: cache %q: %w", job.ID, name, err)
		}
		out = append(out, ResolvedCache{Name: name, Decl: decl, Resolved: resolved})
	}
	return out, nil
}

func runStep(name, command string) model.Step {
	return model.Step{Kind: model.StepKindRun, Run: &model.RunStep{Name: name, Command: command}}
}
