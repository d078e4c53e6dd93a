package loader

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll(%s): %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
}

func TestLoad_MergesRootConfigAndExpandsVars(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "config.yml"), `
provider: github-actions
architectures: [amd64]
vars:
  image_tag: "22.04"
`)
	writeFile(t, filepath.Join(root, "config", "extra.yml"), `
output_path: ".github/workflows"
`)
	writeFile(t, filepath.Join(root, "workflows", "ci", "config.yml"), `
stages: [build]
`)
	writeFile(t, filepath.Join(root, "workflows", "ci", "jobs", "build.yml"), `
build:
  stage: build
  image: "cimg/base:ubuntu-{{ image_tag }}"
`)

	cfg, err := Load(root, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "github-actions" {
		t.Errorf("Provider = %q, want github-actions", cfg.Provider)
	}
	if cfg.OutputPath != ".github/workflows" {
		t.Errorf("OutputPath = %q, want .github/workflows", cfg.OutputPath)
	}
	wf, ok := cfg.Workflows["ci"]
	if !ok {
		t.Fatal("expected workflow \"ci\" to be loaded")
	}
	job, ok := wf.Jobs["build"]
	if !ok {
		t.Fatal("expected job \"build\" to be loaded")
	}
	if job.Image != "cimg/base:ubuntu-22.04" {
		t.Errorf("job.Image = %q, want template-expanded cimg/base:ubuntu-22.04", job.Image)
	}
}

func TestLoad_CLIVarsOverrideConfigVars(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "config.yml"), `
provider: circleci
vars:
  env_name: staging
`)
	writeFile(t, filepath.Join(root, "workflows", "ci", "jobs", "deploy.yml"), `
deploy:
  image: "deploy-{{ env_name }}"
`)

	cfg, err := Load(root, map[string]string{"env_name": "production"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	job := cfg.Workflows["ci"].Jobs["deploy"]
	if job.Image != "deploy-production" {
		t.Errorf("job.Image = %q, want CLI var to win over config var", job.Image)
	}
}

func TestLoad_UnknownTopLevelKeyIsDiagnosed(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "config.yml"), `
provider: circleci
totally_bogus_key: true
`)

	_, err := Load(root, nil)
	if err == nil {
		t.Fatal("expected an error for an unrecognized top-level key")
	}
}

func TestLoad_DuplicateJobIDAcrossFilesErrors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "config.yml"), `provider: circleci`)
	writeFile(t, filepath.Join(root, "workflows", "ci", "jobs", "a.yml"), `
build:
  image: "golang:1"
`)
	writeFile(t, filepath.Join(root, "workflows", "ci", "jobs", "b.yml"), `
build:
  image: "golang:2"
`)

	_, err := Load(root, nil)
	if err == nil {
		t.Fatal("expected a duplicate-job-id error")
	}
}

func TestLoad_MissingConfigIsIOOrConfigError(t *testing.T) {
	root := t.TempDir()
	if _, err := Load(root, nil); err == nil {
		t.Fatal("expected an error when no config.yml or config/*.yml exists")
	}
}

func TestLoad_NoWorkflowsDirIsNotAnError(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "config.yml"), `provider: circleci`)

	cfg, err := Load(root, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Workflows) != 0 {
		t.Errorf("expected no workflows, got %v", cfg.Workflows)
	}
}
