package tmpl

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestExpand_SubstitutesVariable(t *testing.T) {
	e := New(t.TempDir(), map[string]any{"name": "cigen"})
	got, err := e.Expand("hello {{ name }}")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if got != "hello cigen" {
		t.Fatalf("Expand() = %q, want %q", got, "hello cigen")
	}
}

func TestExpand_UndefinedVariableErrors(t *testing.T) {
	e := New(t.TempDir(), map[string]any{})
	if _, err := e.Expand("{{ does_not_exist }}"); err == nil {
		t.Fatal("expected an error for an undefined template variable")
	}
}

func TestExpand_NonTemplateStringPassesThrough(t *testing.T) {
	e := New(t.TempDir(), nil)
	got, err := e.Expand("plain string, no braces")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if got != "plain string, no braces" {
		t.Fatalf("Expand() = %q, want unchanged input", got)
	}
}

func TestExpandAny_WalksNestedMapsAndSlices(t *testing.T) {
	e := New(t.TempDir(), map[string]any{"tag": "22.04"})
	v := map[string]any{
		"image": "ubuntu-{{ tag }}",
		"steps": []any{"echo {{ tag }}", map[string]any{"run": "build-{{ tag }}"}},
	}

	out, err := e.ExpandAny(v)
	if err != nil {
		t.Fatalf("ExpandAny: %v", err)
	}
	m := out.(map[string]any)
	if m["image"] != "ubuntu-22.04" {
		t.Errorf("image = %q, want ubuntu-22.04", m["image"])
	}
	steps := m["steps"].([]any)
	if steps[0] != "echo 22.04" {
		t.Errorf("steps[0] = %q, want %q", steps[0], "echo 22.04")
	}
	nested := steps[1].(map[string]any)
	if nested["run"] != "build-22.04" {
		t.Errorf("steps[1].run = %q, want %q", nested["run"], "build-22.04")
	}
}

func TestExpandYAMLScalars_LeavesKeysUntouched(t *testing.T) {
	e := New(t.TempDir(), map[string]any{"v": "1.2.3"})
	var node yaml.Node
	if err := yaml.Unmarshal([]byte("image: ubuntu-{{ v }}\n"), &node); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if err := e.ExpandYAMLScalars(&node); err != nil {
		t.Fatalf("ExpandYAMLScalars: %v", err)
	}

	out, err := yaml.Marshal(&node)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := "image: ubuntu-1.2.3\n"
	if string(out) != want {
		t.Fatalf("ExpandYAMLScalars() produced %q, want %q", out, want)
	}
}

func TestReadFunc_RejectsPathEscapingRoot(t *testing.T) {
	root := t.TempDir()

	e := New(root, nil)
	if _, err := e.readFunc("../secret.txt"); err == nil {
		t.Fatal("expected read() to reject a path escaping the project root")
	}
}

func TestReadFunc_ReturnsFileContents(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "VERSION"), []byte("1.0.0"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	e := New(root, nil)
	got, err := e.readFunc("VERSION")
	if err != nil {
		t.Fatalf("readFunc: %v", err)
	}
	if got != "1.0.0" {
		t.Fatalf("readFunc() = %q, want %q", got, "1.0.0")
	}
}

func TestSemverCompareFilter_OrdersVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.2.3", "1.2.4", -1},
		{"2.0.0", "1.9.9", 1},
		{"1.0.0", "1.0.0", 0},
	}
	for _, c := range cases {
		got, err := semverCompareFilter(c.a, c.b)
		if err != nil {
			t.Fatalf("semverCompareFilter(%q, %q): %v", c.a, c.b, err)
		}
		if got != c.want {
			t.Errorf("semverCompareFilter(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestVarPrecedence_CLIWinsOverEnvOverConfig(t *testing.T) {
	t.Setenv("CIGEN_VAR_LEVEL", "env")
	p := NewVarPrecedence(map[string]string{"level": "config"}, map[string]string{"level": "cli"})
	resolved := p.Resolve()
	if resolved["level"] != "cli" {
		t.Fatalf("Resolve()[\"level\"] = %v, want cli to win", resolved["level"])
	}
}

func TestVarPrecedence_EnvWinsOverConfigWhenCLIAbsent(t *testing.T) {
	t.Setenv("CIGEN_VAR_LEVEL", "env")
	p := NewVarPrecedence(map[string]string{"level": "config"}, nil)
	resolved := p.Resolve()
	if resolved["level"] != "env" {
		t.Fatalf("Resolve()[\"level\"] = %v, want env to win over config", resolved["level"])
	}
}
