package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromPathReadsAgentSection(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "promptforge.yaml")
	content := `agent:
  name: planner
  model: claude-main
  debug: true
  spec_path: specs/planner.yaml
  shape_path: /abs/shape.yaml
promptbuild:
  root_dir: work
schedules:
  - name: nightly
    schedule: "0 3 * * *"
    actions: [reply]
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Agent.Name != "planner" || cfg.Agent.Model != "claude-main" || !cfg.Agent.Debug {
		t.Fatalf("unexpected agent section: %#v", cfg.Agent)
	}
	if cfg.Agent.EndPromptString != DefaultEndPromptString {
		t.Fatalf("expected default end prompt string, got %q", cfg.Agent.EndPromptString)
	}
	if cfg.Agent.SpecPath != filepath.Join(tmp, "specs", "planner.yaml") {
		t.Fatalf("expected spec path resolved against config dir, got %q", cfg.Agent.SpecPath)
	}
	if cfg.Agent.ShapePath != "/abs/shape.yaml" {
		t.Fatalf("expected absolute shape path untouched, got %q", cfg.Agent.ShapePath)
	}
	if cfg.PromptBuild.RootDir != filepath.Join(tmp, "work") {
		t.Fatalf("unexpected root dir: %q", cfg.PromptBuild.RootDir)
	}
	if cfg.PromptBuild.TemplatesDir != "prompts" {
		t.Fatalf("expected default templates dir to survive partial section, got %q", cfg.PromptBuild.TemplatesDir)
	}
	if cfg.PromptBuild.SQLitePath != cfg.Persist.Path {
		t.Fatalf("expected history path to default to persist path")
	}
	if len(cfg.Schedules) != 1 || cfg.Schedules[0].Actions[0] != "reply" {
		t.Fatalf("unexpected schedules: %#v", cfg.Schedules)
	}
}

func TestLoadFromPathEnvOverrides(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "promptforge.yaml")
	if err := os.WriteFile(cfgPath, []byte("agent:\n  model: from-file\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PROMPTFORGE_MODEL", "from-env")
	t.Setenv("PROMPTFORGE_DEBUG", "1")

	cfg, err := LoadFromPath(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Agent.Model != "from-env" {
		t.Fatalf("expected env model override, got %q", cfg.Agent.Model)
	}
	if !cfg.Agent.Debug {
		t.Fatalf("expected env debug override")
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml"))
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
