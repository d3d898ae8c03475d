package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tailored-agentic-units/roundtable/catalog"
)

const seedYAML = `agents:
  - id: navigator
    name: Navigator
    description: Charts the course.
    category: Crew
    avatar_url: /assets/navigator.png
    system_prompt: You are the ship's navigator.
  - id: quartermaster
    name: Quartermaster
    description: Keeps the stores.
    category: Crew
    system_prompt: You are the ship's quartermaster.
`

func TestLoadSeeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	if err := os.WriteFile(path, []byte(seedYAML), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}

	seeds, err := catalog.LoadSeeds(path)
	if err != nil {
		t.Fatalf("LoadSeeds failed: %v", err)
	}

	if len(seeds) != 2 {
		t.Fatalf("got %d seeds, want 2", len(seeds))
	}
	if seeds[0].ID != "navigator" || seeds[0].SystemPrompt != "You are the ship's navigator." {
		t.Errorf("unexpected first seed: %+v", seeds[0])
	}
	if seeds[1].AvatarURL != "" {
		t.Errorf("optional avatar should be empty, got %q", seeds[1].AvatarURL)
	}
}

func TestLoadSeeds_MissingFile(t *testing.T) {
	if _, err := catalog.LoadSeeds(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadSeeds_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	if err := os.WriteFile(path, []byte("agents: {not a list"), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}

	if _, err := catalog.LoadSeeds(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
