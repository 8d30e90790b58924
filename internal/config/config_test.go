package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != ":8080" || cfg.DBPath != "aquasense.db" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if len(cfg.Analysis.Models) != 3 || cfg.Analysis.Models[0] != "claude-3-5-haiku-20241022" {
		t.Fatalf("unexpected analysis cascade %v", cfg.Analysis.Models)
	}
	if cfg.Analysis.Timeout != 60*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.Analysis.Timeout)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "listen_addr: \":9090\"\nanalysis:\n  models: [model-a, model-b]\n  timeout: 10s\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AQUASENSE_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Fatalf("yaml listen_addr not applied: %s", cfg.ListenAddr)
	}
	if len(cfg.Analysis.Models) != 2 || cfg.Analysis.Timeout != 10*time.Second {
		t.Fatalf("yaml cascade not applied: %+v", cfg.Analysis)
	}
	if len(cfg.Chat.Models) != 1 {
		t.Fatalf("untouched sections must keep defaults: %+v", cfg.Chat)
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("db_path: from-yaml.db\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AQUASENSE_CONFIG", path)
	t.Setenv("AQUASENSE_DB_PATH", "from-env.db")
	t.Setenv("AQUASENSE_ANALYSIS_MODELS", " model-x , model-y ")
	t.Setenv("AQUASENSE_MODEL_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "from-env.db" {
		t.Fatalf("env must win over yaml, got %s", cfg.DBPath)
	}
	if len(cfg.Analysis.Models) != 2 || cfg.Analysis.Models[1] != "model-y" {
		t.Fatalf("csv models not parsed: %v", cfg.Analysis.Models)
	}
	if cfg.Chat.Timeout != 5*time.Second {
		t.Fatalf("timeout override not applied to chat: %v", cfg.Chat.Timeout)
	}
}

func TestLoadRejectsEmptyCascade(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("chat:\n  models: []\n  timeout: 1s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AQUASENSE_CONFIG", path)
	if _, err := Load(); err == nil {
		t.Fatal("empty chat cascade must be rejected")
	}
}
