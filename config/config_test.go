package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "data:\n  target: price\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Http.Port != 8000 {
		t.Errorf("default port = %d, want 8000", cfg.Http.Port)
	}
	if cfg.Registry.DefaultAlias != "production" {
		t.Errorf("default alias = %q, want production", cfg.Registry.DefaultAlias)
	}
	if cfg.Preprocessing.Scaler != "standard" {
		t.Errorf("default scaler = %q, want standard", cfg.Preprocessing.Scaler)
	}
	if cfg.Data.TestSize != 0.2 {
		t.Errorf("default test_size = %v, want 0.2", cfg.Data.TestSize)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, "registry:\n  uri: http://file-registry:5000\n")
	t.Setenv("REGISTRY_URI", "http://env-registry:5000")
	t.Setenv("APP_PORT", "9100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Registry.URI != "http://env-registry:5000" {
		t.Errorf("env should win over file, got %q", cfg.Registry.URI)
	}
	if cfg.Http.Port != 9100 {
		t.Errorf("port = %d, want 9100", cfg.Http.Port)
	}
}

func TestValidation(t *testing.T) {
	cases := map[string]string{
		"bad test_size":   "data:\n  test_size: 1.5\n",
		"bad scaler":      "preprocessing:\n  scaler: zscore\n",
		"negative weight": "ensemble:\n  weights:\n    random_forest: -1\n",
	}
	for name, content := range cases {
		if _, err := Load(writeConfig(t, content)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}
