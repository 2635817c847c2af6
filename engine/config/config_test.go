package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Renderer.Backend != BackendVulkan {
		t.Errorf("default backend = %q", cfg.Renderer.Backend)
	}
	if cfg.Limits.MaxBindGroupCount == 0 {
		t.Error("default max_bind_group_count must be > 0")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vulcano.toml")
	body := `
[renderer]
backend = "null"
application_name = "testapp"
log_level = "warn"

[limits]
max_bind_group_count = 32
descriptor_pool_headroom = 2

[trace]
enabled = true
path = "trace.jsonl"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Renderer.Backend != BackendNull {
		t.Errorf("backend = %q, want null", cfg.Renderer.Backend)
	}
	if cfg.Limits.MaxBindGroupCount != 32 {
		t.Errorf("max_bind_group_count = %d, want 32", cfg.Limits.MaxBindGroupCount)
	}
	if cfg.Limits.DescriptorPoolHeadroom != 2 {
		t.Errorf("descriptor_pool_headroom = %d, want 2", cfg.Limits.DescriptorPoolHeadroom)
	}
	// Untouched sections keep their defaults.
	if cfg.Limits.MaxBufferCount != Default().Limits.MaxBufferCount {
		t.Errorf("max_buffer_count = %d, want default", cfg.Limits.MaxBufferCount)
	}
	if !cfg.Trace.Enabled || cfg.Trace.Path != "trace.jsonl" {
		t.Errorf("trace = %+v", cfg.Trace)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vulcano.toml")
	if err := os.WriteFile(path, []byte("[renderer]\nbackend = \"metal\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load should reject an unknown backend")
	}
}
