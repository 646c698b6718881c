package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadConfigDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), false)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigExplicitMissingFileFails(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), true); err == nil {
		t.Fatal("expected error for explicit missing config file")
	}
}

func TestLoadConfigYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acfgen.yaml")
	data := []byte(`
tool_path: /opt/sks/gen.exe
debug: true
invoke_timeout: 90s
compat:
  commands: [wine64]
  auto_install: false
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path, true)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ToolPath != "/opt/sks/gen.exe" || !cfg.Debug {
		t.Errorf("unexpected tool path/debug: %q %v", cfg.ToolPath, cfg.Debug)
	}
	if cfg.InvokeTimeout != 90*time.Second {
		t.Errorf("invoke timeout: got %s", cfg.InvokeTimeout)
	}
	if diff := cmp.Diff([]string{"wine64"}, cfg.Compat.Commands); diff != "" {
		t.Errorf("compat commands (-want +got):\n%s", diff)
	}
	if cfg.Compat.AutoInstall {
		t.Error("expected auto_install=false from file")
	}
	// Untouched keys keep their defaults.
	if cfg.PrimaryURL != DefaultPrimaryURL {
		t.Errorf("primary url: got %q", cfg.PrimaryURL)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acfgen.yaml")
	if err := os.WriteFile(path, []byte("working_dir: /from/file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ACFGEN_WORKING_DIR", "/from/env")
	t.Setenv("ACFGEN_COMPAT_COMMANDS", "wine,wine-stable")

	cfg, err := LoadConfig(path, true)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.WorkingDir != "/from/env" {
		t.Errorf("working dir: got %q", cfg.WorkingDir)
	}
	if diff := cmp.Diff([]string{"wine", "wine-stable"}, cfg.Compat.Commands); diff != "" {
		t.Errorf("compat commands (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.InvokeTimeout = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero invoke timeout")
	}
	cfg = Default()
	cfg.ToolPath = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty tool path")
	}
}

func TestStatePath(t *testing.T) {
	cfg := Default()
	cfg.ToolPath = filepath.Join("a", "b", "tool.exe")
	if got := cfg.StatePath(); got != filepath.Join("a", "b", ".acfgen-state.json") {
		t.Fatalf("unexpected state path: %q", got)
	}
	cfg.StateFile = "custom.json"
	if got := cfg.StatePath(); got != "custom.json" {
		t.Fatalf("unexpected state path: %q", got)
	}
}

func TestResolveWorkingDir(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	got, err := ResolveWorkingDir("")
	if err != nil || got != wd {
		t.Fatalf("ResolveWorkingDir(\"\") = %q, %v; want %q", got, err, wd)
	}
	got, err = ResolveWorkingDir("out")
	if err != nil || got != filepath.Join(wd, "out") {
		t.Fatalf("ResolveWorkingDir(\"out\") = %q, %v", got, err)
	}
}
