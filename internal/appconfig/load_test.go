package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadAppliesDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ConfigVersion != CurrentConfigVersion {
		t.Fatalf("expected config_version %d, got %d", CurrentConfigVersion, cfg.ConfigVersion)
	}
	if !cfg.Features.BrowserTabs {
		t.Fatalf("expected browser_tabs enabled by default")
	}
	if cfg.Gateway.Backend != "chrome" {
		t.Fatalf("expected chrome gateway default, got %q", cfg.Gateway.Backend)
	}
	if cfg.State.Backend != "file" {
		t.Fatalf("expected file state default, got %q", cfg.State.Backend)
	}
	if cfg.Service.MaxTabsPerUser != 10 {
		t.Fatalf("expected default tab cap, got %d", cfg.Service.MaxTabsPerUser)
	}
}

func TestLoadRejectsMissingConfigVersion(t *testing.T) {
	path := writeConfig(t, `
features:
  browser_tabs: true
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "config_version is required") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 3
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRejectsUnsupportedGatewayBackend(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
gateway:
  backend: nope
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported gateway.backend") {
		t.Fatalf("expected gateway error, got %v", err)
	}
}

func TestLoadRequiresMCPEndpoint(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
gateway:
  backend: mcp
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "gateway.mcp.endpoint") {
		t.Fatalf("expected endpoint error, got %v", err)
	}
}

func TestLoadRejectsInvalidMCPEndpoint(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
gateway:
  backend: mcp
  mcp:
    endpoint: example.com/mcp
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "gateway.mcp.endpoint") {
		t.Fatalf("expected endpoint error, got %v", err)
	}
}

func TestLoadRequiresPostgresConnString(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
state:
  backend: postgres
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "state.postgres.conn_string") {
		t.Fatalf("expected conn_string error, got %v", err)
	}
}

func TestLoadExpandsEnvInPaths(t *testing.T) {
	t.Setenv("TABWISE_TEST_STATE", "/var/lib/tabwise")
	path := writeConfig(t, `
config_version: 1
state:
  backend: file
  file:
    dir: $TABWISE_TEST_STATE/state
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.State.File.Dir != "/var/lib/tabwise/state" {
		t.Fatalf("expected env expansion, got %q", cfg.State.File.Dir)
	}
}

func TestExpandEnvKeepsMissingVars(t *testing.T) {
	t.Setenv("FOO", "bar")
	value := expandEnv("$FOO/$MISSING")
	if !strings.HasPrefix(value, "bar/") {
		t.Fatalf("expected env expansion, got %q", value)
	}
	if !strings.HasSuffix(value, "/$MISSING") {
		t.Fatalf("expected missing vars to remain, got %q", value)
	}
}

func TestWriteDefaultRespectsOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if written != path {
		t.Fatalf("expected path %q, got %q", path, written)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config to exist: %v", err)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("expected overwrite to succeed: %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
