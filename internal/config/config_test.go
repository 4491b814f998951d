package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return fs
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"AGENTCHAT_HOME", "AGENTCHAT_ENDPOINT", "AGENTCHAT_BACKEND", "AGENTCHAT_MODEL",
		"AGENTCHAT_STYLE", "AGENTCHAT_EXPORT_DIR", "OPENAI_API_KEY", "OPENAI_BASE_URL",
	} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func TestDetectDataHome(t *testing.T) {
	clearEnv(t)
	got, err := DetectDataHome("/tmp/explicit/")
	if err != nil || got != "/tmp/explicit" {
		t.Fatalf("explicit: got %q, %v", got, err)
	}

	t.Setenv("AGENTCHAT_HOME", "/tmp/from-env")
	got, err = DetectDataHome("")
	if err != nil || got != "/tmp/from-env" {
		t.Fatalf("env: got %q, %v", got, err)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfg, err := Load(newFlags(t, "--data-dir", dir, "--env-file", ""))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != filepath.Join(dir, "history.sqlite") {
		t.Fatalf("unexpected db path %q", cfg.DBPath)
	}
	if cfg.ExportDir != filepath.Join(dir, "exports") {
		t.Fatalf("unexpected export dir %q", cfg.ExportDir)
	}
	if cfg.Agent.Model != DefaultModel || cfg.Agent.Style != DefaultStyle || cfg.Agent.Endpoint != DefaultEndpoint {
		t.Fatalf("unexpected agent defaults: %+v", cfg.Agent)
	}
	if cfg.Agent.Endpoint != "http://localhost:8000/agent/message" {
		t.Fatalf("default endpoint should target the agent message route, got %q", cfg.Agent.Endpoint)
	}
	if cfg.Timeout() != 120*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.Timeout())
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	toml := `
export_dir = "/tmp/from-file"
debug = true

[agent]
endpoint = "http://file.example/message"
model = "file-model"
style = "precise"
timeout_seconds = 30
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("AGENTCHAT_MODEL", "env-model")

	cfg, err := Load(newFlags(t, "--data-dir", dir, "--env-file", "", "--style", "creative"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ExportDir != "/tmp/from-file" || !cfg.Debug {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Agent.Endpoint != "http://file.example/message" {
		t.Fatalf("unexpected endpoint %q", cfg.Agent.Endpoint)
	}
	if cfg.Agent.Model != "env-model" {
		t.Fatalf("env should override file, got model %q", cfg.Agent.Model)
	}
	if cfg.Agent.Style != "creative" {
		t.Fatalf("flag should override file, got style %q", cfg.Agent.Style)
	}
	if cfg.Timeout() != 30*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.Timeout())
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envFile, []byte("AGENTCHAT_ENDPOINT=http://dotenv.example/message\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(newFlags(t, "--data-dir", dir, "--env-file", envFile))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Agent.Endpoint != "http://dotenv.example/message" {
		t.Fatalf("dotenv value not applied: %q", cfg.Agent.Endpoint)
	}
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if _, err := Load(newFlags(t, "--data-dir", dir, "--env-file", filepath.Join(dir, "nope.env"))); err != nil {
		t.Fatalf("missing env file should be ignored: %v", err)
	}
}

func TestLoadRejectsUnknownStyle(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if _, err := Load(newFlags(t, "--data-dir", dir, "--env-file", "", "--style", "chaotic")); err == nil {
		t.Fatalf("expected error for unknown style")
	}
}
