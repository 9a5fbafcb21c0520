package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	_, configPath, base := newCLIConfig(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, filepath.Join(base, "absent.sock"), configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+configPath)
	requireContains(t, out, "Configuration valid")
}

func TestConfigShow(t *testing.T) {
	cfg, configPath, base := newCLIConfig(t)

	out, _, err := runCLI(t, []string{"config", "show"}, filepath.Join(base, "absent.sock"), configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "# resolved from "+configPath)
	requireContains(t, out, cfg.Paths.IntakeDir)
	requireContains(t, out, "[schedule]")
}

func TestVersionCommand(t *testing.T) {
	_, configPath, base := newCLIConfig(t)

	out, _, err := runCLI(t, []string{"version"}, filepath.Join(base, "absent.sock"), configPath)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, "courier dev")
}

func TestConfigInit(t *testing.T) {
	_, configPath, base := newCLIConfig(t)
	socket := filepath.Join(base, "absent.sock")

	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, socket, configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, socket, configPath); err == nil {
		t.Fatal("expected init to refuse overwriting an existing file")
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, socket, configPath); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}
