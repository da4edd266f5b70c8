package main

import (
	"path/filepath"
	"testing"

	"github.com/1broseidon/flurry/internal/config"
)

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	return rootCmd.Execute()
}

func TestConfigSet_PersistsAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.FileName)

	if err := runCLI(t, "--config", path, "config", "set", config.KeyDensity, "33"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	p, err := config.NewProvider(path)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if got := p.Snapshot().Density; got != 33 {
		t.Fatalf("density = %d, want 33", got)
	}

	if err := runCLI(t, "--config", path, "config", "set", config.KeySize, "-2"); err == nil {
		t.Fatalf("expected invalid size to be rejected")
	}
	if err := runCLI(t, "--config", path, "config", "get", "bogus"); err == nil {
		t.Fatalf("expected unknown key to fail")
	}
}

func TestConfigShow_RejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.FileName)
	err := runCLI(t, "--config", path, "config", "show", "--format", "toml")
	formatFlag = "yaml"
	if err == nil {
		t.Fatalf("expected unsupported format error")
	}
}
