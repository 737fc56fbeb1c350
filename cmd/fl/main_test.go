package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "fl dev") {
		t.Errorf("output = %q, want it to name fl dev", out.String())
	}
}

func TestRootListsSubcommands(t *testing.T) {
	cmd := newRootCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"version", "db", "serve", "reconcile"} {
		if !names[want] {
			t.Errorf("missing subcommand %q", want)
		}
	}
}

func TestLoadConfig_MissingFileFallsBack(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.MySQL.Database != "flotilla" || cfg.Server.Port != 8080 {
		t.Errorf("defaults = (%q, %d), want (flotilla, 8080)", cfg.MySQL.Database, cfg.Server.Port)
	}
}

func TestLoadConfig_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flotilla.yaml")
	yaml := "mysql:\n  database: pruebas\nserver:\n  port: 9999\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.MySQL.Database != "pruebas" || cfg.Server.Port != 9999 {
		t.Errorf("got (%q, %d), want (pruebas, 9999)", cfg.MySQL.Database, cfg.Server.Port)
	}
}

func TestDBDrop_RefusesWithoutTTY(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flotilla.yaml")
	if err := os.WriteFile(path, []byte("mysql:\n  database: pruebas\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader("yes\n"))
	cmd.SetArgs([]string{"db", "drop", "--config", path})

	// Test stdin is not a terminal, so the drop must refuse instead of
	// reading the piped confirmation.
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error without a TTY and without --yes")
	}
}
