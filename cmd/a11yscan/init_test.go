package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/a11yscan/internal/config"
)

// runInit executes the init command with args.
func runInit(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewInitCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.Execute()
	return out.String(), err
}

func TestInitCmd(t *testing.T) {
	t.Parallel()

	t.Run("has default output", func(t *testing.T) {
		t.Parallel()
		flag := NewInitCmd().Flags().Lookup("output")
		if flag == nil || flag.DefValue != config.DefaultConfigFile {
			t.Errorf("expected default output %s", config.DefaultConfigFile)
		}
	})

	t.Run("creates configuration file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), config.DefaultConfigFile)
		output, err := runInit(t, "-o", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output, "Created configuration file: "+path) {
			t.Errorf("unexpected output:\n%s", output)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("expected file: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("expected permission 0600, got %o", perm)
		}
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "existing.yaml")
		if err := os.WriteFile(path, []byte("profile: quick\n"), 0600); err != nil {
			t.Fatal(err)
		}
		_, err := runInit(t, "-o", path)
		if err == nil || !strings.Contains(err.Error(), "already exists") {
			t.Errorf("expected already exists error, got %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "profile: quick\n" {
			t.Error("existing file must not change")
		}
	})

	t.Run("overwrites with force", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "existing.yaml")
		if err := os.WriteFile(path, []byte("profile: quick\n"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := runInit(t, "-o", path, "-f"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "moduleOptions:") {
			t.Error("expected the template content")
		}
	})

	t.Run("creates nested directories", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "configs", "ci", "a11yscan.yaml")
		if _, err := runInit(t, "-o", path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected file: %v", err)
		}
	})
}

func TestConfigTemplateIsValid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), config.DefaultConfigFile)
	if _, err := runInit(t, "-o", path); err != nil {
		t.Fatal(err)
	}

	file, err := config.LoadConfigFile(path)
	if err != nil {
		t.Fatalf("template does not parse: %v", err)
	}
	cfg := config.NewConfig()
	if err := file.ApplyTo(cfg); err != nil {
		t.Fatalf("template does not apply: %v", err)
	}
	cfg.URL = "https://www.example.com/"
	if err := cfg.Validate(); err != nil {
		t.Errorf("template produces an invalid configuration: %v", err)
	}
	if cfg.Crawl.ConsentClick != config.ConsentOff {
		t.Errorf("expected consent click off, got %q", cfg.Crawl.ConsentClick)
	}
}
