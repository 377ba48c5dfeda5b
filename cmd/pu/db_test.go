package main

import (
	"os"
	"strings"
	"testing"
)

func writeTestFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

func TestDBCmd_Help(t *testing.T) {
	out, err := runCLI(t, "db", "--help")
	if err != nil {
		t.Fatalf("db --help failed: %v", err)
	}
	if !strings.Contains(out, "Database management") {
		t.Errorf("expected help to mention 'Database management', got: %s", out)
	}
	if !strings.Contains(out, "init") || !strings.Contains(out, "reset") {
		t.Errorf("expected help to list init and reset, got: %s", out)
	}
}

func TestDBInitCmd_Help(t *testing.T) {
	out, err := runCLI(t, "db", "init", "--help")
	if err != nil {
		t.Fatalf("db init --help failed: %v", err)
	}
	if !strings.Contains(out, "MySQL database") {
		t.Errorf("expected help to mention 'MySQL database', got: %s", out)
	}
	if !strings.Contains(out, "plombier.yaml") {
		t.Errorf("expected default config path 'plombier.yaml', got: %s", out)
	}
}

func TestDBInitCmd_MissingConfig(t *testing.T) {
	_, err := runCLI(t, "db", "init", "--config", "/nonexistent/plombier.yaml")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "load config") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "load config")
	}
}

func TestDBInitCmd_InvalidConfig(t *testing.T) {
	// Missing required accept section.
	cfgPath := t.TempDir() + "/plombier.yaml"
	if err := writeTestFile(cfgPath, "server:\n  port: 9000\n"); err != nil {
		t.Fatal(err)
	}

	_, err := runCLI(t, "db", "init", "--config", cfgPath)
	if err == nil {
		t.Fatal("expected error for invalid config")
	}
	if !strings.Contains(err.Error(), "token_secret") {
		t.Errorf("error = %q, want to mention token_secret", err.Error())
	}
}

func TestDBResetCmd_AbortsWithoutConfirmation(t *testing.T) {
	cfgPath := t.TempDir() + "/plombier.yaml"
	cfgYAML := "accept:\n  base_url: https://plombier.example\n  token_secret: s3cret\n"
	if err := writeTestFile(cfgPath, cfgYAML); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCmd()
	out := new(strings.Builder)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetIn(strings.NewReader("no\n"))
	cmd.SetArgs([]string{"db", "reset", "--config", cfgPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("db reset failed: %v", err)
	}
	if !strings.Contains(out.String(), "Aborted.") {
		t.Errorf("expected abort message, got: %s", out.String())
	}
}
