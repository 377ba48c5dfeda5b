package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Sqlsyntax59/plombier-urgent-sub000/internal/config"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "pu dev") {
		t.Errorf("expected output to contain 'pu dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestVersionCmdWithCustomValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.0.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "pu 1.0.0") {
		t.Errorf("expected output to contain 'pu 1.0.0', got: %s", out)
	}
	if !strings.Contains(out, "built: 2026-01-01") {
		t.Errorf("expected output to contain 'built: 2026-01-01', got: %s", out)
	}
}

func TestRootCmdHelp(t *testing.T) {
	out, err := runCLI(t, "--help")
	if err != nil {
		t.Fatalf("--help failed: %v", err)
	}
	for _, sub := range []string{"db", "serve", "sweep", "lead", "artisan", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help to list %q subcommand, got: %s", sub, out)
		}
	}
}

func TestPolicyFromConfig(t *testing.T) {
	cfg, err := config.Parse([]byte(`
accept:
  base_url: https://plombier.example
  token_secret: s3cret
cascade:
  max_rounds: 6
  offer_window: 90s
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	pol := policyFromConfig(cfg)
	if pol.MaxRounds != 6 {
		t.Errorf("MaxRounds = %d, want 6", pol.MaxRounds)
	}
	if pol.OfferWindow != 90*time.Second {
		t.Errorf("OfferWindow = %s, want 90s", pol.OfferWindow)
	}
	if pol.WaveSize != 3 {
		t.Errorf("WaveSize = %d, want default 3", pol.WaveSize)
	}
	if pol.AcceptBaseURL != "https://plombier.example" {
		t.Errorf("AcceptBaseURL = %q", pol.AcceptBaseURL)
	}
	if pol.TokenSkew != 5*time.Minute {
		t.Errorf("TokenSkew = %s, want default 5m", pol.TokenSkew)
	}
}
