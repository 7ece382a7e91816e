package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "monitord.conf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"version"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d, want 0 (stderr: %s)", code, stderr.String())
	}
	if got := stdout.String(); got != "monitord dev\n" {
		t.Errorf("stdout = %q, want %q", got, "monitord dev\n")
	}
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--help"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	for _, want := range []string{"Configuration:", "Run Mode:", "Observability:", "--output-format", "-v, --verbose"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("help missing %q", want)
		}
	}
}

func TestRun_Errors(t *testing.T) {
	cfg := writeConfig(t, "[monitord]\noutput_format = json\n")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "unknown output format",
			args: []string{"--config", cfg, "--skip-preflight", "--output-format", "xml"},
			want: "output_format",
		},
		{
			name: "dashboard without daemon",
			args: []string{"--config", cfg, "--skip-preflight", "--tui"},
			want: "requires daemon mode",
		},
		{
			name: "missing config file",
			args: []string{"--config", filepath.Join(t.TempDir(), "absent.conf")},
			want: "load config",
		},
		{
			name: "bad log level",
			args: []string{"--config", cfg, "--log-level", "loud"},
			want: "log_level",
		},
		{
			name: "positional argument",
			args: []string{"extra"},
			want: "Error:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tt.args, &stdout, &stderr); code != 1 {
				t.Errorf("exit code = %d, want 1", code)
			}
			if !strings.Contains(stderr.String(), tt.want) {
				t.Errorf("stderr = %q, want it to contain %q", stderr.String(), tt.want)
			}
			if stdout.Len() != 0 {
				t.Errorf("stdout = %q, want empty", stdout.String())
			}
		})
	}
}

func TestRun_PreflightFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no_bus_socket")
	cfg := writeConfig(t, "[monitord]\ndbus_address = unix:path="+missing+"\n")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"--config", cfg, "--log-format", "text"}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "preflight checks failed") {
		t.Errorf("stderr = %q, want preflight failure", stderr.String())
	}
}
